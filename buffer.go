package napi

import (
	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// Buffer is strict: only host byte buffers are accepted.
type Buffer struct{ value }

func (b *Buffer) setRaw(env Env, raw sys.Value) error {
	ok, err := isBuffer(env, raw)
	if err != nil {
		return err
	}
	if !ok {
		t, err := typeOf(env, raw)
		if err != nil {
			return err
		}
		return errors.TypeMismatch(errors.PhaseCast, "Buffer", t.String())
	}
	b.value = value{env: env.raw, raw: raw}
	return nil
}

// Bytes returns a view of the host-owned bytes. The slice must not be kept
// past the call that produced env.
func (b Buffer) Bytes(env Env) ([]byte, error) {
	if err := env.check(b, "napi_get_buffer_info"); err != nil {
		return nil, err
	}
	data, st := env.api.GetBufferInfo(env.raw, b.raw)
	if st != sys.StatusOK {
		return nil, env.lastError(errors.PhaseCast, "napi_get_buffer_info", st)
	}
	return data[:len(data):len(data)], nil
}

// Copy returns an owned copy of the buffer contents.
func (b Buffer) Copy(env Env) ([]byte, error) {
	view, err := b.Bytes(env)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(view))
	copy(out, view)
	return out, nil
}

// Len returns the host-reported byte length.
func (b Buffer) Len(env Env) (int, error) {
	view, err := b.Bytes(env)
	if err != nil {
		return 0, err
	}
	return len(view), nil
}

// CreateBuffer copies data into a new host buffer.
func CreateBuffer(env Env, data []byte) (Buffer, error) {
	raw, st := env.api.CreateBufferCopy(env.raw, data)
	if st != sys.StatusOK {
		return Buffer{}, env.lastError(errors.PhaseCast, "napi_create_buffer_copy", st)
	}
	return Buffer{value{env: env.raw, raw: raw}}, nil
}
