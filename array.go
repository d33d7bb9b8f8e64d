package napi

import (
	"strconv"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// Array is strict: only host arrays are accepted.
type Array struct{ value }

func (a *Array) setRaw(env Env, raw sys.Value) error {
	ok, err := isArray(env, raw)
	if err != nil {
		return err
	}
	if !ok {
		t, err := typeOf(env, raw)
		if err != nil {
			return err
		}
		return errors.TypeMismatch(errors.PhaseCast, "Array", t.String())
	}
	a.value = value{env: env.raw, raw: raw}
	return nil
}

// Len returns the array length.
func (a Array) Len(env Env) (uint32, error) {
	if err := env.check(a, "napi_get_array_length"); err != nil {
		return 0, err
	}
	n, st := env.api.GetArrayLength(env.raw, a.raw)
	if st != sys.StatusOK {
		return 0, env.lastError(errors.PhaseProperty, "napi_get_array_length", st)
	}
	return n, nil
}

// Get reads the element at i. Holes and indices past the end read as
// undefined, as on the host.
func (a Array) Get(env Env, i uint32) (Unknown, error) {
	if err := env.check(a, "napi_get_element"); err != nil {
		return Unknown{}, err
	}
	raw, st := env.api.GetElement(env.raw, a.raw, i)
	if st != sys.StatusOK {
		return Unknown{}, env.lastError(errors.PhaseProperty, "napi_get_element", st)
	}
	return Unknown{value{env: env.raw, raw: raw}}, nil
}

// Set writes the element at i, growing the array when needed.
func (a Array) Set(env Env, i uint32, v Value) error {
	if err := env.check(a, "napi_set_element"); err != nil {
		return err
	}
	if err := env.check(v, "napi_set_element"); err != nil {
		return err
	}
	if st := env.api.SetElement(env.raw, a.raw, i, v.Raw()); st != sys.StatusOK {
		return env.lastError(errors.PhaseProperty, "napi_set_element", st)
	}
	return nil
}

// Has reports whether the element at i exists.
func (a Array) Has(env Env, i uint32) (bool, error) {
	if err := env.check(a, "napi_has_element"); err != nil {
		return false, err
	}
	ok, st := env.api.HasElement(env.raw, a.raw, i)
	if st != sys.StatusOK {
		return false, env.lastError(errors.PhaseProperty, "napi_has_element", st)
	}
	return ok, nil
}

// Delete removes the element at i, leaving a hole.
func (a Array) Delete(env Env, i uint32) (bool, error) {
	if err := env.check(a, "napi_delete_element"); err != nil {
		return false, err
	}
	ok, st := env.api.DeleteElement(env.raw, a.raw, i)
	if st != sys.StatusOK {
		return false, env.lastError(errors.PhaseProperty, "napi_delete_element", st)
	}
	return ok, nil
}

// Push appends v.
func (a Array) Push(env Env, v Value) error {
	n, err := a.Len(env)
	if err != nil {
		return err
	}
	return a.Set(env, n, v)
}

// ElementAs reads the element at i as T. Unlike Get it fails with
// ErrOutOfBounds past the end.
func ElementAs[T any, P rawValue[T]](env Env, a Array, i uint32) (T, error) {
	var zero T
	n, err := a.Len(env)
	if err != nil {
		return zero, err
	}
	if i >= n {
		return zero, errors.OutOfBounds(errors.PhaseProperty, []string{strconv.FormatUint(uint64(i), 10)}, int(i), int(n))
	}
	u, err := a.Get(env, i)
	if err != nil {
		return zero, err
	}
	return FromRaw[T, P](env, u.raw)
}

// CreateArray creates an empty host array, or one with length holes when a
// length is given.
func CreateArray(env Env, length ...int) (Array, error) {
	var (
		raw sys.Value
		st  sys.Status
	)
	if len(length) > 0 {
		if length[0] < 0 {
			return Array{}, errors.InvalidInput(errors.PhaseCast, "negative array length")
		}
		raw, st = env.api.CreateArrayWithLength(env.raw, length[0])
	} else {
		raw, st = env.api.CreateArray(env.raw)
	}
	if st != sys.StatusOK {
		return Array{}, env.lastError(errors.PhaseCast, "napi_create_array", st)
	}
	return Array{value{env: env.raw, raw: raw}}, nil
}

// NewArrayFrom creates a host array holding values in order.
func NewArrayFrom(env Env, values ...Value) (Array, error) {
	arr, err := CreateArray(env, len(values))
	if err != nil {
		return Array{}, err
	}
	for i, v := range values {
		if err := arr.Set(env, uint32(i), v); err != nil {
			return Array{}, err
		}
	}
	return arr, nil
}
