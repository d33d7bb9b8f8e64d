package napi

import (
	"reflect"
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// argGuess is the number of argument slots fetched before asking the host
// again with an exactly-sized buffer.
const argGuess = 6

var callbackType = reflect.TypeFor[Callback]()

// Callback is a native function callable from the host. A returned error is
// thrown into the host; a nil Value returns undefined.
type Callback func(env Env, info *CallbackInfo) (Value, error)

// CallbackInfo is the receiver and arguments of one invocation. It is only
// valid during that invocation.
type CallbackInfo struct {
	This Unknown

	env    Env
	argv   []sys.Value
	data   sys.Pointer
	inline [argGuess]sys.Value
}

// Len returns the number of arguments passed by the caller.
func (c *CallbackInfo) Len() int { return len(c.argv) }

// Arg returns argument i, failing with ErrOutOfBounds when the caller passed
// fewer arguments.
func (c *CallbackInfo) Arg(i int) (Unknown, error) {
	if i < 0 || i >= len(c.argv) {
		return Unknown{}, errors.OutOfBounds(errors.PhaseCallback, []string{"arguments", strconv.Itoa(i)}, i, len(c.argv))
	}
	return Unknown{value{env: c.env.raw, raw: c.argv[i]}}, nil
}

// ArgRaw returns the raw handle of argument i, or the null handle.
func (c *CallbackInfo) ArgRaw(i int) sys.Value {
	if i < 0 || i >= len(c.argv) {
		return 0
	}
	return c.argv[i]
}

// Args returns every argument.
func (c *CallbackInfo) Args() []Unknown {
	out := make([]Unknown, len(c.argv))
	for i, raw := range c.argv {
		out[i] = Unknown{value{env: c.env.raw, raw: raw}}
	}
	return out
}

// ArgAs returns argument i constructed as T.
func ArgAs[T any, P rawValue[T]](env Env, info *CallbackInfo, i int) (T, error) {
	arg, err := info.Arg(i)
	if err != nil {
		var zero T
		return zero, err
	}
	return As[T, P](env, arg)
}

// readCallbackInfo fetches the invocation record. The first query uses the
// inline slots; a call with more arguments is fetched again at exact size.
func readCallbackInfo(env Env, raw sys.CallbackInfo) (*CallbackInfo, error) {
	info := &CallbackInfo{env: env}
	argc, this, data, st := env.api.GetCbInfo(env.raw, raw, info.inline[:])
	if st != sys.StatusOK {
		return nil, env.lastError(errors.PhaseCallback, "napi_get_cb_info", st)
	}
	if argc > argGuess {
		argv := make([]sys.Value, argc)
		argc, this, data, st = env.api.GetCbInfo(env.raw, raw, argv)
		if st != sys.StatusOK {
			return nil, env.lastError(errors.PhaseCallback, "napi_get_cb_info", st)
		}
		info.argv = argv[:min(argc, len(argv))]
	} else {
		info.argv = info.inline[:argc]
	}
	info.This = Unknown{value{env: env.raw, raw: this}}
	info.data = data
	return info, nil
}

// callbackTrampoline adapts the host calling convention to a Callback boxed
// behind the registration data pointer. The closure is borrowed, never
// taken: it lives until the function's finalizer removes it.
func callbackTrampoline(api sys.API) sys.Callback {
	return func(rawEnv sys.Env, rawInfo sys.CallbackInfo) (ret sys.Value) {
		env := NewEnv(api, rawEnv)
		defer func() {
			if r := recover(); r != nil {
				Logger().Error("panic in native callback", zap.Any("panic", r))
				throwAtBoundary(env, errors.New(errors.PhaseCallback, errors.KindPanic).
					Detail("native callback panicked: %v", r).Build())
				ret = 0
			}
		}()

		info, err := readCallbackInfo(env, rawInfo)
		if err != nil {
			throwAtBoundary(env, err)
			return 0
		}
		boxed, ok := natives.GetTyped(info.data, callbackType)
		if !ok {
			throwAtBoundary(env, errors.NotFound(errors.PhaseCallback, "callback state is gone"))
			return 0
		}

		result, err := boxed.(Callback)(env, info)
		if err != nil {
			throwAtBoundary(env, err)
			return 0
		}
		if result == nil {
			undef, err := env.Undefined()
			if err != nil {
				throwAtBoundary(env, err)
				return 0
			}
			return undef.raw
		}
		if err := env.check(result, "callback return"); err != nil {
			throwAtBoundary(env, err)
			return 0
		}
		return result.Raw()
	}
}

// Function is strict: only host functions are accepted.
type Function struct{ value }

func (f *Function) setRaw(env Env, raw sys.Value) error {
	if err := expectType(env, raw, sys.TypeFunction, "Function"); err != nil {
		return err
	}
	f.value = value{env: env.raw, raw: raw}
	return nil
}

// NewFunction registers cb as a host function. The closure is boxed once and
// released by a finalizer when the host collects the function.
func NewFunction(env Env, name string, cb Callback) (Function, error) {
	if cb == nil {
		return Function{}, errors.InvalidInput(errors.PhaseCallback, "nil callback")
	}
	data := natives.Insert(callbackType, cb)

	raw, st := env.api.CreateFunction(env.raw, name, callbackTrampoline(env.api), data)
	if st != sys.StatusOK {
		natives.Remove(data)
		return Function{}, env.lastError(errors.PhaseCallback, "napi_create_function", st)
	}
	if st := env.api.AddFinalizer(env.raw, raw, data, finalizeTrampoline(env.api, nil), 0); st != sys.StatusOK {
		// The function exists but nothing will free the closure; drop it now
		// and let later invocations fail cleanly.
		natives.Remove(data)
		return Function{}, env.lastError(errors.PhaseCallback, "napi_add_finalizer", st)
	}
	return Function{value{env: env.raw, raw: raw}}, nil
}

// Call invokes f with the given receiver and arguments. A nil this passes
// undefined.
func (f Function) Call(env Env, this Value, args ...Value) (Unknown, error) {
	if err := env.check(f, "napi_call_function"); err != nil {
		return Unknown{}, err
	}
	var recv sys.Value
	if this == nil {
		undef, err := env.Undefined()
		if err != nil {
			return Unknown{}, err
		}
		recv = undef.raw
	} else {
		if err := env.check(this, "napi_call_function"); err != nil {
			return Unknown{}, err
		}
		recv = this.Raw()
	}
	argv := make([]sys.Value, len(args))
	for i, a := range args {
		if err := env.check(a, "napi_call_function"); err != nil {
			return Unknown{}, err
		}
		argv[i] = a.Raw()
	}
	raw, st := env.api.CallFunction(env.raw, recv, f.raw, argv)
	if st != sys.StatusOK {
		return Unknown{}, env.lastError(errors.PhaseCall, "napi_call_function", st)
	}
	return Unknown{value{env: env.raw, raw: raw}}, nil
}

// CallAs invokes fn and constructs the result as T.
func CallAs[T any, P rawValue[T]](env Env, fn Function, this Value, args ...Value) (T, error) {
	u, err := fn.Call(env, this, args...)
	if err != nil {
		var zero T
		return zero, err
	}
	return FromRaw[T, P](env, u.raw)
}
