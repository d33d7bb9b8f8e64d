package napi

import (
	"go.uber.org/zap"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// Env is the scope token of one boundary call. It is only valid for the
// duration of the call that received it and must not be retained.
type Env struct {
	api sys.API
	raw sys.Env
}

// NewEnv binds a raw scope token to the API that issued it. Module glue and
// tests use it; callbacks receive a ready Env.
func NewEnv(api sys.API, raw sys.Env) Env {
	return Env{api: api, raw: raw}
}

// Raw returns the raw scope token.
func (e Env) Raw() sys.Env { return e.raw }

// API returns the boundary the token belongs to.
func (e Env) API() sys.API { return e.api }

// Throw records an error exception on the host and returns a pending
// exception error so native code can unwind. If an exception is already
// pending nothing is thrown.
func (e Env) Throw(code, message string) error {
	pending, st := e.api.IsExceptionPending(e.raw)
	if st != sys.StatusOK {
		return e.lastError(errors.PhaseCall, "napi_is_exception_pending", st)
	}
	if pending {
		return errors.PendingException(errors.PhaseCall, "napi_throw_error")
	}
	if st := e.api.ThrowError(e.raw, code, message); st != sys.StatusOK {
		return e.lastError(errors.PhaseCall, "napi_throw_error", st)
	}
	return errors.PendingException(errors.PhaseCall, "napi_throw_error")
}

// ThrowValue throws an arbitrary value.
func (e Env) ThrowValue(v Value) error {
	if err := e.check(v, "napi_throw"); err != nil {
		return err
	}
	pending, st := e.api.IsExceptionPending(e.raw)
	if st != sys.StatusOK {
		return e.lastError(errors.PhaseCall, "napi_is_exception_pending", st)
	}
	if pending {
		return errors.PendingException(errors.PhaseCall, "napi_throw")
	}
	if st := e.api.Throw(e.raw, v.Raw()); st != sys.StatusOK {
		return e.lastError(errors.PhaseCall, "napi_throw", st)
	}
	return errors.PendingException(errors.PhaseCall, "napi_throw")
}

// ThrowError converts err into a host exception. Pending exceptions are left
// untouched. The returned error is always a pending exception unless the
// throw itself failed.
func (e Env) ThrowError(err error) error {
	if err == nil {
		return nil
	}
	if errors.IsPendingException(err) {
		return err
	}
	return e.Throw(errors.ThrowCode(err), errors.ThrowMessage(err))
}

// IsExceptionPending reports whether the host holds an unhandled exception.
func (e Env) IsExceptionPending() (bool, error) {
	pending, st := e.api.IsExceptionPending(e.raw)
	if st != sys.StatusOK {
		return false, e.lastError(errors.PhaseCall, "napi_is_exception_pending", st)
	}
	return pending, nil
}

// CatchException takes the pending exception off the host. ok is false when
// nothing was pending.
func (e Env) CatchException() (exc Unknown, ok bool, err error) {
	pending, err := e.IsExceptionPending()
	if err != nil || !pending {
		return Unknown{}, false, err
	}
	raw, st := e.api.GetAndClearLastException(e.raw)
	if st != sys.StatusOK {
		return Unknown{}, false, e.lastError(errors.PhaseCall, "napi_get_and_clear_last_exception", st)
	}
	return Unknown{value{env: e.raw, raw: raw}}, true, nil
}

// Undefined returns the undefined singleton.
func (e Env) Undefined() (Undefined, error) {
	raw, st := e.api.GetUndefined(e.raw)
	if st != sys.StatusOK {
		return Undefined{}, e.lastError(errors.PhaseCast, "napi_get_undefined", st)
	}
	return Undefined{value{env: e.raw, raw: raw}}, nil
}

// Null returns the null singleton.
func (e Env) Null() (Null, error) {
	raw, st := e.api.GetNull(e.raw)
	if st != sys.StatusOK {
		return Null{}, e.lastError(errors.PhaseCast, "napi_get_null", st)
	}
	return Null{value{env: e.raw, raw: raw}}, nil
}

// Global returns the host's global object.
func (e Env) Global() (Object, error) {
	raw, st := e.api.GetGlobal(e.raw)
	if st != sys.StatusOK {
		return Object{}, e.lastError(errors.PhaseCast, "napi_get_global", st)
	}
	return Object{value{env: e.raw, raw: raw}}, nil
}

// lastError captures why a boundary call failed. The last-error slot is read
// before querying the exception state because that query resets it.
func (e Env) lastError(phase errors.Phase, op string, st sys.Status) error {
	info, infoSt := e.api.GetLastErrorInfo(e.raw)
	pending, pendSt := e.api.IsExceptionPending(e.raw)
	if pendSt == sys.StatusOK && pending {
		return errors.PendingException(phase, op)
	}
	if infoSt == sys.StatusOK && info.Code != sys.StatusOK {
		return errors.Status(phase, op, info.Code, info.Message)
	}
	return errors.Status(phase, op, st, "")
}

// check asserts that v was produced under this token.
func (e Env) check(v Value, op string) error {
	if v == nil {
		return errors.InvalidInput(errors.PhaseCall, op+": nil value")
	}
	if v.scope() != e.raw {
		return errors.ScopeMismatch(errors.PhaseCall, op)
	}
	return nil
}

// throwAtBoundary is the trampoline's error exit: the error becomes a host
// exception unless one is already pending.
func throwAtBoundary(env Env, err error) {
	Logger().Debug("native error thrown to host",
		zap.Uint64("env", uint64(env.raw)),
		zap.Error(err),
	)
	if terr := env.ThrowError(err); terr != nil && !errors.IsPendingException(terr) {
		Logger().Warn("failed to throw native error", zap.Error(terr), zap.NamedError("original", err))
	}
}
