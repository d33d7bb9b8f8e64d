package napi

import (
	"reflect"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// Wrap attaches native to obj. The payload is owned by obj and dropped by
// its finalizer; fin, when given, runs first.
func Wrap[T any](env Env, obj Value, native T, fin ...FinalizeFunc[T]) error {
	if err := env.check(obj, "napi_wrap"); err != nil {
		return err
	}
	p := natives.Insert(reflect.TypeFor[T](), &native)
	var run FinalizeFunc[T]
	if len(fin) > 0 {
		run = fin[0]
	}
	st := env.api.Wrap(env.raw, obj.Raw(), p, finalizeTrampoline(env.api, typedFinalizer(run)), 0)
	if st != sys.StatusOK {
		natives.Take(p)
		return env.lastError(errors.PhaseWrap, "napi_wrap", st)
	}
	return nil
}

// Unwrap borrows the payload attached to obj. It fails with ErrTypeMismatch
// when obj carries no payload or one of another type. The pointer must not
// outlive obj.
func Unwrap[T any](env Env, obj Value) (*T, error) {
	if err := env.check(obj, "napi_unwrap"); err != nil {
		return nil, err
	}
	p, err := unwrapPointer(env, obj.Raw())
	if err != nil {
		return nil, err
	}
	return typedPayload[T](p)
}

// Peek returns a copy of the payload attached to obj.
func Peek[T any](env Env, obj Value) (T, error) {
	ptr, err := Unwrap[T](env, obj)
	if err != nil {
		var zero T
		return zero, err
	}
	return *ptr, nil
}

// RemoveWrap detaches the payload from obj and returns it. The finalizer
// installed by Wrap will not run.
func RemoveWrap[T any](env Env, obj Value) (T, error) {
	var zero T
	if _, err := Unwrap[T](env, obj); err != nil {
		return zero, err
	}
	p, st := env.api.RemoveWrap(env.raw, obj.Raw())
	if st != sys.StatusOK {
		return zero, env.lastError(errors.PhaseWrap, "napi_remove_wrap", st)
	}
	payload, ok := natives.Take(p)
	if !ok {
		return zero, errors.NotFound(errors.PhaseWrap, "wrapped payload already released")
	}
	return *payload.(*T), nil
}

// AddFinalizer ties data to obj's lifetime without making it retrievable.
// fin runs once when the host collects obj.
func AddFinalizer[T any](env Env, obj Value, data T, fin FinalizeFunc[T]) error {
	if err := env.check(obj, "napi_add_finalizer"); err != nil {
		return err
	}
	p := natives.Insert(reflect.TypeFor[T](), &data)
	st := env.api.AddFinalizer(env.raw, obj.Raw(), p, finalizeTrampoline(env.api, typedFinalizer(fin)), 0)
	if st != sys.StatusOK {
		natives.Take(p)
		return env.lastError(errors.PhaseFinalize, "napi_add_finalizer", st)
	}
	return nil
}

// Wrapped is the strict variant for objects carrying a T payload.
type Wrapped[T any] struct {
	Object
	native *T
}

func (w *Wrapped[T]) setRaw(env Env, raw sys.Value) error {
	p, err := unwrapPointer(env, raw)
	if err != nil {
		return err
	}
	native, err := typedPayload[T](p)
	if err != nil {
		return err
	}
	w.Object = Object{value{env: env.raw, raw: raw}}
	w.native = native
	return nil
}

// Native borrows the payload. The pointer must not outlive the object.
func (w Wrapped[T]) Native(env Env) (*T, error) {
	if err := env.check(w, "napi_unwrap"); err != nil {
		return nil, err
	}
	return w.native, nil
}

// NewWrapped creates an empty object carrying native.
func NewWrapped[T any](env Env, native T, fin ...FinalizeFunc[T]) (Wrapped[T], error) {
	obj, err := CreateObject(env)
	if err != nil {
		return Wrapped[T]{}, err
	}
	if err := Wrap(env, obj, native, fin...); err != nil {
		return Wrapped[T]{}, err
	}
	return FromRaw[Wrapped[T]](env, obj.raw)
}

// unwrapPointer fetches the attached pointer. A missing payload is reported
// as a type mismatch; pending exceptions pass through.
func unwrapPointer(env Env, raw sys.Value) (sys.Pointer, error) {
	p, st := env.api.Unwrap(env.raw, raw)
	if st == sys.StatusOK && p != 0 {
		return p, nil
	}
	if st == sys.StatusOK {
		return 0, errors.New(errors.PhaseWrap, errors.KindTypeMismatch).
			Op("napi_unwrap").HostType("object").Detail("no native payload attached").Build()
	}
	err := env.lastError(errors.PhaseWrap, "napi_unwrap", st)
	if errors.IsPendingException(err) {
		return 0, err
	}
	return 0, errors.New(errors.PhaseWrap, errors.KindTypeMismatch).
		Op("napi_unwrap").Status(st).Cause(err).Detail("no native payload attached").Build()
}

func typedPayload[T any](p sys.Pointer) (*T, error) {
	typ := reflect.TypeFor[T]()
	v, ok := natives.GetTyped(p, typ)
	if !ok {
		actual := "released payload"
		if t, ok := natives.TypeOf(p); ok {
			actual = t.String()
		}
		return nil, errors.TypeMismatch(errors.PhaseWrap, typ.String(), actual)
	}
	return v.(*T), nil
}
