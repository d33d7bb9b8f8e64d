package napi

import (
	"reflect"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/internal/box"
	"github.com/wippyai/napi-go/sys"
)

// Dispatcher delivers queued data to the target function on the control
// thread. A dispatcher may also implement Finalize(env Env), which runs once
// when the bridge is torn down.
type Dispatcher[D any] interface {
	Call(env Env, fn Function, data D) error
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc[D any] func(env Env, fn Function, data D) error

func (f DispatchFunc[D]) Call(env Env, fn Function, data D) error {
	return f(env, fn, data)
}

type dispatchFinalizer interface {
	Finalize(env Env)
}

type tsfnOptions struct {
	resourceName string
	maxQueueSize int
}

// ThreadsafeFunctionOption configures NewThreadsafeFunction.
type ThreadsafeFunctionOption func(*tsfnOptions)

// WithMaxQueueSize bounds the delivery queue. Zero means unbounded.
func WithMaxQueueSize(n int) ThreadsafeFunctionOption {
	return func(o *tsfnOptions) {
		if n >= 0 {
			o.maxQueueSize = n
		}
	}
}

// WithResourceName sets the name the host reports for the bridge.
func WithResourceName(name string) ThreadsafeFunctionOption {
	return func(o *tsfnOptions) {
		o.resourceName = name
	}
}

// ThreadsafeFunction is one reference to a bridge that lets any goroutine
// queue calls to a host function. Each reference is released once; the
// bridge is torn down when the last reference goes.
type ThreadsafeFunction[D any] struct {
	api      sys.API
	raw      sys.ThreadsafeFunction
	released atomic.Bool
}

// NewThreadsafeFunction registers a bridge to fn holding one reference.
// strategy is boxed once and finalized when the bridge is torn down.
func NewThreadsafeFunction[D any](env Env, fn Function, strategy Dispatcher[D], opts ...ThreadsafeFunctionOption) (*ThreadsafeFunction[D], error) {
	if err := env.check(fn, "napi_create_threadsafe_function"); err != nil {
		return nil, err
	}
	if strategy == nil {
		return nil, errors.InvalidInput(errors.PhaseThreadsafe, "nil dispatcher")
	}
	o := tsfnOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.resourceName == "" {
		o.resourceName = "napi-go.tsfn." + uuid.NewString()
	}
	name, err := CreateString(env, o.resourceName)
	if err != nil {
		return nil, err
	}

	ctx := natives.Insert(reflect.TypeFor[Dispatcher[D]](), strategy)
	fin := finalizeTrampoline(env.api, func(env Env, payload any) {
		if f, ok := payload.(dispatchFinalizer); ok {
			f.Finalize(env)
		}
	})
	raw, st := env.api.CreateThreadsafeFunction(env.raw, fn.raw, name.raw, o.maxQueueSize, 1,
		ctx, fin, ctx, callJSTrampoline[D](env.api))
	if st != sys.StatusOK {
		natives.Take(ctx)
		return nil, env.lastError(errors.PhaseThreadsafe, "napi_create_threadsafe_function", st)
	}
	Logger().Debug("threadsafe function created",
		zap.String("resource", o.resourceName),
		zap.Int("max_queue_size", o.maxQueueSize),
	)
	return &ThreadsafeFunction[D]{api: env.api, raw: raw}, nil
}

// Call queues data, blocking while the queue is full. It fails with
// ErrClosing once the bridge is being torn down.
// Called on the control thread with a full queue, it never returns; use
// TryCall there.
func (t *ThreadsafeFunction[D]) Call(data D) error {
	return t.call(data, sys.CallBlocking)
}

// TryCall queues data without blocking. It fails with ErrQueueFull when the
// queue has no room.
func (t *ThreadsafeFunction[D]) TryCall(data D) error {
	return t.call(data, sys.CallNonBlocking)
}

func (t *ThreadsafeFunction[D]) call(data D, mode sys.CallMode) error {
	if t.released.Load() {
		return errors.New(errors.PhaseThreadsafe, errors.KindClosing).
			Op("napi_call_threadsafe_function").Detail("handle already released").Build()
	}
	p := natives.Insert(reflect.TypeFor[D](), &data)
	if st := t.api.CallThreadsafeFunction(t.raw, p, mode); st != sys.StatusOK {
		natives.Take(p)
		return errors.Status(errors.PhaseThreadsafe, "napi_call_threadsafe_function", st, "")
	}
	return nil
}

// Acquire adds a reference to the bridge and returns it as a new handle.
func (t *ThreadsafeFunction[D]) Acquire() (*ThreadsafeFunction[D], error) {
	if t.released.Load() {
		return nil, errors.New(errors.PhaseThreadsafe, errors.KindClosing).
			Op("napi_acquire_threadsafe_function").Detail("handle already released").Build()
	}
	if st := t.api.AcquireThreadsafeFunction(t.raw); st != sys.StatusOK {
		return nil, errors.Status(errors.PhaseThreadsafe, "napi_acquire_threadsafe_function", st, "")
	}
	return &ThreadsafeFunction[D]{api: t.api, raw: t.raw}, nil
}

// Release drops this handle's reference. Releasing a handle twice is a
// no-op.
func (t *ThreadsafeFunction[D]) Release() error {
	return t.release(sys.ReleaseNormal)
}

// Abort drops this handle's reference and closes the bridge for every
// holder: queued items are discarded without dispatch and later calls fail
// with ErrClosing.
func (t *ThreadsafeFunction[D]) Abort() error {
	return t.release(sys.ReleaseAbort)
}

func (t *ThreadsafeFunction[D]) release(mode sys.ReleaseMode) error {
	if !t.released.CompareAndSwap(false, true) {
		return nil
	}
	if st := t.api.ReleaseThreadsafeFunction(t.raw, mode); st != sys.StatusOK {
		return errors.Status(errors.PhaseThreadsafe, "napi_release_threadsafe_function", st, "")
	}
	return nil
}

// callJSTrampoline delivers one queued item. The payload is taken out of the
// arena first and dropped after dispatch. A zero env means the bridge is
// being aborted and the item is only dropped.
func callJSTrampoline[D any](api sys.API) sys.CallJS {
	strategyType := reflect.TypeFor[Dispatcher[D]]()
	return func(rawEnv sys.Env, rawFn sys.Value, ctx sys.Pointer, data sys.Pointer) {
		payload, ok := natives.Take(data)
		if !ok {
			Logger().Warn("threadsafe call without payload", zap.Uint64("data", uint64(data)))
			return
		}
		defer dropPayload(payload)
		if rawEnv == 0 {
			return
		}

		env := NewEnv(api, rawEnv)
		defer func() {
			if r := recover(); r != nil {
				Logger().Error("panic in threadsafe dispatch", zap.Any("panic", r))
				throwAtBoundary(env, errors.New(errors.PhaseThreadsafe, errors.KindPanic).
					Detail("dispatcher panicked: %v", r).Build())
			}
		}()

		item, ok := payload.(*D)
		if !ok {
			throwAtBoundary(env, errors.TypeMismatch(errors.PhaseThreadsafe, reflect.TypeFor[D]().String(),
				reflect.TypeOf(payload).String()))
			return
		}
		boxed, ok := natives.GetTyped(ctx, strategyType)
		if !ok {
			throwAtBoundary(env, errors.NotFound(errors.PhaseThreadsafe, "dispatcher already finalized"))
			return
		}
		fn, err := FromRaw[Function](env, rawFn)
		if err != nil {
			throwAtBoundary(env, err)
			return
		}
		if err := boxed.(Dispatcher[D]).Call(env, fn, *item); err != nil {
			throwAtBoundary(env, err)
		}
	}
}

func dropPayload(payload any) {
	if d, ok := payload.(box.Dropper); ok {
		d.Drop()
	}
}
