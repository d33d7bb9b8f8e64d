package napi

import (
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/internal/box"
	"github.com/wippyai/napi-go/sys"
)

// natives owns every Go payload the host can reach: callback closures,
// dispatch strategies, wrapped values and queued call data.
var natives = newNatives()

func newNatives() *box.Arena {
	a := box.NewArena()
	a.Subscribe(nativeLog{})
	return a
}

// nativeLog traces payload lifetimes at debug level.
type nativeLog struct{}

func (nativeLog) OnBoxEvent(e box.Event) {
	l := Logger()
	if !l.Core().Enabled(zap.DebugLevel) {
		return
	}
	msg := "native payload boxed"
	if e.Kind == box.EventDropped {
		msg = "native payload released"
	}
	l.Debug(msg, zap.Uint64("pointer", uint64(e.Pointer)), zap.Stringer("type", e.Type))
}

// NativeEvent reports a Go payload becoming reachable from the host or
// leaving it.
type NativeEvent struct {
	Type     string
	Pointer  sys.Pointer
	Released bool
}

type nativeWatcher struct {
	fn func(NativeEvent)
}

func (w *nativeWatcher) OnBoxEvent(e box.Event) {
	w.fn(NativeEvent{Type: e.Type.String(), Pointer: e.Pointer, Released: e.Kind == box.EventDropped})
}

// WatchNatives calls fn for every payload boxed or released until stop is
// called. fn runs on the goroutine that made the change and must not box
// or release payloads itself.
func WatchNatives(fn func(NativeEvent)) (stop func()) {
	w := &nativeWatcher{fn: fn}
	natives.Subscribe(w)
	var once sync.Once
	return func() {
		once.Do(func() { natives.Unsubscribe(w) })
	}
}

// FinalizeFunc is native cleanup run once when the host collects the value
// owning data.
type FinalizeFunc[T any] func(env Env, data *T)

// LiveNatives returns the number of Go payloads currently reachable from
// the host.
func LiveNatives() int {
	return natives.Len()
}

// LiveNativeTypes returns the type of every live payload, sorted. It is
// meant for leak reports.
func LiveNativeTypes() []string {
	var types []string
	natives.Each(func(_ sys.Pointer, typ reflect.Type, _ any) bool {
		types = append(types, typ.String())
		return true
	})
	sort.Strings(types)
	return types
}

// finalizeTrampoline builds the raw finalizer for a boxed payload. The box
// is taken out of the arena before run is called, so a repeated or racing
// finalization finds nothing and does nothing. After run the payload is
// dropped.
func finalizeTrampoline(api sys.API, run func(env Env, payload any)) sys.Finalize {
	return func(rawEnv sys.Env, data sys.Pointer, _ sys.Pointer) {
		payload, ok := natives.Take(data)
		if !ok {
			Logger().Debug("finalizer for released payload ignored", zap.Uint64("data", uint64(data)))
			return
		}
		if run != nil {
			runFinalizer(NewEnv(api, rawEnv), payload, run)
		}
		dropPayload(payload)
	}
}

func runFinalizer(env Env, payload any, run func(env Env, payload any)) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("panic in native finalizer", zap.Any("panic", r))
			if env.raw != 0 {
				throwAtBoundary(env, errors.New(errors.PhaseFinalize, errors.KindPanic).
					Detail("native finalizer panicked: %v", r).Build())
			}
		}
	}()
	run(env, payload)
}

// typedFinalizer adapts a FinalizeFunc to the untyped payload form.
func typedFinalizer[T any](fin FinalizeFunc[T]) func(Env, any) {
	if fin == nil {
		return nil
	}
	return func(env Env, payload any) {
		if p, ok := payload.(*T); ok {
			fin(env, p)
		}
	}
}
