package napi_test

import (
	"context"
	"testing"
	"time"

	napi "github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/host"
	"github.com/wippyai/napi-go/sys"
)

func newRuntime(t *testing.T, cfg *host.Config) *host.Runtime {
	t.Helper()
	rt, err := host.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("host.New failed: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	return rt
}

// do runs fn on the control thread with a fresh Env. fn must not call
// t.Fatal; it runs on another goroutine.
func do(t *testing.T, rt *host.Runtime, fn func(env napi.Env) error) error {
	t.Helper()
	return doAPI(rt, rt.API(), fn)
}

func doAPI(rt *host.Runtime, api sys.API, fn func(env napi.Env) error) error {
	return rt.Do(context.Background(), func(s *host.Scope) error {
		return fn(napi.NewEnv(api, s.Env()))
	})
}

func load(t *testing.T, rt *host.Runtime, name string, init napi.InitFunc) {
	t.Helper()
	loadAPI(t, rt, rt.API(), name, init)
}

func loadAPI(t *testing.T, rt *host.Runtime, api sys.API, name string, init napi.InitFunc) {
	t.Helper()
	mod := napi.NewModule(name, init)
	if err := rt.LoadModule(context.Background(), name, mod.Entry(api)); err != nil {
		t.Fatalf("LoadModule(%s) failed: %v", name, err)
	}
}

// exportFuncs builds an init that exports every callback under its key.
func exportFuncs(fns map[string]napi.Callback) napi.InitFunc {
	return func(env napi.Env, exports napi.Object) (napi.Object, error) {
		for name, cb := range fns {
			if err := exports.SetFunction(env, name, cb); err != nil {
				return napi.Object{}, err
			}
		}
		return exports, nil
	}
}

func waitIdle(t *testing.T, rt *host.Runtime) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Idle(ctx); err != nil {
		t.Fatalf("Idle failed: %v", err)
	}
}

// closeAndCheckNatives closes rt and verifies every boxed payload created
// since base was released.
func closeAndCheckNatives(t *testing.T, rt *host.Runtime, base int) {
	t.Helper()
	if err := rt.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if n := napi.LiveNatives(); n != base {
		t.Errorf("LiveNatives = %d after Close, want %d; live: %v", n, base, napi.LiveNativeTypes())
	}
}
