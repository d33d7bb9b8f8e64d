package napi_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	napi "github.com/wippyai/napi-go"
)

func TestWatchNatives(t *testing.T) {
	base := napi.LiveNatives()
	rt := newRuntime(t, nil)

	var (
		mu     sync.Mutex
		events []napi.NativeEvent
	)
	stop := napi.WatchNatives(func(e napi.NativeEvent) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})
	defer stop()

	err := do(t, rt, func(env napi.Env) error {
		_, err := napi.NewWrapped(env, counter{N: 7})
		return err
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if _, err := rt.Collect(context.Background()); err != nil {
		t.Fatal(err)
	}
	stop()
	stop()

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	boxed, released := events[0], events[1]
	if boxed.Released || !released.Released {
		t.Errorf("event order = %+v", events)
	}
	if boxed.Pointer != released.Pointer {
		t.Errorf("released pointer %#x, boxed %#x", released.Pointer, boxed.Pointer)
	}
	if !strings.Contains(boxed.Type, "counter") {
		t.Errorf("event type = %q, want the wrapped counter", boxed.Type)
	}
	closeAndCheckNatives(t, rt, base)
	if len(events) != 2 {
		t.Errorf("stopped watcher still received events: %+v", events[2:])
	}
}

func TestLiveNativeTypes(t *testing.T) {
	base := napi.LiveNatives()
	rt := newRuntime(t, nil)
	err := do(t, rt, func(env napi.Env) error {
		w, err := napi.NewWrapped(env, counter{})
		if err != nil {
			return err
		}
		global, _ := env.Global()
		return global.SetNamed(env, "held", w)
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	found := 0
	for _, typ := range napi.LiveNativeTypes() {
		if strings.Contains(typ, "napi_test.counter") {
			found++
		}
	}
	if found != 1 {
		t.Errorf("LiveNativeTypes = %v, want one counter", napi.LiveNativeTypes())
	}
	closeAndCheckNatives(t, rt, base)
	for _, typ := range napi.LiveNativeTypes() {
		if strings.Contains(typ, "napi_test.counter") {
			t.Errorf("counter still live after Close: %v", napi.LiveNativeTypes())
		}
	}
}

func TestNatives_DebugLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := napi.Logger()
	napi.SetLogger(zap.New(core))
	defer napi.SetLogger(prev)

	rt := newRuntime(t, nil)
	err := do(t, rt, func(env napi.Env) error {
		_, err := napi.NewWrapped(env, counter{})
		return err
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if _, err := rt.Collect(context.Background()); err != nil {
		t.Fatal(err)
	}

	if n := logs.FilterMessage("native payload boxed").Len(); n != 1 {
		t.Errorf("boxed entries = %d, want 1", n)
	}
	released := logs.FilterMessage("native payload released").All()
	if len(released) != 1 {
		t.Fatalf("released entries = %d, want 1", len(released))
	}
	if typ, _ := released[0].ContextMap()["type"].(string); !strings.Contains(typ, "counter") {
		t.Errorf("released type field = %v", released[0].ContextMap()["type"])
	}
}
