package host

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/wippyai/napi-go/sys"
)

// addWasm exports add(f64, f64) -> f64.
var addWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section: (f64, f64) -> f64
	0x01, 0x07, 0x01, 0x60, 0x02, 0x7c, 0x7c, 0x01, 0x7c,
	// function section
	0x03, 0x02, 0x01, 0x00,
	// export "add"
	0x07, 0x07, 0x01, 0x03, 0x61, 0x64, 0x64, 0x00, 0x00,
	// code: local.get 0, local.get 1, f64.add
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0xa0, 0x0b,
}

func TestLoadWasm(t *testing.T) {
	rt := newTestRuntime(t, nil)
	ctx := context.Background()

	if err := rt.LoadWasm(ctx, "math", addWasm); err != nil {
		t.Fatalf("LoadWasm failed: %v", err)
	}

	exports, err := rt.Exports(ctx, "math")
	if err != nil || len(exports) != 1 || exports[0] != "add" {
		t.Fatalf("Exports = %v, %v", exports, err)
	}

	got, err := rt.Call(ctx, "math.add", 1.25, "2")
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if got != 3.25 {
		t.Errorf("math.add(1.25, \"2\") = %v, want 3.25", got)
	}

	if err := rt.LoadWasm(ctx, "math", addWasm); err == nil {
		t.Error("expected error rebinding math")
	}
}

func TestLoadWasm_CallFromNative(t *testing.T) {
	rt := newTestRuntime(t, nil)
	a := rt.API()
	ctx := context.Background()
	if err := rt.LoadWasm(ctx, "math", addWasm); err != nil {
		t.Fatalf("LoadWasm failed: %v", err)
	}

	err := rt.Do(ctx, func(s *Scope) error {
		env := s.Env()
		global, _ := a.GetGlobal(env)
		m, _ := a.GetNamedProperty(env, global, "math")
		fn, _ := a.GetNamedProperty(env, m, "add")
		x, _ := a.CreateDouble(env, 40)
		y, _ := a.CreateDouble(env, 2)
		undef, _ := a.GetUndefined(env)
		res, st := a.CallFunction(env, undef, fn, []sys.Value{x, y})
		if st != sys.StatusOK {
			t.Errorf("CallFunction: %v", st)
			return nil
		}
		if v, _ := a.GetValueDouble(env, res); v != 42 {
			t.Errorf("add(40, 2) = %v", v)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
}

func TestLoadWasm_Invalid(t *testing.T) {
	rt := newTestRuntime(t, nil)
	err := rt.LoadWasm(context.Background(), "bad", []byte("not wasm"))
	if err == nil {
		t.Fatal("expected compile error")
	}
	var exc *Exception
	if stderrors.As(err, &exc) {
		t.Errorf("compile error should not be an exception: %v", err)
	}
}
