package host

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

func newTestRuntime(t *testing.T, cfg *Config) *Runtime {
	t.Helper()
	rt, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	return rt
}

// nativeAdd sums its number arguments.
func nativeAdd(a sys.API) sys.Callback {
	return func(env sys.Env, info sys.CallbackInfo) sys.Value {
		argv := make([]sys.Value, 2)
		argc, _, _, st := a.GetCbInfo(env, info, argv)
		if st != sys.StatusOK {
			return 0
		}
		var sum float64
		for i := 0; i < argc && i < len(argv); i++ {
			n, st := a.GetValueDouble(env, argv[i])
			if st != sys.StatusOK {
				a.ThrowError(env, "", "number expected")
				return 0
			}
			sum += n
		}
		v, _ := a.CreateDouble(env, sum)
		return v
	}
}

func loadFunctions(t *testing.T, rt *Runtime, module string, fns map[string]sys.Callback) {
	t.Helper()
	a := rt.API()
	err := rt.LoadModule(context.Background(), module, func(env sys.Env, exports sys.Value) sys.Value {
		for name, cb := range fns {
			fn, st := a.CreateFunction(env, name, cb, 0)
			if st != sys.StatusOK {
				return 0
			}
			a.SetNamedProperty(env, exports, name, fn)
		}
		return exports
	})
	if err != nil {
		t.Fatalf("LoadModule failed: %v", err)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(context.Background(), &Config{DefaultMaxQueueSize: -1})
	if err == nil {
		t.Fatal("expected error for negative queue size")
	}
	if !stderrors.Is(err, &errors.Error{Kind: errors.KindInvalidInput}) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestRuntime_Do(t *testing.T) {
	rt := newTestRuntime(t, nil)
	a := rt.API()

	err := rt.Do(context.Background(), func(s *Scope) error {
		env := s.Env()
		obj, st := a.CreateObject(env)
		if st != sys.StatusOK {
			t.Errorf("CreateObject: %v", st)
			return nil
		}
		n, _ := a.CreateInt32(env, 7)
		if st := a.SetNamedProperty(env, obj, "x", n); st != sys.StatusOK {
			t.Errorf("SetNamedProperty: %v", st)
			return nil
		}
		got, _ := a.GetNamedProperty(env, obj, "x")
		v, st := a.GetValueInt32(env, got)
		if st != sys.StatusOK || v != 7 {
			t.Errorf("got %d (%v), want 7", v, st)
		}
		missing, _ := a.GetNamedProperty(env, obj, "y")
		if typ, _ := a.TypeOf(env, missing); typ != sys.TypeUndefined {
			t.Errorf("missing property type = %v, want undefined", typ)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
}

func TestRuntime_StaleHandles(t *testing.T) {
	rt := newTestRuntime(t, nil)
	a := rt.API()
	ctx := context.Background()

	var staleEnv sys.Env
	var staleValue sys.Value
	_ = rt.Do(ctx, func(s *Scope) error {
		staleEnv = s.Env()
		staleValue, _ = a.CreateDouble(staleEnv, 1)
		return nil
	})

	_ = rt.Do(ctx, func(s *Scope) error {
		if _, st := a.GetValueDouble(s.Env(), staleValue); st != sys.StatusHandleScopeMismatch {
			t.Errorf("stale handle status = %v, want HandleScopeMismatch", st)
		}
		if _, st := a.CreateObject(staleEnv); st != sys.StatusInvalidArg {
			t.Errorf("stale env status = %v, want InvalidArg", st)
		}
		return nil
	})
}

func TestRuntime_ExceptionFromDo(t *testing.T) {
	rt := newTestRuntime(t, nil)
	a := rt.API()

	err := rt.Do(context.Background(), func(s *Scope) error {
		env := s.Env()
		if st := a.ThrowError(env, "E_BOOM", "boom"); st != sys.StatusOK {
			t.Errorf("ThrowError: %v", st)
			return nil
		}
		obj, _ := a.CreateObject(env)
		if _, st := a.GetNamedProperty(env, obj, "x"); st != sys.StatusPendingException {
			t.Errorf("property read with pending exception = %v", st)
		}
		if st := a.ThrowError(env, "", "again"); st != sys.StatusPendingException {
			t.Errorf("second throw = %v, want PendingException", st)
		}
		info, _ := a.GetLastErrorInfo(env)
		if info.Code != sys.StatusPendingException {
			t.Errorf("last error = %v", info.Code)
		}
		return nil
	})

	var exc *Exception
	if !stderrors.As(err, &exc) {
		t.Fatalf("expected *Exception, got %v", err)
	}
	if exc.Code != "E_BOOM" || exc.Message != "boom" || exc.Name != "Error" {
		t.Errorf("unexpected exception %+v", exc)
	}
	if exc.Error() != "Error [E_BOOM]: boom" {
		t.Errorf("Error() = %q", exc.Error())
	}
}

func TestRuntime_LoadModuleAndCall(t *testing.T) {
	rt := newTestRuntime(t, nil)
	ctx := context.Background()
	loadFunctions(t, rt, "m", map[string]sys.Callback{"add": nativeAdd(rt.API())})

	got, err := rt.Call(ctx, "m.add", 2, 3.5)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if got != 5.5 {
		t.Errorf("m.add(2, 3.5) = %v, want 5.5", got)
	}

	mods, _ := rt.Modules(ctx)
	if len(mods) != 1 || mods[0] != "m" {
		t.Errorf("Modules = %v", mods)
	}
	exports, _ := rt.Exports(ctx, "m")
	if len(exports) != 1 || exports[0] != "add" {
		t.Errorf("Exports = %v", exports)
	}

	if _, err := rt.Call(ctx, "m.missing"); !stderrors.Is(err, &errors.Error{Kind: errors.KindNotFound}) {
		t.Errorf("missing export: %v", err)
	}
	if _, err := rt.Call(ctx, "m.add", struct{}{}); err == nil {
		t.Error("expected conversion error for struct argument")
	}

	err = rt.LoadModule(ctx, "m", func(env sys.Env, exports sys.Value) sys.Value { return exports })
	if err == nil {
		t.Error("expected error loading a module twice")
	}
}

func TestRuntime_CallThrows(t *testing.T) {
	rt := newTestRuntime(t, nil)
	a := rt.API()
	loadFunctions(t, rt, "m", map[string]sys.Callback{
		"fail": func(env sys.Env, _ sys.CallbackInfo) sys.Value {
			a.ThrowError(env, "E_FAIL", "failed")
			return 0
		},
		"panic": func(sys.Env, sys.CallbackInfo) sys.Value {
			panic("bad state")
		},
	})

	_, err := rt.Call(context.Background(), "m.fail")
	var exc *Exception
	if !stderrors.As(err, &exc) || exc.Code != "E_FAIL" {
		t.Fatalf("expected E_FAIL exception, got %v", err)
	}

	_, err = rt.Call(context.Background(), "m.panic")
	if !stderrors.As(err, &exc) || !strings.Contains(exc.Message, "bad state") {
		t.Fatalf("expected panic exception, got %v", err)
	}
}

func TestRuntime_CallbackInfo(t *testing.T) {
	rt := newTestRuntime(t, nil)
	a := rt.API()
	var argc int
	var extra sys.ValueType = -1
	loadFunctions(t, rt, "m", map[string]sys.Callback{
		"count": func(env sys.Env, info sys.CallbackInfo) sys.Value {
			argv := make([]sys.Value, 3)
			argc, _, _, _ = a.GetCbInfo(env, info, argv)
			extra, _ = a.TypeOf(env, argv[2])
			return 0
		},
	})

	if _, err := rt.Call(context.Background(), "m.count", 1, 2, 3, 4, 5, 6, 7, 8); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if argc != 8 {
		t.Errorf("argc = %d, want 8", argc)
	}

	if _, err := rt.Call(context.Background(), "m.count", 1); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if argc != 1 || extra != sys.TypeUndefined {
		t.Errorf("argc = %d, padding type = %v", argc, extra)
	}
}

func TestRuntime_StringProtocol(t *testing.T) {
	rt := newTestRuntime(t, nil)
	a := rt.API()

	_ = rt.Do(context.Background(), func(s *Scope) error {
		env := s.Env()
		v, _ := a.CreateStringUTF8(env, []byte("héllo"))
		n, st := a.GetValueStringUTF8(env, v, nil)
		if st != sys.StatusOK || n != 6 {
			t.Errorf("length = %d (%v), want 6", n, st)
		}

		buf := make([]byte, 3)
		n, _ = a.GetValueStringUTF8(env, v, buf)
		if n != 1 || buf[0] != 'h' || buf[1] != 0 {
			t.Errorf("truncated copy = %d %q", n, buf)
		}

		if _, st := a.CreateStringUTF8(env, []byte{0xff}); st != sys.StatusInvalidArg {
			t.Errorf("invalid utf-8 status = %v", st)
		}
		num, _ := a.CreateDouble(env, 1)
		if _, st := a.GetValueStringUTF8(env, num, nil); st != sys.StatusStringExpected {
			t.Errorf("number as string = %v", st)
		}
		return nil
	})
}

func TestRuntime_Coercion(t *testing.T) {
	rt := newTestRuntime(t, nil)
	a := rt.API()

	err := rt.Do(context.Background(), func(s *Scope) error {
		env := s.Env()
		str, _ := a.CreateStringUTF8(env, []byte("42"))
		num, st := a.CoerceToNumber(env, str)
		if st != sys.StatusOK {
			t.Errorf("CoerceToNumber: %v", st)
			return nil
		}
		if f, _ := a.GetValueDouble(env, num); f != 42 {
			t.Errorf("ToNumber(\"42\") = %v", f)
		}

		five, _ := a.CreateInt32(env, 5)
		boxed, _ := a.CoerceToObject(env, five)
		if typ, _ := a.TypeOf(env, boxed); typ != sys.TypeObject {
			t.Errorf("ToObject(5) type = %v", typ)
		}

		undef, _ := a.GetUndefined(env)
		if _, st := a.CoerceToObject(env, undef); st != sys.StatusPendingException {
			t.Errorf("ToObject(undefined) = %v, want PendingException", st)
		}
		return nil
	})

	var exc *Exception
	if !stderrors.As(err, &exc) || exc.Name != "TypeError" {
		t.Fatalf("expected TypeError, got %v", err)
	}
}

func TestRuntime_Arrays(t *testing.T) {
	rt := newTestRuntime(t, nil)
	a := rt.API()

	_ = rt.Do(context.Background(), func(s *Scope) error {
		env := s.Env()
		arr, _ := a.CreateArrayWithLength(env, 2)
		if n, _ := a.GetArrayLength(env, arr); n != 2 {
			t.Errorf("length = %d, want 2", n)
		}
		if has, _ := a.HasElement(env, arr, 0); has {
			t.Error("preallocated slot should be a hole")
		}
		v, _ := a.CreateInt32(env, 9)
		a.SetElement(env, arr, 4, v)
		if n, _ := a.GetArrayLength(env, arr); n != 5 {
			t.Errorf("length after set = %d, want 5", n)
		}
		got, _ := a.GetElement(env, arr, 4)
		if n, _ := a.GetValueInt32(env, got); n != 9 {
			t.Errorf("element 4 = %d", n)
		}
		obj, _ := a.CreateObject(env)
		if _, st := a.GetArrayLength(env, obj); st != sys.StatusArrayExpected {
			t.Errorf("length of object = %v", st)
		}
		return nil
	})
}

func TestCollect_RunsFinalizersOnce(t *testing.T) {
	rt := newTestRuntime(t, nil)
	a := rt.API()
	ctx := context.Background()

	var dropped, wrapped, kept int
	fin := func(counter *int) sys.Finalize {
		return func(sys.Env, sys.Pointer, sys.Pointer) { *counter++ }
	}

	_ = rt.Do(ctx, func(s *Scope) error {
		env := s.Env()
		garbage, _ := a.CreateObject(env)
		a.AddFinalizer(env, garbage, 1, fin(&dropped), 0)
		a.Wrap(env, garbage, 2, fin(&wrapped), 0)

		live, _ := a.CreateObject(env)
		a.AddFinalizer(env, live, 3, fin(&kept), 0)
		global, _ := a.GetGlobal(env)
		a.SetNamedProperty(env, global, "live", live)
		return nil
	})

	if _, err := rt.Collect(ctx); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if _, err := rt.Collect(ctx); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	_ = rt.Do(ctx, func(*Scope) error {
		if dropped != 1 || wrapped != 1 {
			t.Errorf("finalizers ran %d/%d times, want 1/1", dropped, wrapped)
		}
		if kept != 0 {
			t.Errorf("reachable object was finalized")
		}
		return nil
	})

	if err := rt.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if kept != 1 {
		t.Errorf("Close ran live finalizer %d times, want 1", kept)
	}
}

func TestRuntime_Wrap(t *testing.T) {
	rt := newTestRuntime(t, nil)
	a := rt.API()

	_ = rt.Do(context.Background(), func(s *Scope) error {
		env := s.Env()
		obj, _ := a.CreateObject(env)
		if _, st := a.Unwrap(env, obj); st != sys.StatusInvalidArg {
			t.Errorf("unwrap of plain object = %v", st)
		}
		if st := a.Wrap(env, obj, 42, nil, 0); st != sys.StatusOK {
			t.Errorf("Wrap: %v", st)
			return nil
		}
		if st := a.Wrap(env, obj, 43, nil, 0); st != sys.StatusInvalidArg {
			t.Errorf("double wrap = %v", st)
		}
		if p, _ := a.Unwrap(env, obj); p != 42 {
			t.Errorf("Unwrap = %d, want 42", p)
		}
		if p, _ := a.RemoveWrap(env, obj); p != 42 {
			t.Errorf("RemoveWrap = %d, want 42", p)
		}
		if _, st := a.Unwrap(env, obj); st != sys.StatusInvalidArg {
			t.Errorf("unwrap after remove = %v", st)
		}
		return nil
	})
}

func TestPromise_Await(t *testing.T) {
	rt := newTestRuntime(t, nil)
	a := rt.API()
	ctx := context.Background()

	var deferreds []sys.Deferred
	loadFunctions(t, rt, "m", map[string]sys.Callback{
		"later": func(env sys.Env, _ sys.CallbackInfo) sys.Value {
			d, p, _ := a.CreatePromise(env)
			deferreds = append(deferreds, d)
			return p
		},
	})

	settle := func(i int, reject bool) {
		_ = rt.Do(ctx, func(s *Scope) error {
			env := s.Env()
			if reject {
				e, _ := a.CreateStringUTF8(env, []byte("nope"))
				return statusErr(a.RejectDeferred(env, deferreds[i], e))
			}
			v, _ := a.CreateDouble(env, 9)
			return statusErr(a.ResolveDeferred(env, deferreds[i], v))
		})
	}

	for i, reject := range []bool{false, true} {
		res, err := rt.Call(ctx, "m.later")
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		p, ok := res.(*Promise)
		if !ok {
			t.Fatalf("expected *Promise, got %T", res)
		}
		if p.State() != Pending {
			t.Errorf("state = %v before settle", p.State())
		}

		// pinned: collection must not reclaim it
		if _, err := rt.Collect(ctx); err != nil {
			t.Fatal(err)
		}
		settle(i, reject)

		v, err := p.Await(ctx)
		if !reject {
			if err != nil || v != 9.0 {
				t.Errorf("Await = %v, %v", v, err)
			}
			continue
		}
		var exc *Exception
		if !stderrors.As(err, &exc) || exc.Message != "nope" {
			t.Errorf("expected rejection, got %v", err)
		}
	}

	_ = rt.Do(ctx, func(s *Scope) error {
		v, _ := a.CreateDouble(s.Env(), 1)
		if st := a.ResolveDeferred(s.Env(), deferreds[0], v); st != sys.StatusInvalidArg {
			t.Errorf("second settlement = %v", st)
		}
		return nil
	})
}

func statusErr(st sys.Status) error {
	if st == sys.StatusOK {
		return nil
	}
	return errors.Status(errors.PhaseHost, "test", st, "")
}

func TestRuntime_ClosedRejectsWork(t *testing.T) {
	rt, err := New(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := rt.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := rt.Close(context.Background()); err != nil {
		t.Errorf("second Close: %v", err)
	}
	err = rt.Do(context.Background(), func(*Scope) error { return nil })
	if !stderrors.Is(err, ErrClosed) {
		t.Errorf("Do after Close = %v, want ErrClosed", err)
	}
}

func TestConvert_RoundTrip(t *testing.T) {
	rt := newTestRuntime(t, nil)
	a := rt.API()
	loadFunctions(t, rt, "m", map[string]sys.Callback{
		"echo": func(env sys.Env, info sys.CallbackInfo) sys.Value {
			argv := make([]sys.Value, 1)
			a.GetCbInfo(env, info, argv)
			return argv[0]
		},
	})

	in := map[string]any{
		"list":  []any{1, "two", true, nil},
		"bytes": []byte{1, 2},
		"undef": Undefined,
	}
	out, err := rt.Call(context.Background(), "m.echo", in)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	m, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", out)
	}
	list, ok := m["list"].([]any)
	if !ok || len(list) != 4 || list[0] != 1.0 || list[1] != "two" || list[2] != true || list[3] != nil {
		t.Errorf("list = %#v", m["list"])
	}
	if b, ok := m["bytes"].([]byte); !ok || len(b) != 2 || b[1] != 2 {
		t.Errorf("bytes = %#v", m["bytes"])
	}
	if m["undef"] != Undefined {
		t.Errorf("undef = %#v", m["undef"])
	}

	fn, err := rt.Call(context.Background(), "m.echo", nil)
	if err != nil || fn != nil {
		t.Errorf("echo(nil) = %v, %v", fn, err)
	}
}

func TestRuntime_GCEveryCalls(t *testing.T) {
	rt := newTestRuntime(t, &Config{GCEveryCalls: 1})
	a := rt.API()
	finalized := 0
	loadFunctions(t, rt, "m", map[string]sys.Callback{
		"garbage": func(env sys.Env, _ sys.CallbackInfo) sys.Value {
			obj, _ := a.CreateObject(env)
			a.AddFinalizer(env, obj, 0, func(sys.Env, sys.Pointer, sys.Pointer) { finalized++ }, 0)
			return 0
		},
	})

	if _, err := rt.Call(context.Background(), "m.garbage"); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	_ = rt.Do(context.Background(), func(*Scope) error {
		if finalized != 1 {
			t.Errorf("finalized %d after automatic collection, want 1", finalized)
		}
		return nil
	})
}

func TestRuntime_PanicInTaskBecomesError(t *testing.T) {
	rt := newTestRuntime(t, nil)
	err := rt.Do(context.Background(), func(*Scope) error {
		panic("kaboom 100%")
	})
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindPanic {
		t.Fatalf("Do = %v, want a panic error", err)
	}
	if e.Detail != "kaboom 100%" {
		t.Errorf("Detail = %q, want the panic value verbatim", e.Detail)
	}
	if err := rt.Do(context.Background(), func(*Scope) error { return nil }); err != nil {
		t.Errorf("runtime unusable after a panicking task: %v", err)
	}
}
