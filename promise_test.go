package napi_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	napi "github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/host"
)

func awaitCall(t *testing.T, rt *host.Runtime, path string, args ...any) (any, error) {
	t.Helper()
	got, err := rt.Call(context.Background(), path, args...)
	if err != nil {
		t.Fatalf("%s failed: %v", path, err)
	}
	p, ok := got.(*host.Promise)
	if !ok {
		t.Fatalf("%s returned %#v, want a promise", path, got)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.Await(ctx)
}

func promiseModule() napi.InitFunc {
	return exportFuncs(map[string]napi.Callback{
		"double": func(env napi.Env, info *napi.CallbackInfo) (napi.Value, error) {
			n, err := napi.ArgAs[napi.Number](env, info, 0)
			if err != nil {
				return nil, err
			}
			f, _ := n.Float64(env)
			p, d, err := napi.NewPromise(env)
			if err != nil {
				return nil, err
			}
			out, _ := napi.CreateNumber(env, f*2)
			if err := d.Resolve(env, out); err != nil {
				return nil, err
			}
			return p, nil
		},
		"fail": func(env napi.Env, _ *napi.CallbackInfo) (napi.Value, error) {
			p, d, err := napi.NewPromise(env)
			if err != nil {
				return nil, err
			}
			reason, _ := napi.CreateError(env, "E_NOPE", "nope")
			if err := d.Reject(env, reason); err != nil {
				return nil, err
			}
			return p, nil
		},
		"fail_plain": func(env napi.Env, _ *napi.CallbackInfo) (napi.Value, error) {
			p, d, err := napi.NewPromise(env)
			if err != nil {
				return nil, err
			}
			reason, err := napi.CreateString(env, "boom")
			if err != nil {
				return nil, err
			}
			if err := d.Reject(env, reason); err != nil {
				return nil, err
			}
			return p, nil
		},
		"later": func(env napi.Env, info *napi.CallbackInfo) (napi.Value, error) {
			n, err := napi.ArgAs[napi.Number](env, info, 0)
			if err != nil {
				return nil, err
			}
			f, _ := n.Float64(env)
			p, d, err := napi.NewPromise(env)
			if err != nil {
				return nil, err
			}
			fn, err := sink(env)
			if err != nil {
				return nil, err
			}
			settle := napi.DispatchFunc[float64](func(env napi.Env, _ napi.Function, v float64) error {
				out, err := napi.CreateNumber(env, v)
				if err != nil {
					return err
				}
				return d.Resolve(env, out)
			})
			tf, err := napi.NewThreadsafeFunction[float64](env, fn, settle)
			if err != nil {
				return nil, err
			}
			go func() {
				time.Sleep(5 * time.Millisecond)
				_ = tf.Call(f + 1)
				_ = tf.Release()
			}()
			return p, nil
		},
	})
}

func TestPromise_Settle(t *testing.T) {
	rt := newRuntime(t, nil)
	load(t, rt, "p", promiseModule())

	got, err := awaitCall(t, rt, "p.double", 21)
	if err != nil || got != 42.0 {
		t.Errorf("double(21) = %v, %v", got, err)
	}

	got, err = awaitCall(t, rt, "p.later", 9)
	if err != nil || got != 10.0 {
		t.Errorf("later(9) = %v, %v", got, err)
	}

	_, err = awaitCall(t, rt, "p.fail")
	var exc *host.Exception
	if !stderrors.As(err, &exc) {
		t.Fatalf("fail() = %v, want exception", err)
	}
	if exc.Code != "E_NOPE" || exc.Message != "nope" {
		t.Errorf("rejection = %q %q", exc.Code, exc.Message)
	}

	_, err = awaitCall(t, rt, "p.fail_plain")
	exc = nil
	if !stderrors.As(err, &exc) {
		t.Fatalf("fail_plain() = %v, want exception", err)
	}
	if exc.Value != "boom" || exc.Message != "boom" || exc.Name != "" {
		t.Errorf("plain rejection = %#v", exc)
	}
	waitIdle(t, rt)
}

func TestDeferred_SettlesOnce(t *testing.T) {
	rt := newRuntime(t, nil)
	err := do(t, rt, func(env napi.Env) error {
		p, d, err := napi.NewPromise(env)
		if err != nil {
			return err
		}
		if d.Settled() {
			t.Error("new deferred reports settled")
		}
		v, _ := napi.CreateString(env, "done")
		if err := d.Resolve(env, v); err != nil {
			return err
		}
		if !d.Settled() {
			t.Error("deferred not settled after Resolve")
		}
		if err := d.Resolve(env, v); !errors.Is(err, errors.ErrAlreadySettled) {
			t.Errorf("second Resolve = %v, want ErrAlreadySettled", err)
		}
		if err := d.Reject(env, v); !errors.Is(err, errors.ErrAlreadySettled) {
			t.Errorf("Reject after Resolve = %v, want ErrAlreadySettled", err)
		}
		if _, err := napi.As[napi.Promise](env, p); err != nil {
			t.Errorf("As[Promise](promise) = %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
}

func TestDeferred_ForeignValue(t *testing.T) {
	rt := newRuntime(t, nil)
	var stale napi.Value
	_ = do(t, rt, func(env napi.Env) error {
		stale, _ = napi.CreateNumber(env, 1)
		return nil
	})
	err := do(t, rt, func(env napi.Env) error {
		_, d, err := napi.NewPromise(env)
		if err != nil {
			return err
		}
		if err := d.Resolve(env, stale); !errors.Is(err, errors.ErrScopeMismatch) {
			t.Errorf("Resolve with stale value = %v, want ErrScopeMismatch", err)
		}
		if d.Settled() {
			t.Error("failed Resolve consumed the deferred")
		}
		v, _ := napi.CreateNumber(env, 2)
		return d.Resolve(env, v)
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
}

func TestPromise_StrictVariant(t *testing.T) {
	rt := newRuntime(t, nil)
	err := do(t, rt, func(env napi.Env) error {
		obj, _ := napi.CreateObject(env)
		if _, err := napi.As[napi.Promise](env, obj); !errors.Is(err, errors.ErrTypeMismatch) {
			t.Errorf("As[Promise](object) = %v, want ErrTypeMismatch", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
}
