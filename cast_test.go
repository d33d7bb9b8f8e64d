package napi_test

import (
	"context"
	"math"
	"reflect"
	"testing"

	napi "github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/errors"
)

type point struct{ X, Y float64 }

func (p point) MarshalValue(env napi.Env) (napi.Value, error) {
	return napi.ToValue(env, map[string]any{"x": p.X, "y": p.Y})
}

func TestToValue(t *testing.T) {
	rt := newRuntime(t, nil)
	load(t, rt, "cast", exportFuncs(map[string]napi.Callback{
		"build": func(env napi.Env, _ *napi.CallbackInfo) (napi.Value, error) {
			return napi.ToValue(env, map[string]any{
				"int":   7,
				"big":   int64(1) << 40,
				"u32":   uint32(math.MaxUint32),
				"list":  []any{"x", true, nil},
				"bytes": []byte{1, 2},
				"point": point{X: 1, Y: 2},
			})
		},
	}))

	got, err := rt.Call(context.Background(), "cast.build")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	want := map[string]any{
		"big":   float64(int64(1) << 40),
		"bytes": []byte{1, 2},
		"int":   7.0,
		"list":  []any{"x", true, nil},
		"point": map[string]any{"x": 1.0, "y": 2.0},
		"u32":   float64(math.MaxUint32),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("build() = %#v\nwant %#v", got, want)
	}
}

func TestToValue_Errors(t *testing.T) {
	rt := newRuntime(t, nil)
	err := do(t, rt, func(env napi.Env) error {
		if _, err := napi.ToValue(env, struct{}{}); !errors.Is(err, errors.ErrTypeMismatch) {
			t.Errorf("ToValue(struct) = %v, want ErrTypeMismatch", err)
		}
		_, err := napi.ToValue(env, map[string]any{"items": []any{1, make(chan int)}})
		var e *errors.Error
		if !errors.As(err, &e) || !reflect.DeepEqual(e.Path, []string{"items", "[1]"}) {
			t.Errorf("nested failure = %v, want path items.[1]", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
}

func TestToValue_PassThrough(t *testing.T) {
	rt := newRuntime(t, nil)
	var stale napi.Value
	_ = do(t, rt, func(env napi.Env) error {
		stale, _ = napi.CreateNumber(env, 1)
		return nil
	})
	err := do(t, rt, func(env napi.Env) error {
		s, _ := napi.CreateString(env, "same")
		v, err := napi.ToValue(env, s)
		if err != nil {
			return err
		}
		if v.Raw() != s.Raw() {
			t.Errorf("ToValue re-created a host value")
		}
		if _, err := napi.ToValue(env, stale); !errors.Is(err, errors.ErrScopeMismatch) {
			t.Errorf("ToValue(stale) = %v, want ErrScopeMismatch", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
}

func TestFromValue(t *testing.T) {
	rt := newRuntime(t, nil)
	err := do(t, rt, func(env napi.Env) error {
		frac, _ := napi.CreateNumber(env, 3.9)
		wide, _ := napi.CreateNumber(env, math.Pow(2, 32)+5)
		five, _ := napi.CreateInt32(env, 5)
		empty, _ := napi.CreateString(env, "")
		buf, _ := napi.CreateBuffer(env, []byte("raw"))

		if v, err := napi.FromValue[int](env, frac); err != nil || v != 3 {
			t.Errorf("FromValue[int](3.9) = %v, %v", v, err)
		}
		if v, err := napi.FromValue[int32](env, wide); err != nil || v != 5 {
			t.Errorf("FromValue[int32](2^32+5) = %v, %v", v, err)
		}
		if v, err := napi.FromValue[float32](env, frac); err != nil || v != float32(3.9) {
			t.Errorf("FromValue[float32](3.9) = %v, %v", v, err)
		}
		if v, err := napi.FromValue[string](env, five); err != nil || v != "5" {
			t.Errorf("FromValue[string](5) = %q, %v", v, err)
		}
		if v, err := napi.FromValue[bool](env, empty); err != nil || v {
			t.Errorf("FromValue[bool](\"\") = %v, %v", v, err)
		}
		if v, err := napi.FromValue[[]byte](env, buf); err != nil || string(v) != "raw" {
			t.Errorf("FromValue[[]byte](buffer) = %q, %v", v, err)
		}
		if _, err := napi.FromValue[[]byte](env, empty); !errors.Is(err, errors.ErrTypeMismatch) {
			t.Errorf("FromValue[[]byte](string) = %v, want ErrTypeMismatch", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
}
