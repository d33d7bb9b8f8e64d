package napi

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/wippyai/napi-go/errors"
)

// ValueMarshaler is implemented by Go types that know how to build their
// own host value.
type ValueMarshaler interface {
	MarshalValue(env Env) (Value, error)
}

// Native lists the Go types FromValue extracts.
type Native interface {
	bool | int | int32 | int64 | uint32 | float32 | float64 | string | []byte
}

// ToValue converts a Go value into a host value.
//
// nil becomes null, integers become numbers (int32 or uint32 when they fit,
// int64 otherwise), []byte becomes a buffer, []any an array and
// map[string]any an object. Values already on the host pass through.
func ToValue(env Env, x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return env.Null()
	case Value:
		if err := env.check(v, "to value"); err != nil {
			return nil, err
		}
		return v, nil
	case ValueMarshaler:
		return v.MarshalValue(env)
	case bool:
		return CreateBool(env, v)
	case int:
		return intValue(env, int64(v))
	case int8:
		return CreateInt32(env, int32(v))
	case int16:
		return CreateInt32(env, int32(v))
	case int32:
		return CreateInt32(env, v)
	case int64:
		return intValue(env, v)
	case uint:
		return uintValue(env, uint64(v))
	case uint8:
		return CreateUint32(env, uint32(v))
	case uint16:
		return CreateUint32(env, uint32(v))
	case uint32:
		return CreateUint32(env, v)
	case uint64:
		return uintValue(env, v)
	case float32:
		return CreateNumber(env, float64(v))
	case float64:
		return CreateNumber(env, v)
	case string:
		return CreateString(env, v)
	case []byte:
		return CreateBuffer(env, v)
	case []any:
		arr, err := CreateArray(env, len(v))
		if err != nil {
			return nil, err
		}
		for i, item := range v {
			hv, err := ToValue(env, item)
			if err != nil {
				return nil, pathError(err, fmt.Sprintf("[%d]", i))
			}
			if err := arr.Set(env, uint32(i), hv); err != nil {
				return nil, err
			}
		}
		return arr, nil
	case map[string]any:
		obj, err := CreateObject(env)
		if err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			hv, err := ToValue(env, v[k])
			if err != nil {
				return nil, pathError(err, k)
			}
			if err := obj.SetNamed(env, k, hv); err != nil {
				return nil, err
			}
		}
		return obj, nil
	default:
		return nil, errors.TypeMismatch(errors.PhaseCast, reflect.TypeOf(x).String(), "")
	}
}

func intValue(env Env, v int64) (Value, error) {
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		return CreateInt32(env, int32(v))
	}
	if v >= 0 && v <= math.MaxUint32 {
		return CreateUint32(env, uint32(v))
	}
	return CreateInt64(env, v)
}

func uintValue(env Env, v uint64) (Value, error) {
	if v <= math.MaxUint32 {
		return CreateUint32(env, uint32(v))
	}
	return CreateNumber(env, float64(v))
}

func pathError(err error, segment string) error {
	var e *errors.Error
	if errors.As(err, &e) && !errors.IsPendingException(err) {
		cp := *e
		cp.Path = append([]string{segment}, e.Path...)
		return &cp
	}
	return err
}

// FromValue extracts a Go value from v. Scalars go through the lenient
// variants and so follow host coercion; []byte requires a buffer.
func FromValue[T Native](env Env, v Value) (T, error) {
	var out T
	var err error
	switch p := any(&out).(type) {
	case *bool:
		var b Boolean
		if b, err = As[Boolean](env, v); err == nil {
			*p, err = b.Value(env)
		}
	case *int:
		var n Number
		var i int64
		if n, err = As[Number](env, v); err == nil {
			i, err = n.Int64(env)
			*p = int(i)
		}
	case *int32:
		var n Number
		if n, err = As[Number](env, v); err == nil {
			*p, err = n.Int32(env)
		}
	case *int64:
		var n Number
		if n, err = As[Number](env, v); err == nil {
			*p, err = n.Int64(env)
		}
	case *uint32:
		var n Number
		if n, err = As[Number](env, v); err == nil {
			*p, err = n.Uint32(env)
		}
	case *float32:
		var n Number
		var f float64
		if n, err = As[Number](env, v); err == nil {
			f, err = n.Float64(env)
			*p = float32(f)
		}
	case *float64:
		var n Number
		if n, err = As[Number](env, v); err == nil {
			*p, err = n.Float64(env)
		}
	case *string:
		var s String
		if s, err = As[String](env, v); err == nil {
			*p, err = s.Value(env)
		}
	case *[]byte:
		var b Buffer
		if b, err = As[Buffer](env, v); err == nil {
			*p, err = b.Copy(env)
		}
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
