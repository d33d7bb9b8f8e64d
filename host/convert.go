package host

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// UndefinedValue is the Go form of the host's undefined.
type UndefinedValue struct{}

func (UndefinedValue) String() string { return "undefined" }

// Undefined can be passed to Call and is returned for undefined results.
var Undefined = UndefinedValue{}

// Function describes a host function returned to Go.
type Function struct {
	Name string
}

func (f Function) String() string { return "[Function: " + f.Name + "]" }

// maxDepth bounds conversion of nested values.
const maxDepth = 32

// fromGo converts a Go value into a host value.
func (rt *Runtime) fromGo(x any) (jsval, error) {
	return rt.fromGoDepth(x, 0)
}

func (rt *Runtime) fromGoDepth(x any, depth int) (jsval, error) {
	if depth > maxDepth {
		return undefinedVal, errors.InvalidInput(errors.PhaseHost, "value nested too deeply")
	}
	switch v := x.(type) {
	case nil:
		return nullVal, nil
	case UndefinedValue:
		return undefinedVal, nil
	case bool:
		return boolVal(v), nil
	case string:
		return stringVal(v), nil
	case []byte:
		o := rt.newObject(classBuffer)
		o.buf = append([]byte(nil), v...)
		return objectVal(o), nil
	case []any:
		arr := rt.newObject(classArray)
		arr.elems = make([]jsval, len(v))
		for i, item := range v {
			e, err := rt.fromGoDepth(item, depth+1)
			if err != nil {
				return undefinedVal, err
			}
			arr.elems[i] = e
		}
		return objectVal(arr), nil
	case map[string]any:
		obj := rt.newObject(classObject)
		for _, k := range sortedKeys(v) {
			e, err := rt.fromGoDepth(v[k], depth+1)
			if err != nil {
				return undefinedVal, err
			}
			obj.set(k, e)
		}
		return objectVal(obj), nil
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return numberVal(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return numberVal(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return numberVal(rv.Float()), nil
	}
	return undefinedVal, errors.TypeMismatch(errors.PhaseHost, fmt.Sprintf("%T", x), "")
}

// toGo converts a host value for Go callers: undefined gives Undefined,
// null gives nil, numbers float64, buffers a []byte copy, arrays []any,
// promises *Promise, functions Function and other objects map[string]any.
func (rt *Runtime) toGo(v jsval) any {
	return rt.toGoSeen(v, make(map[*object]bool))
}

func (rt *Runtime) toGoSeen(v jsval, seen map[*object]bool) any {
	switch v.t {
	case sys.TypeUndefined:
		return Undefined
	case sys.TypeNull:
		return nil
	case sys.TypeBoolean:
		return v.b
	case sys.TypeNumber:
		return v.n
	case sys.TypeString:
		return v.s
	}
	o := v.obj
	if o == nil || seen[o] || len(seen) > maxDepth {
		return nil
	}
	seen[o] = true
	defer delete(seen, o)

	switch o.class {
	case classFunction:
		return Function{Name: o.fn.name}
	case classBuffer:
		return append([]byte(nil), o.buf...)
	case classPrimitive:
		return rt.toGoSeen(o.prim, seen)
	case classPromise:
		rt.pins[o]++
		return &Promise{rt: rt, obj: o}
	case classArray:
		out := make([]any, len(o.elems))
		for i, e := range o.elems {
			out[i] = rt.toGoSeen(e, seen)
		}
		return out
	}
	out := make(map[string]any, len(o.keys))
	if o.class == classError {
		out["name"] = o.errName
	}
	for _, k := range o.keys {
		out[k] = rt.toGoSeen(o.props[k], seen)
	}
	return out
}

// Promise is a host promise handed to Go. It keeps the promise alive until
// Await returns.
type Promise struct {
	rt  *Runtime
	obj *object
}

// Await blocks until the promise settles. A rejection is returned as
// *Exception carrying the reason.
func (p *Promise) Await(ctx context.Context) (any, error) {
	select {
	case <-p.obj.promise.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var (
		out any
		exc *Exception
	)
	err := p.rt.run(ctx, func() error {
		if p.rt.pins[p.obj] > 0 {
			p.rt.pins[p.obj]--
			if p.rt.pins[p.obj] == 0 {
				delete(p.rt.pins, p.obj)
			}
		}
		if p.obj.promise.state == Rejected {
			exc = p.rt.exceptionFrom(p.obj.promise.value)
			return nil
		}
		out = p.rt.toGo(p.obj.promise.value)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if exc != nil {
		return nil, exc
	}
	return out, nil
}

// State reports the settlement state without blocking.
func (p *Promise) State() PromiseState {
	select {
	case <-p.obj.promise.done:
	default:
		return Pending
	}
	var st PromiseState
	_ = p.rt.run(context.Background(), func() error {
		st = p.obj.promise.state
		return nil
	})
	return st
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
