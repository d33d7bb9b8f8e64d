package host

import (
	"github.com/wippyai/napi-go/sys"
)

// jsval is a host value. Primitives are stored inline; everything else
// lives on the heap.
type jsval struct {
	obj *object
	s   string
	n   float64
	t   sys.ValueType
	b   bool
}

var (
	undefinedVal = jsval{t: sys.TypeUndefined}
	nullVal      = jsval{t: sys.TypeNull}
)

func boolVal(b bool) jsval      { return jsval{t: sys.TypeBoolean, b: b} }
func numberVal(n float64) jsval { return jsval{t: sys.TypeNumber, n: n} }
func stringVal(s string) jsval  { return jsval{t: sys.TypeString, s: s} }

func objectVal(o *object) jsval {
	if o.class == classFunction {
		return jsval{t: sys.TypeFunction, obj: o}
	}
	return jsval{t: sys.TypeObject, obj: o}
}

func (v jsval) isObject() bool { return v.obj != nil }

type class uint8

const (
	classObject class = iota
	classArray
	classFunction
	classBuffer
	classPromise
	classError
	classPrimitive
)

// PromiseState is the settlement state of a host promise.
type PromiseState uint8

const (
	Pending PromiseState = iota
	Fulfilled
	Rejected
)

func (s PromiseState) String() string {
	switch s {
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return "pending"
	}
}

// builtinFunc is a function implemented by the host itself.
type builtinFunc func(rt *Runtime, this jsval, args []jsval) (jsval, error)

type function struct {
	cb      sys.Callback
	builtin builtinFunc
	name    string
	data    sys.Pointer
}

type promise struct {
	value jsval
	done  chan struct{}
	state PromiseState
}

type finalizer struct {
	fn   sys.Finalize
	data sys.Pointer
	hint sys.Pointer
}

type object struct {
	props map[string]jsval
	keys  []string

	// arrays
	elems []jsval
	holes map[int]bool

	fn      *function
	buf     []byte
	promise *promise
	prim    jsval

	wrap       *finalizer
	finalizers []finalizer

	errName string

	id     uint64
	class  class
	marked bool
}

func (rt *Runtime) newObject(c class) *object {
	rt.nextObjectID++
	o := &object{
		id:    rt.nextObjectID,
		class: c,
		props: make(map[string]jsval),
	}
	rt.objects[o] = struct{}{}
	return o
}

func (o *object) get(key string) (jsval, bool) {
	if o.class == classArray {
		if idx, ok := arrayIndex(key); ok {
			if idx < len(o.elems) && !o.holes[idx] {
				return o.elems[idx], true
			}
			return undefinedVal, false
		}
		if key == "length" {
			return numberVal(float64(len(o.elems))), true
		}
	}
	if o.class == classBuffer {
		if idx, ok := arrayIndex(key); ok {
			if idx < len(o.buf) {
				return numberVal(float64(o.buf[idx])), true
			}
			return undefinedVal, false
		}
		if key == "length" {
			return numberVal(float64(len(o.buf))), true
		}
	}
	if o.class == classFunction && key == "name" {
		if v, ok := o.props[key]; ok {
			return v, true
		}
		return stringVal(o.fn.name), true
	}
	v, ok := o.props[key]
	return v, ok
}

func (o *object) set(key string, v jsval) {
	if o.class == classArray {
		if idx, ok := arrayIndex(key); ok {
			o.setElem(idx, v)
			return
		}
		if key == "length" {
			if n, ok := arrayLength(v); ok {
				o.setLength(n)
			}
			return
		}
	}
	if _, exists := o.props[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.props[key] = v
}

func (o *object) has(key string) bool {
	if o.class == classArray {
		if idx, ok := arrayIndex(key); ok {
			return idx < len(o.elems) && !o.holes[idx]
		}
		if key == "length" {
			return true
		}
	}
	if o.class == classBuffer && key == "length" {
		return true
	}
	if o.class == classFunction && key == "name" {
		return true
	}
	_, ok := o.props[key]
	return ok
}

func (o *object) del(key string) bool {
	if o.class == classArray {
		if idx, ok := arrayIndex(key); ok {
			if idx < len(o.elems) {
				o.elems[idx] = undefinedVal
				if o.holes == nil {
					o.holes = make(map[int]bool)
				}
				o.holes[idx] = true
			}
			return true
		}
		if key == "length" {
			return false
		}
	}
	if _, ok := o.props[key]; !ok {
		return true
	}
	delete(o.props, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

func (o *object) setElem(idx int, v jsval) {
	if idx >= len(o.elems) {
		for i := len(o.elems); i < idx; i++ {
			if o.holes == nil {
				o.holes = make(map[int]bool)
			}
			o.holes[i] = true
		}
		grown := make([]jsval, idx+1)
		copy(grown, o.elems)
		for i := len(o.elems); i < idx; i++ {
			grown[i] = undefinedVal
		}
		o.elems = grown
	}
	o.elems[idx] = v
	delete(o.holes, idx)
}

func (o *object) setLength(n int) {
	if n < len(o.elems) {
		for i := n; i < len(o.elems); i++ {
			delete(o.holes, i)
		}
		o.elems = o.elems[:n]
		return
	}
	for i := len(o.elems); i < n; i++ {
		o.elems = append(o.elems, undefinedVal)
		if o.holes == nil {
			o.holes = make(map[int]bool)
		}
		o.holes[i] = true
	}
}

// ownKeys returns enumerable own string keys: array indices first, then
// properties in insertion order.
func (o *object) ownKeys() []string {
	var keys []string
	if o.class == classArray {
		for i := range o.elems {
			if !o.holes[i] {
				keys = append(keys, formatIndex(i))
			}
		}
	}
	if o.class == classBuffer {
		for i := range o.buf {
			keys = append(keys, formatIndex(i))
		}
	}
	return append(keys, o.keys...)
}

// children lists every value o references, for the collector.
func (o *object) children(yield func(jsval)) {
	for _, v := range o.props {
		yield(v)
	}
	for _, v := range o.elems {
		yield(v)
	}
	if o.promise != nil {
		yield(o.promise.value)
	}
	yield(o.prim)
}
