package host

import (
	"strconv"
	"unicode/utf8"

	"github.com/wippyai/napi-go/sys"
)

// api implements sys.API on top of a Runtime. Every method except the
// threadsafe-function family must be called on the control thread.
type api struct {
	rt *Runtime
}

var _ sys.API = (*api)(nil)

var statusMessages = map[sys.Status]string{
	sys.StatusInvalidArg:            "Invalid argument",
	sys.StatusObjectExpected:        "An object was expected",
	sys.StatusStringExpected:        "A string was expected",
	sys.StatusNameExpected:          "A string or symbol was expected",
	sys.StatusFunctionExpected:      "A function was expected",
	sys.StatusNumberExpected:        "A number was expected",
	sys.StatusBooleanExpected:       "A boolean was expected",
	sys.StatusArrayExpected:         "An array was expected",
	sys.StatusGenericFailure:        "Unknown failure",
	sys.StatusPendingException:      "An exception is pending",
	sys.StatusCancelled:             "The async work item was cancelled",
	sys.StatusEscapeCalledTwice:     "napi_escape_handle already called on scope",
	sys.StatusHandleScopeMismatch:   "Invalid handle scope usage",
	sys.StatusCallbackScopeMismatch: "Invalid callback scope usage",
	sys.StatusQueueFull:             "Thread-safe function queue is full",
	sys.StatusClosing:               "Thread-safe function handle is closing",
	sys.StatusBigintExpected:        "A bigint was expected",
}

func (a *api) ok() sys.Status {
	a.rt.lastErr = sys.ExtendedErrorInfo{Code: sys.StatusOK}
	return sys.StatusOK
}

func (a *api) fail(st sys.Status) sys.Status {
	a.rt.lastErr = sys.ExtendedErrorInfo{Code: st, Message: statusMessages[st]}
	return st
}

// enter validates the env token and returns the scope new handles go to.
func (a *api) enter(env sys.Env) (*handleScope, sys.Status) {
	s, ok := a.rt.scopeFor(env)
	if !ok {
		return nil, a.fail(sys.StatusInvalidArg)
	}
	return s, sys.StatusOK
}

// preamble is enter for operations that may run host code; they refuse to
// start while an exception is pending.
func (a *api) preamble(env sys.Env) (*handleScope, sys.Status) {
	s, st := a.enter(env)
	if st != sys.StatusOK {
		return nil, st
	}
	if a.rt.hasException {
		return nil, a.fail(sys.StatusPendingException)
	}
	return s, sys.StatusOK
}

func (a *api) value(h sys.Value) (jsval, sys.Status) {
	v, st := a.rt.resolve(h)
	if st != sys.StatusOK {
		return undefinedVal, a.fail(st)
	}
	return v, sys.StatusOK
}

// object resolves h as an object, boxing primitives other than undefined
// and null.
func (a *api) object(h sys.Value) (*object, sys.Status) {
	v, st := a.value(h)
	if st != sys.StatusOK {
		return nil, st
	}
	switch v.t {
	case sys.TypeUndefined, sys.TypeNull:
		return nil, a.fail(sys.StatusObjectExpected)
	}
	if v.obj == nil {
		return a.rt.boxPrimitive(v), sys.StatusOK
	}
	return v.obj, sys.StatusOK
}

func (a *api) result(s *handleScope, v jsval) (sys.Value, sys.Status) {
	return s.push(v), a.ok()
}

// Errors and exceptions

func (a *api) GetLastErrorInfo(env sys.Env) (sys.ExtendedErrorInfo, sys.Status) {
	if _, ok := a.rt.scopeFor(env); !ok {
		return sys.ExtendedErrorInfo{}, sys.StatusInvalidArg
	}
	return a.rt.lastErr, sys.StatusOK
}

func (a *api) IsExceptionPending(env sys.Env) (bool, sys.Status) {
	if _, st := a.enter(env); st != sys.StatusOK {
		return false, st
	}
	return a.rt.hasException, a.ok()
}

func (a *api) GetAndClearLastException(env sys.Env) (sys.Value, sys.Status) {
	s, st := a.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	if !a.rt.hasException {
		return a.result(s, undefinedVal)
	}
	v := a.rt.exception
	a.rt.clearException()
	return a.result(s, v)
}

func (a *api) Throw(env sys.Env, errVal sys.Value) sys.Status {
	if _, st := a.preamble(env); st != sys.StatusOK {
		return st
	}
	v, st := a.value(errVal)
	if st != sys.StatusOK {
		return st
	}
	a.rt.throw(v)
	return a.ok()
}

func (a *api) ThrowError(env sys.Env, code, msg string) sys.Status {
	if _, st := a.preamble(env); st != sys.StatusOK {
		return st
	}
	a.rt.throw(objectVal(a.rt.newError("Error", code, msg)))
	return a.ok()
}

func (a *api) CreateError(env sys.Env, code, msg sys.Value) (sys.Value, sys.Status) {
	s, st := a.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	m, st := a.value(msg)
	if st != sys.StatusOK {
		return 0, st
	}
	if m.t != sys.TypeString {
		return 0, a.fail(sys.StatusStringExpected)
	}
	var c string
	if code != 0 {
		cv, st := a.value(code)
		if st != sys.StatusOK {
			return 0, st
		}
		if cv.t != sys.TypeString {
			return 0, a.fail(sys.StatusStringExpected)
		}
		c = cv.s
	}
	return a.result(s, objectVal(a.rt.newError("Error", c, m.s)))
}

// Singletons and primitive construction

func (a *api) GetUndefined(env sys.Env) (sys.Value, sys.Status) {
	return a.create(env, undefinedVal)
}

func (a *api) GetNull(env sys.Env) (sys.Value, sys.Status) {
	return a.create(env, nullVal)
}

func (a *api) GetGlobal(env sys.Env) (sys.Value, sys.Status) {
	return a.create(env, objectVal(a.rt.global))
}

func (a *api) GetBoolean(env sys.Env, b bool) (sys.Value, sys.Status) {
	return a.create(env, boolVal(b))
}

func (a *api) CreateObject(env sys.Env) (sys.Value, sys.Status) {
	s, st := a.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	return a.result(s, objectVal(a.rt.newObject(classObject)))
}

func (a *api) CreateArray(env sys.Env) (sys.Value, sys.Status) {
	return a.CreateArrayWithLength(env, 0)
}

func (a *api) CreateArrayWithLength(env sys.Env, length int) (sys.Value, sys.Status) {
	s, st := a.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	if length < 0 {
		return 0, a.fail(sys.StatusInvalidArg)
	}
	arr := a.rt.newObject(classArray)
	arr.setLength(length)
	return a.result(s, objectVal(arr))
}

func (a *api) CreateDouble(env sys.Env, v float64) (sys.Value, sys.Status) {
	return a.create(env, numberVal(v))
}

func (a *api) CreateInt32(env sys.Env, v int32) (sys.Value, sys.Status) {
	return a.create(env, numberVal(float64(v)))
}

func (a *api) CreateUint32(env sys.Env, v uint32) (sys.Value, sys.Status) {
	return a.create(env, numberVal(float64(v)))
}

func (a *api) CreateInt64(env sys.Env, v int64) (sys.Value, sys.Status) {
	return a.create(env, numberVal(float64(v)))
}

func (a *api) CreateStringUTF8(env sys.Env, b []byte) (sys.Value, sys.Status) {
	if !utf8.Valid(b) {
		if _, st := a.enter(env); st != sys.StatusOK {
			return 0, st
		}
		return 0, a.fail(sys.StatusInvalidArg)
	}
	return a.create(env, stringVal(string(b)))
}

func (a *api) create(env sys.Env, v jsval) (sys.Value, sys.Status) {
	s, st := a.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	return a.result(s, v)
}

// Primitive extraction

func (a *api) primitive(env sys.Env, h sys.Value, want sys.ValueType, expected sys.Status) (jsval, sys.Status) {
	if _, st := a.enter(env); st != sys.StatusOK {
		return undefinedVal, st
	}
	v, st := a.value(h)
	if st != sys.StatusOK {
		return undefinedVal, st
	}
	if v.t != want {
		return undefinedVal, a.fail(expected)
	}
	return v, a.ok()
}

func (a *api) GetValueBool(env sys.Env, h sys.Value) (bool, sys.Status) {
	v, st := a.primitive(env, h, sys.TypeBoolean, sys.StatusBooleanExpected)
	return v.b, st
}

func (a *api) GetValueDouble(env sys.Env, h sys.Value) (float64, sys.Status) {
	v, st := a.primitive(env, h, sys.TypeNumber, sys.StatusNumberExpected)
	return v.n, st
}

func (a *api) GetValueInt32(env sys.Env, h sys.Value) (int32, sys.Status) {
	v, st := a.primitive(env, h, sys.TypeNumber, sys.StatusNumberExpected)
	if st != sys.StatusOK {
		return 0, st
	}
	return toInt32(v.n), st
}

func (a *api) GetValueUint32(env sys.Env, h sys.Value) (uint32, sys.Status) {
	v, st := a.primitive(env, h, sys.TypeNumber, sys.StatusNumberExpected)
	if st != sys.StatusOK {
		return 0, st
	}
	return toUint32(v.n), st
}

func (a *api) GetValueInt64(env sys.Env, h sys.Value) (int64, sys.Status) {
	v, st := a.primitive(env, h, sys.TypeNumber, sys.StatusNumberExpected)
	if st != sys.StatusOK {
		return 0, st
	}
	return toInt64(v.n), st
}

func (a *api) GetValueStringUTF8(env sys.Env, h sys.Value, buf []byte) (int, sys.Status) {
	v, st := a.primitive(env, h, sys.TypeString, sys.StatusStringExpected)
	if st != sys.StatusOK {
		return 0, st
	}
	if buf == nil {
		return len(v.s), st
	}
	if len(buf) == 0 {
		return 0, st
	}
	n := min(len(buf)-1, len(v.s))
	for n < len(v.s) && n > 0 && !utf8.RuneStart(v.s[n]) {
		n--
	}
	copy(buf, v.s[:n])
	buf[n] = 0
	return n, st
}

// Type checks and coercion

func (a *api) TypeOf(env sys.Env, h sys.Value) (sys.ValueType, sys.Status) {
	if _, st := a.enter(env); st != sys.StatusOK {
		return 0, st
	}
	v, st := a.value(h)
	if st != sys.StatusOK {
		return 0, st
	}
	return v.t, a.ok()
}

func (a *api) isClass(env sys.Env, h sys.Value, c class) (bool, sys.Status) {
	if _, st := a.enter(env); st != sys.StatusOK {
		return false, st
	}
	v, st := a.value(h)
	if st != sys.StatusOK {
		return false, st
	}
	return v.obj != nil && v.obj.class == c, a.ok()
}

func (a *api) IsArray(env sys.Env, h sys.Value) (bool, sys.Status) {
	return a.isClass(env, h, classArray)
}

func (a *api) IsBuffer(env sys.Env, h sys.Value) (bool, sys.Status) {
	return a.isClass(env, h, classBuffer)
}

func (a *api) IsPromise(env sys.Env, h sys.Value) (bool, sys.Status) {
	return a.isClass(env, h, classPromise)
}

func (a *api) IsError(env sys.Env, h sys.Value) (bool, sys.Status) {
	return a.isClass(env, h, classError)
}

func (a *api) StrictEquals(env sys.Env, x, y sys.Value) (bool, sys.Status) {
	if _, st := a.enter(env); st != sys.StatusOK {
		return false, st
	}
	xv, st := a.value(x)
	if st != sys.StatusOK {
		return false, st
	}
	yv, st := a.value(y)
	if st != sys.StatusOK {
		return false, st
	}
	return strictEquals(xv, yv), a.ok()
}

func (a *api) coerce(env sys.Env, h sys.Value, fn func(jsval) jsval) (sys.Value, sys.Status) {
	s, st := a.preamble(env)
	if st != sys.StatusOK {
		return 0, st
	}
	v, st := a.value(h)
	if st != sys.StatusOK {
		return 0, st
	}
	return a.result(s, fn(v))
}

func (a *api) CoerceToBool(env sys.Env, h sys.Value) (sys.Value, sys.Status) {
	return a.coerce(env, h, func(v jsval) jsval { return boolVal(toBoolean(v)) })
}

func (a *api) CoerceToNumber(env sys.Env, h sys.Value) (sys.Value, sys.Status) {
	return a.coerce(env, h, func(v jsval) jsval { return numberVal(toNumber(v)) })
}

func (a *api) CoerceToString(env sys.Env, h sys.Value) (sys.Value, sys.Status) {
	return a.coerce(env, h, func(v jsval) jsval { return stringVal(toString(v)) })
}

func (a *api) CoerceToObject(env sys.Env, h sys.Value) (sys.Value, sys.Status) {
	s, st := a.preamble(env)
	if st != sys.StatusOK {
		return 0, st
	}
	v, st := a.value(h)
	if st != sys.StatusOK {
		return 0, st
	}
	switch {
	case v.obj != nil:
		return a.result(s, v)
	case v.t == sys.TypeUndefined || v.t == sys.TypeNull:
		a.rt.throwTypeError("Cannot convert undefined or null to object")
		return 0, a.fail(sys.StatusPendingException)
	default:
		return a.result(s, objectVal(a.rt.boxPrimitive(v)))
	}
}

// Properties

func (a *api) key(h sys.Value) (string, sys.Status) {
	k, st := a.value(h)
	if st != sys.StatusOK {
		return "", st
	}
	return toString(k), sys.StatusOK
}

func (a *api) GetProperty(env sys.Env, obj, key sys.Value) (sys.Value, sys.Status) {
	s, st := a.preamble(env)
	if st != sys.StatusOK {
		return 0, st
	}
	o, st := a.object(obj)
	if st != sys.StatusOK {
		return 0, st
	}
	k, st := a.key(key)
	if st != sys.StatusOK {
		return 0, st
	}
	v, _ := o.get(k)
	return a.result(s, v)
}

func (a *api) SetProperty(env sys.Env, obj, key, val sys.Value) sys.Status {
	if _, st := a.preamble(env); st != sys.StatusOK {
		return st
	}
	o, st := a.object(obj)
	if st != sys.StatusOK {
		return st
	}
	k, st := a.key(key)
	if st != sys.StatusOK {
		return st
	}
	v, st := a.value(val)
	if st != sys.StatusOK {
		return st
	}
	o.set(k, v)
	return a.ok()
}

func (a *api) HasProperty(env sys.Env, obj, key sys.Value) (bool, sys.Status) {
	if _, st := a.preamble(env); st != sys.StatusOK {
		return false, st
	}
	o, st := a.object(obj)
	if st != sys.StatusOK {
		return false, st
	}
	k, st := a.key(key)
	if st != sys.StatusOK {
		return false, st
	}
	return o.has(k), a.ok()
}

func (a *api) DeleteProperty(env sys.Env, obj, key sys.Value) (bool, sys.Status) {
	if _, st := a.preamble(env); st != sys.StatusOK {
		return false, st
	}
	o, st := a.object(obj)
	if st != sys.StatusOK {
		return false, st
	}
	k, st := a.key(key)
	if st != sys.StatusOK {
		return false, st
	}
	return o.del(k), a.ok()
}

func (a *api) GetNamedProperty(env sys.Env, obj sys.Value, name string) (sys.Value, sys.Status) {
	s, st := a.preamble(env)
	if st != sys.StatusOK {
		return 0, st
	}
	o, st := a.object(obj)
	if st != sys.StatusOK {
		return 0, st
	}
	v, _ := o.get(name)
	return a.result(s, v)
}

func (a *api) SetNamedProperty(env sys.Env, obj sys.Value, name string, val sys.Value) sys.Status {
	if _, st := a.preamble(env); st != sys.StatusOK {
		return st
	}
	o, st := a.object(obj)
	if st != sys.StatusOK {
		return st
	}
	v, st := a.value(val)
	if st != sys.StatusOK {
		return st
	}
	o.set(name, v)
	return a.ok()
}

func (a *api) HasNamedProperty(env sys.Env, obj sys.Value, name string) (bool, sys.Status) {
	if _, st := a.preamble(env); st != sys.StatusOK {
		return false, st
	}
	o, st := a.object(obj)
	if st != sys.StatusOK {
		return false, st
	}
	return o.has(name), a.ok()
}

func (a *api) GetPropertyNames(env sys.Env, obj sys.Value) (sys.Value, sys.Status) {
	s, st := a.preamble(env)
	if st != sys.StatusOK {
		return 0, st
	}
	o, st := a.object(obj)
	if st != sys.StatusOK {
		return 0, st
	}
	keys := o.ownKeys()
	arr := a.rt.newObject(classArray)
	arr.elems = make([]jsval, len(keys))
	for i, k := range keys {
		arr.elems[i] = stringVal(k)
	}
	return a.result(s, objectVal(arr))
}

// Arrays

func (a *api) GetArrayLength(env sys.Env, arr sys.Value) (uint32, sys.Status) {
	if _, st := a.enter(env); st != sys.StatusOK {
		return 0, st
	}
	v, st := a.value(arr)
	if st != sys.StatusOK {
		return 0, st
	}
	if v.obj == nil || v.obj.class != classArray {
		return 0, a.fail(sys.StatusArrayExpected)
	}
	return uint32(len(v.obj.elems)), a.ok()
}

func (a *api) GetElement(env sys.Env, arr sys.Value, index uint32) (sys.Value, sys.Status) {
	s, st := a.preamble(env)
	if st != sys.StatusOK {
		return 0, st
	}
	o, st := a.object(arr)
	if st != sys.StatusOK {
		return 0, st
	}
	v, _ := o.get(indexKey(index))
	return a.result(s, v)
}

func (a *api) SetElement(env sys.Env, arr sys.Value, index uint32, val sys.Value) sys.Status {
	if _, st := a.preamble(env); st != sys.StatusOK {
		return st
	}
	o, st := a.object(arr)
	if st != sys.StatusOK {
		return st
	}
	v, st := a.value(val)
	if st != sys.StatusOK {
		return st
	}
	o.set(indexKey(index), v)
	return a.ok()
}

func (a *api) HasElement(env sys.Env, arr sys.Value, index uint32) (bool, sys.Status) {
	if _, st := a.preamble(env); st != sys.StatusOK {
		return false, st
	}
	o, st := a.object(arr)
	if st != sys.StatusOK {
		return false, st
	}
	return o.has(indexKey(index)), a.ok()
}

func (a *api) DeleteElement(env sys.Env, arr sys.Value, index uint32) (bool, sys.Status) {
	if _, st := a.preamble(env); st != sys.StatusOK {
		return false, st
	}
	o, st := a.object(arr)
	if st != sys.StatusOK {
		return false, st
	}
	return o.del(indexKey(index)), a.ok()
}

func indexKey(i uint32) string {
	return strconv.FormatUint(uint64(i), 10)
}

// Buffers

func (a *api) CreateBufferCopy(env sys.Env, data []byte) (sys.Value, sys.Status) {
	s, st := a.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	o := a.rt.newObject(classBuffer)
	o.buf = append([]byte(nil), data...)
	return a.result(s, objectVal(o))
}

func (a *api) GetBufferInfo(env sys.Env, h sys.Value) ([]byte, sys.Status) {
	if _, st := a.enter(env); st != sys.StatusOK {
		return nil, st
	}
	v, st := a.value(h)
	if st != sys.StatusOK {
		return nil, st
	}
	if v.obj == nil || v.obj.class != classBuffer {
		return nil, a.fail(sys.StatusInvalidArg)
	}
	return v.obj.buf, a.ok()
}
