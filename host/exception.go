package host

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/napi-go/sys"
)

// Exception is a host exception surfaced to Go. Value is the thrown value,
// converted like a Call result.
type Exception struct {
	Value   any
	Name    string
	Message string
	Code    string
}

func (e *Exception) Error() string {
	switch {
	case e.Name != "" && e.Code != "":
		return fmt.Sprintf("%s [%s]: %s", e.Name, e.Code, e.Message)
	case e.Name != "":
		return e.Name + ": " + e.Message
	default:
		return "uncaught exception: " + e.Message
	}
}

// jsError is a Go error thrown into the host as an Error object.
type jsError struct {
	name string
	code string
	msg  string
}

func (e *jsError) Error() string { return e.name + ": " + e.msg }

func typeErrorf(format string, args ...any) error {
	return &jsError{name: "TypeError", msg: fmt.Sprintf(format, args...)}
}

func (rt *Runtime) newError(name, code, msg string) *object {
	o := rt.newObject(classError)
	o.errName = name
	o.set("message", stringVal(msg))
	if code != "" {
		o.set("code", stringVal(code))
	}
	return o
}

func (rt *Runtime) throw(v jsval) {
	rt.exception = v
	rt.hasException = true
}

func (rt *Runtime) clearException() {
	rt.exception = undefinedVal
	rt.hasException = false
}

func (rt *Runtime) throwTypeError(msg string) {
	rt.throw(objectVal(rt.newError("TypeError", "", msg)))
}

func (rt *Runtime) throwGoError(err error) {
	if je, ok := err.(*jsError); ok {
		rt.throw(objectVal(rt.newError(je.name, je.code, je.msg)))
		return
	}
	rt.throw(objectVal(rt.newError("Error", "", err.Error())))
}

// takeException clears the pending exception and converts it.
func (rt *Runtime) takeException() *Exception {
	if !rt.hasException {
		return nil
	}
	v := rt.exception
	rt.clearException()
	return rt.exceptionFrom(v)
}

func (rt *Runtime) exceptionFrom(v jsval) *Exception {
	exc := &Exception{Value: rt.toGo(v)}
	if v.obj != nil && v.obj.class == classError {
		exc.Name = v.obj.errName
		if n, ok := v.obj.props["name"]; ok {
			exc.Name = toString(n)
		}
		if m, ok := v.obj.props["message"]; ok {
			exc.Message = toString(m)
		}
		if c, ok := v.obj.props["code"]; ok {
			exc.Code = toString(c)
		}
		return exc
	}
	exc.Message = toString(v)
	return exc
}

// reportUncaught hands an exception left by a native entry with no host
// caller to the configured hook.
func (rt *Runtime) reportUncaught(source string) {
	exc := rt.takeException()
	if exc == nil {
		return
	}
	rt.log.Warn("uncaught exception", zap.String("source", source), zap.Error(exc))
	if rt.cfg.OnUncaughtException != nil {
		rt.cfg.OnUncaughtException(exc)
	}
}

// protectNative runs native code that has no caller to report to.
func (rt *Runtime) protectNative(source string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			rt.log.Error("panic in native code", zap.String("source", source), zap.Any("panic", r))
			if !rt.hasException {
				rt.throw(objectVal(rt.newError("Error", "", fmt.Sprintf("%s panicked: %v", source, r))))
			}
		}
	}()
	fn()
}

// boxPrimitive wraps a primitive in an object, as ToObject does.
func (rt *Runtime) boxPrimitive(v jsval) *object {
	o := rt.newObject(classPrimitive)
	o.prim = v
	if v.t == sys.TypeString {
		o.props["length"] = numberVal(float64(len([]rune(v.s))))
	}
	return o
}
