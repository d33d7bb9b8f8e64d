package host

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/napi-go/sys"
)

type callbackInfo struct {
	args []sys.Value
	this sys.Value
	data sys.Pointer
}

// Functions

func (a *api) CreateFunction(env sys.Env, name string, cb sys.Callback, data sys.Pointer) (sys.Value, sys.Status) {
	s, st := a.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	if cb == nil {
		return 0, a.fail(sys.StatusInvalidArg)
	}
	o := a.rt.newObject(classFunction)
	o.fn = &function{name: name, cb: cb, data: data}
	return a.result(s, objectVal(o))
}

func (a *api) GetCbInfo(env sys.Env, info sys.CallbackInfo, argv []sys.Value) (int, sys.Value, sys.Pointer, sys.Status) {
	s, st := a.enter(env)
	if st != sys.StatusOK {
		return 0, 0, 0, st
	}
	rec, ok := a.rt.infos[info]
	if !ok {
		return 0, 0, 0, a.fail(sys.StatusInvalidArg)
	}
	n := copy(argv, rec.args)
	if n < len(argv) {
		undef := s.push(undefinedVal)
		for i := n; i < len(argv); i++ {
			argv[i] = undef
		}
	}
	return len(rec.args), rec.this, rec.data, a.ok()
}

func (a *api) CallFunction(env sys.Env, recv, fn sys.Value, argv []sys.Value) (sys.Value, sys.Status) {
	s, st := a.preamble(env)
	if st != sys.StatusOK {
		return 0, st
	}
	this, st := a.value(recv)
	if st != sys.StatusOK {
		return 0, st
	}
	f, st := a.value(fn)
	if st != sys.StatusOK {
		return 0, st
	}
	if f.t != sys.TypeFunction {
		return 0, a.fail(sys.StatusFunctionExpected)
	}
	args := make([]jsval, len(argv))
	for i, h := range argv {
		if args[i], st = a.value(h); st != sys.StatusOK {
			return 0, st
		}
	}
	result, ok := a.rt.callFunction(f.obj, this, args)
	if !ok {
		return 0, a.fail(sys.StatusPendingException)
	}
	return a.result(s, result)
}

// callFunction invokes fn on the control thread. ok is false when the call
// ended with a pending exception.
func (rt *Runtime) callFunction(fn *object, this jsval, args []jsval) (jsval, bool) {
	if fn.fn.builtin != nil {
		v, err := fn.fn.builtin(rt, this, args)
		if err != nil {
			rt.throwGoError(err)
			return undefinedVal, false
		}
		return v, true
	}

	s := rt.openScope()
	defer rt.closeScope(s)

	rec := &callbackInfo{this: s.push(this), data: fn.fn.data, args: make([]sys.Value, len(args))}
	for i, v := range args {
		rec.args[i] = s.push(v)
	}
	rt.nextInfo++
	id := sys.CallbackInfo(rt.nextInfo)
	rt.infos[id] = rec
	defer delete(rt.infos, id)

	ret := rt.invokeNative(fn.fn, s.envToken(), id)
	if rt.hasException {
		return undefinedVal, false
	}
	if ret == 0 {
		return undefinedVal, true
	}
	v, st := rt.resolve(ret)
	if st != sys.StatusOK {
		rt.log.Warn("native function returned an invalid handle",
			zap.String("function", fn.fn.name), zap.Stringer("status", st))
		return undefinedVal, true
	}
	return v, true
}

func (rt *Runtime) invokeNative(fn *function, env sys.Env, info sys.CallbackInfo) (ret sys.Value) {
	defer func() {
		if r := recover(); r != nil {
			rt.log.Error("panic in native function", zap.String("function", fn.name), zap.Any("panic", r))
			if !rt.hasException {
				rt.throw(objectVal(rt.newError("Error", "", fmt.Sprintf("native function %s panicked: %v", fn.name, r))))
			}
			ret = 0
		}
	}()
	return fn.cb(env, info)
}

// Native data attachment

func (a *api) Wrap(env sys.Env, obj sys.Value, native sys.Pointer, fin sys.Finalize, hint sys.Pointer) sys.Status {
	if _, st := a.enter(env); st != sys.StatusOK {
		return st
	}
	v, st := a.value(obj)
	if st != sys.StatusOK {
		return st
	}
	if v.obj == nil {
		return a.fail(sys.StatusObjectExpected)
	}
	if v.obj.wrap != nil {
		return a.fail(sys.StatusInvalidArg)
	}
	v.obj.wrap = &finalizer{fn: fin, data: native, hint: hint}
	return a.ok()
}

func (a *api) Unwrap(env sys.Env, obj sys.Value) (sys.Pointer, sys.Status) {
	if _, st := a.enter(env); st != sys.StatusOK {
		return 0, st
	}
	v, st := a.value(obj)
	if st != sys.StatusOK {
		return 0, st
	}
	if v.obj == nil {
		return 0, a.fail(sys.StatusObjectExpected)
	}
	if v.obj.wrap == nil {
		return 0, a.fail(sys.StatusInvalidArg)
	}
	return v.obj.wrap.data, a.ok()
}

func (a *api) RemoveWrap(env sys.Env, obj sys.Value) (sys.Pointer, sys.Status) {
	p, st := a.Unwrap(env, obj)
	if st != sys.StatusOK {
		return 0, st
	}
	v, _ := a.rt.resolve(obj)
	v.obj.wrap = nil
	return p, a.ok()
}

func (a *api) AddFinalizer(env sys.Env, obj sys.Value, data sys.Pointer, fin sys.Finalize, hint sys.Pointer) sys.Status {
	if _, st := a.enter(env); st != sys.StatusOK {
		return st
	}
	if fin == nil {
		return a.fail(sys.StatusInvalidArg)
	}
	v, st := a.value(obj)
	if st != sys.StatusOK {
		return st
	}
	if v.obj == nil {
		return a.fail(sys.StatusObjectExpected)
	}
	v.obj.finalizers = append(v.obj.finalizers, finalizer{fn: fin, data: data, hint: hint})
	return a.ok()
}

// Promises

func (a *api) CreatePromise(env sys.Env) (sys.Deferred, sys.Value, sys.Status) {
	s, st := a.enter(env)
	if st != sys.StatusOK {
		return 0, 0, st
	}
	o := a.rt.newObject(classPromise)
	o.promise = &promise{state: Pending, value: undefinedVal, done: make(chan struct{})}
	a.rt.nextDeferred++
	d := sys.Deferred(a.rt.nextDeferred)
	a.rt.deferreds[d] = o
	h, st := a.result(s, objectVal(o))
	return d, h, st
}

func (a *api) ResolveDeferred(env sys.Env, d sys.Deferred, v sys.Value) sys.Status {
	return a.settle(env, d, v, Fulfilled)
}

func (a *api) RejectDeferred(env sys.Env, d sys.Deferred, v sys.Value) sys.Status {
	return a.settle(env, d, v, Rejected)
}

func (a *api) settle(env sys.Env, d sys.Deferred, h sys.Value, state PromiseState) sys.Status {
	if _, st := a.preamble(env); st != sys.StatusOK {
		return st
	}
	o, ok := a.rt.deferreds[d]
	if !ok {
		return a.fail(sys.StatusInvalidArg)
	}
	v, st := a.value(h)
	if st != sys.StatusOK {
		return st
	}
	delete(a.rt.deferreds, d)
	o.promise.state = state
	o.promise.value = v
	close(o.promise.done)
	return a.ok()
}

// Threadsafe functions

func (a *api) CreateThreadsafeFunction(env sys.Env, fn sys.Value, resourceName sys.Value, maxQueueSize int,
	initialThreadCount int, finalizeData sys.Pointer, fin sys.Finalize, context sys.Pointer, callJS sys.CallJS) (sys.ThreadsafeFunction, sys.Status) {
	if _, st := a.enter(env); st != sys.StatusOK {
		return 0, st
	}
	if initialThreadCount < 1 || maxQueueSize < 0 {
		return 0, a.fail(sys.StatusInvalidArg)
	}
	var target jsval
	if fn != 0 {
		v, st := a.value(fn)
		if st != sys.StatusOK {
			return 0, st
		}
		if v.t != sys.TypeFunction {
			return 0, a.fail(sys.StatusFunctionExpected)
		}
		target = v
	} else if callJS == nil {
		return 0, a.fail(sys.StatusInvalidArg)
	}
	name := ""
	if resourceName != 0 {
		v, st := a.value(resourceName)
		if st != sys.StatusOK {
			return 0, st
		}
		name = toString(v)
	}
	if maxQueueSize == 0 {
		maxQueueSize = a.rt.cfg.DefaultMaxQueueSize
	}
	t := a.rt.newTsfn(target, name, maxQueueSize, initialThreadCount, finalizeData, fin, context, callJS)
	return t.id, a.ok()
}

// The following may be called from any goroutine and leave lastErr alone.

func (a *api) CallThreadsafeFunction(h sys.ThreadsafeFunction, data sys.Pointer, mode sys.CallMode) sys.Status {
	t, st := a.rt.lookupTsfn(h)
	if st != sys.StatusOK {
		return st
	}
	return t.call(data, mode)
}

func (a *api) AcquireThreadsafeFunction(h sys.ThreadsafeFunction) sys.Status {
	t, st := a.rt.lookupTsfn(h)
	if st != sys.StatusOK {
		return st
	}
	return t.acquire()
}

func (a *api) ReleaseThreadsafeFunction(h sys.ThreadsafeFunction, mode sys.ReleaseMode) sys.Status {
	t, st := a.rt.lookupTsfn(h)
	if st != sys.StatusOK {
		return st
	}
	return t.release(mode)
}
