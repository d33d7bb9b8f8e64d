package host

import (
	"go.uber.org/zap"
)

// collect is a stop-the-world mark and sweep. Roots are the global object,
// open handle scopes, the pending exception, unsettled deferreds, pinned
// promises and the targets of live threadsafe functions. Finalizers of
// reclaimed objects run after the sweep, each in its own scope.
func (rt *Runtime) collect() int {
	for o := range rt.objects {
		o.marked = false
	}

	var stack []*object
	mark := func(v jsval) {
		if v.obj != nil && !v.obj.marked {
			v.obj.marked = true
			stack = append(stack, v.obj)
		}
	}

	mark(objectVal(rt.global))
	for _, s := range rt.scopes {
		for _, v := range s.slots {
			mark(v)
		}
	}
	if rt.hasException {
		mark(rt.exception)
	}
	for _, o := range rt.deferreds {
		mark(objectVal(o))
	}
	for o := range rt.pins {
		mark(objectVal(o))
	}
	for _, t := range rt.bridges() {
		if !t.isFinalized() {
			mark(t.fn)
		}
	}

	for len(stack) > 0 {
		o := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		o.children(mark)
	}

	var fins []finalizer
	freed := 0
	for o := range rt.objects {
		if o.marked {
			continue
		}
		fins = append(fins, o.detachFinalizers()...)
		delete(rt.objects, o)
		freed++
	}
	rt.runFinalizers(fins)

	rt.log.Debug("collection finished",
		zap.Int("freed", freed),
		zap.Int("finalizers", len(fins)),
		zap.Int("live", len(rt.objects)),
	)
	return freed
}

// detachFinalizers takes every pending finalizer off o so none can run
// twice.
func (o *object) detachFinalizers() []finalizer {
	var out []finalizer
	if o.wrap != nil {
		if o.wrap.fn != nil {
			out = append(out, *o.wrap)
		}
		o.wrap = nil
	}
	out = append(out, o.finalizers...)
	o.finalizers = nil
	return out
}

func (rt *Runtime) runFinalizers(fins []finalizer) {
	for _, f := range fins {
		s := rt.openScope()
		rt.protectNative("finalizer", func() {
			f.fn(s.envToken(), f.data, f.hint)
		})
		rt.reportUncaught("finalizer")
		rt.closeScope(s)
	}
}
