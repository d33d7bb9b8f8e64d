package host

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/napi-go/sys"
)

// tsfn is a threadsafe function: a queue fed from any goroutine and drained
// on the control thread.
type tsfn struct {
	rt     *Runtime
	fin    sys.Finalize
	callJS sys.CallJS
	cond   *sync.Cond
	fn     jsval
	name   string
	queue  []sys.Pointer

	ctx     sys.Pointer
	finData sys.Pointer
	id      sys.ThreadsafeFunction
	max     int
	refs    int

	mu        sync.Mutex
	closing   bool // aborted: queued items are dropped, calls fail
	released  bool // reference count reached zero
	scheduled bool // a drain task is queued on the control thread
	finalized bool
}

func (rt *Runtime) newTsfn(fn jsval, name string, maxQueue, refs int, finData sys.Pointer,
	fin sys.Finalize, ctx sys.Pointer, callJS sys.CallJS) *tsfn {
	t := &tsfn{
		rt:      rt,
		fn:      fn,
		name:    name,
		max:     maxQueue,
		refs:    refs,
		finData: finData,
		fin:     fin,
		ctx:     ctx,
		callJS:  callJS,
	}
	t.cond = sync.NewCond(&t.mu)
	t.id = sys.ThreadsafeFunction(rt.nextTsfn.Add(1))

	rt.tsfnMu.Lock()
	rt.tsfns[t.id] = t
	rt.tsfnMu.Unlock()

	rt.log.Debug("threadsafe function created",
		zap.Uint64("tsfn", uint64(t.id)),
		zap.String("resource", name),
		zap.Int("max_queue_size", maxQueue),
	)
	return t
}

func (rt *Runtime) lookupTsfn(h sys.ThreadsafeFunction) (*tsfn, sys.Status) {
	rt.tsfnMu.Lock()
	t, ok := rt.tsfns[h]
	rt.tsfnMu.Unlock()
	if !ok {
		return nil, sys.StatusInvalidArg
	}
	return t, sys.StatusOK
}

func (t *tsfn) call(data sys.Pointer, mode sys.CallMode) sys.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		if t.closing || t.released || t.finalized {
			return sys.StatusClosing
		}
		if t.max == 0 || len(t.queue) < t.max {
			break
		}
		if mode == sys.CallNonBlocking {
			return sys.StatusQueueFull
		}
		t.cond.Wait()
	}
	t.queue = append(t.queue, data)
	t.scheduleLocked()
	return sys.StatusOK
}

func (t *tsfn) acquire() sys.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closing || t.released || t.finalized {
		return sys.StatusClosing
	}
	t.refs++
	return sys.StatusOK
}

func (t *tsfn) release(mode sys.ReleaseMode) sys.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.refs == 0 {
		return sys.StatusInvalidArg
	}
	t.refs--
	if t.finalized {
		// aborted earlier; the last holder removes the entry
		if t.refs == 0 {
			t.rt.forgetTsfn(t.id)
		}
		return sys.StatusOK
	}
	if mode == sys.ReleaseAbort {
		t.closing = true
	}
	if t.refs == 0 {
		t.released = true
	}
	if t.closing || t.released {
		t.cond.Broadcast()
		t.scheduleLocked()
	}
	return sys.StatusOK
}

// abort closes the bridge without scheduling; used by runtime teardown.
func (t *tsfn) abort() {
	t.mu.Lock()
	t.closing = true
	t.cond.Broadcast()
	t.mu.Unlock()
}

func (t *tsfn) isFinalized() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finalized
}

func (t *tsfn) scheduleLocked() {
	if t.scheduled {
		return
	}
	t.scheduled = true
	if !t.rt.post(t.drain) {
		t.scheduled = false
	}
}

// drain delivers queued items in order on the control thread, then
// finalizes the bridge once it is released or aborted.
func (t *tsfn) drain() {
	for {
		t.mu.Lock()
		if t.closing {
			t.scheduled = false
			t.mu.Unlock()
			t.closeDown(true)
			return
		}
		if len(t.queue) == 0 {
			t.scheduled = false
			done := t.released && !t.finalized
			t.mu.Unlock()
			if done {
				t.closeDown(true)
			}
			return
		}
		data := t.queue[0]
		t.queue = t.queue[1:]
		t.cond.Broadcast()
		t.mu.Unlock()

		t.dispatch(data)
	}
}

func (t *tsfn) dispatch(data sys.Pointer) {
	rt := t.rt
	s := rt.openScope()
	defer rt.closeScope(s)

	var fnHandle sys.Value
	if t.fn.t == sys.TypeFunction {
		fnHandle = s.push(t.fn)
	}
	if t.callJS != nil {
		rt.protectNative("threadsafe function "+t.name, func() {
			t.callJS(s.envToken(), fnHandle, t.ctx, data)
		})
	} else if t.fn.t == sys.TypeFunction {
		rt.callFunction(t.fn.obj, undefinedVal, nil)
	}
	rt.reportUncaught("threadsafe function " + t.name)
}

// closeDown drops undelivered items, runs the finalizer once and forgets
// the bridge. Items are handed to callJS with a zero env so native code can
// free them.
func (t *tsfn) closeDown(forget bool) {
	t.mu.Lock()
	if t.finalized {
		t.mu.Unlock()
		return
	}
	t.finalized = true
	t.closing = true
	items := t.queue
	t.queue = nil
	refs := t.refs
	t.cond.Broadcast()
	t.mu.Unlock()

	rt := t.rt
	if t.callJS != nil {
		for _, data := range items {
			rt.protectNative("threadsafe function "+t.name, func() {
				t.callJS(0, 0, t.ctx, data)
			})
		}
	}
	if t.fin != nil {
		rt.runFinalizers([]finalizer{{fn: t.fin, data: t.finData, hint: t.ctx}})
	}
	t.fn = undefinedVal
	if forget && refs == 0 {
		rt.forgetTsfn(t.id)
	}
	rt.log.Debug("threadsafe function finalized",
		zap.Uint64("tsfn", uint64(t.id)),
		zap.String("resource", t.name),
		zap.Int("dropped", len(items)),
	)
}

func (rt *Runtime) forgetTsfn(id sys.ThreadsafeFunction) {
	rt.tsfnMu.Lock()
	delete(rt.tsfns, id)
	rt.tsfnMu.Unlock()
}
