package host

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/napi-go/errors"
)

// ErrClosed is returned by runtime operations after Close.
var ErrClosed = errors.New(errors.PhaseHost, errors.KindClosing).Detail("runtime closed").Build()

// post queues a task for the control thread. It never blocks.
func (rt *Runtime) post(task func()) bool {
	rt.tasksMu.Lock()
	if rt.stopped {
		rt.tasksMu.Unlock()
		return false
	}
	rt.tasks = append(rt.tasks, task)
	rt.tasksMu.Unlock()

	select {
	case rt.wake <- struct{}{}:
	default:
	}
	return true
}

func (rt *Runtime) next() func() {
	rt.tasksMu.Lock()
	defer rt.tasksMu.Unlock()
	if len(rt.tasks) == 0 {
		return nil
	}
	task := rt.tasks[0]
	rt.tasks[0] = nil
	rt.tasks = rt.tasks[1:]
	return task
}

// loop is the control thread.
func (rt *Runtime) loop() {
	defer close(rt.loopDone)
	for {
		select {
		case <-rt.wake:
		case <-rt.stop:
			return
		}
		for task := rt.next(); task != nil; task = rt.next() {
			rt.exec(task)
		}
	}
}

func (rt *Runtime) exec(task func()) {
	defer func() {
		if r := recover(); r != nil {
			rt.log.Error("panic on control thread", zap.Any("panic", r))
		}
	}()
	task()
}

// run executes fn on the control thread and waits for it. If ctx ends
// first, fn still runs but its result is discarded.
func (rt *Runtime) run(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	ok := rt.post(func() {
		done <- rt.protect(fn)
	})
	if !ok {
		return ErrClosed
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (rt *Runtime) protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			rt.log.Error("panic in runtime task", zap.Any("panic", r))
			err = errors.New(errors.PhaseHost, errors.KindPanic).Detail("%v", r).Build()
		}
	}()
	return fn()
}
