package napi

import (
	"sync/atomic"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// Promise is strict: only values the host recognizes as promises are
// accepted.
type Promise struct{ value }

func (p *Promise) setRaw(env Env, raw sys.Value) error {
	ok, err := isPromise(env, raw)
	if err != nil {
		return err
	}
	if !ok {
		t, err := typeOf(env, raw)
		if err != nil {
			return err
		}
		return errors.TypeMismatch(errors.PhaseCast, "Promise", t.String())
	}
	p.value = value{env: env.raw, raw: raw}
	return nil
}

// Deferred settles the promise it was created with. It may be handed to
// another goroutine, but Resolve and Reject must run on the control thread.
type Deferred struct {
	raw     sys.Deferred
	settled atomic.Bool
}

// NewPromise creates a pending promise and the deferred that settles it.
func NewPromise(env Env) (Promise, *Deferred, error) {
	d, raw, st := env.api.CreatePromise(env.raw)
	if st != sys.StatusOK {
		return Promise{}, nil, env.lastError(errors.PhasePromise, "napi_create_promise", st)
	}
	return Promise{value{env: env.raw, raw: raw}}, &Deferred{raw: d}, nil
}

// Resolve fulfills the promise with v. The deferred is consumed; any later
// Resolve or Reject fails with ErrAlreadySettled.
func (d *Deferred) Resolve(env Env, v Value) error {
	return d.settle(env, v, false)
}

// Reject rejects the promise with v. The deferred is consumed.
func (d *Deferred) Reject(env Env, v Value) error {
	return d.settle(env, v, true)
}

// Settled reports whether the deferred has been consumed.
func (d *Deferred) Settled() bool {
	return d.settled.Load()
}

func (d *Deferred) settle(env Env, v Value, reject bool) error {
	op := "napi_resolve_deferred"
	if reject {
		op = "napi_reject_deferred"
	}
	if err := env.check(v, op); err != nil {
		return err
	}
	if !d.settled.CompareAndSwap(false, true) {
		return errors.New(errors.PhasePromise, errors.KindAlreadySettled).
			Op(op).Detail("deferred already consumed").Build()
	}
	var st sys.Status
	if reject {
		st = env.api.RejectDeferred(env.raw, d.raw, v.Raw())
	} else {
		st = env.api.ResolveDeferred(env.raw, d.raw, v.Raw())
	}
	if st != sys.StatusOK {
		return env.lastError(errors.PhasePromise, op, st)
	}
	return nil
}
