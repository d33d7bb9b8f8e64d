package host

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// Runtime is a single-threaded embedding runtime. All host state is owned
// by one control goroutine; native code runs on it synchronously through
// the sys.API returned by API.
type Runtime struct {
	wasm wazero.Runtime
	log  *zap.Logger
	api  *api

	// control-thread state
	objects      map[*object]struct{}
	global       *object
	scopes       map[uint32]*handleScope
	infos        map[sys.CallbackInfo]*callbackInfo
	deferreds    map[sys.Deferred]*object
	pins         map[*object]int
	exception    jsval
	lastErr      sys.ExtendedErrorInfo
	modules      []string
	nextObjectID uint64
	nextInfo     uint64
	nextDeferred uint64
	calls        int
	nextScope    uint32
	hasException bool

	tsfns    map[sys.ThreadsafeFunction]*tsfn
	tasks    []func()
	wake     chan struct{}
	stop     chan struct{}
	loopDone chan struct{}
	id       string
	cfg      Config
	nextTsfn atomic.Uint64
	tsfnMu   sync.Mutex
	tasksMu  sync.Mutex
	stopped  bool
	closed   atomic.Bool
}

// New starts a runtime. A nil cfg uses defaults.
func New(ctx context.Context, cfg *Config) (*Runtime, error) {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	rt := &Runtime{
		id:        uuid.NewString(),
		cfg:       c,
		objects:   make(map[*object]struct{}),
		scopes:    make(map[uint32]*handleScope),
		infos:     make(map[sys.CallbackInfo]*callbackInfo),
		deferreds: make(map[sys.Deferred]*object),
		pins:      make(map[*object]int),
		tsfns:     make(map[sys.ThreadsafeFunction]*tsfn),
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		loopDone:  make(chan struct{}),
	}
	base := c.Logger
	if base == nil {
		base = Logger()
	}
	rt.log = base.With(zap.String("runtime_id", rt.id))
	rt.api = &api{rt: rt}
	rt.global = rt.newObject(classObject)
	rt.wasm = wazero.NewRuntimeWithConfig(ctx, c.wazeroConfig())

	go rt.loop()
	rt.log.Debug("runtime started")
	return rt, nil
}

// ID returns the runtime's unique id.
func (rt *Runtime) ID() string { return rt.id }

// API returns the boundary native code is given.
func (rt *Runtime) API() sys.API { return rt.api }

// Close aborts every threadsafe function, runs all outstanding finalizers
// and stops the control thread.
func (rt *Runtime) Close(ctx context.Context) error {
	if !rt.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := rt.run(ctx, func() error {
		rt.teardown()
		return nil
	})

	rt.tasksMu.Lock()
	rt.stopped = true
	rt.tasksMu.Unlock()
	close(rt.stop)
	<-rt.loopDone

	if werr := rt.wasm.Close(ctx); werr != nil && err == nil {
		err = werr
	}
	rt.log.Debug("runtime closed")
	return err
}

// teardown runs on the control thread during Close.
func (rt *Runtime) teardown() {
	for _, t := range rt.bridges() {
		t.abort()
		t.closeDown(false)
	}

	var fins []finalizer
	for o := range rt.objects {
		fins = append(fins, o.detachFinalizers()...)
	}
	rt.runFinalizers(fins)
	rt.objects = make(map[*object]struct{})
	rt.deferreds = make(map[sys.Deferred]*object)
	rt.pins = make(map[*object]int)
}

// Scope is a handle scope opened by Do. Its Env is valid only inside the
// function passed to Do.
type Scope struct {
	rt *Runtime
	s  *handleScope
}

// Env returns the scope token.
func (s *Scope) Env() sys.Env { return s.s.envToken() }

// API returns the runtime's boundary.
func (s *Scope) API() sys.API { return s.rt.api }

// Runtime returns the owning runtime.
func (s *Scope) Runtime() *Runtime { return s.rt }

// Do runs fn on the control thread inside a fresh handle scope. An
// exception left pending by fn is cleared and returned as *Exception.
// Do must not be called from native code already running on the control
// thread.
func (rt *Runtime) Do(ctx context.Context, fn func(*Scope) error) error {
	return rt.run(ctx, func() error {
		s := rt.openScope()
		defer rt.closeScope(s)
		err := fn(&Scope{rt: rt, s: s})
		if exc := rt.takeException(); exc != nil {
			return exc
		}
		return err
	})
}

// LoadModule runs a module entry point once and stores its exports on the
// global object under name.
func (rt *Runtime) LoadModule(ctx context.Context, name string, init sys.ModuleInit) error {
	if name == "" || init == nil {
		return errors.InvalidInput(errors.PhaseHost, "module needs a name and an entry point")
	}
	return rt.run(ctx, func() error {
		if _, exists := rt.global.get(name); exists {
			return errors.Registration(name, errors.InvalidInput(errors.PhaseHost, "name already bound"))
		}
		s := rt.openScope()
		defer rt.closeScope(s)

		exports := rt.newObject(classObject)
		ret := init(s.envToken(), s.push(objectVal(exports)))
		if exc := rt.takeException(); exc != nil {
			return errors.Registration(name, exc)
		}
		result := objectVal(exports)
		if ret != 0 {
			v, st := rt.resolve(ret)
			if st != sys.StatusOK {
				return errors.Registration(name, errors.Status(errors.PhaseHost, "module init", st, "invalid exports handle"))
			}
			result = v
		}
		rt.global.set(name, result)
		rt.modules = append(rt.modules, name)
		rt.log.Debug("module loaded", zap.String("module", name))
		return nil
	})
}

// Modules returns the names of loaded modules in load order.
func (rt *Runtime) Modules(ctx context.Context) ([]string, error) {
	var names []string
	err := rt.run(ctx, func() error {
		names = append(names, rt.modules...)
		return nil
	})
	return names, err
}

// Exports lists the function exports of a loaded module.
func (rt *Runtime) Exports(ctx context.Context, module string) ([]string, error) {
	var names []string
	err := rt.run(ctx, func() error {
		v, ok := rt.global.get(module)
		if !ok || !v.isObject() {
			return errors.NotFound(errors.PhaseHost, "module "+module)
		}
		for _, k := range v.obj.ownKeys() {
			if p, _ := v.obj.get(k); p.t == sys.TypeFunction {
				names = append(names, k)
			}
		}
		return nil
	})
	return names, err
}

// Call invokes the function at a dotted path from the global object, such
// as "addon.add". Arguments and the result are converted as described in
// the package documentation. A thrown exception is returned as *Exception.
func (rt *Runtime) Call(ctx context.Context, path string, args ...any) (any, error) {
	var out any
	err := rt.run(ctx, func() error {
		s := rt.openScope()
		defer rt.closeScope(s)

		holder, fn, err := rt.lookupFunction(path)
		if err != nil {
			return err
		}
		argv := make([]jsval, len(args))
		for i, a := range args {
			v, err := rt.fromGo(a)
			if err != nil {
				return errors.New(errors.PhaseHost, errors.KindInvalidInput).
					Path(path, fmt.Sprintf("arg%d", i)).Cause(err).Build()
			}
			argv[i] = v
		}
		result, ok := rt.callFunction(fn, holder, argv)
		if !ok {
			if exc := rt.takeException(); exc != nil {
				return exc
			}
			return errors.New(errors.PhaseHost, errors.KindStatus).Op(path).Detail("call failed").Build()
		}
		out = rt.toGo(result)
		return nil
	})
	if err == nil {
		rt.maybeCollect(ctx)
	}
	return out, err
}

func (rt *Runtime) lookupFunction(path string) (jsval, *object, error) {
	parts := strings.Split(path, ".")
	holder := objectVal(rt.global)
	cur := holder
	for _, p := range parts {
		if !cur.isObject() {
			return undefinedVal, nil, errors.NotFound(errors.PhaseHost, path)
		}
		next, ok := cur.obj.get(p)
		if !ok {
			return undefinedVal, nil, errors.NotFound(errors.PhaseHost, path)
		}
		holder, cur = cur, next
	}
	if cur.t != sys.TypeFunction {
		return undefinedVal, nil, errors.New(errors.PhaseHost, errors.KindTypeMismatch).
			Path(parts...).HostType(cur.t.String()).Detail("not a function").Build()
	}
	return holder, cur.obj, nil
}

// Collect runs the collector and returns the number of objects reclaimed.
func (rt *Runtime) Collect(ctx context.Context) (int, error) {
	var n int
	err := rt.run(ctx, func() error {
		n = rt.collect()
		return nil
	})
	return n, err
}

func (rt *Runtime) maybeCollect(ctx context.Context) {
	if rt.cfg.GCEveryCalls <= 0 {
		return
	}
	_ = rt.run(ctx, func() error {
		rt.calls++
		if rt.calls >= rt.cfg.GCEveryCalls {
			rt.calls = 0
			rt.collect()
		}
		return nil
	})
}

// Idle waits until every threadsafe function has been finalized and the
// control thread has no queued work.
func (rt *Runtime) Idle(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		var busy bool
		if err := rt.run(ctx, func() error {
			busy = rt.busy()
			return nil
		}); err != nil {
			return err
		}
		if !busy {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (rt *Runtime) busy() bool {
	rt.tasksMu.Lock()
	queued := len(rt.tasks)
	rt.tasksMu.Unlock()
	if queued > 0 {
		return true
	}
	for _, t := range rt.bridges() {
		if !t.isFinalized() {
			return true
		}
	}
	return false
}

func (rt *Runtime) bridges() []*tsfn {
	rt.tsfnMu.Lock()
	defer rt.tsfnMu.Unlock()
	out := make([]*tsfn, 0, len(rt.tsfns))
	for _, t := range rt.tsfns {
		out = append(out, t)
	}
	return out
}
