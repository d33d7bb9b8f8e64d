package napi

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// InitFunc populates a module's exports. The returned object becomes the
// module's exports; returning exports itself is the common case.
type InitFunc func(env Env, exports Object) (Object, error)

// Module is a named native module.
type Module struct {
	Name string
	Init InitFunc
}

// NewModule creates a module.
func NewModule(name string, init InitFunc) *Module {
	return &Module{Name: name, Init: init}
}

// Entry adapts the module to the raw entry point a host invokes once per
// load. Errors become host exceptions and the entry returns the null
// handle.
func (m *Module) Entry(api sys.API) sys.ModuleInit {
	return func(rawEnv sys.Env, rawExports sys.Value) (ret sys.Value) {
		env := NewEnv(api, rawEnv)
		defer func() {
			if r := recover(); r != nil {
				Logger().Error("panic in module init", zap.String("module", m.Name), zap.Any("panic", r))
				throwAtBoundary(env, errors.New(errors.PhaseRegister, errors.KindPanic).
					Detail("module %s init panicked: %v", m.Name, r).Build())
				ret = 0
			}
		}()

		exports, err := FromRaw[Object](env, rawExports)
		if err != nil {
			throwAtBoundary(env, err)
			return 0
		}
		out, err := m.Init(env, exports)
		if err != nil {
			throwAtBoundary(env, errors.Registration(m.Name, err))
			return 0
		}
		if out.raw == 0 {
			return rawExports
		}
		Logger().Debug("module initialized", zap.String("module", m.Name))
		return out.raw
	}
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Module)
)

// Register adds m to the process-wide registry. It is meant to be called
// once at startup; registering a name twice fails.
func Register(m *Module) error {
	if m == nil || m.Name == "" || m.Init == nil {
		return errors.Registration("", errors.InvalidInput(errors.PhaseRegister, "module needs a name and an init function"))
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[m.Name]; exists {
		return errors.Registration(m.Name, errors.InvalidInput(errors.PhaseRegister, "already registered"))
	}
	registry[m.Name] = m
	return nil
}

// Lookup returns a registered module.
func Lookup(name string) (*Module, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	m, ok := registry[name]
	return m, ok
}

// Modules returns the registered module names in order.
func Modules() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
