package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// globalKey is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no VM is registered for a key.
const globalKey = "__global__"

// ErrNoVM is returned by CallHook when neither the key nor the global VM
// exists.
var ErrNoVM = errors.New("scripting: no VM loaded")

type vm struct {
	mu    sync.Mutex
	L     *lua.LState
	limit int
	env   *Env
}

// Manager owns one sandboxed LState per script key (one per NPC definition)
// and exposes hook dispatch.
//
// Manager is safe for concurrent use. Each VM is single-threaded; its mutex
// serializes calls to the same VM while different VMs run concurrently.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	logger *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no VMs.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		vms:    make(map[string]*vm),
		logger: logger,
	}
}

// LoadFile creates a sandboxed VM for key from a single script file.
//
// Precondition: key must be non-empty.
// Postcondition: The VM is registered under key, replacing any previous VM;
// returns an error on read or Lua load failure.
func (m *Manager) LoadFile(key, path string, instLimit int) error {
	return m.loadInto(key, []string{path}, instLimit)
}

// LoadDir creates a sandboxed VM for key and executes every *.lua file in
// dir in lexicographic order.
func (m *Manager) LoadDir(key, dir string, instLimit int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", dir, key, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return m.loadInto(key, files, instLimit)
}

// LoadGlobal loads dir into the shared VM consulted when a key has no VM.
func (m *Manager) LoadGlobal(dir string, instLimit int) error {
	return m.LoadDir(globalKey, dir, instLimit)
}

func (m *Manager) loadInto(key string, files []string, instLimit int) error {
	if key == "" {
		return errors.New("scripting: key must not be empty")
	}
	v := &vm{limit: instLimit}
	v.L = NewSandboxedState(instLimit)
	m.registerModules(v)

	for _, path := range files {
		err := withBudget(v.L, instLimit, func() error { return v.L.DoFile(path) })
		if err != nil {
			v.L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	m.mu.Lock()
	old := m.vms[key]
	m.vms[key] = v
	m.mu.Unlock()
	if old != nil {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
	return nil
}

func (m *Manager) lookup(key string) *vm {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.vms[key]; ok {
		return v
	}
	return m.vms[globalKey]
}

// Has reports whether a VM is registered for key.
func (m *Manager) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.vms[key]
	return ok
}

// HasHook reports whether key's VM (or the global VM) defines function hook.
func (m *Manager) HasHook(key, hook string) bool {
	v := m.lookup(key)
	if v == nil {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.L.GetGlobal(hook).(*lua.LFunction)
	return ok
}

// CallHook calls the named Lua global function in key's VM with env bound to
// the engine global. If key has no VM, the global VM is tried. Every call
// gets a fresh instruction budget.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the hook's first return value. An undefined hook
// returns (LNil, nil). A Lua runtime error, including an exhausted budget,
// is logged at Warn and returned.
func (m *Manager) CallHook(key, hook string, env *Env, args ...lua.LValue) (lua.LValue, error) {
	v := m.lookup(key)
	if v == nil {
		m.logger.Info("scripting: no VM for key",
			zap.String("key", key),
			zap.String("hook", hook),
		)
		return lua.LNil, fmt.Errorf("%w for %q", ErrNoVM, key)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	fn := v.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	v.env = env
	defer func() { v.env = nil }()

	var ret lua.LValue = lua.LNil
	err := withBudget(v.L, v.limit, func() error {
		if err := v.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
			return err
		}
		ret = v.L.Get(-1)
		v.L.Pop(1)
		return nil
	})
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("key", key),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, fmt.Errorf("scripting: %s.%s: %w", key, hook, err)
	}
	return ret, nil
}

// Close releases every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	vms := m.vms
	m.vms = make(map[string]*vm)
	m.mu.Unlock()
	for _, v := range vms {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
	}
}
