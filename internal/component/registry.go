// Package component resolves (module, className) references from
// application descriptors into constructible factories.
//
// Resolution consults statically registered factories first, then falls
// back to Lua scripts discovered on the search scope. The auxiliary path
// from a descriptor extends the search scope only for the duration of a
// single resolution; it is restored on every exit path.
package component

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/quayhost/quay/internal/api"
)

// ScriptFactory builds an api.Factory from a script file on disk. It is
// satisfied by the lua subpackage; the indirection keeps this package free
// of a runtime dependency when only static components are used.
type ScriptFactory func(scriptPath, className string) (api.Factory, error)

// Registry maps (module, className) pairs to application factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[registryKey]api.Factory
	paths     []string
	script    ScriptFactory
}

type registryKey struct {
	module    string
	className string
}

// Option configures a Registry.
type Option func(*Registry)

// WithSearchPaths sets the base script search paths.
func WithSearchPaths(paths ...string) Option {
	return func(r *Registry) {
		r.paths = paths
	}
}

// WithScriptFactory enables script-defined components.
func WithScriptFactory(sf ScriptFactory) Option {
	return func(r *Registry) {
		r.script = sf
	}
}

// NewRegistry creates an empty component registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		factories: make(map[registryKey]api.Factory),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a statically compiled component factory.
func (r *Registry) Register(module, className string, factory api.Factory) error {
	if factory == nil {
		return ErrNilFactory
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey{module: module, className: className}
	if _, exists := r.factories[key]; exists {
		return ErrAlreadyRegistered
	}
	r.factories[key] = factory
	return nil
}

// AddPath appends a base search path for script resolution.
func (r *Registry) AddPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

// Paths returns a copy of the base search paths.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.paths...)
}

// Resolve returns the factory for (module, className). path temporarily
// extends the script search scope for this resolution only. Failure yields
// a ResolutionError wrapping ErrModuleNotFound or ErrClassNotFound; the
// error is fatal to the creation request and must propagate to its caller.
func (r *Registry) Resolve(module, className, path string) (api.Factory, error) {
	r.mu.RLock()
	factory, ok := r.factories[registryKey{module: module, className: className}]
	moduleRegistered := ok || r.moduleRegisteredLocked(module)
	r.mu.RUnlock()

	if ok {
		return factory, nil
	}
	if moduleRegistered {
		return nil, &ResolutionError{Module: module, ClassName: className, Err: ErrClassNotFound}
	}

	if r.script == nil {
		return nil, &ResolutionError{Module: module, ClassName: className, Err: ErrModuleNotFound}
	}

	scriptPath, found := r.withPath(path, func(scope []string) (string, bool) {
		return findScript(scope, module)
	})
	if !found {
		return nil, &ResolutionError{Module: module, ClassName: className, Err: ErrModuleNotFound}
	}

	factory, err := r.script(scriptPath, className)
	if err != nil {
		return nil, &ResolutionError{Module: module, ClassName: className, Err: err}
	}
	return factory, nil
}

// moduleRegisteredLocked reports whether any class is registered under
// module. Caller holds at least a read lock.
func (r *Registry) moduleRegisteredLocked(module string) bool {
	for key := range r.factories {
		if key.module == module {
			return true
		}
	}
	return false
}

// withPath runs fn with the search scope extended by extra. The base scope
// is never mutated, so the extension is released on every exit path,
// including panics inside fn.
func (r *Registry) withPath(extra string, fn func(scope []string) (string, bool)) (string, bool) {
	r.mu.RLock()
	scope := make([]string, 0, len(r.paths)+1)
	if extra != "" {
		scope = append(scope, extra)
	}
	scope = append(scope, r.paths...)
	r.mu.RUnlock()

	return fn(scope)
}

// findScript locates <module>.lua on the scope, first match wins.
func findScript(scope []string, module string) (string, bool) {
	for _, dir := range scope {
		candidate := filepath.Join(dir, module+".lua")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}
