package plugin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrNotFound    = errors.New("plugin not found")
	ErrDuplicate   = errors.New("plugin already registered")
	ErrInvalidType = errors.New("invalid plugin type")
)

// Registry is the central plugin catalog. Instances are lazily
// constructed and cached per name — singleton per plugin, not per call.
// Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	defs      map[string]Definition
	instances map[string]Plugin
	byType    map[Type][]string
	byTrigger map[string][]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		defs:      make(map[string]Definition),
		instances: make(map[string]Plugin),
		byType:    make(map[Type][]string),
		byTrigger: make(map[string][]string),
	}
}

// Register validates and indexes a definition.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("register plugin: empty name")
	}
	if !def.Type.Valid() {
		return fmt.Errorf("register plugin %q: %w: %q", def.Name, ErrInvalidType, def.Type)
	}
	if def.Factory == nil {
		return fmt.Errorf("register plugin %q: nil factory", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[def.Name]; ok {
		return fmt.Errorf("register plugin %q: %w", def.Name, ErrDuplicate)
	}
	r.defs[def.Name] = def
	r.byType[def.Type] = append(r.byType[def.Type], def.Name)
	for _, trig := range def.Triggers {
		trig = strings.ToLower(trig)
		r.byTrigger[trig] = append(r.byTrigger[trig], def.Name)
	}
	return nil
}

// Deactivate removes one plugin and its cached instance without touching
// the others. Re-registering the same name afterwards is valid, which is
// what hot reload does.
func (r *Registry) Deactivate(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.defs[name]
	if !ok {
		return false
	}
	delete(r.defs, name)
	delete(r.instances, name)
	r.byType[def.Type] = removeString(r.byType[def.Type], name)
	for _, trig := range def.Triggers {
		trig = strings.ToLower(trig)
		if rest := removeString(r.byTrigger[trig], name); len(rest) > 0 {
			r.byTrigger[trig] = rest
		} else {
			delete(r.byTrigger, trig)
		}
	}
	return true
}

// Definition returns the registered descriptor for name.
func (r *Registry) Definition(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Names returns the registered names of one type, registration order.
func (r *Registry) Names(t Type) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.byType[t]...)
}

// IsType reports whether name is registered with the given type.
func (r *Registry) IsType(name string, t Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return ok && def.Type == t
}

// Triggers returns every registered trigger keyword, lowercase.
func (r *Registry) Triggers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byTrigger))
	for trig := range r.byTrigger {
		out = append(out, trig)
	}
	return out
}

// Instantiate returns the cached instance for name, constructing it on
// first use. Every declared dependency must be present in deps.
func (r *Registry) Instantiate(name string, deps Dependencies) (Plugin, error) {
	r.mu.RLock()
	inst, ok := r.instances[name]
	r.mu.RUnlock()
	if ok {
		return inst, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if inst, ok = r.instances[name]; ok {
		return inst, nil
	}
	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("instantiate %q: %w", name, ErrNotFound)
	}
	for _, dep := range def.Dependencies {
		if _, ok := deps[dep]; !ok {
			return nil, fmt.Errorf("instantiate %q: missing dependency %q", name, dep)
		}
	}
	inst, err := def.Factory(deps, def.Config)
	if err != nil {
		return nil, fmt.Errorf("instantiate %q: %w", name, err)
	}
	if inst == nil {
		return nil, fmt.Errorf("instantiate %q: factory returned nil", name)
	}
	r.instances[name] = inst
	return inst, nil
}

// ExecuteTool resolves and runs a tool plugin by name.
func (r *Registry) ExecuteTool(ctx context.Context, name string, pc Context, deps Dependencies) (*Result, error) {
	return r.execute(ctx, name, TypeTool, pc, deps)
}

// ExecuteAction resolves and runs an action plugin by name.
func (r *Registry) ExecuteAction(ctx context.Context, name string, pc Context, deps Dependencies) (*Result, error) {
	return r.execute(ctx, name, TypeAction, pc, deps)
}

// ExecuteBehavior resolves and runs a behavior plugin by name.
func (r *Registry) ExecuteBehavior(ctx context.Context, name string, pc Context, deps Dependencies) (*Result, error) {
	return r.execute(ctx, name, TypeBehavior, pc, deps)
}

func (r *Registry) execute(ctx context.Context, name string, t Type, pc Context, deps Dependencies) (*Result, error) {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("execute %q: %w", name, ErrNotFound)
	}
	if def.Type != t {
		return nil, fmt.Errorf("execute %q: registered as %s, not %s", name, def.Type, t)
	}
	inst, err := r.Instantiate(name, deps)
	if err != nil {
		return nil, err
	}
	return inst.Execute(ctx, pc)
}

func removeString(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
