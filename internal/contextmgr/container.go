package contextmgr

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"sync"

	"specctl/internal/failure"
)

var (
	// ErrComponentNotFound is returned when no module provides a component.
	ErrComponentNotFound = errors.New("component not found")
	// ErrCircularDependency is returned when providers resolve each other.
	ErrCircularDependency = errors.New("circular dependency")
	// ErrContainerClosed is returned by Resolve after Close.
	ErrContainerClosed = errors.New("container is closed")
	// ErrUnknownModule is returned when a context names an unregistered module.
	ErrUnknownModule = errors.New("unknown module")
	// ErrDuplicateModule is returned when a module name is registered twice.
	ErrDuplicateModule = errors.New("module already registered")
	// ErrDuplicateComponent is returned when two loaded modules provide the
	// same component name.
	ErrDuplicateComponent = errors.New("component provided by more than one module")
)

// Resolver looks up components by name.
type Resolver interface {
	Resolve(name string) (any, error)
}

// ResolverFunc adapts a function to a Resolver.
type ResolverFunc func(name string) (any, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(name string) (any, error) { return f(name) }

// Provider builds a component. It may resolve the components it depends on.
type Provider func(r Resolver) (any, error)

// Resolve looks up name and asserts it to T.
func Resolve[T any](r Resolver, name string) (T, error) {
	var zero T
	v, err := r.Resolve(name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("component %q is %T, not %T", name, v, zero)
	}
	return t, nil
}

// Container holds lazily created singleton components. Components
// implementing io.Closer are closed in reverse creation order.
type Container struct {
	mu        sync.Mutex
	modules   []string
	providers map[string]Provider
	instances map[string]any
	order     []string
	closed    bool
}

func newContainer(modules []string, providers map[string]Provider) *Container {
	return &Container{
		modules:   modules,
		providers: providers,
		instances: make(map[string]any),
	}
}

// Modules returns the modules the container was built from, in load order.
func (c *Container) Modules() []string {
	return slices.Clone(c.modules)
}

// Components returns the names of all components the container can provide.
func (c *Container) Components() []string {
	names := make([]string, 0, len(c.providers))
	for name := range c.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the singleton for name, creating it on first use.
func (c *Container) Resolve(name string) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolve(name, nil)
}

func (c *Container) resolve(name string, path []string) (any, error) {
	if c.closed {
		return nil, ErrContainerClosed
	}
	if v, ok := c.instances[name]; ok {
		return v, nil
	}
	provide, ok := c.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrComponentNotFound, name)
	}
	if slices.Contains(path, name) {
		return nil, fmt.Errorf("%w: %s", ErrCircularDependency, strings.Join(append(path, name), " -> "))
	}

	next := append(path[:len(path):len(path)], name)
	var v any
	err := failure.Capture(func() (err error) {
		v, err = provide(ResolverFunc(func(dep string) (any, error) {
			return c.resolve(dep, next)
		}))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create component %q: %w", name, err)
	}

	c.instances[name] = v
	c.order = append(c.order, name)
	return v, nil
}

// Created returns the names of components created so far, in creation order.
func (c *Container) Created() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.order)
}

// Close closes every created component, newest first. All close failures
// are returned together.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs error
	for i := len(c.order) - 1; i >= 0; i-- {
		name := c.order[i]
		closer, ok := c.instances[name].(io.Closer)
		if !ok {
			continue
		}
		if err := failure.Capture(closer.Close); err != nil {
			errs = failure.Append(errs, fmt.Errorf("failed to close component %q: %w", name, err))
		}
	}
	c.instances = nil
	c.order = nil
	return errs
}

// Closed reports whether Close has been called.
func (c *Container) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Module is a named set of component providers.
type Module struct {
	Name       string
	Components map[string]Provider
}

// Registry knows every module a context configuration can name.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]Module)}
}

// Register adds a module.
func (r *Registry) Register(m Module) error {
	if m.Name == "" {
		return errors.New("module has no name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.modules[m.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateModule, m.Name)
	}
	r.modules[m.Name] = m
	return nil
}

// MustRegister is Register for package initialisation; it panics on error.
func (r *Registry) MustRegister(m Module) {
	if err := r.Register(m); err != nil {
		panic(err)
	}
}

// Has reports whether a module is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.modules[name]
	return ok
}

// Names returns the registered module names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewContainer builds an unstarted container from the named modules.
func (r *Registry) NewContainer(modules ...string) (*Container, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make(map[string]Provider)
	owner := make(map[string]string)
	var errs error
	for _, name := range modules {
		m, ok := r.modules[name]
		if !ok {
			errs = failure.Append(errs, fmt.Errorf("%w: %q", ErrUnknownModule, name))
			continue
		}
		for comp, p := range m.Components {
			if prev, dup := owner[comp]; dup {
				errs = failure.Append(errs, fmt.Errorf("%w: %q in %q and %q", ErrDuplicateComponent, comp, prev, name))
				continue
			}
			owner[comp] = name
			providers[comp] = p
		}
	}
	if errs != nil {
		return nil, errs
	}
	return newContainer(slices.Clone(modules), providers), nil
}
