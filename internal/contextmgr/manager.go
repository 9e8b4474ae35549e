// Package contextmgr adapts a managed dependency context to the lifecycle of
// a test class. A Manager is created once per class by a Factory and receives
// the class, method and execution callbacks from the runner.
//
// The default TestContextManager dispatches every callback to an ordered list
// of Listeners. Before callbacks run in registration order and stop at the
// first failure; after callbacks run in reverse order, all of them, and their
// failures are accumulated.
package contextmgr

import (
	"fmt"
	"strings"

	"specctl/internal/descriptor"
	"specctl/internal/failure"
	"specctl/pkg/logging"
)

// Stage names used to label hook failures.
const (
	StagePrepareInstance     = "prepareTestInstance"
	StageBeforeClass         = "beforeTestClass"
	StageAfterClass          = "afterTestClass"
	StageBeforeTestMethod    = "beforeTestMethod"
	StageAfterTestMethod     = "afterTestMethod"
	StageBeforeTestExecution = "beforeTestExecution"
	StageAfterTestExecution  = "afterTestExecution"
)

// Manager is the managed-context lifecycle bound to one test class. It is
// owned by a single class run and never called concurrently.
type Manager interface {
	PrepareInstance(instance any) error
	BeforeClass() error
	AfterClass() error
	BeforeTestMethod(instance any, method *descriptor.Method) error
	AfterTestMethod(instance any, method *descriptor.Method, testErr error) error
	BeforeTestExecution(instance any, method *descriptor.Method) error
	AfterTestExecution(instance any, method *descriptor.Method, testErr error) error
}

// Factory creates the Manager for a validated class.
type Factory interface {
	CreateManager(class *descriptor.Class) (Manager, error)
}

// FactoryFunc adapts a function to a Factory.
type FactoryFunc func(class *descriptor.Class) (Manager, error)

// CreateManager calls f.
func (f FactoryFunc) CreateManager(class *descriptor.Class) (Manager, error) { return f(class) }

// TestContextManager is the default Manager.
type TestContextManager struct {
	tc        *TestContext
	listeners []Listener
}

var _ Manager = (*TestContextManager)(nil)

// NewTestContextManager returns a manager for class. cache may be nil when
// the class needs no managed context.
func NewTestContextManager(class *descriptor.Class, cache *ContextCache, listeners ...Listener) *TestContextManager {
	return &TestContextManager{
		tc:        newTestContext(class, cache),
		listeners: listeners,
	}
}

// TestContext returns the context shared with the listeners.
func (m *TestContextManager) TestContext() *TestContext {
	return m.tc
}

// Listeners returns the registered listeners in registration order.
func (m *TestContextManager) Listeners() []Listener {
	return append([]Listener(nil), m.listeners...)
}

func (m *TestContextManager) PrepareInstance(instance any) error {
	m.tc.update(instance, nil, nil)
	return m.forward(StagePrepareInstance, Listener.PrepareTestInstance)
}

func (m *TestContextManager) BeforeClass() error {
	m.tc.update(nil, nil, nil)
	return m.forward(StageBeforeClass, Listener.BeforeTestClass)
}

// AfterClass also releases the context held by the class run.
func (m *TestContextManager) AfterClass() error {
	m.tc.update(nil, nil, nil)
	errs := m.reverse(StageAfterClass, Listener.AfterTestClass)
	if err := m.tc.release(); err != nil {
		errs = failure.Append(errs, failure.Hook(StageAfterClass, "contextRelease", err))
	}
	return errs
}

func (m *TestContextManager) BeforeTestMethod(instance any, method *descriptor.Method) error {
	m.tc.update(instance, method, nil)
	return m.forward(StageBeforeTestMethod, Listener.BeforeTestMethod)
}

func (m *TestContextManager) AfterTestMethod(instance any, method *descriptor.Method, testErr error) error {
	m.tc.update(instance, method, testErr)
	return m.reverse(StageAfterTestMethod, Listener.AfterTestMethod)
}

func (m *TestContextManager) BeforeTestExecution(instance any, method *descriptor.Method) error {
	m.tc.update(instance, method, nil)
	return m.forward(StageBeforeTestExecution, Listener.BeforeTestExecution)
}

func (m *TestContextManager) AfterTestExecution(instance any, method *descriptor.Method, testErr error) error {
	m.tc.update(instance, method, testErr)
	return m.reverse(StageAfterTestExecution, Listener.AfterTestExecution)
}

func (m *TestContextManager) forward(stage string, call func(Listener, *TestContext) error) error {
	for _, l := range m.listeners {
		if err := failure.Capture(func() error { return call(l, m.tc) }); err != nil {
			logging.Debug("ContextManager", "%s: listener %s failed for %s: %v", stage, listenerName(l), m.tc.className(), err)
			return failure.Hook(stage, listenerName(l), err)
		}
	}
	return nil
}

func (m *TestContextManager) reverse(stage string, call func(Listener, *TestContext) error) error {
	var errs error
	for i := len(m.listeners) - 1; i >= 0; i-- {
		l := m.listeners[i]
		if err := failure.Capture(func() error { return call(l, m.tc) }); err != nil {
			logging.Debug("ContextManager", "%s: listener %s failed for %s: %v", stage, listenerName(l), m.tc.className(), err)
			errs = failure.Append(errs, failure.Hook(stage, listenerName(l), err))
		}
	}
	return errs
}

// Named lets a listener choose the name used in failure messages.
type Named interface {
	Name() string
}

func listenerName(l Listener) string {
	if n, ok := l.(Named); ok {
		return n.Name()
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", l), "*")
}

// DefaultFactory builds a TestContextManager per class, sharing one context
// cache between all of them.
type DefaultFactory struct {
	cache     *ContextCache
	listeners func() []Listener
}

var _ Factory = (*DefaultFactory)(nil)

// NewFactory returns a factory using cache. Without explicit listeners each
// manager gets DefaultListeners.
func NewFactory(cache *ContextCache, listeners ...Listener) *DefaultFactory {
	f := &DefaultFactory{cache: cache, listeners: DefaultListeners}
	if len(listeners) > 0 {
		f.listeners = func() []Listener { return append([]Listener(nil), listeners...) }
	}
	return f
}

// Cache returns the shared context cache.
func (f *DefaultFactory) Cache() *ContextCache {
	return f.cache
}

// CreateManager rejects classes naming unknown modules with a
// ConfigurationError.
func (f *DefaultFactory) CreateManager(class *descriptor.Class) (Manager, error) {
	if class == nil {
		return nil, failure.Configuration("", fmt.Errorf("cannot create a context manager without a test class"))
	}

	if len(class.Context.Modules) > 0 {
		if f.cache == nil {
			return nil, failure.Configuration(class.Name, fmt.Errorf("context modules %v configured but %w", class.Context.Modules, ErrNoContext))
		}
		var errs error
		for _, name := range class.Context.Modules {
			if !f.cache.Registry().Has(name) {
				errs = failure.Append(errs, fmt.Errorf("%w: %q", ErrUnknownModule, name))
			}
		}
		if errs != nil {
			return nil, failure.Configuration(class.Name, errs)
		}
	}

	logging.Debug("ContextManager", "Created context manager for %s (modules %v)", class.Name, class.Context.Modules)
	return NewTestContextManager(class, f.cache, f.listeners()...), nil
}
