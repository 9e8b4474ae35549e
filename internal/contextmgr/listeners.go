package contextmgr

import (
	"fmt"

	"specctl/pkg/logging"
)

// Listener receives the callbacks of a TestContextManager.
type Listener interface {
	PrepareTestInstance(tc *TestContext) error
	BeforeTestClass(tc *TestContext) error
	AfterTestClass(tc *TestContext) error
	BeforeTestMethod(tc *TestContext) error
	AfterTestMethod(tc *TestContext) error
	BeforeTestExecution(tc *TestContext) error
	AfterTestExecution(tc *TestContext) error
}

// BaseListener implements every callback as a no-op. Embed it to implement
// only the callbacks a listener needs.
type BaseListener struct{}

func (BaseListener) PrepareTestInstance(*TestContext) error { return nil }
func (BaseListener) BeforeTestClass(*TestContext) error     { return nil }
func (BaseListener) AfterTestClass(*TestContext) error      { return nil }
func (BaseListener) BeforeTestMethod(*TestContext) error    { return nil }
func (BaseListener) AfterTestMethod(*TestContext) error     { return nil }
func (BaseListener) BeforeTestExecution(*TestContext) error { return nil }
func (BaseListener) AfterTestExecution(*TestContext) error  { return nil }

// Injectable is implemented by test instances that want their dependencies
// resolved from the managed context.
type Injectable interface {
	Inject(r Resolver) error
}

// DependencyInjectionListener populates Injectable instances when they are
// prepared.
type DependencyInjectionListener struct {
	BaseListener
}

func (DependencyInjectionListener) Name() string { return "dependencyInjection" }

func (DependencyInjectionListener) PrepareTestInstance(tc *TestContext) error {
	target, ok := tc.Instance().(Injectable)
	if !ok {
		return nil
	}
	c, err := tc.Container()
	if err != nil {
		return fmt.Errorf("failed to load context for %s: %w", tc.className(), err)
	}
	if err := target.Inject(c); err != nil {
		return fmt.Errorf("failed to inject dependencies into %s: %w", tc.className(), err)
	}
	return nil
}

// DirtiesContextListener evicts the managed context after a method or class
// marked as dirtying it.
type DirtiesContextListener struct {
	BaseListener
}

func (DirtiesContextListener) Name() string { return "dirtiesContext" }

func (DirtiesContextListener) AfterTestMethod(tc *TestContext) error {
	if m := tc.Method(); m != nil && m.DirtiesContext {
		logging.Debug("ContextManager", "%s dirtied its context", m.ID())
		return tc.MarkDirty()
	}
	return nil
}

func (DirtiesContextListener) AfterTestClass(tc *TestContext) error {
	if c := tc.Class(); c != nil && c.Context.DirtiesContext {
		logging.Debug("ContextManager", "%s dirtied its context", c.Name)
		return tc.MarkDirty()
	}
	return nil
}

// LoggingListener traces every callback at debug level.
type LoggingListener struct{}

func (LoggingListener) Name() string { return "logging" }

func (LoggingListener) trace(stage string, tc *TestContext) error {
	if m := tc.Method(); m != nil {
		logging.Debug("ContextManager", "%s %s", stage, m.ID())
	} else {
		logging.Debug("ContextManager", "%s %s", stage, tc.className())
	}
	return nil
}

func (l LoggingListener) PrepareTestInstance(tc *TestContext) error {
	return l.trace(StagePrepareInstance, tc)
}

func (l LoggingListener) BeforeTestClass(tc *TestContext) error {
	return l.trace(StageBeforeClass, tc)
}

func (l LoggingListener) AfterTestClass(tc *TestContext) error {
	return l.trace(StageAfterClass, tc)
}

func (l LoggingListener) BeforeTestMethod(tc *TestContext) error {
	return l.trace(StageBeforeTestMethod, tc)
}

func (l LoggingListener) AfterTestMethod(tc *TestContext) error {
	return l.trace(StageAfterTestMethod, tc)
}

func (l LoggingListener) BeforeTestExecution(tc *TestContext) error {
	return l.trace(StageBeforeTestExecution, tc)
}

func (l LoggingListener) AfterTestExecution(tc *TestContext) error {
	return l.trace(StageAfterTestExecution, tc)
}

// DefaultListeners returns the listeners every default manager starts with.
func DefaultListeners() []Listener {
	return []Listener{
		LoggingListener{},
		DependencyInjectionListener{},
		DirtiesContextListener{},
	}
}
