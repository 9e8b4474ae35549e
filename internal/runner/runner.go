// Package runner runs the methods of a test class inside the lifecycle of a
// managed context.
//
// Each method runs in its own chain of statements, innermost first:
//
//	method body
//	expected error check
//	before/after test execution callbacks
//	declared befores, bracketed by the before test method callback
//	declared afters, followed by the after test method callback
//	method rules and test rules
//
// The class statement runs the methods, bracketed by the before class
// callback and declared class hooks, the after class hooks and callback,
// and finally the class rules. Teardown stages always run and accumulate
// their failures.
package runner

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"specctl/internal/contextmgr"
	"specctl/internal/descriptor"
	"specctl/internal/envgate"
	"specctl/internal/failure"
	"specctl/internal/notify"
	"specctl/internal/statement"
	"specctl/pkg/logging"
)

// ErrAlreadyRun is reported when Run is called a second time on a Runner.
var ErrAlreadyRun = errors.New("test class has already been run by this runner")

// Stage names of the declared fixtures and hooks.
const (
	StageBefore      = "before"
	StageAfter       = "after"
	StageBeforeClass = "beforeClass"
	StageAfterClass  = "afterClass"
)

// Runner runs a single validated test class. It owns the class's context
// manager and is not safe for concurrent use.
type Runner struct {
	class   *descriptor.Class
	manager contextmgr.Manager
	gate    *envgate.Gate
	rules   RuleComposer
	now     func() time.Time
	ran     atomic.Bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithGate sets the environment gate. The default gate reads the process
// environment.
func WithGate(g *envgate.Gate) Option {
	return func(r *Runner) {
		if g != nil {
			r.gate = g
		}
	}
}

// WithRuleComposer replaces the default rule composition.
func WithRuleComposer(rc RuleComposer) Option {
	return func(r *Runner) {
		if rc != nil {
			r.rules = rc
		}
	}
}

// WithClock sets the time source used for durations.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// New validates class and creates its context manager. Any problem is
// returned as a ConfigurationError before a single method runs.
func New(class *descriptor.Class, factory contextmgr.Factory, opts ...Option) (*Runner, error) {
	validated, err := descriptor.Validate(class)
	if err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, failure.Configuration(validated.Name, errors.New("no context manager factory"))
	}

	var manager contextmgr.Manager
	err = failure.Capture(func() (err error) {
		manager, err = factory.CreateManager(validated)
		return err
	})
	if err != nil {
		return nil, failure.Configuration(validated.Name, fmt.Errorf("failed to create context manager: %w", err))
	}
	if manager == nil {
		return nil, failure.Configuration(validated.Name, errors.New("context manager factory returned no manager"))
	}

	r := &Runner{
		class:   validated,
		manager: manager,
		gate:    envgate.New(envgate.OSSource{Prefix: "SPECCTL_"}),
		rules:   DefaultRuleComposer{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	logging.Debug("Runner", "Created runner for %s with %d methods", validated.Name, len(validated.Methods))
	return r, nil
}

// Class returns the validated class.
func (r *Runner) Class() *descriptor.Class {
	return r.class
}

// Manager returns the context manager owned by this runner.
func (r *Runner) Manager() contextmgr.Manager {
	return r.manager
}

// Run executes the class and reports every outcome to n.
func (r *Runner) Run(n notify.Notifier) *ClassResult {
	if n == nil {
		n = notify.Discard
	}
	suite := notify.Suite(r.class.Name)
	result := &ClassResult{Class: r.class.Name, StartTime: r.now()}

	if r.ran.Swap(true) {
		n.TestFailure(suite, ErrAlreadyRun)
		result.Err = ErrAlreadyRun
		result.Error = ErrAlreadyRun.Error()
		result.finish(r.now())
		return result
	}

	if !r.classEnabled() {
		logging.Debug("Runner", "Test class %s is disabled, skipping", r.class.Name)
		n.TestIgnored(suite)
		for _, m := range r.class.Methods {
			result.Methods = append(result.Methods, MethodResult{Name: m.Name, Outcome: OutcomeIgnored})
		}
		result.Outcome = OutcomeIgnored
		result.finish(r.now())
		return result
	}

	logging.Debug("Runner", "Running test class %s", r.class.Name)
	if err := failure.Capture(r.classBlock(n, result).Evaluate); err != nil {
		result.Err = err
		result.Error = failure.Describe(err)
		if failure.OnlyAssumptions(err) {
			n.TestAssumptionFailed(suite, err)
		} else {
			logging.Debug("Runner", "Test class %s failed: %v", r.class.Name, err)
			n.TestFailure(suite, err)
		}
	}
	result.finish(r.now())
	return result
}

func (r *Runner) classEnabled() bool {
	if r.class.Ignored {
		return false
	}
	return r.gate.ClassEnabled(r.class.Environment, r.class.EnvironmentSource)
}

func (r *Runner) methodIgnored(m *descriptor.Method) bool {
	if m.Ignored {
		return true
	}
	return !r.gate.MethodEnabled(r.class.Environment, m.Environment, r.class.EnvironmentSource)
}

func (r *Runner) allMethodsIgnored() bool {
	for _, m := range r.class.Methods {
		if !r.methodIgnored(m) {
			return false
		}
	}
	return true
}

func (r *Runner) classBlock(n notify.Notifier, result *ClassResult) statement.Statement {
	s := statement.Statement(statement.Func(func() error {
		r.runChildren(n, result)
		return nil
	}))
	if !r.allMethodsIgnored() {
		s = r.withBeforeClasses(s)
		s = r.withAfterClasses(s)
		s = r.withClassRules(s)
	}
	return statement.Once(s)
}

func (r *Runner) withBeforeClasses(next statement.Statement) statement.Statement {
	hooks := r.class.AllBeforeClass()
	befores := make([]statement.Statement, 0, len(hooks))
	for _, h := range hooks {
		befores = append(befores, hookStatement(StageBeforeClass, h))
	}
	return statement.Before(statement.RunBefores(next, befores...), func() error {
		return callback(contextmgr.StageBeforeClass, r.manager.BeforeClass)
	})
}

func (r *Runner) withAfterClasses(next statement.Statement) statement.Statement {
	hooks := r.class.AllAfterClass()
	afters := make([]statement.Statement, 0, len(hooks))
	for _, h := range hooks {
		afters = append(afters, hookStatement(StageAfterClass, h))
	}
	return statement.After(statement.RunAfters(next, afters...), func(error) error {
		return callback(contextmgr.StageAfterClass, r.manager.AfterClass)
	})
}

func (r *Runner) withClassRules(next statement.Statement) statement.Statement {
	s := next
	for _, f := range r.class.AllFields() {
		if f.ClassRule != nil {
			s = f.ClassRule.Apply(s, r.class.Name)
		}
	}
	return s
}

func (r *Runner) runChildren(n notify.Notifier, result *ClassResult) {
	for _, m := range r.class.Methods {
		result.Methods = append(result.Methods, r.runChild(m, n))
	}
}

func (r *Runner) runChild(m *descriptor.Method, n notify.Notifier) MethodResult {
	id := notify.TestID{Class: r.class.Name, Method: m.Name}

	if r.methodIgnored(m) {
		logging.Debug("Runner", "Ignoring %s", id)
		n.TestIgnored(id)
		return MethodResult{Name: m.Name, Outcome: OutcomeIgnored}
	}

	start := r.now()
	s, err := r.methodBlock(m)
	if err != nil {
		logging.Debug("Runner", "Could not prepare %s: %v", id, err)
		n.TestFailure(id, err)
		return MethodResult{
			Name:     m.Name,
			Outcome:  OutcomeFailed,
			Duration: r.now().Sub(start),
			Error:    failure.Describe(err),
			Err:      err,
		}
	}

	return r.runLeaf(id, s, n, start)
}

func (r *Runner) runLeaf(id notify.TestID, s statement.Statement, n notify.Notifier, start time.Time) MethodResult {
	n.TestStarted(id)
	err := failure.Capture(s.Evaluate)

	res := MethodResult{Name: id.Method, Outcome: OutcomePassed}
	switch {
	case err == nil:
	case failure.OnlyAssumptions(err):
		res.Outcome = OutcomeSkipped
		n.TestAssumptionFailed(id, err)
	default:
		res.Outcome = OutcomeFailed
		n.TestFailure(id, err)
	}
	if err != nil {
		res.Err = err
		res.Error = failure.Describe(err)
	}

	n.TestFinished(id)
	res.Duration = r.now().Sub(start)
	logging.Debug("Runner", "%s %s in %v", id, res.Outcome, res.Duration)
	return res
}

// methodBlock creates and prepares a fresh instance and builds the chain
// around m. Any failure here happens before the method is reported started.
func (r *Runner) methodBlock(m *descriptor.Method) (statement.Statement, error) {
	var instance any
	err := failure.Capture(func() (err error) {
		instance, err = r.class.New()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create test instance of %s: %w", r.class.Name, err)
	}

	if err := callback(contextmgr.StagePrepareInstance, func() error {
		return r.manager.PrepareInstance(instance)
	}); err != nil {
		return nil, err
	}

	var s statement.Statement
	err = failure.Capture(func() error {
		s = r.methodInvoker(m, instance)
		s = r.possiblyExpectingErrors(m, s)
		s = r.withTestExecutionCallbacks(m, instance, s)
		s = r.withBefores(m, instance, s)
		s = r.withAfters(m, instance, s)
		s = r.rules.ComposeRules(m, instance, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build statement for %s: %w", m.ID(), err)
	}
	return statement.Once(s), nil
}

func (r *Runner) methodInvoker(m *descriptor.Method, instance any) statement.Statement {
	return statement.Func(func() error {
		return failure.Assertion(failure.Capture(func() error {
			return m.Body(instance)
		}))
	})
}

func (r *Runner) possiblyExpectingErrors(m *descriptor.Method, next statement.Statement) statement.Statement {
	if m.Expected == nil {
		return next
	}
	return statement.Expect(next, m.Expected.Name, m.Expected.Match)
}

func (r *Runner) withTestExecutionCallbacks(m *descriptor.Method, instance any, next statement.Statement) statement.Statement {
	s := statement.Before(next, func() error {
		return callback(contextmgr.StageBeforeTestExecution, func() error {
			return r.manager.BeforeTestExecution(instance, m)
		})
	})
	return statement.After(s, func(testErr error) error {
		return callback(contextmgr.StageAfterTestExecution, func() error {
			return r.manager.AfterTestExecution(instance, m, testErr)
		})
	})
}

func (r *Runner) withBefores(m *descriptor.Method, instance any, next statement.Statement) statement.Statement {
	fixtures := r.class.AllBefores()
	befores := make([]statement.Statement, 0, len(fixtures))
	for _, f := range fixtures {
		befores = append(befores, fixtureStatement(StageBefore, f, instance))
	}
	return statement.Before(statement.RunBefores(next, befores...), func() error {
		return callback(contextmgr.StageBeforeTestMethod, func() error {
			return r.manager.BeforeTestMethod(instance, m)
		})
	})
}

func (r *Runner) withAfters(m *descriptor.Method, instance any, next statement.Statement) statement.Statement {
	fixtures := r.class.AllAfters()
	afters := make([]statement.Statement, 0, len(fixtures))
	for _, f := range fixtures {
		afters = append(afters, fixtureStatement(StageAfter, f, instance))
	}
	return statement.After(statement.RunAfters(next, afters...), func(testErr error) error {
		return callback(contextmgr.StageAfterTestMethod, func() error {
			return r.manager.AfterTestMethod(instance, m, testErr)
		})
	})
}

func fixtureStatement(stage string, f descriptor.Fixture, instance any) statement.Statement {
	return statement.Func(func() error {
		return failure.Hook(stage, f.Name, failure.Capture(func() error {
			return f.Fn(instance)
		}))
	})
}

func hookStatement(stage string, h descriptor.Hook) statement.Statement {
	return statement.Func(func() error {
		return failure.Hook(stage, h.Name, failure.Capture(h.Fn))
	})
}

// callback runs a context manager callback, labelling failures with stage
// unless the manager already did.
func callback(stage string, fn func() error) error {
	err := failure.Capture(fn)
	if err == nil || errors.Is(err, failure.ErrHook) {
		return err
	}
	return failure.Hook(stage, "", err)
}
