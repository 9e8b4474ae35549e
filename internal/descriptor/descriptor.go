// Package descriptor holds the immutable metadata of a test class: its
// constructor, methods, declared fields and rules, fixtures and markers.
//
// Callers assemble a Class and pass it through Validate, which rejects
// malformed classes with a ConfigurationError and returns an owned copy whose
// methods point back to their class.
package descriptor

import (
	"errors"
	"fmt"

	"specctl/internal/envgate"
	"specctl/internal/statement"
)

// RuleMarker is the closed set of capability markers a declared field can carry.
type RuleMarker int

const (
	// MarkerNone is an ordinary field.
	MarkerNone RuleMarker = iota
	// MarkerClassContextRule marks a field that manages the context at class
	// level through the host runner's rule mechanism.
	MarkerClassContextRule
	// MarkerMethodContextRule marks a field that manages the context at
	// method level through the host runner's rule mechanism.
	MarkerMethodContextRule
)

// String makes RuleMarker satisfy the fmt.Stringer interface.
func (m RuleMarker) String() string {
	switch m {
	case MarkerNone:
		return "None"
	case MarkerClassContextRule:
		return "ClassContextRule"
	case MarkerMethodContextRule:
		return "MethodContextRule"
	default:
		return fmt.Sprintf("RuleMarker(%d)", int(m))
	}
}

// Disallowed reports whether the marker conflicts with the lifecycle runner.
func (m RuleMarker) Disallowed() bool {
	return m == MarkerClassContextRule || m == MarkerMethodContextRule
}

// MethodRule wraps the chain of a single method invocation.
type MethodRule interface {
	Apply(base statement.Statement, method *Method, instance any) statement.Statement
}

// TestRule wraps a statement identified only by its display name. Used at
// method scope and, through Field.ClassRule, at class scope.
type TestRule interface {
	Apply(base statement.Statement, name string) statement.Statement
}

// MethodRuleFunc adapts a function to a MethodRule.
type MethodRuleFunc func(base statement.Statement, method *Method, instance any) statement.Statement

// Apply calls f.
func (f MethodRuleFunc) Apply(base statement.Statement, method *Method, instance any) statement.Statement {
	return f(base, method, instance)
}

// TestRuleFunc adapts a function to a TestRule.
type TestRuleFunc func(base statement.Statement, name string) statement.Statement

// Apply calls f.
func (f TestRuleFunc) Apply(base statement.Statement, name string) statement.Statement {
	return f(base, name)
}

// Field is a declared field of a test class.
type Field struct {
	Name   string
	Marker RuleMarker
	// At most one rule per scope; all nil for plain fields.
	MethodRule MethodRule
	TestRule   TestRule
	ClassRule  TestRule
}

// Fixture is a declared per-method setup or teardown.
type Fixture struct {
	Name string
	Fn   func(instance any) error
}

// Hook is a declared per-class setup or teardown.
type Hook struct {
	Name string
	Fn   func() error
}

// ExpectedError declares the failure a method must end with.
type ExpectedError struct {
	Name  string
	Match func(error) bool
}

// ExpectIs expects an error matching target with errors.Is.
func ExpectIs(target error) *ExpectedError {
	return &ExpectedError{
		Name:  target.Error(),
		Match: func(err error) bool { return errors.Is(err, target) },
	}
}

// ExpectAs expects an error assignable to E with errors.As.
func ExpectAs[E error]() *ExpectedError {
	var zero E
	return &ExpectedError{
		Name: fmt.Sprintf("%T", zero),
		Match: func(err error) bool {
			var target E
			return errors.As(err, &target)
		},
	}
}

// ContextConfig selects the components the managed context is built from.
type ContextConfig struct {
	// Modules are registered component sets, loaded in order.
	Modules []string
	// DirtiesContext evicts the cached context after the class.
	DirtiesContext bool
}

// Key identifies the context configuration for caching.
func (c ContextConfig) Key() string {
	return fmt.Sprintf("%q", c.Modules)
}

// Method describes one test method.
type Method struct {
	Name        string
	Body        func(instance any) error
	Ignored     bool
	Expected    *ExpectedError
	Environment *envgate.Constraint
	// DirtiesContext evicts the cached context after this method.
	DirtiesContext bool

	class *Class
}

// Class returns the owning class. It is nil until the method's class has
// been validated.
func (m *Method) Class() *Class {
	return m.class
}

// ID is the display identity of the method.
func (m *Method) ID() string {
	if m.class == nil {
		return m.Name
	}
	return m.class.Name + "." + m.Name
}

// Class describes a test class.
type Class struct {
	Name string
	// New constructs a fresh test instance.
	New func() (any, error)

	Methods []*Method
	Fields  []Field

	Befores     []Fixture
	Afters      []Fixture
	BeforeClass []Hook
	AfterClass  []Hook

	Ignored           bool
	Environment       *envgate.Constraint
	EnvironmentSource envgate.Source
	Context           ContextConfig

	// Parent contributes inherited fields, fixtures and hooks.
	Parent *Class
}

// AllFields returns the declared fields, inherited ones first.
func (c *Class) AllFields() []Field {
	if c == nil {
		return nil
	}
	return append(c.Parent.AllFields(), c.Fields...)
}

// AllBefores returns per-method setups, superclass setups first.
func (c *Class) AllBefores() []Fixture {
	if c == nil {
		return nil
	}
	return append(c.Parent.AllBefores(), c.Befores...)
}

// AllAfters returns per-method teardowns, own teardowns first.
func (c *Class) AllAfters() []Fixture {
	if c == nil {
		return nil
	}
	return append(append([]Fixture{}, c.Afters...), c.Parent.AllAfters()...)
}

// AllBeforeClass returns class setups, superclass setups first.
func (c *Class) AllBeforeClass() []Hook {
	if c == nil {
		return nil
	}
	return append(c.Parent.AllBeforeClass(), c.BeforeClass...)
}

// AllAfterClass returns class teardowns, own teardowns first.
func (c *Class) AllAfterClass() []Hook {
	if c == nil {
		return nil
	}
	return append(append([]Hook{}, c.AfterClass...), c.Parent.AllAfterClass()...)
}

// Method finds a method by name.
func (c *Class) Method(name string) (*Method, bool) {
	for _, m := range c.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}
