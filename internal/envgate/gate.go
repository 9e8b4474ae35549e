// Package envgate decides whether a test class or method is enabled in the
// current execution environment.
//
// A Constraint names an environment key and the values under which the
// annotated class or method may run. Evaluation is a pure function of the
// constraint and the values exposed by a Source.
package envgate

import (
	"errors"
	"fmt"
)

// ErrInvalidConstraint is returned by Validate for malformed constraints.
var ErrInvalidConstraint = errors.New("invalid environment constraint")

// Constraint declares the environment values a class or method requires.
// Exactly one of Value and Values may be set.
type Constraint struct {
	// Name is the environment key to look up.
	Name string `yaml:"name" json:"name"`
	// Value is a single accepted value.
	Value string `yaml:"value,omitempty" json:"value,omitempty"`
	// Values lists the accepted values; any match enables the test.
	Values []string `yaml:"values,omitempty" json:"values,omitempty"`
}

// Validate checks that the constraint is well formed.
func (c *Constraint) Validate() error {
	if c == nil {
		return nil
	}
	if c.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidConstraint)
	}
	if c.Value != "" && len(c.Values) > 0 {
		return fmt.Errorf("%w: %q sets both value and values", ErrInvalidConstraint, c.Name)
	}
	return nil
}

// accepted returns the values the constraint accepts.
func (c *Constraint) accepted() []string {
	if c.Value != "" {
		return []string{c.Value}
	}
	return c.Values
}

// String renders the constraint for messages.
func (c *Constraint) String() string {
	if c == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s in %v", c.Name, c.accepted())
}

// Enabled reports whether c admits the environment described by src.
// A nil constraint always admits. A missing key never matches.
func Enabled(c *Constraint, src Source) bool {
	if c == nil {
		return true
	}
	if src == nil {
		return false
	}
	actual, ok := src.Lookup(c.Name)
	if !ok {
		return false
	}
	for _, v := range c.accepted() {
		if v == actual {
			return true
		}
	}
	return false
}

// Gate evaluates constraints against a default Source.
type Gate struct {
	source Source
}

// New creates a Gate reading values from src.
func New(src Source) *Gate {
	return &Gate{source: src}
}

// Source returns the gate's default source.
func (g *Gate) Source() Source {
	if g == nil {
		return nil
	}
	return g.source
}

// resolve picks the class-level override when one is configured.
func (g *Gate) resolve(override Source) Source {
	if override != nil {
		return override
	}
	return g.Source()
}

// ClassEnabled evaluates a class-level constraint. override, when non-nil,
// replaces the gate's source for this class.
func (g *Gate) ClassEnabled(class *Constraint, override Source) bool {
	return Enabled(class, g.resolve(override))
}

// MethodEnabled evaluates a method against both its own constraint and the
// one declared on its class; either rejecting it disables the method.
func (g *Gate) MethodEnabled(class, method *Constraint, override Source) bool {
	src := g.resolve(override)
	return Enabled(class, src) && Enabled(method, src)
}
