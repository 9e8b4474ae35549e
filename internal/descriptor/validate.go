package descriptor

import (
	"errors"
	"fmt"

	"specctl/internal/failure"
)

// Validate checks a class before any of its methods may run and returns an
// owned copy with every method bound to it. All problems are reported
// together in a single ConfigurationError.
func Validate(c *Class) (*Class, error) {
	if c == nil {
		return nil, failure.Configuration("", errors.New("test class is nil"))
	}
	// The inherited fixtures below walk the parent chain, so a cycle has to
	// be rejected before anything else looks at it.
	if err := checkHierarchy(c); err != nil {
		return nil, failure.Configuration(c.Name, err)
	}

	var errs error
	add := func(format string, args ...any) {
		errs = failure.Append(errs, fmt.Errorf(format, args...))
	}

	if c.Name == "" {
		add("test class has no name")
	}
	if c.New == nil {
		add("test class should have exactly one usable constructor")
	}

	for _, f := range c.AllFields() {
		if f.Marker.Disallowed() {
			add("detected %s field %q in test class [%s], but %s cannot be used with the lifecycle runner",
				f.Marker, f.Name, c.Name, f.Marker)
		}
	}

	if err := c.Environment.Validate(); err != nil {
		add("class environment constraint: %v", err)
	}

	seen := make(map[string]bool, len(c.Methods))
	for i, m := range c.Methods {
		switch {
		case m == nil:
			add("method #%d is nil", i)
			continue
		case m.Name == "":
			add("method #%d has no name", i)
		case seen[m.Name]:
			add("method %q is declared more than once", m.Name)
		}
		seen[m.Name] = true

		if m.Body == nil {
			add("method %q has no body", m.Name)
		}
		if m.Expected != nil && m.Expected.Match == nil {
			add("method %q declares an expected error without a matcher", m.Name)
		}
		if err := m.Environment.Validate(); err != nil {
			add("method %q environment constraint: %v", m.Name, err)
		}
		if m.class != nil && m.class.Name != c.Name {
			add("method %q already belongs to test class [%s]", m.Name, m.class.Name)
		}
	}

	for _, f := range c.AllBefores() {
		if f.Fn == nil {
			add("before fixture %q has no function", f.Name)
		}
	}
	for _, f := range c.AllAfters() {
		if f.Fn == nil {
			add("after fixture %q has no function", f.Name)
		}
	}
	for _, h := range append(c.AllBeforeClass(), c.AllAfterClass()...) {
		if h.Fn == nil {
			add("class hook %q has no function", h.Name)
		}
	}

	if errs != nil {
		return nil, failure.Configuration(c.Name, errs)
	}

	return c.bind(), nil
}

// bind copies the class and its methods, pointing each method at the copy.
func (c *Class) bind() *Class {
	out := *c
	out.Methods = make([]*Method, len(c.Methods))
	for i, m := range c.Methods {
		mc := *m
		mc.class = &out
		out.Methods[i] = &mc
	}
	out.Fields = append([]Field(nil), c.Fields...)
	out.Befores = append([]Fixture(nil), c.Befores...)
	out.Afters = append([]Fixture(nil), c.Afters...)
	out.BeforeClass = append([]Hook(nil), c.BeforeClass...)
	out.AfterClass = append([]Hook(nil), c.AfterClass...)
	out.Context.Modules = append([]string(nil), c.Context.Modules...)
	return &out
}

// ErrCyclicHierarchy is reported for a class that is its own ancestor.
var ErrCyclicHierarchy = errors.New("cyclic class hierarchy")

func checkHierarchy(c *Class) error {
	seen := make(map[*Class]bool)
	var path []string
	for p := c; p != nil; p = p.Parent {
		path = append(path, p.Name)
		if seen[p] {
			return fmt.Errorf("%w: %v", ErrCyclicHierarchy, path)
		}
		seen[p] = true
	}
	return nil
}
