package failure

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/multierr"
)

// Append accumulates err into into. Nil errors are dropped.
func Append(into, err error) error {
	return multierr.Append(into, err)
}

// Causes flattens an accumulated error into its individual causes.
func Causes(err error) []error {
	return multierr.Errors(err)
}

// OnlyAssumptions reports whether every accumulated cause is an assumption
// failure, in which case the test counts as skipped.
func OnlyAssumptions(err error) bool {
	causes := Causes(err)
	if len(causes) == 0 {
		return false
	}
	for _, c := range causes {
		if !IsAssumption(c) {
			return false
		}
	}
	return true
}

// Checker collects assertion messages. It satisfies testify's assert.TestingT
// so method bodies can use the assert package and return Err().
type Checker struct {
	mu       sync.Mutex
	messages []string
}

// NewChecker returns an empty Checker.
func NewChecker() *Checker {
	return &Checker{}
}

// Errorf records a failed assertion.
func (c *Checker) Errorf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Failed reports whether any assertion failed.
func (c *Checker) Failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages) > 0
}

// Err returns the collected assertion failures as a single AssertionFailure,
// or nil when everything passed.
func (c *Checker) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return nil
	}
	var err error
	for _, m := range c.messages {
		err = multierr.Append(err, errors.New(m))
	}
	return &AssertionFailure{Err: err}
}
