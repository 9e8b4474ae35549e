// Package statement provides the deferred execution units that the runner
// nests into a chain around every test method.
//
// A Statement is evaluated at most once per chain. Wrappers hold exactly one
// inner statement; setup wrappers stop at their first failure while teardown
// wrappers always run and accumulate every failure.
package statement

import (
	"errors"
	"sync"
	"time"

	"specctl/internal/failure"
)

// ErrAlreadyEvaluated is returned when a statement guarded by Once is run twice.
var ErrAlreadyEvaluated = errors.New("statement already evaluated")

// Statement is a deferred, zero-argument action that completes or fails.
type Statement interface {
	Evaluate() error
}

// Func adapts a plain function to a Statement.
type Func func() error

// Evaluate calls f.
func (f Func) Evaluate() error { return f() }

// Noop completes immediately.
var Noop Statement = Func(func() error { return nil })

type fail struct{ err error }

func (f fail) Evaluate() error { return f.err }

// Fail returns a statement that always fails with err.
func Fail(err error) Statement {
	return fail{err: err}
}

// RunBefores evaluates befores in order and then next. The first failing
// before stops the chain; next is not evaluated.
func RunBefores(next Statement, befores ...Statement) Statement {
	if len(befores) == 0 {
		return next
	}
	return Func(func() error {
		for _, b := range befores {
			if err := b.Evaluate(); err != nil {
				return err
			}
		}
		return next.Evaluate()
	})
}

// RunAfters evaluates next and then every after, even when next or an earlier
// after failed. All failures are accumulated.
func RunAfters(next Statement, afters ...Statement) Statement {
	if len(afters) == 0 {
		return next
	}
	return Func(func() error {
		err := next.Evaluate()
		for _, a := range afters {
			err = failure.Append(err, a.Evaluate())
		}
		return err
	})
}

// Before runs fn and, if it succeeds, next.
func Before(next Statement, fn func() error) Statement {
	return Func(func() error {
		if err := fn(); err != nil {
			return err
		}
		return next.Evaluate()
	})
}

// After evaluates next and then fn with next's outcome. fn always runs;
// both failures are kept.
func After(next Statement, fn func(testErr error) error) Statement {
	return Func(func() error {
		err := next.Evaluate()
		return failure.Append(err, fn(err))
	})
}

// Expect requires next to fail with an error accepted by match.
// Assumption failures are passed through unchanged.
func Expect(next Statement, expected string, match func(error) bool) Statement {
	return Func(func() error {
		err := next.Evaluate()
		switch {
		case err == nil:
			return &failure.UnexpectedSuccess{Expected: expected}
		case failure.IsAssumption(err):
			return err
		case match(err):
			return nil
		default:
			return &failure.WrongExceptionKind{Expected: expected, Actual: err}
		}
	})
}

type once struct {
	mu   sync.Mutex
	done bool
	next Statement
}

func (o *once) Evaluate() error {
	o.mu.Lock()
	if o.done {
		o.mu.Unlock()
		return ErrAlreadyEvaluated
	}
	o.done = true
	o.mu.Unlock()
	return o.next.Evaluate()
}

// Once guards next so that it can be evaluated a single time.
func Once(next Statement) Statement {
	return &once{next: next}
}

// TimeoutError is returned by Timeout when next does not finish in time.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return "test timed out after " + e.Timeout.String()
}

// Timeout evaluates next on its own goroutine and fails once d has elapsed.
// The goroutine is abandoned on timeout, there is no way to interrupt it.
func Timeout(next Statement, d time.Duration) Statement {
	if d <= 0 {
		return next
	}
	return Func(func() error {
		done := make(chan error, 1)
		go func() {
			done <- failure.Capture(next.Evaluate)
		}()

		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case err := <-done:
			return err
		case <-timer.C:
			return &TimeoutError{Timeout: d}
		}
	})
}
