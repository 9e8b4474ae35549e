package failure

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

// Sentinel errors for matching failure kinds with errors.Is.
var (
	ErrConfiguration      = errors.New("configuration error")
	ErrHook               = errors.New("hook failure")
	ErrAssertion          = errors.New("assertion failure")
	ErrAssumption         = errors.New("assumption failure")
	ErrUnexpectedSuccess  = errors.New("unexpected success")
	ErrWrongExceptionKind = errors.New("wrong exception kind")
)

// ConfigurationError is fatal and class scoped: the class never starts running.
type ConfigurationError struct {
	Class string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Class == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error in test class [%s]: %v", e.Class, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Configuration wraps err as a ConfigurationError for class. An error that is
// already a ConfigurationError is returned unchanged.
func Configuration(class string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return err
	}
	return &ConfigurationError{Class: class, Err: err}
}

// HookFailure is raised by a before/after callback or a declared fixture.
type HookFailure struct {
	Stage string
	Name  string
	Err   error
}

func (e *HookFailure) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s hook %q failed: %v", e.Stage, e.Name, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *HookFailure) Unwrap() error { return e.Err }

func (e *HookFailure) Is(target error) bool { return target == ErrHook }

// Hook wraps err as a HookFailure. Assumption failures pass through untouched
// so that they keep their skip semantics.
func Hook(stage, name string, err error) error {
	if err == nil {
		return nil
	}
	if IsAssumption(err) {
		return err
	}
	return &HookFailure{Stage: stage, Name: name, Err: err}
}

// AssertionFailure is raised by a method body.
type AssertionFailure struct {
	Err error
}

func (e *AssertionFailure) Error() string { return e.Err.Error() }

func (e *AssertionFailure) Unwrap() error { return e.Err }

func (e *AssertionFailure) Is(target error) bool { return target == ErrAssertion }

// Assertion wraps a method body error. Errors that already carry a failure
// kind are returned unchanged.
func Assertion(err error) error {
	if err == nil {
		return nil
	}
	if IsAssumption(err) {
		return err
	}
	var af *AssertionFailure
	if errors.As(err, &af) {
		return err
	}
	return &AssertionFailure{Err: err}
}

// AssumptionFailure marks a test whose preconditions do not hold. It is
// reported as skipped, not failed.
type AssumptionFailure struct {
	Reason string
}

func (e *AssumptionFailure) Error() string { return "assumption violated: " + e.Reason }

func (e *AssumptionFailure) Is(target error) bool { return target == ErrAssumption }

// Assume returns an AssumptionFailure with a formatted reason.
func Assume(format string, args ...any) error {
	return &AssumptionFailure{Reason: fmt.Sprintf(format, args...)}
}

// IsAssumption reports whether err is (or wraps) an AssumptionFailure.
func IsAssumption(err error) bool {
	var af *AssumptionFailure
	return errors.As(err, &af)
}

// UnexpectedSuccess is raised when a method declares an expected error but
// completes normally.
type UnexpectedSuccess struct {
	Expected string
}

func (e *UnexpectedSuccess) Error() string {
	return fmt.Sprintf("expected error %s but the method completed normally", e.Expected)
}

func (e *UnexpectedSuccess) Is(target error) bool { return target == ErrUnexpectedSuccess }

// WrongExceptionKind is raised when a method fails with an error other than
// the declared one.
type WrongExceptionKind struct {
	Expected string
	Actual   error
}

func (e *WrongExceptionKind) Error() string {
	return fmt.Sprintf("unexpected error, expected %s but got: %v", e.Expected, e.Actual)
}

func (e *WrongExceptionKind) Unwrap() error { return e.Actual }

func (e *WrongExceptionKind) Is(target error) bool { return target == ErrWrongExceptionKind }

// PanicError carries a recovered panic value and the stack at recovery.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error, so a panicking body
// still matches errors.Is and errors.As on what it panicked with.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Capture runs fn and converts a panic into a PanicError.
func Capture(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && IsAssumption(e) {
				err = e
				return
			}
			err = &PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return fn()
}

// Describe renders err on one line per accumulated cause.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	causes := Causes(err)
	if len(causes) == 1 {
		return causes[0].Error()
	}
	lines := make([]string, 0, len(causes))
	for i, c := range causes {
		lines = append(lines, fmt.Sprintf("(%d) %v", i+1, c))
	}
	return strings.Join(lines, "; ")
}
