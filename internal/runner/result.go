package runner

import (
	"time"

	"specctl/internal/failure"
)

// Outcome is the result category of a class or method.
type Outcome string

const (
	OutcomePassed  Outcome = "PASSED"
	OutcomeFailed  Outcome = "FAILED"
	OutcomeIgnored Outcome = "IGNORED"
	OutcomeSkipped Outcome = "SKIPPED"
	// OutcomeError marks a class that never ran because of a configuration error.
	OutcomeError Outcome = "ERROR"
)

// MethodResult is the outcome of one method.
type MethodResult struct {
	Name     string        `json:"name"`
	Outcome  Outcome       `json:"outcome"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
	Err      error         `json:"-"`
}

// ClassResult is the outcome of one class run.
type ClassResult struct {
	Class     string         `json:"class"`
	Outcome   Outcome        `json:"outcome"`
	Methods   []MethodResult `json:"methods"`
	StartTime time.Time      `json:"startTime"`
	EndTime   time.Time      `json:"endTime"`
	Duration  time.Duration  `json:"duration"`
	// Error holds failures raised outside any method.
	Error string `json:"error,omitempty"`
	Err   error  `json:"-"`
}

// ErrorResult describes a class that could not be run at all.
func ErrorResult(class string, err error) *ClassResult {
	now := time.Now()
	return &ClassResult{
		Class:     class,
		Outcome:   OutcomeError,
		StartTime: now,
		EndTime:   now,
		Error:     failure.Describe(err),
		Err:       err,
	}
}

// Method returns the result for name.
func (r *ClassResult) Method(name string) (MethodResult, bool) {
	for _, m := range r.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return MethodResult{}, false
}

// Counts tallies the method outcomes.
func (r *ClassResult) Counts() (passed, failed, ignored, skipped int) {
	for _, m := range r.Methods {
		switch m.Outcome {
		case OutcomePassed:
			passed++
		case OutcomeFailed:
			failed++
		case OutcomeIgnored:
			ignored++
		case OutcomeSkipped:
			skipped++
		}
	}
	return passed, failed, ignored, skipped
}

// Failed reports whether the class or any of its methods failed.
func (r *ClassResult) Failed() bool {
	return r.Outcome == OutcomeFailed || r.Outcome == OutcomeError
}

func (r *ClassResult) finish(end time.Time) {
	r.EndTime = end
	r.Duration = end.Sub(r.StartTime)

	if r.Outcome != "" {
		return
	}
	if r.Err != nil && !failure.OnlyAssumptions(r.Err) {
		r.Outcome = OutcomeFailed
		return
	}
	if _, failed, _, _ := r.Counts(); failed > 0 {
		r.Outcome = OutcomeFailed
		return
	}
	if r.Err != nil {
		r.Outcome = OutcomeSkipped
		return
	}
	r.Outcome = OutcomePassed
}
