// Package notify defines the sink the runner reports test outcomes to, and
// the sinks shipped with specctl: an in-memory recorder, a console printer, a
// Prometheus collector and a fan-out.
package notify

import (
	"fmt"
	"sync"
)

// TestID identifies a test method, or a whole class when Method is empty.
type TestID struct {
	Class  string `json:"class"`
	Method string `json:"method,omitempty"`
}

// Suite returns the class-level ID for class.
func Suite(class string) TestID {
	return TestID{Class: class}
}

// IsSuite reports whether the ID names a whole class.
func (id TestID) IsSuite() bool {
	return id.Method == ""
}

func (id TestID) String() string {
	if id.IsSuite() {
		return id.Class
	}
	return id.Class + "." + id.Method
}

// Notifier receives test outcomes. For a method that runs, the runner emits
// TestStarted, then TestFailure or TestAssumptionFailed when it did not pass,
// then TestFinished. Disabled methods get a single TestIgnored.
type Notifier interface {
	TestStarted(id TestID)
	TestFailure(id TestID, cause error)
	TestAssumptionFailed(id TestID, cause error)
	TestFinished(id TestID)
	TestIgnored(id TestID)
}

// EventKind is the type of a recorded notification.
type EventKind string

const (
	EventStarted          EventKind = "started"
	EventFailure          EventKind = "failure"
	EventAssumptionFailed EventKind = "assumption"
	EventFinished         EventKind = "finished"
	EventIgnored          EventKind = "ignored"
)

// Event is one recorded notification.
type Event struct {
	Kind  EventKind `json:"kind"`
	ID    TestID    `json:"id"`
	Cause error     `json:"-"`
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%s)", e.Kind, e.ID)
}

// Recorder keeps every notification in order. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

var _ Notifier = (*Recorder)(nil)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(kind EventKind, id TestID, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: kind, ID: id, Cause: cause})
}

func (r *Recorder) TestStarted(id TestID)              { r.add(EventStarted, id, nil) }
func (r *Recorder) TestFailure(id TestID, cause error) { r.add(EventFailure, id, cause) }
func (r *Recorder) TestFinished(id TestID)             { r.add(EventFinished, id, nil) }
func (r *Recorder) TestIgnored(id TestID)              { r.add(EventIgnored, id, nil) }

func (r *Recorder) TestAssumptionFailed(id TestID, cause error) {
	r.add(EventAssumptionFailed, id, cause)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Sequence renders the recorded events as "kind(Class.method)" strings.
func (r *Recorder) Sequence() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.String()
	}
	return out
}

// Failures returns the failure events only.
func (r *Recorder) Failures() []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == EventFailure {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Multi fans every notification out to all notifiers, in order.
type Multi []Notifier

var _ Notifier = Multi(nil)

func (m Multi) TestStarted(id TestID) {
	for _, n := range m {
		n.TestStarted(id)
	}
}

func (m Multi) TestFailure(id TestID, cause error) {
	for _, n := range m {
		n.TestFailure(id, cause)
	}
}

func (m Multi) TestAssumptionFailed(id TestID, cause error) {
	for _, n := range m {
		n.TestAssumptionFailed(id, cause)
	}
}

func (m Multi) TestFinished(id TestID) {
	for _, n := range m {
		n.TestFinished(id)
	}
}

func (m Multi) TestIgnored(id TestID) {
	for _, n := range m {
		n.TestIgnored(id)
	}
}

// Synchronized serialises calls to a notifier that is not safe for
// concurrent use, so parallel class runs can share it.
type Synchronized struct {
	mu sync.Mutex
	n  Notifier
}

var _ Notifier = (*Synchronized)(nil)

// NewSynchronized wraps n.
func NewSynchronized(n Notifier) *Synchronized {
	return &Synchronized{n: n}
}

func (s *Synchronized) TestStarted(id TestID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n.TestStarted(id)
}

func (s *Synchronized) TestFailure(id TestID, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n.TestFailure(id, cause)
}

func (s *Synchronized) TestAssumptionFailed(id TestID, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n.TestAssumptionFailed(id, cause)
}

func (s *Synchronized) TestFinished(id TestID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n.TestFinished(id)
}

func (s *Synchronized) TestIgnored(id TestID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n.TestIgnored(id)
}

// Discard drops every notification.
var Discard Notifier = discard{}

type discard struct{}

func (discard) TestStarted(TestID)                 {}
func (discard) TestFailure(TestID, error)          {}
func (discard) TestAssumptionFailed(TestID, error) {}
func (discard) TestFinished(TestID)                {}
func (discard) TestIgnored(TestID)                 {}
