package notify

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values of specctl_tests_total.
const (
	LabelPassed  = "passed"
	LabelFailed  = "failed"
	LabelSkipped = "skipped"
	LabelIgnored = "ignored"
)

// Metrics counts test outcomes in Prometheus collectors.
//
// Metrics:
//   - specctl_tests_total{class,outcome} - finished or ignored tests
//   - specctl_test_duration_seconds{class} - time from started to finished
//   - specctl_class_failures_total{class} - failures outside any method
type Metrics struct {
	TestsTotal    *prometheus.CounterVec
	TestDuration  *prometheus.HistogramVec
	ClassFailures *prometheus.CounterVec

	mu       sync.Mutex
	started  map[TestID]time.Time
	outcomes map[TestID]string
	now      func() time.Time
}

var _ Notifier = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "specctl_tests_total",
				Help: "Total number of tests by outcome",
			},
			[]string{"class", "outcome"},
		),
		TestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "specctl_test_duration_seconds",
				Help:    "Duration of test method chains in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"class"},
		),
		ClassFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "specctl_class_failures_total",
				Help: "Total number of failures raised by class level stages",
			},
			[]string{"class"},
		),
		started:  make(map[TestID]time.Time),
		outcomes: make(map[TestID]string),
		now:      time.Now,
	}
}

func (m *Metrics) TestStarted(id TestID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started[id] = m.now()
}

func (m *Metrics) TestFailure(id TestID, _ error) {
	if id.IsSuite() {
		m.ClassFailures.WithLabelValues(id.Class).Inc()
		return
	}

	m.mu.Lock()
	_, running := m.started[id]
	m.outcomes[id] = LabelFailed
	m.mu.Unlock()

	// A failure without a start is a construction failure; nothing else
	// will follow for it.
	if !running {
		m.record(id)
	}
}

func (m *Metrics) TestAssumptionFailed(id TestID, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[id] = LabelSkipped
}

func (m *Metrics) TestFinished(id TestID) {
	m.mu.Lock()
	if start, ok := m.started[id]; ok {
		m.TestDuration.WithLabelValues(id.Class).Observe(m.now().Sub(start).Seconds())
		delete(m.started, id)
	}
	m.mu.Unlock()
	m.record(id)
}

func (m *Metrics) TestIgnored(id TestID) {
	m.TestsTotal.WithLabelValues(id.Class, LabelIgnored).Inc()
}

func (m *Metrics) record(id TestID) {
	m.mu.Lock()
	outcome, ok := m.outcomes[id]
	delete(m.outcomes, id)
	m.mu.Unlock()

	if !ok {
		outcome = LabelPassed
	}
	m.TestsTotal.WithLabelValues(id.Class, outcome).Inc()
}
