// Package stats records per-operation execution statistics.
//
// A Manager is off until SetRecording(true); adding while off does nothing.
// Every method is safe for concurrent use. Recorded operations are also
// exported as prometheus collectors.
package stats

import (
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Kind labels the operation a record describes.
type Kind string

const (
	KindQuery  Kind = "query"
	KindUpdate Kind = "update"
)

// Record is the statistics of one executed operation.
type Record struct {
	Kind Kind
	// Label is a short description, usually the operation text.
	Label string
	// Context identifies the caller, such as a query id.
	Context  string
	Start    time.Time
	Duration time.Duration
	// Results counts solutions, triples or applied commands.
	Results int
}

// Listener is notified after statistics change.
type Listener interface {
	StatisticsUpdated()
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func()

func (f ListenerFunc) StatisticsUpdated() { f() }

// ListenerID identifies a registered listener.
type ListenerID int

// Manager collects records.
type Manager struct {
	mu        sync.Mutex
	recording bool
	max       int
	records   []Record
	listeners map[ListenerID]Listener
	nextID    ListenerID
	metrics   *metrics
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxRecords bounds the history; the oldest records are dropped first.
// Zero keeps everything.
func WithMaxRecords(n int) Option {
	return func(m *Manager) { m.max = n }
}

// WithRecording sets the initial recording flag.
func WithRecording(on bool) Option {
	return func(m *Manager) { m.recording = on }
}

// NewManager creates a manager that is not recording.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		listeners: make(map[ListenerID]Listener),
		metrics:   newMetrics(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetRecording turns recording on or off.
func (m *Manager) SetRecording(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recording = on
}

// Recording reports whether Add records anything.
func (m *Manager) Recording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recording
}

// Add records rs and notifies listeners.
func (m *Manager) Add(rs ...Record) {
	if m.AddSilently(rs...) {
		m.notify()
	}
}

// AddSilently records rs without notifying listeners. It reports whether
// anything was recorded.
func (m *Manager) AddSilently(rs ...Record) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.recording || len(rs) == 0 {
		return false
	}
	m.records = append(m.records, rs...)
	if m.max > 0 && len(m.records) > m.max {
		m.records = slices.Clone(m.records[len(m.records)-m.max:])
	}
	for _, r := range rs {
		m.metrics.observe(r)
	}
	return true
}

// Statistics returns a copy of the recorded history, oldest first.
func (m *Manager) Statistics() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.records)
}

// Reset clears the history and notifies listeners. Exported counters keep
// their totals.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.records = nil
	m.mu.Unlock()
	m.notify()
}

// AddListener registers l and returns its id for RemoveListener.
func (m *Manager) AddListener(l Listener) ListenerID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.listeners[m.nextID] = l
	return m.nextID
}

// RemoveListener unregisters a listener. Unknown ids are ignored.
func (m *Manager) RemoveListener(id ListenerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.listeners, id)
}

// notify calls listeners outside the lock, in registration order, so a
// listener may read statistics.
func (m *Manager) notify() {
	m.mu.Lock()
	ids := make([]ListenerID, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	ls := make([]Listener, len(ids))
	for i, id := range ids {
		ls[i] = m.listeners[id]
	}
	m.mu.Unlock()

	for _, l := range ls {
		l.StatisticsUpdated()
	}
}

// Collectors returns the prometheus collectors fed by this manager.
func (m *Manager) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.metrics.operations, m.metrics.duration, m.metrics.results}
}

// Register registers the collectors with reg.
func (m *Manager) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

type metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	results    *prometheus.GaugeVec
}

func newMetrics() *metrics {
	return &metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quarry_operations_total",
			Help: "Total number of recorded query and update operations.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quarry_operation_seconds",
			Help:    "Time spent executing an operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		results: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quarry_last_result_count",
			Help: "Result count of the most recent operation.",
		}, []string{"kind"}),
	}
}

func (x *metrics) observe(r Record) {
	kind := string(r.Kind)
	x.operations.WithLabelValues(kind).Inc()
	x.duration.WithLabelValues(kind).Observe(r.Duration.Seconds())
	x.results.WithLabelValues(kind).Set(float64(r.Results))
}
