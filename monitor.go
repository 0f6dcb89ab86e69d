package gomon

import (
	"sync"
	"time"
)

// Monitor is a single named measurement record. It accumulates basic
// statistics (hits, total, min, max, last value, first/last access) for
// every observation recorded under its label.
type Monitor struct {
	label string
	units string

	mutex       sync.RWMutex
	hits        int64
	total       float64
	min         float64
	max         float64
	last        float64
	firstAccess time.Time
	lastAccess  time.Time
}

// Stats is a point-in-time copy of a monitor's statistics.
type Stats struct {
	Label       string    `json:"label"`
	Units       string    `json:"units"`
	Hits        int64     `json:"hits"`
	Total       float64   `json:"total"`
	Avg         float64   `json:"avg"`
	Min         float64   `json:"min"`
	Max         float64   `json:"max"`
	Last        float64   `json:"last"`
	FirstAccess time.Time `json:"first_access"`
	LastAccess  time.Time `json:"last_access"`
}

func newMonitor(label, units string) *Monitor {
	return &Monitor{
		label: label,
		units: units,
	}
}

// Label returns the monitor label.
func (m *Monitor) Label() string {
	return m.label
}

// Units returns the measurement units, e.g. "ms." or "bytes".
func (m *Monitor) Units() string {
	return m.units
}

// Add records a single observation.
func (m *Monitor) Add(value float64) {
	now := time.Now()

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.hits == 0 {
		m.min = value
		m.max = value
		m.firstAccess = now
	} else {
		if value < m.min {
			m.min = value
		}
		if value > m.max {
			m.max = value
		}
	}

	m.hits++
	m.total += value
	m.last = value
	m.lastAccess = now
}

// Start begins timing an interval. Stopping the returned split records
// the elapsed time in milliseconds on this monitor.
func (m *Monitor) Start() *Split {
	return &Split{
		monitor: m,
		begin:   time.Now(),
	}
}

// Hits returns the number of recorded observations.
func (m *Monitor) Hits() int64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.hits
}

// Total returns the sum of all recorded values.
func (m *Monitor) Total() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.total
}

// Avg returns the mean of all recorded values, or 0 when there are no
// observations yet.
func (m *Monitor) Avg() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.hits == 0 {
		return 0
	}
	return m.total / float64(m.hits)
}

// Min returns the smallest recorded value, or 0 when there are no
// observations yet.
func (m *Monitor) Min() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.min
}

// Max returns the largest recorded value, or 0 when there are no
// observations yet.
func (m *Monitor) Max() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.max
}

// Last returns the most recently recorded value.
func (m *Monitor) Last() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.last
}

// Stats returns a consistent snapshot of all statistics.
func (m *Monitor) Stats() Stats {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	avg := 0.0
	if m.hits > 0 {
		avg = m.total / float64(m.hits)
	}

	return Stats{
		Label:       m.label,
		Units:       m.units,
		Hits:        m.hits,
		Total:       m.total,
		Avg:         avg,
		Min:         m.min,
		Max:         m.max,
		Last:        m.last,
		FirstAccess: m.firstAccess,
		LastAccess:  m.lastAccess,
	}
}

// Split is an in-flight timing started by Monitor.Start.
type Split struct {
	monitor *Monitor
	begin   time.Time
}

// Stop records the elapsed time on the owning monitor in milliseconds
// and returns it.
func (s *Split) Stop() time.Duration {
	elapsed := time.Since(s.begin)
	s.monitor.Add(float64(elapsed) / float64(time.Millisecond))
	return elapsed
}
