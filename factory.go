package gomon

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Common units strings.
const (
	UnitsMilliseconds = "ms."
	UnitsBytes        = "bytes"
)

// monKey identifies a monitor inside a factory. Two monitors may share
// a label as long as they measure different units.
type monKey struct {
	label string
	units string
}

// Factory is the monitor registry. Monitors are created on first use
// and kept until Reset; ListAll returns them in registration order.
type Factory struct {
	logger   *zap.Logger
	mutex    sync.RWMutex
	monitors map[monKey]*Monitor
	order    []monKey
}

// NewFactory creates an empty monitor registry. The logger is optional.
func NewFactory(logger *zap.Logger) *Factory {
	return &Factory{
		logger:   logger,
		monitors: make(map[monKey]*Monitor),
	}
}

// Monitor returns the monitor registered under label and units,
// creating and registering it on first use.
func (f *Factory) Monitor(label, units string) *Monitor {
	key := monKey{label: label, units: units}

	f.mutex.RLock()
	mon, exists := f.monitors[key]
	f.mutex.RUnlock()

	if exists {
		return mon
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	if mon, exists = f.monitors[key]; exists {
		return mon
	}

	mon = newMonitor(label, units)
	f.monitors[key] = mon
	f.order = append(f.order, key)

	if f.logger != nil {
		f.logger.Debug("Registered monitor",
			zap.String("label", label),
			zap.String("units", units))
	}
	return mon
}

// Add records an observation on the monitor registered under label and
// units, creating it on first use, and returns the monitor.
func (f *Factory) Add(label, units string, value float64) *Monitor {
	mon := f.Monitor(label, units)
	mon.Add(value)
	return mon
}

// Start begins a timing split on the millisecond monitor for label.
func (f *Factory) Start(label string) *Split {
	return f.Monitor(label, UnitsMilliseconds).Start()
}

// ListAll returns all registered monitors in registration order.
func (f *Factory) ListAll() []*Monitor {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	result := make([]*Monitor, 0, len(f.order))
	for _, key := range f.order {
		result = append(result, f.monitors[key])
	}
	return result
}

// Reset removes every monitor from the registry.
func (f *Factory) Reset() {
	f.mutex.Lock()
	f.monitors = make(map[monKey]*Monitor)
	f.order = nil
	f.mutex.Unlock()

	if f.logger != nil {
		f.logger.Debug("Reset monitor registry")
	}
}

// Name implements the Collector interface.
func (f *Factory) Name() string {
	return "monitors"
}

// Collect implements the Collector interface. Every monitor is exported
// as hits/total/avg/min/max/last samples carrying the monitor label and
// units as metric labels.
func (f *Factory) Collect() []Metric {
	now := time.Now()
	all := f.ListAll()

	metrics := make([]Metric, 0, len(all)*6)
	for _, mon := range all {
		st := mon.Stats()
		labels := map[string]string{
			"monitor": st.Label,
			"units":   st.Units,
		}

		samples := []struct {
			name  string
			value float64
			kind  MetricType
		}{
			{"monitor_hits", float64(st.Hits), Counter},
			{"monitor_total", st.Total, Counter},
			{"monitor_avg", st.Avg, Gauge},
			{"monitor_min", st.Min, Gauge},
			{"monitor_max", st.Max, Gauge},
			{"monitor_last", st.Last, Gauge},
		}
		for _, sample := range samples {
			metrics = append(metrics, Metric{
				Name:       sample.name,
				Value:      sample.value,
				Labels:     labels,
				MetricType: sample.kind,
				Timestamp:  now,
			})
		}
	}
	return metrics
}
