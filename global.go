package gomon

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Global monitor instance
var (
	globalManager    Manager
	globalFactory    *Factory
	globalRepository *Repository
	stopRuntimeObs   func()
	initOnce         sync.Once
)

// Init initializes the global monitoring system: a monitor factory
// registered on a manager that periodically remote-writes everything
// the factory has accumulated.
func Init(config Config) error {
	var initErr error

	initOnce.Do(func() {
		mgr, err := NewManager(config)
		if err != nil {
			initErr = err
			return
		}

		factory := NewFactory(config.Logger)
		mgr.RegisterCollector(factory)

		if err := mgr.Start(); err != nil {
			initErr = err
			return
		}

		globalManager = mgr
		globalFactory = factory
		globalRepository = NewRepository(factory)

		if config.RuntimeInterval > 0 {
			stopRuntimeObs = StartRuntimeObserver(factory, config.RuntimeInterval)
		}

		if config.Logger != nil {
			config.Logger.Info("monitor system initialized",
				zap.String("namespace", config.Namespace),
				zap.String("subsystem", config.Subsystem),
				zap.String("service", config.ServiceName))
		}
	})

	return initErr
}

// DefaultFactory returns the global monitor factory, or nil before Init.
func DefaultFactory() *Factory {
	return globalFactory
}

// DefaultRepository returns the query repository over the global
// factory, or nil before Init.
func DefaultRepository() *Repository {
	return globalRepository
}

// Monitor helpers

// Add records an observation on the global factory's monitor for label
// and units.
func Add(label, units string, value float64) {
	if globalFactory != nil {
		globalFactory.Add(label, units, value)
	}
}

// AddMs records a millisecond observation on the global factory.
func AddMs(label string, value float64) {
	if globalFactory != nil {
		globalFactory.Add(label, UnitsMilliseconds, value)
	}
}

// StartMonitor begins a timing split on the global millisecond monitor
// for label. Before Init the split is detached and records nothing
// visible to the registry.
func StartMonitor(label string) *Split {
	if globalFactory != nil {
		return globalFactory.Start(label)
	}
	return newMonitor(label, UnitsMilliseconds).Start()
}

// Collector registration

// RegisterCollector registers a custom metrics collector on the global
// manager.
func RegisterCollector(collector Collector) error {
	if globalManager == nil {
		return fmt.Errorf("global monitor is not initialized")
	}

	globalManager.RegisterCollector(collector)
	return nil
}

// Shutdown shuts down the global monitoring system.
func Shutdown() {
	if stopRuntimeObs != nil {
		stopRuntimeObs()
		stopRuntimeObs = nil
	}
	if globalManager != nil {
		globalManager.Stop()
		globalManager = nil
		globalFactory = nil
		globalRepository = nil
	}
}

// HealthCheck performs a health check on the monitoring system.
func HealthCheck() error {
	if globalManager == nil {
		return fmt.Errorf("monitor system not initialized")
	}

	// Touch the heartbeat monitor to verify the factory is working
	Add("monitor.heartbeat", "beats", 1)
	return nil
}

// RefreshConnection attempts to refresh the remote write connection.
// This is useful for DNS changes or network connectivity issues.
func RefreshConnection() error {
	if globalManager == nil {
		return fmt.Errorf("monitor system not initialized")
	}

	// Get the underlying implementation to access refresh functionality
	if impl, ok := globalManager.(*manager); ok {
		// Force a DNS refresh if DNS is enabled. No refresh can simply
		// mean DNS is disabled or the target is an IP, which is fine.
		impl.RefreshDNS(true)
		return nil
	}

	return fmt.Errorf("unable to refresh connection: implementation not available")
}

// Flush immediately writes all current metrics to the remote endpoint.
func Flush() error {
	if globalManager == nil {
		return fmt.Errorf("monitor system not initialized")
	}
	return globalManager.Flush()
}

// Status returns the current status of the monitoring system.
func Status() map[string]interface{} {
	status := make(map[string]interface{})

	if globalManager == nil {
		status["initialized"] = false
		status["error"] = "monitor system not initialized"
		return status
	}

	status["initialized"] = true
	status["monitors"] = globalRepository.Count()

	var oldest, newest time.Time
	for _, mon := range globalRepository.GetAll() {
		st := mon.Stats()
		if oldest.IsZero() || st.FirstAccess.Before(oldest) {
			oldest = st.FirstAccess
		}
		if st.LastAccess.After(newest) {
			newest = st.LastAccess
		}
	}
	if !oldest.IsZero() {
		status["first_access"] = oldest
	}
	if !newest.IsZero() {
		status["last_access"] = newest
	}

	return status
}
