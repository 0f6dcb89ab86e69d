// Package gomon provides a lightweight monitoring SDK for Go
// applications: named monitors accumulating hit/total/avg/min/max
// statistics, a query repository over the monitor registry, and
// Prometheus Remote Write export.
//
// Design goals:
//   - Monitors created on first use and keyed by label plus units
//   - Thread-safe registry; the repository adds queries, not locking
//   - Stateless read-through queries that always see the live registry
//   - Prometheus-compatible export with standard labels
//
// Basic usage:
//
//	config := gomon.Config{
//	  Namespace:           "myapp",
//	  Subsystem:           "prod",
//	  ServiceName:         "service",
//	  RemoteWriteURL:      "http://prometheus:9090/api/v1/write",
//	  RemoteWriteInterval: 15 * time.Second,
//	}
//
//	if err := gomon.Init(config); err != nil {
//	  log.Fatal(err)
//	}
//	defer gomon.Shutdown()
//
//	split := gomon.StartMonitor("page.render")
//	defer split.Stop()
//
//	repo := gomon.DefaultRepository()
//	mon, err := repo.FindByLabel("page.render")
package gomon
