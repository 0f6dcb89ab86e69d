package gomon

import (
	"testing"
)

// The global system is guarded by a process-wide sync.Once, so the
// whole lifecycle is exercised in a single test.
func TestGlobalLifecycle(t *testing.T) {
	if err := HealthCheck(); err == nil {
		t.Fatal("expected health check failure before Init")
	}
	if DefaultRepository() != nil || DefaultFactory() != nil {
		t.Fatal("expected nil accessors before Init")
	}

	// No-ops before Init
	Add("early", UnitsMilliseconds, 1)
	StartMonitor("early").Stop()

	err := Init(Config{
		ServiceName: "gomon-test",
		InstanceIP:  "127.0.0.1",
	})
	if err != nil {
		t.Fatalf("unexpected init error: %v", err)
	}

	repo := DefaultRepository()
	if repo == nil {
		t.Fatal("expected repository after Init")
	}
	if repo.Count() != 0 {
		t.Fatalf("pre-init observations must not leak in, got %d monitors", repo.Count())
	}

	Add("req.latency", UnitsMilliseconds, 7)
	AddMs("req.latency", 13)
	StartMonitor("op").Stop()

	mon, err := repo.FindByLabel("req.latency")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mon == nil || mon.Hits() != 2 || mon.Avg() != 10 {
		t.Fatalf("unexpected latency monitor: %v", mon)
	}

	if err := HealthCheck(); err != nil {
		t.Fatalf("unexpected health check error: %v", err)
	}
	if _, err := repo.FindByLabel("monitor.heartbeat"); err != nil {
		t.Fatalf("expected heartbeat monitor after health check, got %v", err)
	}

	status := Status()
	if status["initialized"] != true {
		t.Fatalf("unexpected status: %v", status)
	}
	if status["monitors"].(int) < 3 {
		t.Fatalf("expected at least 3 monitors in status, got %v", status["monitors"])
	}

	if err := RefreshConnection(); err != nil {
		t.Fatalf("unexpected refresh error: %v", err)
	}

	// No remote write client is configured in this test
	if err := Flush(); err == nil {
		t.Fatal("expected flush error without remote write URL")
	}

	extra := NewFactory(nil)
	if err := RegisterCollector(extra); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}

	Shutdown()
	if err := HealthCheck(); err == nil {
		t.Fatal("expected health check failure after Shutdown")
	}
	if err := RegisterCollector(extra); err == nil {
		t.Fatal("expected register failure after Shutdown")
	}
}
