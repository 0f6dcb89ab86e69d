package gomon

import (
	"strings"
	"testing"
	"time"
)

func TestObserveRuntime(t *testing.T) {
	factory := NewFactory(nil)
	repo := NewRepository(factory)

	ObserveRuntime(factory)

	if repo.Count() == 0 {
		t.Fatal("expected runtime monitors to be recorded")
	}

	mon, err := repo.FindByLabel("runtime.goroutines")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mon == nil || mon.Hits() != 1 || mon.Last() < 1 {
		t.Fatalf("expected at least one goroutine observed, got %v", mon)
	}

	for _, mon := range repo.Find(func(m *Monitor) bool {
		return strings.HasPrefix(m.Label(), "runtime.memory.")
	}) {
		if mon.Last() < 0 {
			t.Fatalf("negative memory reading on %q", mon.Label())
		}
	}
}

func TestStartRuntimeObserver_Stop(t *testing.T) {
	factory := NewFactory(nil)

	stop := StartRuntimeObserver(factory, 10*time.Millisecond)

	// Stop must be safe to call more than once
	stop()
	stop()
}
