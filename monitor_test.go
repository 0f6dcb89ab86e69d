package gomon

import (
	"testing"
	"time"
)

func TestMonitor_Add(t *testing.T) {
	mon := newMonitor("test", UnitsMilliseconds)

	if mon.Hits() != 0 || mon.Avg() != 0 {
		t.Fatalf("expected zeroed monitor, got hits=%d avg=%v", mon.Hits(), mon.Avg())
	}

	mon.Add(10)
	if mon.Min() != 10 || mon.Max() != 10 || mon.Last() != 10 {
		t.Fatalf("first observation should set min/max/last to 10, got %v/%v/%v",
			mon.Min(), mon.Max(), mon.Last())
	}

	mon.Add(4)
	mon.Add(16)

	if mon.Hits() != 3 {
		t.Fatalf("expected 3 hits, got %d", mon.Hits())
	}
	if mon.Total() != 30 {
		t.Fatalf("expected total 30, got %v", mon.Total())
	}
	if mon.Avg() != 10 {
		t.Fatalf("expected avg 10, got %v", mon.Avg())
	}
	if mon.Min() != 4 || mon.Max() != 16 || mon.Last() != 16 {
		t.Fatalf("expected min=4 max=16 last=16, got %v/%v/%v",
			mon.Min(), mon.Max(), mon.Last())
	}
}

func TestMonitor_Stats(t *testing.T) {
	mon := newMonitor("query.time", UnitsMilliseconds)
	mon.Add(2)
	mon.Add(8)

	st := mon.Stats()
	if st.Label != "query.time" || st.Units != UnitsMilliseconds {
		t.Fatalf("unexpected identity: %q %q", st.Label, st.Units)
	}
	if st.Hits != 2 || st.Total != 10 || st.Avg != 5 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if st.FirstAccess.IsZero() || st.LastAccess.Before(st.FirstAccess) {
		t.Fatalf("unexpected access times: %v / %v", st.FirstAccess, st.LastAccess)
	}

	// Snapshot must not change when the monitor does
	mon.Add(100)
	if st.Hits != 2 {
		t.Fatalf("snapshot mutated, hits=%d", st.Hits)
	}
}

func TestSplit_Stop(t *testing.T) {
	mon := newMonitor("op", UnitsMilliseconds)

	split := mon.Start()
	time.Sleep(time.Millisecond)
	elapsed := split.Stop()

	if elapsed <= 0 {
		t.Fatalf("expected positive elapsed time, got %v", elapsed)
	}
	if mon.Hits() != 1 {
		t.Fatalf("expected 1 hit after split stop, got %d", mon.Hits())
	}
	if mon.Last() <= 0 {
		t.Fatalf("expected positive last value, got %v", mon.Last())
	}
}
