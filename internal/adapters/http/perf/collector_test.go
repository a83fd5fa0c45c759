package perf

import (
	"math"
	"sync"
	"testing"
	"time"
)

// TestCollector_RecordAndSnapshot tests aggregation per kind.
func TestCollector_RecordAndSnapshot(t *testing.T) {
	c := NewCollector(16)
	now := time.Now()
	c.Record(Entry{Kind: KindRequest, Path: "GET /admin-dashboard", StatusCode: 200, DurationMs: 10, Timestamp: now})
	c.Record(Entry{Kind: KindRequest, Path: "GET /admin-dashboard", StatusCode: 200, DurationMs: 30, Timestamp: now})
	c.Record(Entry{Kind: KindQuery, Path: "session.Get", DurationMs: 1, Timestamp: now})
	c.Record(Entry{Kind: KindUpstream, Path: "campusapi.list_events", StatusCode: 200, DurationMs: 50, Timestamp: now})
	c.Record(Entry{Kind: KindUpstream, Path: "campusapi.list_events", Failed: true, DurationMs: 70, Timestamp: now})

	snap := c.Snapshot(now.Add(-time.Minute), 5)
	if snap.TotalRecorded != 5 {
		t.Errorf("got total %d, want 5", snap.TotalRecorded)
	}
	if len(snap.SlowestPaths) != 1 || snap.SlowestPaths[0].AvgMs != 20 || snap.SlowestPaths[0].MaxMs != 30 {
		t.Errorf("unexpected request stats: %+v", snap.SlowestPaths)
	}
	if len(snap.SlowestQueries) != 1 || snap.SlowestQueries[0].Count != 1 {
		t.Errorf("unexpected query stats: %+v", snap.SlowestQueries)
	}
	if snap.UpstreamFailed != 1 {
		t.Errorf("got %d upstream failures, want 1", snap.UpstreamFailed)
	}
	if len(snap.SlowestUpstream) != 1 || snap.SlowestUpstream[0].Failed != 1 || snap.SlowestUpstream[0].AvgMs != 60 {
		t.Errorf("unexpected upstream stats: %+v", snap.SlowestUpstream)
	}
}

// TestCollector_RingBufferOverwrites tests that the oldest entries are dropped.
func TestCollector_RingBufferOverwrites(t *testing.T) {
	c := NewCollector(2)
	now := time.Now()
	c.Record(Entry{Kind: KindRequest, Path: "a", DurationMs: 1, Timestamp: now})
	c.Record(Entry{Kind: KindRequest, Path: "b", DurationMs: 2, Timestamp: now})
	c.Record(Entry{Kind: KindRequest, Path: "c", DurationMs: 3, Timestamp: now})

	snap := c.Snapshot(now.Add(-time.Second), 10)
	if len(snap.SlowestPaths) != 2 {
		t.Fatalf("got %d paths, want 2", len(snap.SlowestPaths))
	}
	for _, p := range snap.SlowestPaths {
		if p.Path == "a" {
			t.Error("oldest entry should have been overwritten")
		}
	}
	if snap.TotalRecorded != 3 {
		t.Errorf("got total %d, want 3", snap.TotalRecorded)
	}
}

// TestCollector_Percentiles tests interpolated percentiles.
func TestCollector_Percentiles(t *testing.T) {
	c := NewCollector(200)
	now := time.Now()
	for i := 1; i <= 100; i++ {
		c.Record(Entry{Kind: KindRequest, Path: "p", DurationMs: float64(i), Timestamp: now})
	}
	snap := c.Snapshot(now.Add(-time.Second), 1)
	if math.Abs(snap.RequestP50Ms-50.5) > 0.01 {
		t.Errorf("got p50 %.2f, want 50.5", snap.RequestP50Ms)
	}
	if snap.RequestP99Ms < 99 {
		t.Errorf("got p99 %.2f, want >= 99", snap.RequestP99Ms)
	}
}

// TestCollector_SnapshotFiltersBySince tests the time window.
func TestCollector_SnapshotFiltersBySince(t *testing.T) {
	c := NewCollector(8)
	now := time.Now()
	c.Record(Entry{Kind: KindRequest, Path: "old", DurationMs: 5, Timestamp: now.Add(-time.Hour)})
	c.Record(Entry{Kind: KindRequest, Path: "new", DurationMs: 5, Timestamp: now})
	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if len(snap.SlowestPaths) != 1 || snap.SlowestPaths[0].Path != "new" {
		t.Errorf("got %+v", snap.SlowestPaths)
	}
}

// TestCollector_NilIsSafe tests that a nil collector can be recorded into.
func TestCollector_NilIsSafe(t *testing.T) {
	var c *Collector
	c.Record(Entry{Kind: KindRequest})
	if c.TotalRecorded() != 0 {
		t.Error("nil collector should report zero")
	}
}

// TestCollector_ConcurrentWrites tests Record under concurrency.
func TestCollector_ConcurrentWrites(t *testing.T) {
	c := NewCollector(64)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Record(Entry{Kind: KindUpstream, Path: "x", DurationMs: 1, Timestamp: time.Now()})
			}
		}()
	}
	wg.Wait()
	if c.TotalRecorded() != 800 {
		t.Errorf("got %d, want 800", c.TotalRecorded())
	}
}
