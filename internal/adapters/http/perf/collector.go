package perf

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 4096

// EntryKind distinguishes what a timing entry measured.
type EntryKind uint8

const (
	KindRequest  EntryKind = iota // inbound HTTP request to the BFF
	KindQuery                     // session store query
	KindUpstream                  // outbound call to the campus API
)

// Entry is a single timing record stored in the ring buffer.
type Entry struct {
	Kind       EntryKind
	Path       string // "GET /admin-dashboard", "session.Get" or "campusapi.list_events"
	StatusCode int    // HTTP status; 0 for queries, 0 for upstream transport failures
	Failed     bool
	DurationMs float64
	Timestamp  time.Time
}

// Collector is a fixed-size ring buffer for timing entries.
// When full, the oldest entries are overwritten. Aggregation happens only in Snapshot.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	size    int
	pos     int
	count   atomic.Int64
}

// NewCollector creates a collector with the given ring buffer capacity.
// PRE: size > 0, otherwise DefaultRingSize is used
// POST: Returns a ready-to-use collector
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{
		entries: make([]Entry, size),
		size:    size,
	}
}

// Record appends an entry to the ring buffer. A nil collector ignores the entry.
func (c *Collector) Record(e Entry) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries[c.pos] = e
	c.pos = (c.pos + 1) % c.size
	c.mu.Unlock()
	c.count.Add(1)
}

// TotalRecorded returns the number of entries ever recorded.
func (c *Collector) TotalRecorded() int64 {
	if c == nil {
		return 0
	}
	return c.count.Load()
}

// Snapshot holds aggregated performance data computed on read.
type Snapshot struct {
	TotalRecorded   int64
	RequestP50Ms    float64
	RequestP95Ms    float64
	RequestP99Ms    float64
	UpstreamP95Ms   float64
	UpstreamFailed  int
	SlowestPaths    []PathStat
	SlowestQueries  []PathStat
	SlowestUpstream []PathStat
}

// PathStat aggregates timing for a single path.
type PathStat struct {
	Path    string
	AvgMs   float64
	MaxMs   float64
	Count   int
	Failed  int
	TotalMs float64
}

type statSet map[string]*PathStat

func (s statSet) add(e Entry) {
	st, ok := s[e.Path]
	if !ok {
		st = &PathStat{Path: e.Path}
		s[e.Path] = st
	}
	st.Count++
	st.TotalMs += e.DurationMs
	if e.DurationMs > st.MaxMs {
		st.MaxMs = e.DurationMs
	}
	if e.Failed {
		st.Failed++
	}
}

// Snapshot computes aggregated stats for entries recorded at or after since.
// PRE: topN > 0
// POST: Returns percentiles and the topN slowest paths per kind
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	buf := make([]Entry, c.size)
	copy(buf, c.entries)
	c.mu.Unlock()

	var requestDurations, upstreamDurations []float64
	byKind := map[EntryKind]statSet{
		KindRequest:  {},
		KindQuery:    {},
		KindUpstream: {},
	}
	upstreamFailed := 0

	for _, e := range buf {
		if e.Timestamp.IsZero() || e.Timestamp.Before(since) {
			continue
		}
		set, ok := byKind[e.Kind]
		if !ok {
			continue
		}
		set.add(e)
		switch e.Kind {
		case KindRequest:
			requestDurations = append(requestDurations, e.DurationMs)
		case KindUpstream:
			upstreamDurations = append(upstreamDurations, e.DurationMs)
			if e.Failed {
				upstreamFailed++
			}
		}
	}

	snap := Snapshot{
		TotalRecorded:   c.TotalRecorded(),
		UpstreamFailed:  upstreamFailed,
		SlowestPaths:    topByAvg(byKind[KindRequest], topN),
		SlowestQueries:  topByAvg(byKind[KindQuery], topN),
		SlowestUpstream: topByAvg(byKind[KindUpstream], topN),
	}
	if len(requestDurations) > 0 {
		sort.Float64s(requestDurations)
		snap.RequestP50Ms = percentile(requestDurations, 50)
		snap.RequestP95Ms = percentile(requestDurations, 95)
		snap.RequestP99Ms = percentile(requestDurations, 99)
	}
	if len(upstreamDurations) > 0 {
		sort.Float64s(upstreamDurations)
		snap.UpstreamP95Ms = percentile(upstreamDurations, 95)
	}
	return snap
}

// percentile returns the p-th percentile from a sorted slice using linear interpolation.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// topByAvg returns the n paths with the highest average duration.
func topByAvg(stats statSet, n int) []PathStat {
	list := make([]PathStat, 0, len(stats))
	for _, s := range stats {
		s.AvgMs = s.TotalMs / float64(s.Count)
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].AvgMs == list[j].AvgMs {
			return list[i].Path < list[j].Path
		}
		return list[i].AvgMs > list[j].AvgMs
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}
