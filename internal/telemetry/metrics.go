// Package telemetry collects local search metrics. Nothing is reported
// externally; data stays in a SQLite file under the cache directory.
package telemetry

import (
	"sync"
	"time"
)

// LatencyBucket is a search-latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// Snapshot is an immutable view of collected metrics.
type Snapshot struct {
	ModeCounts          map[string]int64        `json:"mode_counts"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TotalSearches       int64                   `json:"total_searches"`
	Since               time.Time               `json:"since"`
}

// QueryMetrics aggregates per-search telemetry in memory and flushes it
// to a MetricsStore. Safe for concurrent use.
type QueryMetrics struct {
	mu sync.Mutex

	modes     map[string]int64
	latencies map[LatencyBucket]int64
	total     int64
	startTime time.Time

	store       MetricsStore
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closed      bool
}

// NewQueryMetrics creates a collector. A nil store keeps metrics in
// memory only. A positive flushInterval starts a background flush loop.
func NewQueryMetrics(store MetricsStore, flushInterval time.Duration) *QueryMetrics {
	m := &QueryMetrics{
		modes:     make(map[string]int64),
		latencies: make(map[LatencyBucket]int64),
		startTime: time.Now(),
		store:     store,
		stopCh:    make(chan struct{}),
	}
	if flushInterval > 0 && store != nil {
		m.flushTicker = time.NewTicker(flushInterval)
		go m.flushLoop()
	}
	return m
}

func (m *QueryMetrics) flushLoop() {
	for {
		select {
		case <-m.flushTicker.C:
			_ = m.Flush()
		case <-m.stopCh:
			return
		}
	}
}

// RecordSearch counts one search by retrieval mode and latency bucket.
func (m *QueryMetrics) RecordSearch(mode string, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.modes[mode]++
	m.latencies[LatencyToBucket(latency)]++
	m.total++
}

// Snapshot returns a copy of the current aggregates.
func (m *QueryMetrics) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	modes := make(map[string]int64, len(m.modes))
	for k, v := range m.modes {
		modes[k] = v
	}
	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}
	return &Snapshot{
		ModeCounts:          modes,
		LatencyDistribution: latencies,
		TotalSearches:       m.total,
		Since:               m.startTime,
	}
}

// Flush persists current aggregates and resets the in-memory deltas so
// counts are not double-written on the next flush.
func (m *QueryMetrics) Flush() error {
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	modes := m.modes
	latencies := m.latencies
	m.modes = make(map[string]int64)
	m.latencies = make(map[LatencyBucket]int64)
	m.mu.Unlock()

	today := time.Now().Format("2006-01-02")
	if err := m.store.SaveModeCounts(today, modes); err != nil {
		return err
	}
	return m.store.SaveLatencyCounts(today, latencies)
}

// Close stops the flush loop and performs a final flush.
func (m *QueryMetrics) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	if m.flushTicker != nil {
		m.flushTicker.Stop()
		close(m.stopCh)
	}
	return m.Flush()
}

// MetricsStore persists aggregated search metrics.
type MetricsStore interface {
	// SaveModeCounts upserts daily per-mode search counts.
	SaveModeCounts(date string, counts map[string]int64) error

	// GetModeCounts retrieves per-mode counts for a date range.
	GetModeCounts(from, to string) (map[string]int64, error)

	// SaveLatencyCounts upserts daily latency histogram counts.
	SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error

	// GetLatencyCounts retrieves the latency distribution for a range.
	GetLatencyCounts(from, to string) (map[LatencyBucket]int64, error)

	// Close releases resources.
	Close() error
}
