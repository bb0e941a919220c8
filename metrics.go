package regnet

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordBootstrap is called after each bootstrap completes on this
	// rank. chunks is the number of owned chunks regressed, duration is
	// the total time taken, err is nil if successful.
	RecordBootstrap(ordinal, chunks int, duration time.Duration, err error)

	// RecordRun is called once when the rank's full run finishes.
	RecordRun(bootstraps int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBootstrap(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordRun(int, time.Duration, error)            {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	BootstrapCount      atomic.Int64
	BootstrapErrors     atomic.Int64
	BootstrapTotalNanos atomic.Int64
	ChunksRegressed     atomic.Int64
	RunCount            atomic.Int64
	RunErrors           atomic.Int64
}

// RecordBootstrap implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBootstrap(_, chunks int, duration time.Duration, err error) {
	b.BootstrapCount.Add(1)
	b.BootstrapTotalNanos.Add(duration.Nanoseconds())
	b.ChunksRegressed.Add(int64(chunks))
	if err != nil {
		b.BootstrapErrors.Add(1)
	}
}

// RecordRun implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRun(_ int, _ time.Duration, err error) {
	b.RunCount.Add(1)
	if err != nil {
		b.RunErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BootstrapCount:    b.BootstrapCount.Load(),
		BootstrapErrors:   b.BootstrapErrors.Load(),
		BootstrapAvgNanos: b.avgBootstrapNanos(),
		ChunksRegressed:   b.ChunksRegressed.Load(),
		RunCount:          b.RunCount.Load(),
		RunErrors:         b.RunErrors.Load(),
	}
}

func (b *BasicMetricsCollector) avgBootstrapNanos() int64 {
	count := b.BootstrapCount.Load()
	if count == 0 {
		return 0
	}
	return b.BootstrapTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BootstrapCount    int64
	BootstrapErrors   int64
	BootstrapAvgNanos int64
	ChunksRegressed   int64
	RunCount          int64
	RunErrors         int64
}
