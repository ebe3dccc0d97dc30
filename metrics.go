package unichrome

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives operational events from a Collection. Implement
// it to integrate with a monitoring system; the zero-cost default is
// NoopMetricsCollector.
type MetricsCollector interface {
	// RecordInsert is called after each AddDocument.
	RecordInsert(duration time.Duration, err error)

	// RecordBatchInsert is called after each AddDocumentsAsync.
	RecordBatchInsert(count, failed int, duration time.Duration)

	// RecordSearch is called after each Search/SearchAsync.
	RecordSearch(k int, duration time.Duration, err error)

	// RecordDelete is called after each DeleteDocument (including the
	// graph rebuild it triggers).
	RecordDelete(duration time.Duration, err error)

	// RecordUpdate is called after each UpdateDocumentAsync.
	RecordUpdate(duration time.Duration, err error)
}

// NoopMetricsCollector discards every event.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)         {}
func (NoopMetricsCollector) RecordBatchInsert(int, int, time.Duration) {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)         {}
func (NoopMetricsCollector) RecordUpdate(time.Duration, error)         {}

// BasicMetricsCollector accumulates counts and durations in memory, with no
// external dependency.
type BasicMetricsCollector struct {
	InsertCount      atomic.Int64
	InsertErrors     atomic.Int64
	InsertTotalNanos atomic.Int64

	BatchInsertCount  atomic.Int64
	BatchInsertItems  atomic.Int64
	BatchInsertFailed atomic.Int64

	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64

	DeleteCount  atomic.Int64
	DeleteErrors atomic.Int64
	UpdateCount  atomic.Int64
	UpdateErrors atomic.Int64
}

func (b *BasicMetricsCollector) RecordInsert(duration time.Duration, err error) {
	b.InsertCount.Add(1)
	b.InsertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

func (b *BasicMetricsCollector) RecordBatchInsert(count, failed int, duration time.Duration) {
	b.BatchInsertCount.Add(1)
	b.BatchInsertItems.Add(int64(count))
	b.BatchInsertFailed.Add(int64(failed))
}

func (b *BasicMetricsCollector) RecordSearch(k int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

func (b *BasicMetricsCollector) RecordDelete(duration time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

func (b *BasicMetricsCollector) RecordUpdate(duration time.Duration, err error) {
	b.UpdateCount.Add(1)
	if err != nil {
		b.UpdateErrors.Add(1)
	}
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector.
type BasicMetricsStats struct {
	InsertCount      int64
	InsertErrors     int64
	InsertAvgNanos   int64
	BatchInsertCount int64
	BatchInsertItems int64
	SearchCount      int64
	SearchErrors     int64
	SearchAvgNanos   int64
	DeleteCount      int64
	DeleteErrors     int64
	UpdateCount      int64
	UpdateErrors     int64
}

// GetStats returns a point-in-time snapshot.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:      b.InsertCount.Load(),
		InsertErrors:     b.InsertErrors.Load(),
		InsertAvgNanos:   avg(b.InsertTotalNanos.Load(), b.InsertCount.Load()),
		BatchInsertCount: b.BatchInsertCount.Load(),
		BatchInsertItems: b.BatchInsertItems.Load(),
		SearchCount:      b.SearchCount.Load(),
		SearchErrors:     b.SearchErrors.Load(),
		SearchAvgNanos:   avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		DeleteCount:      b.DeleteCount.Load(),
		DeleteErrors:     b.DeleteErrors.Load(),
		UpdateCount:      b.UpdateCount.Load(),
		UpdateErrors:     b.UpdateErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}
