package collection

import (
	"context"
	"time"
)

// Logger receives structured log events from a Collection. The root
// unichrome.Logger satisfies this interface structurally, so collection
// never imports the root package (which imports collection).
type Logger interface {
	LogInsert(ctx context.Context, id int32, dimension int, err error)
	LogBatchInsert(ctx context.Context, count int, err error)
	LogSearch(ctx context.Context, k, resultsFound int, err error)
	LogDelete(ctx context.Context, id int32, found bool, err error)
	LogUpdate(ctx context.Context, id int32, err error)
	LogPersist(ctx context.Context, name string, err error)
}

// MetricsCollector receives operational events from a Collection. The root
// unichrome.MetricsCollector satisfies this interface structurally.
type MetricsCollector interface {
	RecordInsert(duration time.Duration, err error)
	RecordBatchInsert(count, failed int, duration time.Duration)
	RecordSearch(k int, duration time.Duration, err error)
	RecordDelete(duration time.Duration, err error)
	RecordUpdate(duration time.Duration, err error)
}

// NoopLogger discards every log event.
type NoopLogger struct{}

func (NoopLogger) LogInsert(context.Context, int32, int, error)        {}
func (NoopLogger) LogBatchInsert(context.Context, int, error)          {}
func (NoopLogger) LogSearch(context.Context, int, int, error)          {}
func (NoopLogger) LogDelete(context.Context, int32, bool, error)       {}
func (NoopLogger) LogUpdate(context.Context, int32, error)             {}
func (NoopLogger) LogPersist(context.Context, string, error)           {}

// NoopMetricsCollector discards every metrics event.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)         {}
func (NoopMetricsCollector) RecordBatchInsert(int, int, time.Duration) {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)         {}
func (NoopMetricsCollector) RecordUpdate(time.Duration, error)         {}
