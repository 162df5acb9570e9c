package ingestion

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/promptdeck/ingest-api/internal/domain"
)

// MetricsSink records per-import processing counters. Implementations are
// external collaborators (statsd, prometheus, ...); the default just logs.
type MetricsSink interface {
	// RowsProcessed records the number of rows successfully converted.
	RowsProcessed(format domain.FileFormat, count int)

	// RowsErrored records the number of rows that failed conversion.
	RowsErrored(format domain.FileFormat, count int)

	// ProcessingDuration records how long one Process call took.
	ProcessingDuration(format domain.FileFormat, d time.Duration)
}

// LogMetricsSink is a MetricsSink that emits structured log records and
// keeps running totals. Counter updates are atomic so the sink can be
// shared across concurrent imports.
type LogMetricsSink struct {
	logger *slog.Logger

	processedTotal atomic.Int64
	erroredTotal   atomic.Int64
}

// NewLogMetricsSink creates a metrics sink backed by the given logger.
// If logger is nil, the default logger is used.
func NewLogMetricsSink(logger *slog.Logger) *LogMetricsSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMetricsSink{
		logger: logger.With(slog.String("component", "ingestion_metrics")),
	}
}

var _ MetricsSink = (*LogMetricsSink)(nil)

// RowsProcessed implements MetricsSink.RowsProcessed.
func (s *LogMetricsSink) RowsProcessed(format domain.FileFormat, count int) {
	s.processedTotal.Add(int64(count))
	s.logger.Debug("rows processed",
		slog.String("format", string(format)),
		slog.Int("count", count))
}

// RowsErrored implements MetricsSink.RowsErrored.
func (s *LogMetricsSink) RowsErrored(format domain.FileFormat, count int) {
	s.erroredTotal.Add(int64(count))
	s.logger.Debug("rows errored",
		slog.String("format", string(format)),
		slog.Int("count", count))
}

// ProcessingDuration implements MetricsSink.ProcessingDuration.
func (s *LogMetricsSink) ProcessingDuration(format domain.FileFormat, d time.Duration) {
	s.logger.Debug("processing finished",
		slog.String("format", string(format)),
		slog.Duration("duration", d))
}

// ProcessedTotal returns the number of rows processed since startup.
func (s *LogMetricsSink) ProcessedTotal() int64 {
	return s.processedTotal.Load()
}

// ErroredTotal returns the number of rows errored since startup.
func (s *LogMetricsSink) ErroredTotal() int64 {
	return s.erroredTotal.Load()
}
