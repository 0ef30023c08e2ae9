package scan

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/draftdesk/chatscan/internal/scan"

// Metrics holds the scan pipeline counters.
type Metrics struct {
	scansStarted    metric.Int64Counter
	messagesFetched metric.Int64Counter
	tasksExtracted  metric.Int64Counter
	channelFailures metric.Int64Counter
}

// NewMetrics registers the scan counters on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	meter := otel.Meter(instrumentationName)

	m := &Metrics{}
	var err error

	m.scansStarted, err = meter.Int64Counter(
		"chatscan.scans_started_total",
		metric.WithDescription("Scan sessions started, labeled by provider."),
		metric.WithUnit("{scan}"),
	)
	if err != nil {
		logger.Warn("failed to create scans counter", zap.Error(err))
	}

	m.messagesFetched, err = meter.Int64Counter(
		"chatscan.messages_fetched_total",
		metric.WithDescription("Chat messages fetched across all scans, labeled by provider."),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		logger.Warn("failed to create messages counter", zap.Error(err))
	}

	m.tasksExtracted, err = meter.Int64Counter(
		"chatscan.tasks_extracted_total",
		metric.WithDescription("Tasks produced by the extraction engine, labeled by provider."),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		logger.Warn("failed to create tasks counter", zap.Error(err))
	}

	m.channelFailures, err = meter.Int64Counter(
		"chatscan.channel_fetch_failures_total",
		metric.WithDescription("Channel fetches that returned an error, labeled by provider."),
		metric.WithUnit("{channel}"),
	)
	if err != nil {
		logger.Warn("failed to create channel failures counter", zap.Error(err))
	}

	return m
}

func (m *Metrics) recordScan(ctx context.Context, providerName string) {
	if m == nil || m.scansStarted == nil {
		return
	}
	m.scansStarted.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", providerName)))
}

func (m *Metrics) recordMessages(ctx context.Context, providerName string, n int) {
	if m == nil || m.messagesFetched == nil {
		return
	}
	m.messagesFetched.Add(ctx, int64(n), metric.WithAttributes(attribute.String("provider", providerName)))
}

func (m *Metrics) recordTasks(ctx context.Context, providerName string, n int) {
	if m == nil || m.tasksExtracted == nil {
		return
	}
	m.tasksExtracted.Add(ctx, int64(n), metric.WithAttributes(attribute.String("provider", providerName)))
}

func (m *Metrics) recordChannelFailure(ctx context.Context, providerName string) {
	if m == nil || m.channelFailures == nil {
		return
	}
	m.channelFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", providerName)))
}
