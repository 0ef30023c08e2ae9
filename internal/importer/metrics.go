package importer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/draftdesk/chatscan/internal/importer"

// Metrics holds the import commit counters.
type Metrics struct {
	tasksImported metric.Int64Counter
	tasksSkipped  metric.Int64Counter
}

// NewMetrics registers the import counters on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	meter := otel.Meter(instrumentationName)

	m := &Metrics{}
	var err error

	m.tasksImported, err = meter.Int64Counter(
		"chatscan.tasks_imported_total",
		metric.WithDescription("Tasks durably written to a project by commits, labeled by provider."),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		logger.Warn("failed to create imported tasks counter", zap.Error(err))
	}

	m.tasksSkipped, err = meter.Int64Counter(
		"chatscan.tasks_skipped_total",
		metric.WithDescription("Already-committed tasks skipped by repeat commits, labeled by provider."),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		logger.Warn("failed to create skipped tasks counter", zap.Error(err))
	}

	return m
}

func (m *Metrics) recordImported(ctx context.Context, providerName string, n int) {
	if m == nil || m.tasksImported == nil || n == 0 {
		return
	}
	m.tasksImported.Add(ctx, int64(n), metric.WithAttributes(attribute.String("provider", providerName)))
}

func (m *Metrics) recordSkipped(ctx context.Context, providerName string, n int) {
	if m == nil || m.tasksSkipped == nil || n == 0 {
		return
	}
	m.tasksSkipped.Add(ctx, int64(n), metric.WithAttributes(attribute.String("provider", providerName)))
}
