package indexer

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "fairswap/indexer"

var (
	metersOnce   sync.Once
	sharedMeters *indexerMeters
)

// indexerMeters reports through the global OTLP meter provider, so the
// counters are live once fairswapd enables telemetry.
type indexerMeters struct {
	replayed metric.Int64Counter
	failed   metric.Int64Counter
}

func meters() *indexerMeters {
	metersOnce.Do(func() {
		sharedMeters = newIndexerMeters(otel.GetMeterProvider())
	})
	return sharedMeters
}

func newIndexerMeters(provider metric.MeterProvider) *indexerMeters {
	meter := provider.Meter(meterName)
	replayed, err := meter.Int64Counter("fairswap.indexer.replayed_heights",
		metric.WithDescription("Heights indexed from stored receipts instead of the live feed."))
	if err != nil {
		meter = noop.NewMeterProvider().Meter(meterName)
		replayed, _ = meter.Int64Counter("fairswap.indexer.replayed_heights")
	}
	failed, err := meter.Int64Counter("fairswap.indexer.failed_events",
		metric.WithDescription("Feed envelopes the indexer could not apply."))
	if err != nil {
		failed, _ = noop.NewMeterProvider().Meter(meterName).Int64Counter("fairswap.indexer.failed_events")
	}
	return &indexerMeters{replayed: replayed, failed: failed}
}

func (m *indexerMeters) recordReplay(ctx context.Context, heights uint64) {
	if m == nil || heights == 0 {
		return
	}
	m.replayed.Add(ctx, int64(heights))
}

func (m *indexerMeters) recordFailure(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("type", eventType)))
}
