package sale

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "salesledger/sale"

var tracer = otel.Tracer(instrumentationName)

// metrics holds the engine counters. Instruments come from the global meter
// provider; without an SDK installed they are no-ops.
type metrics struct {
	registered metric.Int64Counter
	rejected   metric.Int64Counter
	cancelled  metric.Int64Counter
	units      metric.Int64Counter
}

func newMetrics() *metrics {
	meter := otel.Meter(instrumentationName)

	m := &metrics{}
	m.registered, _ = meter.Int64Counter("sales.registered",
		metric.WithDescription("Sales registered"))
	m.rejected, _ = meter.Int64Counter("sales.rejected",
		metric.WithDescription("Sale registrations rejected, by error code"))
	m.cancelled, _ = meter.Int64Counter("sales.cancelled",
		metric.WithDescription("Sales cancelled"))
	m.units, _ = meter.Int64Counter("stock.units_decremented",
		metric.WithDescription("Stock units taken by registered sales"),
		metric.WithUnit("{unit}"))
	return m
}

func (m *metrics) recordRegistered(ctx context.Context, s *Sale) {
	if m.registered == nil {
		return
	}
	m.registered.Add(ctx, 1, metric.WithAttributes(attribute.String("payment_method", string(s.PaymentMethod))))

	var units int64
	for _, l := range s.Lines {
		units += l.Quantity
	}
	if m.units != nil {
		m.units.Add(ctx, units)
	}
}

func (m *metrics) recordRejected(ctx context.Context, code string) {
	if m.rejected != nil {
		m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
	}
}

func (m *metrics) recordCancelled(ctx context.Context) {
	if m.cancelled != nil {
		m.cancelled.Add(ctx, 1)
	}
}
