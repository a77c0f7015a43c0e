package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	orderBookMetrics     *OrderBookMetrics
	orderBookMetricsOnce sync.Once
)

// OrderBookMetrics holds metrics for order book operations
type OrderBookMetrics struct {
	submittedOrdersTotal metric.Int64Counter
	fillsTotal           metric.Int64Counter
	cancelledOrdersTotal metric.Int64Counter
}

// GetOrderBookMetrics returns the OrderBookMetrics singleton
func GetOrderBookMetrics() *OrderBookMetrics {
	orderBookMetricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter(instrumentationName)
		m := &OrderBookMetrics{}

		if counter, err := meter.Int64Counter(
			"orderbook.submitted_orders.total",
			metric.WithDescription("Total number of orders submitted"),
			metric.WithUnit("{order}"),
		); err == nil {
			m.submittedOrdersTotal = counter
		}

		if counter, err := meter.Int64Counter(
			"orderbook.fills.total",
			metric.WithDescription("Total number of fill events recorded"),
			metric.WithUnit("{fill}"),
		); err == nil {
			m.fillsTotal = counter
		}

		if counter, err := meter.Int64Counter(
			"orderbook.cancelled_orders.total",
			metric.WithDescription("Total number of orders cancelled"),
			metric.WithUnit("{order}"),
		); err == nil {
			m.cancelledOrdersTotal = counter
		}

		orderBookMetrics = m
	})

	return orderBookMetrics
}

// RecordSubmittedOrder increments the submitted orders counter
func (m *OrderBookMetrics) RecordSubmittedOrder(ctx context.Context, side string) {
	if m.submittedOrdersTotal == nil {
		return
	}
	m.submittedOrdersTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("order.side", side),
	))
}

// RecordFill increments the fills counter
func (m *OrderBookMetrics) RecordFill(ctx context.Context, status string) {
	if m.fillsTotal == nil {
		return
	}
	m.fillsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("order.status", status),
	))
}

// RecordCancelledOrder increments the cancelled orders counter
func (m *OrderBookMetrics) RecordCancelledOrder(ctx context.Context) {
	if m.cancelledOrdersTotal == nil {
		return
	}
	m.cancelledOrdersTotal.Add(ctx, 1)
}
