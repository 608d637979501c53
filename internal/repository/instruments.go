package repository

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const (
	otelScope = "campusmarket/repository"

	spanItemsRefresh         = "repository.items.refresh"
	spanItemsCreate          = "repository.items.create"
	spanBidsPlace            = "repository.bids.place"
	spanOrdersRefresh        = "repository.orders.refresh"
	spanNotificationsRefresh = "repository.notifications.refresh"
	spanNotificationsMark    = "repository.notifications.mark"
	spanSyncPass             = "repository.sync"

	metricItemsRefreshed = "campusmarket.items.refreshed"
	metricBidsPlaced     = "campusmarket.bids.placed"
	metricSuperseded     = "campusmarket.sync.superseded"
	metricErrors         = "campusmarket.sync.errors"
)

// instruments bundles the tracer and counters shared by the repositories.
// Every field is non-nil; counters fall back to no-ops when creation fails
// and the global providers are no-ops when telemetry is disabled.
type instruments struct {
	tracer        trace.Tracer
	cntRefreshed  metric.Int64Counter
	cntBidsPlaced metric.Int64Counter
	cntSuperseded metric.Int64Counter
	cntErrors     metric.Int64Counter
}

func newInstruments(logger *slog.Logger) *instruments {
	meter := otel.Meter(otelScope)

	mustCounter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			logger.Error("creating OTel counter", "name", name, "error", err)
			return noop.Int64Counter{}
		}
		return c
	}

	return &instruments{
		tracer:        otel.Tracer(otelScope),
		cntRefreshed:  mustCounter(metricItemsRefreshed, "Number of items written by refreshes"),
		cntBidsPlaced: mustCounter(metricBidsPlaced, "Number of server-confirmed bids recorded"),
		cntSuperseded: mustCounter(metricSuperseded, "Number of remote results discarded as superseded"),
		cntErrors:     mustCounter(metricErrors, "Number of failed remote operations"),
	}
}

func metricOpAttr(op string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("op", op))
}
