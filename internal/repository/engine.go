package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/campusmarket/campusmarket/internal/marketplace"
)

// Stats counts what one sync pass wrote.
type Stats struct {
	Items         int
	Orders        int
	Notifications int
	Errors        int
}

// Engine refreshes the whole cache for one user on a fixed interval. Create
// one with [NewEngine] and start it with [Engine.Run].
type Engine struct {
	items         *ItemRepository
	orders        *OrderRepository
	notifications *NotificationRepository
	userID        string
	pollInterval  time.Duration
	log           *slog.Logger
	inst          *instruments
}

// NewEngine creates an Engine that keeps userID's view of the marketplace
// fresh.
func NewEngine(items *ItemRepository, orders *OrderRepository, notifications *NotificationRepository, userID string, pollInterval time.Duration, logger *slog.Logger) *Engine {
	return &Engine{
		items:         items,
		orders:        orders,
		notifications: notifications,
		userID:        userID,
		pollInterval:  pollInterval,
		log:           logger,
		inst:          newInstruments(logger),
	}
}

// sync runs one pass: a full item refresh, then the user's orders and
// notifications. Each step is single-shot; a failing step does not stop the
// others. The first error is returned.
func (e *Engine) sync(ctx context.Context) (Stats, error) {
	ctx, span := e.inst.tracer.Start(ctx, spanSyncPass)
	defer span.End()

	var stats Stats
	var errs []error

	if items, err := e.items.Refresh(ctx, marketplace.ItemFilter{}); err != nil {
		stats.Errors++
		errs = append(errs, err)
	} else {
		stats.Items = len(items)
	}

	if e.userID != "" {
		if orders, err := e.orders.Refresh(ctx, e.userID); err != nil {
			stats.Errors++
			errs = append(errs, err)
		} else {
			stats.Orders = len(orders)
		}

		if ns, err := e.notifications.Refresh(ctx, e.userID, false); err != nil {
			stats.Errors++
			errs = append(errs, err)
		} else {
			stats.Notifications = len(ns)
		}
	}

	span.SetAttributes(
		attribute.Int("sync.items", stats.Items),
		attribute.Int("sync.orders", stats.Orders),
		attribute.Int("sync.notifications", stats.Notifications),
		attribute.Int("sync.errors", stats.Errors),
	)

	e.log.Info("sync complete",
		"items", stats.Items,
		"orders", stats.Orders,
		"notifications", stats.Notifications,
		"errors", stats.Errors,
	)

	if len(errs) > 0 {
		err := errs[0]
		span.RecordError(errors.Join(errs...))
		return stats, err
	}
	return stats, nil
}

// RunOnce performs a single sync pass and returns.
func (e *Engine) RunOnce(ctx context.Context) (Stats, error) {
	return e.sync(ctx)
}

// Run syncs immediately and then every poll interval. It blocks until ctx is
// cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	if _, err := e.sync(ctx); err != nil {
		e.log.Error("initial sync failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			e.log.Info("sync engine shutting down")
			return ctx.Err()
		case <-ticker.C:
			if _, err := e.sync(ctx); err != nil {
				e.log.Error("sync failed", "error", err)
			}
		}
	}
}
