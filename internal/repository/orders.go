package repository

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/campusmarket/campusmarket/internal/model"
)

// OrderRepository mirrors a user's orders.
type OrderRepository struct {
	remote OrderRemote
	store  OrderStore
	flight *inflight
	log    *slog.Logger
	inst   *instruments
}

// NewOrderRepository creates an OrderRepository.
func NewOrderRepository(remote OrderRemote, st OrderStore, logger *slog.Logger) *OrderRepository {
	return &OrderRepository{remote: remote, store: st, flight: newInflight(), log: logger, inst: newInstruments(logger)}
}

// Refresh fetches and caches the user's orders.
func (r *OrderRepository) Refresh(ctx context.Context, userID string) ([]model.Order, error) {
	const op = "refresh orders"
	key := "orders/" + userID

	ctx, span := r.inst.tracer.Start(ctx, spanOrdersRefresh, trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	gen := r.flight.begin(key)
	defer r.flight.done(key, gen)
	orders, err := r.remote.ListOrders(ctx, userID)
	if err != nil {
		return nil, failOp(ctx, r.inst, r.log, span, op, err)
	}
	err = r.flight.commit(ctx, key, gen, func() error {
		return r.store.UpsertOrders(ctx, orders)
	})
	if err != nil {
		return nil, failOp(ctx, r.inst, r.log, span, op, err)
	}
	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	return orders, nil
}

// ForUser returns the user's cached orders, newest first.
func (r *OrderRepository) ForUser(ctx context.Context, userID string) ([]model.Order, error) {
	return r.store.OrdersForUser(ctx, userID)
}

// Order returns a cached order, or (nil, nil).
func (r *OrderRepository) Order(ctx context.Context, id string) (*model.Order, error) {
	return r.store.GetOrder(ctx, id)
}
