package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/campusmarket/campusmarket/internal/model"
)

const orderColumns = `id, item_id, buyer_id, seller_id, total_amount, status, created_at, pickup_location`

// UpsertOrders upserts orders in one transaction.
func (s *Store) UpsertOrders(ctx context.Context, orders []model.Order) error {
	const q = `
		INSERT INTO orders (` + orderColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    item_id         = excluded.item_id,
		    buyer_id        = excluded.buyer_id,
		    seller_id       = excluded.seller_id,
		    total_amount    = excluded.total_amount,
		    status          = excluded.status,
		    created_at      = excluded.created_at,
		    pickup_location = excluded.pickup_location`

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, o := range orders {
			pickup := o.PickupLocation
			if pickup == "" {
				pickup = model.DefaultPickupLocation
			}
			_, err := tx.ExecContext(ctx, q,
				o.ID, o.ItemID, o.BuyerID, o.SellerID, o.TotalAmount,
				o.Status.String(), o.CreatedAt.UnixMilli(), pickup)
			if err != nil {
				return fmt.Errorf("upserting order %q: %w", o.ID, err)
			}
		}
		return nil
	}, TableOrders)
}

// GetOrder returns the order with the given ID, or (nil, nil).
func (s *Store) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // intentional: "not found" sentinel
	}
	return o, err
}

// OrdersForUser returns orders where userID is buyer or seller, newest first.
func (s *Store) OrdersForUser(ctx context.Context, userID string) ([]model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE buyer_id = ? OR seller_id = ? ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying orders for %q: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func scanOrder(s scanner) (*model.Order, error) {
	var o model.Order
	var status string
	var created int64
	err := s.Scan(&o.ID, &o.ItemID, &o.BuyerID, &o.SellerID, &o.TotalAmount, &status, &created, &o.PickupLocation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning order row: %w", err)
	}
	if o.Status, err = model.ParseOrderStatus(status); err != nil {
		return nil, fmt.Errorf("scanning order %q: %w", o.ID, err)
	}
	o.CreatedAt = time.UnixMilli(created)
	return &o, nil
}
