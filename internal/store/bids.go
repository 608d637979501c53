package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/campusmarket/campusmarket/internal/model"
)

// bidOrder is the leaderboard ordering; it must agree with model.RankBids.
const bidOrder = `ORDER BY amount DESC, timestamp ASC, id ASC`

// InsertBid records a confirmed bid. In the same transaction it raises the
// cached item's current bid when the new amount exceeds it, so the listing
// and its ledger never disagree for a reader.
func (s *Store) InsertBid(ctx context.Context, bid *model.Bid) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		const ins = `
			INSERT INTO bids (id, item_id, bidder_id, amount, timestamp)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
			    item_id   = excluded.item_id,
			    bidder_id = excluded.bidder_id,
			    amount    = excluded.amount,
			    timestamp = excluded.timestamp`
		if _, err := tx.ExecContext(ctx, ins, bid.ID, bid.ItemID, bid.BidderID, bid.Amount, bid.Timestamp.UnixMilli()); err != nil {
			return fmt.Errorf("inserting bid %q: %w", bid.ID, err)
		}

		const raise = `
			UPDATE items SET current_bid = ?
			WHERE id = ? AND (current_bid IS NULL OR current_bid < ?)`
		if _, err := tx.ExecContext(ctx, raise, bid.Amount, bid.ItemID, bid.Amount); err != nil {
			return fmt.Errorf("raising current bid on item %q: %w", bid.ItemID, err)
		}
		return nil
	}, TableBids, TableItems)
}

// BidsForItem returns the item's bids in leaderboard order.
func (s *Store) BidsForItem(ctx context.Context, itemID string) ([]model.Bid, error) {
	const q = `SELECT id, item_id, bidder_id, amount, timestamp FROM bids WHERE item_id = ? ` + bidOrder
	rows, err := s.db.QueryContext(ctx, q, itemID)
	if err != nil {
		return nil, fmt.Errorf("querying bids for item %q: %w", itemID, err)
	}
	defer func() { _ = rows.Close() }()

	bids := []model.Bid{}
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, *b)
	}
	return bids, rows.Err()
}

// HighestBid returns the top-ranked bid for the item, or (nil, nil) if the
// item has no bids.
func (s *Store) HighestBid(ctx context.Context, itemID string) (*model.Bid, error) {
	const q = `SELECT id, item_id, bidder_id, amount, timestamp FROM bids WHERE item_id = ? ` + bidOrder + ` LIMIT 1`
	b, err := scanBid(s.db.QueryRowContext(ctx, q, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // intentional: "not found" sentinel
	}
	return b, err
}

func scanBid(s scanner) (*model.Bid, error) {
	var b model.Bid
	var ts int64
	if err := s.Scan(&b.ID, &b.ItemID, &b.BidderID, &b.Amount, &ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning bid row: %w", err)
	}
	b.Timestamp = time.UnixMilli(ts)
	return &b, nil
}
