package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/campusmarket/campusmarket/internal/model"
	"github.com/campusmarket/campusmarket/internal/store"
)

// BidLedger records server-confirmed bids and serves each item's
// leaderboard, ordered by amount descending, then earliest bid first.
type BidLedger struct {
	remote BidRemote
	store  BidStore
	log    *slog.Logger
	inst   *instruments
}

// NewBidLedger creates a BidLedger.
func NewBidLedger(remote BidRemote, st BidStore, logger *slog.Logger) *BidLedger {
	return &BidLedger{remote: remote, store: st, log: logger, inst: newInstruments(logger)}
}

// BidsForItem returns the item's cached bids in leaderboard order.
func (l *BidLedger) BidsForItem(ctx context.Context, itemID string) ([]model.Bid, error) {
	return l.store.BidsForItem(ctx, itemID)
}

// WatchBids follows the item's leaderboard.
func (l *BidLedger) WatchBids(ctx context.Context, itemID string) *store.Live[[]model.Bid] {
	return l.store.WatchBids(ctx, itemID)
}

// HighestBid returns the item's top bid, or (nil, nil) when it has none.
func (l *BidLedger) HighestBid(ctx context.Context, itemID string) (*model.Bid, error) {
	return l.store.HighestBid(ctx, itemID)
}

// PlaceBid submits a bid and records it once the server confirms it.
// Non-positive amounts are rejected locally without a network call. Whether
// a bid is high enough is the server's decision.
//
// If ctx is cancelled while the request is in flight, the confirmed bid is
// not recorded and a KindSuperseded error is returned; the next item refresh
// brings the new current bid.
func (l *BidLedger) PlaceBid(ctx context.Context, itemID, bidderID string, amount float64) (*model.Bid, error) {
	const op = "place bid"

	switch {
	case strings.TrimSpace(itemID) == "":
		return nil, model.ValidationError(op, "item is required")
	case strings.TrimSpace(bidderID) == "":
		return nil, model.ValidationError(op, "bidder is required")
	case !model.PositiveAmount(amount):
		return nil, model.ValidationError(op, "Bid amount must be greater than zero")
	}

	ctx, span := l.inst.tracer.Start(ctx, spanBidsPlace, trace.WithAttributes(
		attribute.String("item.id", itemID),
		attribute.Float64("bid.amount", amount),
	))
	defer span.End()

	bid, err := l.remote.PlaceBid(ctx, bidderID, itemID, amount)
	if err != nil {
		return nil, failOp(ctx, l.inst, l.log, span, op, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, failOp(ctx, l.inst, l.log, span, op, err)
	}
	if err := l.store.InsertBid(ctx, bid); err != nil {
		return nil, failOp(ctx, l.inst, l.log, span, op, fmt.Errorf("recording bid %q: %w", bid.ID, err))
	}

	l.inst.cntBidsPlaced.Add(ctx, 1)
	span.SetAttributes(attribute.String("bid.id", bid.ID))
	l.log.Info("bid placed", "bid_id", bid.ID, "item_id", itemID, "amount", amount)
	return bid, nil
}
