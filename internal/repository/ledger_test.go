package repository

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/campusmarket/campusmarket/internal/model"
)

func auctionItem(id string, startingBid float64) model.Item {
	it := testItem(id, 1)
	it.Type = model.ItemTypeAuction
	it.Price = nil
	it.StartingBid = model.Float(startingBid)
	return it
}

func TestPlaceBid_NonPositiveNeverCallsRemote(t *testing.T) {
	st := openTestStore(t)
	remote := newMockRemote()
	ledger := NewBidLedger(remote, st, testLogger)
	ctx := context.Background()

	for _, amount := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		bid, err := ledger.PlaceBid(ctx, "item-1", "u1", amount)
		if bid != nil {
			t.Errorf("amount %v: bid = %+v, want nil", amount, bid)
		}
		if !model.IsKind(err, model.KindValidation) {
			t.Errorf("amount %v: kind = %v, want validation", amount, model.KindOf(err))
		}
	}
	if _, err := ledger.PlaceBid(ctx, "", "u1", 10); !model.IsKind(err, model.KindValidation) {
		t.Errorf("empty item: kind = %v, want validation", model.KindOf(err))
	}
	if _, _, bids := remote.calls(); bids != 0 {
		t.Errorf("remote PlaceBid called %d times, want 0", bids)
	}
	if got, _ := ledger.BidsForItem(ctx, "item-1"); len(got) != 0 {
		t.Errorf("bids = %v, want none", got)
	}
}

func TestPlaceBid_RecordsConfirmedBid(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	_ = st.UpsertItem(ctx, ptr(auctionItem("item-1", 20)))

	remote := newMockRemote()
	remote.bid = &model.Bid{ID: "srv-bid", ItemID: "item-1", BidderID: "u1", Amount: 25, Timestamp: time.UnixMilli(99)}
	ledger := NewBidLedger(remote, st, testLogger)

	bid, err := ledger.PlaceBid(ctx, "item-1", "u1", 25)
	if err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}
	if bid.ID != "srv-bid" {
		t.Errorf("ID = %q, want server id", bid.ID)
	}

	top, _ := ledger.HighestBid(ctx, "item-1")
	if top == nil || top.ID != "srv-bid" {
		t.Errorf("HighestBid = %+v, want srv-bid", top)
	}
	item, _ := st.GetItem(ctx, "item-1")
	if item.CurrentBid == nil || *item.CurrentBid != 25 {
		t.Errorf("item CurrentBid = %v, want 25", item.CurrentBid)
	}
}

func TestPlaceBid_RejectedBidWritesNothing(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	remote := newMockRemote()
	remote.bidErr = model.ApplicationError("place bid", "Bid must be higher than current bid")
	ledger := NewBidLedger(remote, st, testLogger)

	_, err := ledger.PlaceBid(ctx, "item-1", "u1", 5)
	if !model.IsKind(err, model.KindApplication) {
		t.Fatalf("kind = %v, want application", model.KindOf(err))
	}
	if err.Error() != "Bid must be higher than current bid" {
		t.Errorf("message = %q", err.Error())
	}
	if got, _ := ledger.BidsForItem(ctx, "item-1"); len(got) != 0 {
		t.Errorf("bids = %v, want none", got)
	}
}

func TestPlaceBid_CancelledInFlightIsNotRecorded(t *testing.T) {
	st := openTestStore(t)
	remote := newMockRemote()
	remote.bidGate = make(chan struct{})
	ledger := NewBidLedger(remote, st, testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := ledger.PlaceBid(ctx, "item-1", "u1", 30)
		done <- err
	}()
	waitFor(t, func() bool { _, _, bids := remote.calls(); return bids == 1 })
	cancel()
	close(remote.bidGate)

	err := <-done
	if !model.IsKind(err, model.KindSuperseded) {
		t.Errorf("kind = %v, want superseded", model.KindOf(err))
	}
	if got, _ := ledger.BidsForItem(context.Background(), "item-1"); len(got) != 0 {
		t.Errorf("bids = %v, want none", got)
	}
}

func TestBidsForItem_LeaderboardOrder(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	for _, b := range []model.Bid{
		{ID: "b1", ItemID: "x", BidderID: "u1", Amount: 50, Timestamp: time.UnixMilli(10)},
		{ID: "b2", ItemID: "x", BidderID: "u2", Amount: 50, Timestamp: time.UnixMilli(5)},
		{ID: "b3", ItemID: "x", BidderID: "u3", Amount: 40, Timestamp: time.UnixMilli(1)},
	} {
		if err := st.InsertBid(ctx, &b); err != nil {
			t.Fatalf("InsertBid: %v", err)
		}
	}
	ledger := NewBidLedger(newMockRemote(), st, testLogger)

	top, _ := ledger.HighestBid(ctx, "x")
	if top == nil || top.ID != "b2" {
		t.Errorf("HighestBid = %+v, want b2", top)
	}
	none, err := ledger.HighestBid(ctx, "no-bids")
	if err != nil || none != nil {
		t.Errorf("HighestBid(no-bids) = %+v, %v; want nil, nil", none, err)
	}
}

func ptr[T any](v T) *T { return &v }
