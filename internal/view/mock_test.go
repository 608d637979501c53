package view

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/campusmarket/campusmarket/internal/marketplace"
	"github.com/campusmarket/campusmarket/internal/model"
	"github.com/campusmarket/campusmarket/internal/repository"
	"github.com/campusmarket/campusmarket/internal/store"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var errOffline = model.TransportError("load items", fmt.Errorf("dial tcp: connection refused"))

// fakeRemote stands in for the marketplace. A non-nil err fails every call.
type fakeRemote struct {
	mu            sync.Mutex
	items         []model.Item
	notifications []model.Notification
	err           error
	bidErr        error
}

func (f *fakeRemote) ListItems(_ context.Context, _ marketplace.ItemFilter) ([]model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]model.Item(nil), f.items...), nil
}

func (f *fakeRemote) CreateItem(_ context.Context, sellerID string, draft *model.NewItem) (*model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &model.Item{
		ID: "srv-1", SellerID: sellerID, Title: draft.Title, Price: draft.Price,
		StartingBid: draft.StartingBid, Condition: draft.Condition, Type: draft.Type,
		Status: model.StatusPending, Images: []string{}, CategoryID: draft.CategoryID,
		CreatedAt: time.UnixMilli(5),
	}, nil
}

func (f *fakeRemote) PlaceBid(_ context.Context, bidderID, itemID string, amount float64) (*model.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bidErr != nil {
		return nil, f.bidErr
	}
	return &model.Bid{ID: "bid-1", ItemID: itemID, BidderID: bidderID, Amount: amount, Timestamp: time.UnixMilli(9)}, nil
}

func (f *fakeRemote) ListNotifications(_ context.Context, _ string, _ bool) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]model.Notification(nil), f.notifications...), nil
}

func (f *fakeRemote) SetNotificationRead(context.Context, string, bool) error { return nil }

func (f *fakeRemote) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fixture struct {
	remote *fakeRemote
	store  *store.Store
	proj   *Projector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "market.db"), testLogger)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	remote := &fakeRemote{}
	proj := NewProjector(
		repository.NewItemRepository(remote, st, testLogger),
		repository.NewBidLedger(remote, st, testLogger),
		repository.NewNotificationRepository(remote, st, testLogger),
		2, testLogger,
	)
	return &fixture{remote: remote, store: st, proj: proj}
}

func item(id string, createdMillis int64) model.Item {
	return model.Item{
		ID:         id,
		SellerID:   "seller-1",
		Title:      "Item " + id,
		Price:      model.Float(50),
		Condition:  model.ConditionGood,
		Type:       model.ItemTypeFixedPrice,
		Status:     model.StatusActive,
		Images:     []string{},
		CategoryID: model.Int64(1),
		CreatedAt:  time.UnixMilli(createdMillis),
	}
}

// collect drains a one-shot projection.
func collect[T any](t *testing.T, ch <-chan State[T]) []State[T] {
	t.Helper()
	var out []State[T]
	timeout := time.After(5 * time.Second)
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, s)
		case <-timeout:
			t.Fatalf("projection did not finish; got %v", out)
			return nil
		}
	}
}

// nextState reads one state from a live projection.
func nextState[T any](t *testing.T, ch <-chan State[T]) State[T] {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			t.Fatal("projection closed")
		}
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for state")
	}
	return State[T]{}
}

func viewIDs(views []ItemView) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.ID
	}
	return out
}
