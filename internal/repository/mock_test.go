package repository

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
	"github.com/campusmarket/campusmarket/internal/store"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "market.db"), testLogger)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testItem(id string, createdMillis int64) model.Item {
	return model.Item{
		ID:         id,
		SellerID:   "seller-1",
		Title:      "Item " + id,
		Price:      model.Float(100),
		Condition:  model.ConditionGood,
		Type:       model.ItemTypeFixedPrice,
		Status:     model.StatusActive,
		Images:     []string{},
		CategoryID: model.Int64(1),
		CreatedAt:  time.UnixMilli(createdMillis),
	}
}

func itemIDs(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

// --- Mock marketplace --------------------------------------------------------

// mockRemote implements every remote interface. Responses are configured per
// call; gates let a test hold a call in flight.
type mockRemote struct {
	mu sync.Mutex

	items    []model.Item
	itemsErr error
	// itemGates holds ListItems calls for a filter key until the channel is
	// closed or receives.
	itemGates map[string]chan struct{}

	created   *model.Item
	createErr error

	bid      *model.Bid
	bidErr   error
	bidGate  chan struct{}
	bidCalls int

	orders    []model.Order
	ordersErr error

	notifications []model.Notification
	listNErr      error
	readErrs      map[string]error
	readCalls     []string

	listCalls   int
	createCalls int
}

func newMockRemote() *mockRemote {
	return &mockRemote{itemGates: make(map[string]chan struct{}), readErrs: make(map[string]error)}
}

func (m *mockRemote) ListItems(ctx context.Context, f marketplace.ItemFilter) ([]model.Item, error) {
	m.mu.Lock()
	m.listCalls++
	gate := m.itemGates[f.Key()]
	items, err := m.items, m.itemsErr
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, model.TransportError("load items", ctx.Err())
		}
	}
	if err != nil {
		return nil, err
	}
	return append([]model.Item(nil), items...), nil
}

func (m *mockRemote) CreateItem(_ context.Context, sellerID string, draft *model.NewItem) (*model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return nil, m.createErr
	}
	if m.created != nil {
		cp := *m.created
		return &cp, nil
	}
	return &model.Item{
		ID: fmt.Sprintf("srv-%d", m.createCalls), SellerID: sellerID, Title: draft.Title,
		Price: draft.Price, StartingBid: draft.StartingBid, Condition: draft.Condition,
		Type: draft.Type, Status: model.StatusPending, Images: draft.Images,
		CategoryID: draft.CategoryID, CreatedAt: time.UnixMilli(1),
	}, nil
}

func (m *mockRemote) PlaceBid(_ context.Context, bidderID, itemID string, amount float64) (*model.Bid, error) {
	m.mu.Lock()
	m.bidCalls++
	gate, bid, err := m.bidGate, m.bid, m.bidErr
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if bid != nil {
		cp := *bid
		return &cp, nil
	}
	return &model.Bid{ID: "b-" + bidderID, ItemID: itemID, BidderID: bidderID, Amount: amount, Timestamp: time.UnixMilli(10)}, nil
}

func (m *mockRemote) ListOrders(_ context.Context, _ string) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders, m.ordersErr
}

func (m *mockRemote) ListNotifications(_ context.Context, _ string, unreadOnly bool) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listNErr != nil {
		return nil, m.listNErr
	}
	var out []model.Notification
	for _, n := range m.notifications {
		if !unreadOnly || !n.Read {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockRemote) SetNotificationRead(_ context.Context, id string, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readCalls = append(m.readCalls, id)
	return m.readErrs[id]
}

func (m *mockRemote) setItems(items ...model.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
}

func (m *mockRemote) gate(f marketplace.ItemFilter) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan struct{})
	m.itemGates[f.Key()] = ch
	return ch
}

func (m *mockRemote) ungate(f marketplace.ItemFilter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.itemGates, f.Key())
}

func (m *mockRemote) calls() (list, create, bid int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls, m.createCalls, m.bidCalls
}

var errNetwork = model.TransportError("load items", fmt.Errorf("dial tcp: connection refused"))
