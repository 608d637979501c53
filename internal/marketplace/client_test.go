package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/campusmarket/campusmarket/internal/model"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// newTestClient starts a server running h and returns a client pointed at it.
func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClientWithHTTP(srv.URL, "tok", srv.Client(), testLogger)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClient_RejectsNonHTTPScheme(t *testing.T) {
	if _, err := NewClient("ftp://example.com", "", time.Second, testLogger); err == nil {
		t.Fatal("expected error for ftp scheme")
	}
	if _, err := NewClient("https://market.example", "", time.Second, testLogger); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListItems_SendsFilterAndHeaders(t *testing.T) {
	var gotQuery, gotAuth, gotReqID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		cat := "2"
		writeJSON(w, http.StatusOK, Envelope[[]ItemDTO]{Success: true, Data: &[]ItemDTO{{
			ID: "i1", SellerID: "s1", Title: "Calculus", Condition: "GOOD", ItemType: "FIXED_PRICE",
			Status: "ACTIVE", Price: model.Float(800), CategoryID: &cat, CreatedAt: 1000,
		}}})
	})

	items, err := c.ListItems(context.Background(), ItemFilter{CategoryID: model.Int64(2), Search: "calc"})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if gotQuery != "category=2&search=calc" {
		t.Errorf("query = %q, want %q", gotQuery, "category=2&search=calc")
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok")
	}
	if gotReqID == "" {
		t.Error("X-Request-ID header missing")
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	got := items[0]
	if got.CategoryID == nil || *got.CategoryID != 2 {
		t.Errorf("CategoryID = %v, want 2", got.CategoryID)
	}
	if got.PickupLocation != model.DefaultPickupLocation {
		t.Errorf("PickupLocation = %q, want default", got.PickupLocation)
	}
	if !got.CreatedAt.Equal(time.UnixMilli(1000)) {
		t.Errorf("CreatedAt = %v", got.CreatedAt)
	}
}

func TestListItems_NullDataIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	items, err := c.ListItems(context.Background(), ItemFilter{})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("items = %v, want empty non-nil slice", items)
	}
}

func TestCall_SuccessFalseIsApplicationError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, Envelope[BidDTO]{Success: false, Message: "Bid must be higher than current bid"})
	})
	_, err := c.PlaceBid(context.Background(), "u1", "i1", 10)
	if !model.IsKind(err, model.KindApplication) {
		t.Fatalf("kind = %v, want application (err=%v)", model.KindOf(err), err)
	}
	if err.Error() != "Bid must be higher than current bid" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestCall_SuccessFalseWithoutMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Envelope[ItemDTO]{Success: false})
	})
	_, err := c.CreateItem(context.Background(), "s1", &model.NewItem{Title: "x"})
	if err == nil || err.Error() != "failed to create item" {
		t.Errorf("err = %v, want %q", err, "failed to create item")
	}
}

func TestCall_NonJSONErrorIsTransport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})
	_, err := c.ListOrders(context.Background(), "u1")
	if !model.IsKind(err, model.KindTransport) {
		t.Fatalf("kind = %v, want transport (err=%v)", model.KindOf(err), err)
	}
	if !strings.Contains(err.Error(), "network error") {
		t.Errorf("message = %q, want generic network error", err.Error())
	}
}

func TestCall_UnknownEnumIsTransport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Envelope[[]ItemDTO]{Success: true, Data: &[]ItemDTO{{
			ID: "i1", Condition: "MINT", ItemType: "FIXED_PRICE", Status: "ACTIVE",
		}}})
	})
	_, err := c.ListItems(context.Background(), ItemFilter{})
	if !model.IsKind(err, model.KindTransport) {
		t.Errorf("kind = %v, want transport", model.KindOf(err))
	}
}

func TestCall_ConnectionRefusedIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClientWithHTTP(url, "", &http.Client{Timeout: time.Second}, testLogger)
	_, err := c.ListNotifications(context.Background(), "u1", false)
	if !model.IsKind(err, model.KindTransport) {
		t.Errorf("kind = %v, want transport", model.KindOf(err))
	}
}

func TestCall_TimeoutIsTransport(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClientWithHTTP(srv.URL, "", &http.Client{Timeout: 50 * time.Millisecond}, testLogger)
	_, err := c.ListItems(context.Background(), ItemFilter{})
	if !model.IsKind(err, model.KindTransport) {
		t.Errorf("kind = %v, want transport", model.KindOf(err))
	}
}

func TestCall_CancelledContextUnwraps(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Envelope[[]ItemDTO]{Success: true})
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ListItems(ctx, ItemFilter{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error chain does not contain context.Canceled: %v", err)
	}
}

func TestCreateItem_SendsDraft(t *testing.T) {
	var body CreateItemRequest
	var sellerID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/items" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		sellerID = r.URL.Query().Get("sellerId")
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusCreated, Envelope[ItemDTO]{Success: true, Data: &ItemDTO{
			ID: "srv-1", SellerID: sellerID, Title: body.Title, StartingBid: body.StartingBid,
			Condition: body.Condition, ItemType: body.ItemType, Status: "PENDING",
			CategoryID: body.CategoryID, AuctionEndTime: body.AuctionEndTime, CreatedAt: 5,
		}})
	})

	end := time.UnixMilli(2_000_000_000_000)
	draft := &model.NewItem{
		Title: "Bike", StartingBid: model.Float(500), Condition: model.ConditionFair,
		Type: model.ItemTypeAuction, CategoryID: model.Int64(1), AuctionEndTime: &end,
	}
	item, err := c.CreateItem(context.Background(), "seller-9", draft)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if sellerID != "seller-9" {
		t.Errorf("sellerId = %q, want seller-9", sellerID)
	}
	if body.CategoryID == nil || *body.CategoryID != "1" {
		t.Errorf("request categoryId = %v, want \"1\"", body.CategoryID)
	}
	if body.PickupLocation != model.DefaultPickupLocation {
		t.Errorf("request pickupLocation = %q, want default", body.PickupLocation)
	}
	if body.ItemType != "AUCTION" || body.Condition != "FAIR" {
		t.Errorf("request enums = %q/%q", body.ItemType, body.Condition)
	}
	if item.ID != "srv-1" || item.Status != model.StatusPending {
		t.Errorf("item = %+v", item)
	}
	if item.AuctionEndTime == nil || !item.AuctionEndTime.Equal(end) {
		t.Errorf("AuctionEndTime = %v, want %v", item.AuctionEndTime, end)
	}
}

func TestPlaceBid_Path(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/items/i%2F1/bids" && r.URL.EscapedPath() != "/api/items/i%2F1/bids" {
			t.Errorf("path = %q", r.URL.EscapedPath())
		}
		if got := r.URL.Query().Get("bidderId"); got != "u1" {
			t.Errorf("bidderId = %q", got)
		}
		var req PlaceBidRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusOK, Envelope[BidDTO]{Success: true, Data: &BidDTO{
			ID: "b1", ItemID: "i/1", BidderID: "u1", Amount: req.Amount, Timestamp: 77,
		}})
	})
	bid, err := c.PlaceBid(context.Background(), "u1", "i/1", 42.5)
	if err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}
	if bid.Amount != 42.5 || !bid.Timestamp.Equal(time.UnixMilli(77)) {
		t.Errorf("bid = %+v", bid)
	}
}

func TestSetNotificationRead_Paths(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		paths = append(paths, r.URL.Path)
		writeJSON(w, http.StatusOK, Envelope[struct{}]{Success: true})
	})
	ctx := context.Background()
	if err := c.SetNotificationRead(ctx, "n1", true); err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := c.SetNotificationRead(ctx, "n1", false); err != nil {
		t.Fatalf("unread: %v", err)
	}
	if len(paths) != 2 || paths[0] != "/api/notifications/n1/read" || paths[1] != "/api/notifications/n1/unread" {
		t.Errorf("paths = %v", paths)
	}
}

func TestListNotifications_Converts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("unreadOnly"); got != "true" {
			t.Errorf("unreadOnly = %q, want true", got)
		}
		writeJSON(w, http.StatusOK, Envelope[[]NotificationDTO]{Success: true, Data: &[]NotificationDTO{{
			ID: "n1", UserID: "u1", Title: "Outbid", Type: "BID", Timestamp: 9, ItemID: "i1",
		}}})
	})
	ns, err := c.ListNotifications(context.Background(), "u1", true)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(ns) != 1 || ns[0].Type != model.NotificationBid || ns[0].Read || ns[0].ItemID != "i1" {
		t.Errorf("notifications = %+v", ns)
	}
}

func TestPing_RetriesTransientFailure(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "starting", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, Envelope[Health]{Success: true, Data: &Health{Status: "ok"}})
	})
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestItemFilter_KeyAndIsFull(t *testing.T) {
	if !(ItemFilter{}).IsFull() {
		t.Error("zero filter should be full")
	}
	a := ItemFilter{CategoryID: model.Int64(3), Search: "lamp"}
	b := ItemFilter{CategoryID: model.Int64(3), Search: "lamp"}
	if a.IsFull() {
		t.Error("filtered request reported as full")
	}
	if a.Key() != b.Key() {
		t.Errorf("equal filters have different keys: %q vs %q", a.Key(), b.Key())
	}
	if a.Key() == (ItemFilter{Search: "lamp"}).Key() {
		t.Error("different filters share a key")
	}
}

func TestParseCategoryID(t *testing.T) {
	s := func(v string) *string { return &v }
	cases := map[string]struct {
		in   *string
		want *int64
	}{
		"nil":     {nil, nil},
		"empty":   {s(""), nil},
		"invalid": {s("books"), nil},
		"valid":   {s("12"), model.Int64(12)},
	}
	for name, tc := range cases {
		got := parseCategoryID(tc.in)
		if (got == nil) != (tc.want == nil) || (got != nil && *got != *tc.want) {
			t.Errorf("%s: parseCategoryID = %v, want %v", name, got, tc.want)
		}
	}
}
