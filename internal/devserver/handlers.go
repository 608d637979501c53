package devserver

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/campusmarket/campusmarket/internal/marketplace"
	"github.com/campusmarket/campusmarket/internal/model"
)

const maxRequestBytes = 1 << 20

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, http.StatusOK, marketplace.Health{Status: "ok"})
}

// listItems serves GET /api/items?category=&search=&sellerId=.
func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category, search, seller := q.Get("category"), strings.ToLower(q.Get("search")), q.Get("sellerId")

	s.mu.Lock()
	out := make([]marketplace.ItemDTO, 0, len(s.items))
	for _, it := range s.items {
		if category != "" && (it.CategoryID == nil || *it.CategoryID != category) {
			continue
		}
		if seller != "" && it.SellerID != seller {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(it.Title), search) &&
			!strings.Contains(strings.ToLower(it.Description), search) {
			continue
		}
		out = append(out, *it)
	}
	s.mu.Unlock()

	sortItemsNewestFirst(out)
	writeOK(w, http.StatusOK, out)
}

// createItem serves POST /api/items?sellerId=. New listings go live
// immediately.
func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	sellerID := r.URL.Query().Get("sellerId")
	if sellerID == "" {
		writeFail(w, http.StatusBadRequest, "sellerId is required")
		return
	}

	var req marketplace.CreateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := checkCreateItem(&req); msg != "" {
		writeFail(w, http.StatusBadRequest, msg)
		return
	}

	s.mu.Lock()
	dto := marketplace.ItemDTO{
		ID:             s.newID(),
		SellerID:       sellerID,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Price:          req.Price,
		StartingBid:    req.StartingBid,
		Condition:      req.Condition,
		ItemType:       req.ItemType,
		Status:         model.StatusActive.String(),
		Images:         req.Images,
		CategoryID:     req.CategoryID,
		AuctionEndTime: req.AuctionEndTime,
		PickupLocation: req.PickupLocation,
		CreatedAt:      s.now().UnixMilli(),
	}
	if dto.Images == nil {
		dto.Images = []string{}
	}
	if dto.PickupLocation == "" {
		dto.PickupLocation = model.DefaultPickupLocation
	}
	s.items[dto.ID] = &dto
	s.mu.Unlock()

	s.log.Info("item created", "item_id", dto.ID, "seller_id", sellerID)
	writeOK(w, http.StatusCreated, dto)
}

// placeBid serves POST /api/items/{itemId}/bids?bidderId=.
func (s *Server) placeBid(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")
	bidderID := r.URL.Query().Get("bidderId")
	if bidderID == "" {
		writeFail(w, http.StatusBadRequest, "bidderId is required")
		return
	}

	var req marketplace.PlaceBidRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[itemID]
	if !ok {
		writeFail(w, http.StatusNotFound, "Item not found")
		return
	}
	if status, msg := s.checkBid(it, bidderID, req.Amount); msg != "" {
		writeFail(w, status, msg)
		return
	}

	bid := marketplace.BidDTO{
		ID:        s.newID(),
		ItemID:    itemID,
		BidderID:  bidderID,
		Amount:    req.Amount,
		Timestamp: s.now().UnixMilli(),
	}
	if prev, ok := s.leader(itemID); ok && prev.BidderID != bidderID {
		s.notifyOutbid(prev, it)
	}
	s.bids[itemID] = append(s.bids[itemID], bid)
	amount := req.Amount
	it.CurrentBid = &amount

	s.log.Info("bid accepted", "item_id", itemID, "bidder_id", bidderID, "amount", req.Amount)
	writeOK(w, http.StatusCreated, bid)
}

// checkBid applies the bidding rules. Callers hold s.mu.
func (s *Server) checkBid(it *marketplace.ItemDTO, bidderID string, amount float64) (int, string) {
	switch {
	case it.ItemType != model.ItemTypeAuction.String():
		return http.StatusBadRequest, "Item is not an auction"
	case it.Status != model.StatusActive.String():
		return http.StatusConflict, "Auction is not active"
	case it.AuctionEndTime != nil && s.now().UnixMilli() >= *it.AuctionEndTime:
		return http.StatusConflict, "Auction has ended"
	case it.SellerID == bidderID:
		return http.StatusForbidden, "You cannot bid on your own item"
	case !model.PositiveAmount(amount):
		return http.StatusBadRequest, "Bid amount must be greater than zero"
	}

	floor := it.CurrentBid
	if floor == nil {
		floor = it.StartingBid
	}
	if floor != nil && amount <= *floor {
		return http.StatusBadRequest, "Bid must be higher than " + formatAmount(*floor)
	}
	return 0, ""
}

// leader returns the item's highest bid. Callers hold s.mu.
func (s *Server) leader(itemID string) (marketplace.BidDTO, bool) {
	var best marketplace.BidDTO
	found := false
	for _, b := range s.bids[itemID] {
		if !found || b.Amount > best.Amount || (b.Amount == best.Amount && b.Timestamp < best.Timestamp) {
			best, found = b, true
		}
	}
	return best, found
}

// notifyOutbid tells the previous leader. Callers hold s.mu.
func (s *Server) notifyOutbid(prev marketplace.BidDTO, it *marketplace.ItemDTO) {
	n := marketplace.NotificationDTO{
		ID:        s.newID(),
		UserID:    prev.BidderID,
		Title:     "You have been outbid",
		Message:   fmt.Sprintf("Someone placed a higher bid on %q.", it.Title),
		Type:      model.NotificationBid.String(),
		Timestamp: s.now().UnixMilli(),
		ItemID:    it.ID,
	}
	s.notifications[n.ID] = &n
}

// listNotifications serves GET /api/users/{userId}/notifications?unreadOnly=.
func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unreadOnly"))

	s.mu.Lock()
	out := make([]marketplace.NotificationDTO, 0)
	for _, n := range s.notifications {
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, *n)
	}
	s.mu.Unlock()

	sortByTimestampDesc(out)
	writeOK(w, http.StatusOK, out)
}

func (s *Server) setRead(read bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		s.mu.Lock()
		n, ok := s.notifications[id]
		if ok {
			n.IsRead = read
		}
		s.mu.Unlock()

		if !ok {
			writeFail(w, http.StatusNotFound, "Notification not found")
			return
		}
		writeOK(w, http.StatusOK, struct{}{})
	}
}

// listOrders serves GET /api/users/{userId}/orders. A user sees orders as
// buyer and as seller.
func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	s.mu.Lock()
	out := make([]marketplace.OrderDTO, 0)
	for _, o := range s.orders {
		if o.BuyerID == userID || o.SellerID == userID {
			out = append(out, o)
		}
	}
	s.mu.Unlock()

	writeOK(w, http.StatusOK, out)
}

// --- middleware --------------------------------------------------------------

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			writeFail(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var f *failure
		if len(s.failures) > 0 {
			f = &s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()

		if f != nil {
			writeFail(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Request-ID"); id != "" {
			w.Header().Set("X-Request-ID", id)
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"duration", time.Since(start), "request_id", r.Header.Get("X-Request-ID"))
	})
}

// --- helpers -----------------------------------------------------------------

func checkCreateItem(req *marketplace.CreateItemRequest) string {
	if strings.TrimSpace(req.Title) == "" {
		return "Title is required"
	}
	if _, err := model.ParseCondition(req.Condition); err != nil {
		return "Invalid condition"
	}
	typ, err := model.ParseItemType(req.ItemType)
	if err != nil {
		return "Invalid item type"
	}
	if typ == model.ItemTypeFixedPrice && req.Price == nil {
		return "Price is required for fixed-price items"
	}
	if typ == model.ItemTypeAuction && req.StartingBid == nil {
		return "Starting bid is required for auctions"
	}
	if (req.Price != nil && !model.PositiveAmount(*req.Price)) ||
		(req.StartingBid != nil && !model.PositiveAmount(*req.StartingBid)) {
		return "Amounts must be greater than zero"
	}
	return ""
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(v); err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func writeOK[T any](w http.ResponseWriter, status int, data T) {
	writeJSON(w, status, marketplace.Envelope[T]{Success: true, Data: &data})
}

func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, marketplace.Envelope[struct{}]{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sortByTimestampDesc(ns []marketplace.NotificationDTO) {
	slices.SortFunc(ns, func(a, b marketplace.NotificationDTO) int {
		if c := cmp.Compare(b.Timestamp, a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func formatAmount(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
