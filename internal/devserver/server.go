// Package devserver is an in-memory marketplace API for local development
// and tests. It speaks the same JSON envelope contract as the production
// service and enforces the bidding rules the client relies on the server
// for: bids must beat the current price, and only auctions take bids.
package devserver

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/oklog/ulid/v2"

	"github.com/campusmarket/campusmarket/internal/marketplace"
	"github.com/campusmarket/campusmarket/internal/model"
)

// Server holds the marketplace state. It is safe for concurrent use.
type Server struct {
	token string
	log   *slog.Logger
	now   func() time.Time

	mu            sync.Mutex
	entropy       io.Reader
	items         map[string]*marketplace.ItemDTO
	bids          map[string][]marketplace.BidDTO
	notifications map[string]*marketplace.NotificationDTO
	orders        []marketplace.OrderDTO
	failures      []failure
}

type failure struct {
	status  int
	message string
}

// Option configures a Server.
type Option func(*Server)

// WithToken requires "Authorization: Bearer <token>" on every API call
// except the health check.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithClock replaces time.Now. Tests use it to pin timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates an empty Server.
func New(logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		log:           logger,
		now:           time.Now,
		entropy:       ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0), //nolint:gosec // ids, not secrets
		items:         make(map[string]*marketplace.ItemDTO),
		bids:          make(map[string][]marketplace.BidDTO),
		notifications: make(map[string]*marketplace.NotificationDTO),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the HTTP API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)

		r.Group(func(r chi.Router) {
			r.Use(s.auth)
			r.Use(s.injectFailure)

			r.Get("/items", s.listItems)
			r.Post("/items", s.createItem)
			r.Post("/items/{itemId}/bids", s.placeBid)
			r.Get("/users/{userId}/notifications", s.listNotifications)
			r.Get("/users/{userId}/orders", s.listOrders)
			r.Put("/notifications/{id}/read", s.setRead(true))
			r.Put("/notifications/{id}/unread", s.setRead(false))
		})
	})
	return r
}

// ListenAndServe serves the API on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("dev server listening", "addr", addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("serving %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving %s: %w", addr, err)
	}
	return nil
}

// FailNext makes the next API call (health checks excluded) answer with
// status and a success=false envelope carrying message. Calls queue up.
func (s *Server) FailNext(status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{status: status, message: message})
}

// --- seeding -----------------------------------------------------------------

// SeedItems adds or replaces items. Items without an ID get one.
func (s *Server) SeedItems(items ...model.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = s.newID()
		}
		dto := marketplace.ItemToDTO(&items[i])
		s.items[dto.ID] = &dto
	}
}

// SeedNotifications adds or replaces notifications.
func (s *Server) SeedNotifications(ns ...model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range ns {
		dto := marketplace.NotificationToDTO(&ns[i])
		s.notifications[dto.ID] = &dto
	}
}

// SeedOrders appends orders.
func (s *Server) SeedOrders(orders ...model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range orders {
		s.orders = append(s.orders, marketplace.OrderToDTO(&orders[i]))
	}
}

// SeedDemo fills the server with a few listings in the default categories.
func (s *Server) SeedDemo() {
	now := s.now()
	end := now.Add(72 * time.Hour)
	s.SeedItems(
		model.Item{
			SellerID: "demo-seller", Title: "TI-84 Plus calculator", Description: "Works perfectly, new batteries",
			Price: model.Float(4500), Condition: model.ConditionGood, Type: model.ItemTypeFixedPrice,
			Status: model.StatusActive, CategoryID: model.Int64(1), CreatedAt: now.Add(-3 * time.Hour),
		},
		model.Item{
			SellerID: "demo-seller", Title: "Intro to Algorithms, 3rd ed.", Description: "Some highlighting",
			Price: model.Float(2500), Condition: model.ConditionFair, Type: model.ItemTypeFixedPrice,
			Status: model.StatusActive, CategoryID: model.Int64(2), CreatedAt: now.Add(-2 * time.Hour),
		},
		model.Item{
			SellerID: "demo-seller", Title: "Noise-cancelling headphones", Description: "Barely used",
			StartingBid: model.Float(3000), Condition: model.ConditionLikeNew, Type: model.ItemTypeAuction,
			Status: model.StatusActive, CategoryID: model.Int64(1), AuctionEndTime: &end, CreatedAt: now.Add(-time.Hour),
		},
	)
}

// --- helpers -----------------------------------------------------------------

// newID returns a fresh ULID. Callers hold s.mu.
func (s *Server) newID() string {
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

func sortItemsNewestFirst(items []marketplace.ItemDTO) {
	slices.SortFunc(items, func(a, b marketplace.ItemDTO) int {
		if c := cmp.Compare(b.CreatedAt, a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
