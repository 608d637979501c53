package view

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/campusmarket/campusmarket/internal/marketplace"
	"github.com/campusmarket/campusmarket/internal/model"
	"github.com/campusmarket/campusmarket/internal/store"
)

// ItemNotFound is the error message of an item detail whose item is not
// cached.
const ItemNotFound = "Item not found"

// ItemSource is the item repository as the screens use it. Implemented by
// [repository.ItemRepository].
type ItemSource interface {
	Directory
	Refresh(ctx context.Context, f marketplace.ItemFilter) ([]model.Item, error)
	CreateItem(ctx context.Context, sellerID string, draft model.NewItem) (*model.Item, error)
	Active(ctx context.Context) ([]model.Item, error)
	Search(ctx context.Context, query string) ([]model.Item, error)
	ByCategory(ctx context.Context, categoryID int64) ([]model.Item, error)
	BySeller(ctx context.Context, sellerID string) ([]model.Item, error)
	WatchItem(ctx context.Context, id string) *store.Live[*model.Item]
}

// BidSource is the bid ledger as the screens use it. Implemented by
// [repository.BidLedger].
type BidSource interface {
	PlaceBid(ctx context.Context, itemID, bidderID string, amount float64) (*model.Bid, error)
	WatchBids(ctx context.Context, itemID string) *store.Live[[]model.Bid]
}

// NotificationSource is the notification repository as the screens use it.
// Implemented by [repository.NotificationRepository].
type NotificationSource interface {
	Refresh(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error)
	ForUser(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error)
}

// Projector turns repository calls into streams of [State] for each screen.
//
// One-shot projections (Featured, Search, CreateItem, ...) emit Loading and
// then exactly one terminal state, and close their channel. Live projections
// (ItemDetail, Bids) follow the store until ctx is cancelled. One-shot work
// runs on a worker pool of fixed size; callers beyond it wait.
type Projector struct {
	items  ItemSource
	bids   BidSource
	notes  NotificationSource
	mapper *Mapper
	pool   *semaphore.Weighted
	log    *slog.Logger
}

// NewProjector creates a Projector with the given number of workers.
func NewProjector(items ItemSource, bids BidSource, notes NotificationSource, workers int, logger *slog.Logger) *Projector {
	if workers < 1 {
		workers = 1
	}
	return &Projector{
		items:  items,
		bids:   bids,
		notes:  notes,
		mapper: NewMapper(items, logger),
		pool:   semaphore.NewWeighted(int64(workers)),
		log:    logger,
	}
}

// Featured lists active items, newest first.
func (p *Projector) Featured(ctx context.Context) <-chan State[[]ItemView] {
	return p.itemList(ctx, marketplace.ItemFilter{}, p.items.Active)
}

// Search lists items matching query. A blank query shows Featured.
func (p *Projector) Search(ctx context.Context, query string) <-chan State[[]ItemView] {
	query = strings.TrimSpace(query)
	if query == "" {
		return p.Featured(ctx)
	}
	return p.itemList(ctx, marketplace.ItemFilter{Search: query}, func(ctx context.Context) ([]model.Item, error) {
		return p.items.Search(ctx, query)
	})
}

// ByCategory lists active items in one category.
func (p *Projector) ByCategory(ctx context.Context, categoryID int64) <-chan State[[]ItemView] {
	return p.itemList(ctx, marketplace.ItemFilter{CategoryID: &categoryID}, func(ctx context.Context) ([]model.Item, error) {
		return p.items.ByCategory(ctx, categoryID)
	})
}

// UserListings lists one seller's items.
func (p *Projector) UserListings(ctx context.Context, sellerID string) <-chan State[[]ItemView] {
	return p.itemList(ctx, marketplace.ItemFilter{SellerID: sellerID}, func(ctx context.Context) ([]model.Item, error) {
		return p.items.BySeller(ctx, sellerID)
	})
}

func (p *Projector) itemList(ctx context.Context, f marketplace.ItemFilter, cached func(context.Context) ([]model.Item, error)) <-chan State[[]ItemView] {
	return oneShot(ctx, p, func(emit func(State[[]ItemView])) {
		RefreshThenFallback(ctx,
			func(ctx context.Context) ([]model.Item, error) { return p.items.Refresh(ctx, f) },
			cached,
			func(items []model.Item) []ItemView {
				views := p.mapper.Items(ctx, items)
				SortNewestFirst(views)
				return views
			},
			emit,
		)
	})
}

// CreateItem submits a listing. Success carries the listing as the server
// stored it.
func (p *Projector) CreateItem(ctx context.Context, sellerID string, draft model.NewItem) <-chan State[ItemView] {
	return oneShot(ctx, p, func(emit func(State[ItemView])) {
		emit(Loading[ItemView]())
		item, err := p.items.CreateItem(ctx, sellerID, draft)
		if err != nil {
			if !model.IsKind(err, model.KindSuperseded) {
				emit(Failure[ItemView](err.Error()))
			}
			return
		}
		emit(Success(p.mapper.Item(ctx, *item)))
	})
}

// PlaceBid submits a bid. Success carries the confirmed bid.
func (p *Projector) PlaceBid(ctx context.Context, itemID, bidderID string, amount float64) <-chan State[BidView] {
	return oneShot(ctx, p, func(emit func(State[BidView])) {
		emit(Loading[BidView]())
		bid, err := p.bids.PlaceBid(ctx, itemID, bidderID, amount)
		if err != nil {
			if !model.IsKind(err, model.KindSuperseded) {
				emit(Failure[BidView](err.Error()))
			}
			return
		}
		emit(Success(MapBids([]model.Bid{*bid})[0]))
	})
}

// Notifications lists a user's notifications, newest first.
func (p *Projector) Notifications(ctx context.Context, userID string, unreadOnly bool) <-chan State[[]NotificationView] {
	return oneShot(ctx, p, func(emit func(State[[]NotificationView])) {
		RefreshThenFallback(ctx,
			func(ctx context.Context) ([]model.Notification, error) { return p.notes.Refresh(ctx, userID, unreadOnly) },
			func(ctx context.Context) ([]model.Notification, error) { return p.notes.ForUser(ctx, userID, unreadOnly) },
			MapNotifications,
			emit,
		)
	})
}

// ItemDetail follows one cached item. It emits Error(ItemNotFound) while the
// item is absent and Success whenever it changes.
func (p *Projector) ItemDetail(ctx context.Context, itemID string) <-chan State[ItemView] {
	live := p.items.WatchItem(ctx, itemID)
	return follow(ctx, live, func(it *model.Item) State[ItemView] {
		if it == nil {
			return Failure[ItemView](ItemNotFound)
		}
		return Success(p.mapper.Item(ctx, *it))
	})
}

// Bids follows an item's leaderboard.
func (p *Projector) Bids(ctx context.Context, itemID string) <-chan State[[]BidView] {
	live := p.bids.WatchBids(ctx, itemID)
	return follow(ctx, live, func(bids []model.Bid) State[[]BidView] {
		return Success(MapBids(bids))
	})
}

// --- helpers -----------------------------------------------------------------

// oneShot runs body on the worker pool and returns its states. The channel
// is buffered for Loading plus one terminal state so body never blocks on a
// reader that went away.
func oneShot[V any](ctx context.Context, p *Projector, body func(emit func(State[V]))) <-chan State[V] {
	out := make(chan State[V], 2)
	go func() {
		defer close(out)
		if err := p.pool.Acquire(ctx, 1); err != nil {
			return
		}
		defer p.pool.Release(1)

		body(func(s State[V]) {
			select {
			case out <- s:
			case <-ctx.Done():
			}
		})
	}()
	return out
}

// follow maps every live result through fn until ctx is cancelled.
func follow[T, V any](ctx context.Context, live *store.Live[T], fn func(T) State[V]) <-chan State[V] {
	out := make(chan State[V])
	go func() {
		defer close(out)
		defer live.Close()

		select {
		case out <- Loading[V]():
		case <-ctx.Done():
			return
		}
		for v := range live.Updates() {
			select {
			case out <- fn(v):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
