// Package repository keeps the local store in step with the marketplace.
//
// Each repository pairs a remote (the marketplace API) with the local store:
//
//   - [ItemRepository] refreshes and creates listings.
//   - [BidLedger] places bids and serves the per-item leaderboard.
//   - [OrderRepository] and [NotificationRepository] mirror a user's orders
//     and notifications.
//
// Remote writes are pessimistic: the store only ever holds data the server
// confirmed. Reads are served from the store and never touch the network.
// [Engine] runs periodic refreshes in daemon mode and [Bootstrap] fills an
// empty store on first start.
package repository

import (
	"context"

	"github.com/campusmarket/campusmarket/internal/marketplace"
	"github.com/campusmarket/campusmarket/internal/model"
	"github.com/campusmarket/campusmarket/internal/store"
)

// ItemRemote lists and creates listings. Implemented by [marketplace.Client].
type ItemRemote interface {
	ListItems(ctx context.Context, f marketplace.ItemFilter) ([]model.Item, error)
	CreateItem(ctx context.Context, sellerID string, draft *model.NewItem) (*model.Item, error)
}

// BidRemote places bids. Implemented by [marketplace.Client].
type BidRemote interface {
	PlaceBid(ctx context.Context, bidderID, itemID string, amount float64) (*model.Bid, error)
}

// OrderRemote lists orders. Implemented by [marketplace.Client].
type OrderRemote interface {
	ListOrders(ctx context.Context, userID string) ([]model.Order, error)
}

// NotificationRemote lists notifications and toggles their read flag.
// Implemented by [marketplace.Client].
type NotificationRemote interface {
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error)
	SetNotificationRead(ctx context.Context, id string, read bool) error
}

// ItemStore is the item side of the local store. Implemented by [store.Store].
type ItemStore interface {
	UpsertItem(ctx context.Context, item *model.Item) error
	UpsertItems(ctx context.Context, items []model.Item) error
	ReplaceItems(ctx context.Context, items []model.Item) error
	CountItems(ctx context.Context) (int, error)
	GetItem(ctx context.Context, id string) (*model.Item, error)
	ItemsByStatus(ctx context.Context, status model.Status) ([]model.Item, error)
	ItemsByCategory(ctx context.Context, categoryID int64) ([]model.Item, error)
	SearchItems(ctx context.Context, query string) ([]model.Item, error)
	ItemsByType(ctx context.Context, t model.ItemType) ([]model.Item, error)
	ItemsBySeller(ctx context.Context, sellerID string) ([]model.Item, error)
	Categories(ctx context.Context) ([]model.Category, error)
	GetUser(ctx context.Context, id string) (*model.User, error)

	WatchItem(ctx context.Context, id string) *store.Live[*model.Item]
	WatchItemsByStatus(ctx context.Context, status model.Status) *store.Live[[]model.Item]
	WatchItemsByCategory(ctx context.Context, categoryID int64) *store.Live[[]model.Item]
	WatchSearch(ctx context.Context, query string) *store.Live[[]model.Item]
	WatchCategories(ctx context.Context) *store.Live[[]model.Category]
}

// BidStore is the bid side of the local store. Implemented by [store.Store].
type BidStore interface {
	InsertBid(ctx context.Context, bid *model.Bid) error
	BidsForItem(ctx context.Context, itemID string) ([]model.Bid, error)
	HighestBid(ctx context.Context, itemID string) (*model.Bid, error)
	WatchBids(ctx context.Context, itemID string) *store.Live[[]model.Bid]
}

// OrderStore is the order side of the local store. Implemented by [store.Store].
type OrderStore interface {
	UpsertOrders(ctx context.Context, orders []model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	OrdersForUser(ctx context.Context, userID string) ([]model.Order, error)
}

// NotificationStore is the notification side of the local store.
// Implemented by [store.Store].
type NotificationStore interface {
	UpsertNotifications(ctx context.Context, ns []model.Notification) error
	NotificationsForUser(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error)
	SetNotificationRead(ctx context.Context, id string, read bool) error
	UnreadCount(ctx context.Context, userID string) (int, error)
	WatchNotifications(ctx context.Context, userID string, unreadOnly bool) *store.Live[[]model.Notification]
}
