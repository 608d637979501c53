package store

import (
	"context"
	"sync"

	"github.com/campusmarket/campusmarket/internal/model"
)

// notifier fans out "table changed" signals to live queries. Each subscriber
// owns a one-slot channel, so bursts of writes coalesce into one pending
// re-evaluation.
type notifier struct {
	mu   sync.Mutex
	subs map[Table]map[int]chan struct{}
	next int
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[Table]map[int]chan struct{})}
}

func (n *notifier) subscribe(t Table) (int, <-chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.next++
	ch := make(chan struct{}, 1)
	if n.subs[t] == nil {
		n.subs[t] = make(map[int]chan struct{})
	}
	n.subs[t][n.next] = ch
	return n.next, ch
}

func (n *notifier) unsubscribe(t Table, id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs[t], id)
}

func (n *notifier) publish(tables ...Table) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, t := range tables {
		for _, ch := range n.subs[t] {
			select {
			case ch <- struct{}{}:
			default: // a re-evaluation is already pending
			}
		}
	}
}

// Live is a continuously updated query result. The current result is
// delivered right after creation; later results follow committed writes to
// the watched table. A slow reader only ever sees the latest result.
type Live[T any] struct {
	updates chan T
	cancel  context.CancelFunc
	done    chan struct{}
}

// Updates returns the channel of results. It is closed when the Live is
// closed or its context is cancelled.
func (l *Live[T]) Updates() <-chan T {
	return l.updates
}

// Close stops the live query and waits for its goroutine to exit.
func (l *Live[T]) Close() {
	l.cancel()
	<-l.done
}

// Watch runs query now and again after every committed write to table.
func Watch[T any](ctx context.Context, s *Store, table Table, query func(context.Context) (T, error)) *Live[T] {
	ctx, cancel := context.WithCancel(ctx)
	l := &Live[T]{
		updates: make(chan T, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	// Subscribe before the first evaluation so no write can slip between them.
	id, trigger := s.notify.subscribe(table)

	go func() {
		defer close(l.done)
		defer close(l.updates)
		defer s.notify.unsubscribe(table, id)

		eval := func() {
			v, err := query(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.log.Error("live query failed", "table", table, "error", err)
				}
				return
			}
			l.offer(v)
		}

		eval()
		for {
			select {
			case <-ctx.Done():
				return
			case <-trigger:
				eval()
			}
		}
	}()
	return l
}

// offer replaces any undelivered result with v. Only the Watch goroutine
// sends, so the second send cannot block.
func (l *Live[T]) offer(v T) {
	select {
	case l.updates <- v:
		return
	default:
	}
	select {
	case <-l.updates:
	default:
	}
	l.updates <- v
}

// --- typed live queries ------------------------------------------------------

// WatchItem follows a single item; the value is nil while the item is absent.
func (s *Store) WatchItem(ctx context.Context, id string) *Live[*model.Item] {
	return Watch(ctx, s, TableItems, func(ctx context.Context) (*model.Item, error) {
		return s.GetItem(ctx, id)
	})
}

// WatchItemsByStatus follows ItemsByStatus.
func (s *Store) WatchItemsByStatus(ctx context.Context, status model.Status) *Live[[]model.Item] {
	return Watch(ctx, s, TableItems, func(ctx context.Context) ([]model.Item, error) {
		return s.ItemsByStatus(ctx, status)
	})
}

// WatchItemsByCategory follows ItemsByCategory.
func (s *Store) WatchItemsByCategory(ctx context.Context, categoryID int64) *Live[[]model.Item] {
	return Watch(ctx, s, TableItems, func(ctx context.Context) ([]model.Item, error) {
		return s.ItemsByCategory(ctx, categoryID)
	})
}

// WatchSearch follows SearchItems.
func (s *Store) WatchSearch(ctx context.Context, query string) *Live[[]model.Item] {
	return Watch(ctx, s, TableItems, func(ctx context.Context) ([]model.Item, error) {
		return s.SearchItems(ctx, query)
	})
}

// WatchBids follows BidsForItem.
func (s *Store) WatchBids(ctx context.Context, itemID string) *Live[[]model.Bid] {
	return Watch(ctx, s, TableBids, func(ctx context.Context) ([]model.Bid, error) {
		return s.BidsForItem(ctx, itemID)
	})
}

// WatchNotifications follows NotificationsForUser.
func (s *Store) WatchNotifications(ctx context.Context, userID string, unreadOnly bool) *Live[[]model.Notification] {
	return Watch(ctx, s, TableNotifications, func(ctx context.Context) ([]model.Notification, error) {
		return s.NotificationsForUser(ctx, userID, unreadOnly)
	})
}

// WatchCategories follows Categories.
func (s *Store) WatchCategories(ctx context.Context) *Live[[]model.Category] {
	return Watch(ctx, s, TableCategories, func(ctx context.Context) ([]model.Category, error) {
		return s.Categories(ctx)
	})
}
