package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/campusmarket/campusmarket/internal/marketplace"
	"github.com/campusmarket/campusmarket/internal/model"
	"github.com/campusmarket/campusmarket/internal/store"
)

// ItemRepository keeps cached listings in step with the marketplace.
type ItemRepository struct {
	remote ItemRemote
	store  ItemStore
	flight *inflight
	log    *slog.Logger
	inst   *instruments
}

// NewItemRepository creates an ItemRepository.
func NewItemRepository(remote ItemRemote, st ItemStore, logger *slog.Logger) *ItemRepository {
	return &ItemRepository{
		remote: remote,
		store:  st,
		flight: newInflight(),
		log:    logger,
		inst:   newInstruments(logger),
	}
}

// Refresh fetches listings matching f and caches them. A full refresh
// (zero filter) replaces the whole item table in one transaction; a filtered
// refresh only upserts, leaving other cached items alone. On failure the
// store is untouched and the error is returned; falling back to cached data
// is the caller's decision.
//
// If a newer Refresh with the same filter starts, or ctx is cancelled, before
// this one commits, its result is discarded with a KindSuperseded error.
func (r *ItemRepository) Refresh(ctx context.Context, f marketplace.ItemFilter) ([]model.Item, error) {
	const op = "refresh items"
	key := f.Key()

	ctx, span := r.inst.tracer.Start(ctx, spanItemsRefresh, trace.WithAttributes(
		attribute.String("items.filter", key),
		attribute.Bool("items.full", f.IsFull()),
	))
	defer span.End()

	gen := r.flight.begin(key)
	defer r.flight.done(key, gen)

	items, err := r.remote.ListItems(ctx, f)
	if err != nil {
		return nil, r.fail(ctx, span, op, err)
	}

	err = r.flight.commit(ctx, key, gen, func() error {
		if f.IsFull() {
			return r.store.ReplaceItems(ctx, items)
		}
		return r.store.UpsertItems(ctx, items)
	})
	if err != nil {
		return nil, r.fail(ctx, span, op, err)
	}

	r.inst.cntRefreshed.Add(ctx, int64(len(items)))
	span.SetAttributes(attribute.Int("items.count", len(items)))
	r.log.Debug("items refreshed", "filter", key, "count", len(items), "full", f.IsFull())
	return items, nil
}

// SearchRemote refreshes the items matching query.
func (r *ItemRepository) SearchRemote(ctx context.Context, query string) ([]model.Item, error) {
	return r.Refresh(ctx, marketplace.ItemFilter{Search: query})
}

// RefreshSeller refreshes one seller's listings.
func (r *ItemRepository) RefreshSeller(ctx context.Context, sellerID string) ([]model.Item, error) {
	return r.Refresh(ctx, marketplace.ItemFilter{SellerID: sellerID})
}

// CreateItem validates draft, submits it, and caches the item the server
// returns. Nothing is cached unless the server confirms.
func (r *ItemRepository) CreateItem(ctx context.Context, sellerID string, draft model.NewItem) (*model.Item, error) {
	const op = "create item"

	if strings.TrimSpace(sellerID) == "" {
		return nil, model.ValidationError(op, "seller is required")
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	ctx, span := r.inst.tracer.Start(ctx, spanItemsCreate, trace.WithAttributes(
		attribute.String("item.type", draft.Type.String()),
	))
	defer span.End()

	item, err := r.remote.CreateItem(ctx, sellerID, &draft)
	if err != nil {
		return nil, r.fail(ctx, span, op, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, r.fail(ctx, span, op, err)
	}
	if err := r.store.UpsertItem(ctx, item); err != nil {
		return nil, r.fail(ctx, span, op, fmt.Errorf("caching created item %q: %w", item.ID, err))
	}

	span.SetAttributes(attribute.String("item.id", item.ID))
	r.log.Info("item created", "item_id", item.ID, "seller_id", sellerID)
	return item, nil
}

// fail classifies err, records it on the span and counters, and returns the
// error to hand to the caller.
func (r *ItemRepository) fail(ctx context.Context, span trace.Span, op string, err error) error {
	return failOp(ctx, r.inst, r.log, span, op, err)
}

// --- store passthroughs ------------------------------------------------------

// Item returns the cached item, or (nil, nil) if it is not cached.
func (r *ItemRepository) Item(ctx context.Context, id string) (*model.Item, error) {
	return r.store.GetItem(ctx, id)
}

// ByCategory returns cached active items in a category.
func (r *ItemRepository) ByCategory(ctx context.Context, categoryID int64) ([]model.Item, error) {
	return r.store.ItemsByCategory(ctx, categoryID)
}

// Search returns cached items whose title or description contains query.
func (r *ItemRepository) Search(ctx context.Context, query string) ([]model.Item, error) {
	return r.store.SearchItems(ctx, query)
}

// ByStatus returns cached items with the given status.
func (r *ItemRepository) ByStatus(ctx context.Context, status model.Status) ([]model.Item, error) {
	return r.store.ItemsByStatus(ctx, status)
}

// Active returns cached active items. Featured listings are the active ones.
func (r *ItemRepository) Active(ctx context.Context) ([]model.Item, error) {
	return r.store.ItemsByStatus(ctx, model.StatusActive)
}

// ByType returns cached items of one type.
func (r *ItemRepository) ByType(ctx context.Context, t model.ItemType) ([]model.Item, error) {
	return r.store.ItemsByType(ctx, t)
}

// BySeller returns a seller's cached items.
func (r *ItemRepository) BySeller(ctx context.Context, sellerID string) ([]model.Item, error) {
	return r.store.ItemsBySeller(ctx, sellerID)
}

// Categories returns the cached categories.
func (r *ItemRepository) Categories(ctx context.Context) ([]model.Category, error) {
	return r.store.Categories(ctx)
}

// User returns a cached user, or (nil, nil).
func (r *ItemRepository) User(ctx context.Context, id string) (*model.User, error) {
	return r.store.GetUser(ctx, id)
}

func (r *ItemRepository) WatchItem(ctx context.Context, id string) *store.Live[*model.Item] {
	return r.store.WatchItem(ctx, id)
}

func (r *ItemRepository) WatchByCategory(ctx context.Context, categoryID int64) *store.Live[[]model.Item] {
	return r.store.WatchItemsByCategory(ctx, categoryID)
}

func (r *ItemRepository) WatchSearch(ctx context.Context, query string) *store.Live[[]model.Item] {
	return r.store.WatchSearch(ctx, query)
}

func (r *ItemRepository) WatchActive(ctx context.Context) *store.Live[[]model.Item] {
	return r.store.WatchItemsByStatus(ctx, model.StatusActive)
}

func (r *ItemRepository) WatchCategories(ctx context.Context) *store.Live[[]model.Category] {
	return r.store.WatchCategories(ctx)
}

// --- helpers -----------------------------------------------------------------

// failOp turns err into the error returned by a repository operation. A
// result discarded because of cancellation or a newer request becomes
// KindSuperseded; errors already carrying a kind pass through; anything else
// (a local store failure) is wrapped with the operation name.
func failOp(ctx context.Context, inst *instruments, log *slog.Logger, span trace.Span, op string, err error) error {
	opAttr := metricOpAttr(op)
	if isSuperseded(ctx, err) && !model.IsKind(err, model.KindApplication) {
		inst.cntSuperseded.Add(ctx, 1, opAttr)
		span.SetAttributes(attribute.Bool("superseded", true))
		log.Debug("result discarded", "op", op, "error", err)
		return model.SupersededError(op, err)
	}

	inst.cntErrors.Add(ctx, 1, opAttr)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Warn("remote operation failed", "op", op, "kind", model.KindOf(err), "error", err)

	if model.KindOf(err) != 0 {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
