package repository

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/campusmarket/campusmarket/internal/marketplace"
	"github.com/campusmarket/campusmarket/internal/model"
)

// Bootstrap fills an empty cache on first start so the first screen has
// something to show offline later.
type Bootstrap struct {
	items  *ItemRepository
	store  ItemStore
	log    *slog.Logger
	writer io.Writer // summary output (os.Stdout in production)
}

// NewBootstrap creates a Bootstrap. writer receives a short summary.
func NewBootstrap(items *ItemRepository, st ItemStore, logger *slog.Logger, writer io.Writer) *Bootstrap {
	return &Bootstrap{items: items, store: st, log: logger, writer: writer}
}

// Run performs an initial full refresh when the item cache is empty. It
// returns true if the refresh ran and succeeded. A failed refresh is logged
// and is not an error: the app must start offline.
func (b *Bootstrap) Run(ctx context.Context) (bool, error) {
	n, err := b.store.CountItems(ctx)
	if err != nil {
		return false, fmt.Errorf("checking item cache: %w", err)
	}
	if n > 0 {
		b.log.Debug("item cache is not empty, skipping bootstrap", "items", n)
		return false, nil
	}

	b.log.Info("empty item cache detected, starting first-run refresh")
	items, err := b.items.Refresh(ctx, marketplace.ItemFilter{})
	if err != nil {
		b.log.Warn("first-run refresh failed, starting with an empty cache", "error", err)
		_, _ = fmt.Fprintf(b.writer, "Marketplace unreachable (%v); starting offline.\n", err)
		return false, nil
	}

	cats, err := b.store.Categories(ctx)
	if err != nil {
		return true, fmt.Errorf("reading categories: %w", err)
	}
	b.printSummary(items, cats)
	b.log.Info("bootstrap complete", "items", len(items))
	return true, nil
}

// printSummary writes the number of cached items per category.
func (b *Bootstrap) printSummary(items []model.Item, cats []model.Category) {
	names := make(map[int64]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}

	perCategory := make(map[string]int)
	for _, it := range items {
		name := "Uncategorized"
		if it.CategoryID != nil {
			if n, ok := names[*it.CategoryID]; ok {
				name = n
			}
		}
		perCategory[name]++
	}

	keys := make([]string, 0, len(perCategory))
	for k := range perCategory {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	_, _ = fmt.Fprintf(b.writer, "\n--- First-Run Cache Summary ---\n\n")
	for _, k := range keys {
		_, _ = fmt.Fprintf(b.writer, "  %-20s %d\n", k, perCategory[k])
	}
	_, _ = fmt.Fprintf(b.writer, "\nTotal: %d items cached\n", len(items))
}
