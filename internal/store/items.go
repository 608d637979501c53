package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/campusmarket/campusmarket/internal/model"
)

const itemColumns = `
	id, seller_id, title, description, price, starting_bid, current_bid,
	item_condition, item_type, status, images, category_id, auction_end_time,
	pickup_location, created_at`

const upsertItemSQL = `
	INSERT INTO items (` + itemColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	    seller_id        = excluded.seller_id,
	    title            = excluded.title,
	    description      = excluded.description,
	    price            = excluded.price,
	    starting_bid     = excluded.starting_bid,
	    current_bid      = excluded.current_bid,
	    item_condition   = excluded.item_condition,
	    item_type        = excluded.item_type,
	    status           = excluded.status,
	    images           = excluded.images,
	    category_id      = excluded.category_id,
	    auction_end_time = excluded.auction_end_time,
	    pickup_location  = excluded.pickup_location,
	    created_at       = excluded.created_at`

// UpsertItem replaces any existing row with the same ID. There is no partial
// merge: every column comes from item.
func (s *Store) UpsertItem(ctx context.Context, item *model.Item) error {
	if err := upsertItem(ctx, s.db, item); err != nil {
		return err
	}
	s.notify.publish(TableItems)
	return nil
}

// UpsertItems upserts items in one transaction, so readers see either none or
// all of them.
func (s *Store) UpsertItems(ctx context.Context, items []model.Item) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for i := range items {
			if err := upsertItem(ctx, tx, &items[i]); err != nil {
				return err
			}
		}
		return nil
	}, TableItems)
}

// ReplaceItems clears the items table and upserts items in one transaction.
// A full resync goes through here so readers never observe an empty table
// between the clear and the upsert.
func (s *Store) ReplaceItems(ctx context.Context, items []model.Item) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
			return fmt.Errorf("clearing items: %w", err)
		}
		for i := range items {
			if err := upsertItem(ctx, tx, &items[i]); err != nil {
				return err
			}
		}
		return nil
	}, TableItems)
}

// ClearItems removes every item row.
func (s *Store) ClearItems(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("clearing items: %w", err)
	}
	s.notify.publish(TableItems)
	return nil
}

// CountItems returns the number of cached items.
func (s *Store) CountItems(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return n, nil
}

// GetItem returns the item with the given ID, or (nil, nil) if absent.
func (s *Store) GetItem(ctx context.Context, id string) (*model.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // intentional: "not found" sentinel
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ItemsByStatus returns items with the given status ordered by title.
func (s *Store) ItemsByStatus(ctx context.Context, status model.Status) ([]model.Item, error) {
	return s.queryItems(ctx, `WHERE status = ? ORDER BY title`, status.String())
}

// ItemsByCategory returns active items in the category ordered by title.
func (s *Store) ItemsByCategory(ctx context.Context, categoryID int64) ([]model.Item, error) {
	return s.queryItems(ctx, `WHERE category_id = ? AND status = ? ORDER BY title`,
		categoryID, model.StatusActive.String())
}

// SearchItems returns items whose title or description contains query,
// ordered by title.
func (s *Store) SearchItems(ctx context.Context, query string) ([]model.Item, error) {
	return s.queryItems(ctx, `WHERE title LIKE '%' || ? || '%' OR description LIKE '%' || ? || '%' ORDER BY title`,
		query, query)
}

// ItemsByType returns items of the given type, newest first.
func (s *Store) ItemsByType(ctx context.Context, t model.ItemType) ([]model.Item, error) {
	return s.queryItems(ctx, `WHERE item_type = ? ORDER BY created_at DESC`, t.String())
}

// ItemsBySeller returns a seller's items, newest first.
func (s *Store) ItemsBySeller(ctx context.Context, sellerID string) ([]model.Item, error) {
	return s.queryItems(ctx, `WHERE seller_id = ? ORDER BY created_at DESC`, sellerID)
}

// AllItems returns every cached item, newest first.
func (s *Store) AllItems(ctx context.Context) ([]model.Item, error) {
	return s.queryItems(ctx, `ORDER BY created_at DESC`)
}

func (s *Store) queryItems(ctx context.Context, clause string, args ...any) ([]model.Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []model.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func upsertItem(ctx context.Context, db execer, item *model.Item) error {
	images, err := json.Marshal(orEmpty(item.Images))
	if err != nil {
		return fmt.Errorf("encoding images for item %q: %w", item.ID, err)
	}
	pickup := item.PickupLocation
	if pickup == "" {
		pickup = model.DefaultPickupLocation
	}
	var endMillis sql.NullInt64
	if item.AuctionEndTime != nil {
		endMillis = sql.NullInt64{Int64: item.AuctionEndTime.UnixMilli(), Valid: true}
	}

	_, err = db.ExecContext(ctx, upsertItemSQL,
		item.ID,
		item.SellerID,
		item.Title,
		item.Description,
		nullFloat(item.Price),
		nullFloat(item.StartingBid),
		nullFloat(item.CurrentBid),
		item.Condition.String(),
		item.Type.String(),
		item.Status.String(),
		string(images),
		nullInt(item.CategoryID),
		endMillis,
		pickup,
		item.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upserting item %q: %w", item.ID, err)
	}
	return nil
}

func scanItem(s scanner) (*model.Item, error) {
	var (
		item                           model.Item
		price, startingBid, currentBid sql.NullFloat64
		condition, itemType, status    string
		images                         string
		categoryID, endMillis          sql.NullInt64
		createdMillis                  int64
	)
	err := s.Scan(
		&item.ID,
		&item.SellerID,
		&item.Title,
		&item.Description,
		&price,
		&startingBid,
		&currentBid,
		&condition,
		&itemType,
		&status,
		&images,
		&categoryID,
		&endMillis,
		&item.PickupLocation,
		&createdMillis,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning item row: %w", err)
	}

	if item.Condition, err = model.ParseCondition(condition); err != nil {
		return nil, fmt.Errorf("scanning item %q: %w", item.ID, err)
	}
	if item.Type, err = model.ParseItemType(itemType); err != nil {
		return nil, fmt.Errorf("scanning item %q: %w", item.ID, err)
	}
	if item.Status, err = model.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("scanning item %q: %w", item.ID, err)
	}
	if err := json.Unmarshal([]byte(images), &item.Images); err != nil {
		return nil, fmt.Errorf("decoding images for item %q: %w", item.ID, err)
	}

	item.Price = floatPtr(price)
	item.StartingBid = floatPtr(startingBid)
	item.CurrentBid = floatPtr(currentBid)
	item.CategoryID = intPtr(categoryID)
	if endMillis.Valid {
		t := time.UnixMilli(endMillis.Int64)
		item.AuctionEndTime = &t
	}
	item.CreatedAt = time.UnixMilli(createdMillis)
	return &item, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
