// Package store is the local persistent cache of marketplace data, backed by
// SQLite. It is the only long-lived shared mutable state in campusmarket.
//
// Only this package may open or query the database. Repositories receive a
// [*Store] and call its methods; UI collaborators subscribe to live queries
// through [Watch] and the typed Watch helpers.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/campusmarket/campusmarket/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id         TEXT PRIMARY KEY,
    email      TEXT NOT NULL DEFAULT '',
    first_name TEXT NOT NULL DEFAULT '',
    last_name  TEXT NOT NULL DEFAULT '',
    role       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS categories (
    id          INTEGER PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS items (
    id               TEXT    PRIMARY KEY,
    seller_id        TEXT    NOT NULL,
    title            TEXT    NOT NULL,
    description      TEXT    NOT NULL DEFAULT '',
    price            REAL,
    starting_bid     REAL,
    current_bid      REAL,
    item_condition   TEXT    NOT NULL,
    item_type        TEXT    NOT NULL,
    status           TEXT    NOT NULL,
    images           TEXT    NOT NULL DEFAULT '[]',
    category_id      INTEGER,
    auction_end_time INTEGER,
    pickup_location  TEXT    NOT NULL DEFAULT 'STC',
    created_at       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_status   ON items (status);
CREATE INDEX IF NOT EXISTS idx_items_category ON items (category_id);
CREATE INDEX IF NOT EXISTS idx_items_seller   ON items (seller_id);

CREATE TABLE IF NOT EXISTS bids (
    id        TEXT    PRIMARY KEY,
    item_id   TEXT    NOT NULL,
    bidder_id TEXT    NOT NULL,
    amount    REAL    NOT NULL,
    timestamp INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bids_rank ON bids (item_id, amount DESC, timestamp ASC);

CREATE TABLE IF NOT EXISTS orders (
    id              TEXT    PRIMARY KEY,
    item_id         TEXT    NOT NULL,
    buyer_id        TEXT    NOT NULL,
    seller_id       TEXT    NOT NULL,
    total_amount    REAL    NOT NULL,
    status          TEXT    NOT NULL,
    created_at      INTEGER NOT NULL,
    pickup_location TEXT    NOT NULL DEFAULT 'STC'
);

CREATE INDEX IF NOT EXISTS idx_orders_buyer  ON orders (buyer_id);
CREATE INDEX IF NOT EXISTS idx_orders_seller ON orders (seller_id);

CREATE TABLE IF NOT EXISTS notifications (
    id        TEXT    PRIMARY KEY,
    user_id   TEXT    NOT NULL,
    title     TEXT    NOT NULL,
    message   TEXT    NOT NULL DEFAULT '',
    type      TEXT    NOT NULL,
    is_read   INTEGER NOT NULL DEFAULT 0,
    timestamp INTEGER NOT NULL,
    item_id   TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, timestamp DESC);
`

// Table names a store table. Live queries subscribe per table.
type Table string

const (
	TableUsers         Table = "users"
	TableCategories    Table = "categories"
	TableItems         Table = "items"
	TableBids          Table = "bids"
	TableOrders        Table = "orders"
	TableNotifications Table = "notifications"
)

// Store is the SQLite-backed local cache.
type Store struct {
	db     *sql.DB
	log    *slog.Logger
	notify *notifier
}

// DefaultDBPath returns the default path for the local database:
// ~/.local/share/campusmarket/market.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "campusmarket", "market.db"), nil
}

// Open opens (or creates) the database at path, applies the schema, and seeds
// default rows when the schema is created for the first time. Pass ":memory:"
// for a throwaway in-memory store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	// One connection serialises writers and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)

	fresh, err := isFresh(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("inspecting schema: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	s := &Store{db: db, log: logger, notify: newNotifier()}
	if fresh {
		s.seed(context.Background())
	}
	return s, nil
}

// Close releases the underlying database connection. Live queries should be
// closed first.
func (s *Store) Close() error {
	return s.db.Close()
}

func isFresh(db *sql.DB) (bool, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'items'`).Scan(&n)
	return n == 0, err
}

// migrate applies the schema DDL idempotently (CREATE IF NOT EXISTS).
func migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// seed inserts the administrative user and the default categories. It is
// best-effort: a failing row is logged and skipped.
func (s *Store) seed(ctx context.Context) {
	admin := &model.User{ID: "admin", Email: "admin@strathmore.edu", FirstName: "Admin", LastName: "User", Role: model.RoleAdmin}
	if err := s.UpsertUser(ctx, admin); err != nil {
		s.bestEffort("seed admin user", err)
	}
	for _, c := range []model.Category{
		{ID: 1, Name: "Electronics", Description: "Electronics and gadgets"},
		{ID: 2, Name: "Books", Description: "Books and stationery"},
	} {
		if err := s.UpsertCategory(ctx, &c); err != nil {
			s.bestEffort("seed category "+c.Name, err)
		}
	}
}

func (s *Store) bestEffort(op string, err error) {
	s.log.Warn("best-effort step failed", "op", op, "kind", model.KindBestEffort, "error", err)
}

// --- users & categories ------------------------------------------------------

// UpsertUser inserts or replaces a user row.
func (s *Store) UpsertUser(ctx context.Context, u *model.User) error {
	const q = `
		INSERT INTO users (id, email, first_name, last_name, role)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    email      = excluded.email,
		    first_name = excluded.first_name,
		    last_name  = excluded.last_name,
		    role       = excluded.role`
	if _, err := s.db.ExecContext(ctx, q, u.ID, u.Email, u.FirstName, u.LastName, u.Role.String()); err != nil {
		return fmt.Errorf("upserting user %q: %w", u.ID, err)
	}
	s.notify.publish(TableUsers)
	return nil
}

// GetUser returns the user with the given ID, or (nil, nil) if absent.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	const q = `SELECT id, email, first_name, last_name, role FROM users WHERE id = ?`
	var u model.User
	var role string
	err := s.db.QueryRowContext(ctx, q, id).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // intentional: "not found" sentinel
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %q: %w", id, err)
	}
	if u.Role, err = model.ParseRole(role); err != nil {
		return nil, fmt.Errorf("scanning user %q: %w", id, err)
	}
	return &u, nil
}

// UpsertCategory inserts or replaces a category row.
func (s *Store) UpsertCategory(ctx context.Context, c *model.Category) error {
	const q = `
		INSERT INTO categories (id, name, description) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    name        = excluded.name,
		    description = excluded.description`
	if _, err := s.db.ExecContext(ctx, q, c.ID, c.Name, c.Description); err != nil {
		return fmt.Errorf("upserting category %q: %w", c.Name, err)
	}
	s.notify.publish(TableCategories)
	return nil
}

// Categories returns all categories ordered by name.
func (s *Store) Categories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("scanning category row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCategory returns the category with the given ID, or (nil, nil).
func (s *Store) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	var c model.Category
	err := s.db.QueryRowContext(ctx, `SELECT id, name, description FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // intentional: "not found" sentinel
	}
	if err != nil {
		return nil, fmt.Errorf("getting category %d: %w", id, err)
	}
	return &c, nil
}

// --- helpers -----------------------------------------------------------------

// scanner matches both *sql.Row and *sql.Rows so scan helpers can be reused.
type scanner interface {
	Scan(dest ...any) error
}

// execer matches both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// withTx runs fn inside a transaction and publishes a change for tables after
// a successful commit.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error, tables ...Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	s.notify.publish(tables...)
	return nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
