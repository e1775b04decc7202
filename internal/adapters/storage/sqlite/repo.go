package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/insync/internal/app"
	"github.com/hylla/insync/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository stores lists and items in one sqlite database.
type Repository struct {
	db *sql.DB
}

// Open opens the database file at path, creating parent directories and schema.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, dsn(":memory:"))
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// dsn applies per-connection pragmas.
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	return path + "?" + q.Encode()
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS lists (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			list_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			text TEXT NOT NULL DEFAULT '',
			completed INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY(list_id) REFERENCES lists(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_items_list_position ON items(list_id, position);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	if _, err := r.db.ExecContext(ctx, `ALTER TABLE items ADD COLUMN completed INTEGER NOT NULL DEFAULT 0`); err != nil && !isDuplicateColumnErr(err) {
		return fmt.Errorf("migrate sqlite add items.completed: %w", err)
	}
	return nil
}

// CreateList creates list.
func (r *Repository) CreateList(ctx context.Context, l domain.List) error {
	return insertList(ctx, r.db, l)
}

// CreateListWithItem stores a list and its seed item in one transaction.
func (r *Repository) CreateListWithItem(ctx context.Context, l domain.List, item domain.Item) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = insertList(ctx, tx, l); err != nil {
		return err
	}
	item.ListID = l.ID
	item.Position = 0
	if err = insertItemRow(ctx, tx, item); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// insertList writes one list row through a DB or Tx.
func insertList(ctx context.Context, e execer, l domain.List) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO lists(id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, l.ID, l.Name, ts(l.CreatedAt), ts(l.UpdatedAt))
	if isUniqueErr(err) {
		return fmt.Errorf("list %q: %w", l.Name, app.ErrAlreadyExists)
	}
	return err
}

// UpdateList updates state for the requested operation.
func (r *Repository) UpdateList(ctx context.Context, l domain.List) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE lists
		SET name = ?, updated_at = ?
		WHERE id = ?
	`, l.Name, ts(l.UpdatedAt), l.ID)
	if isUniqueErr(err) {
		return fmt.Errorf("list %q: %w", l.Name, app.ErrAlreadyExists)
	}
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetList returns list.
func (r *Repository) GetList(ctx context.Context, id string) (domain.List, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM lists
		WHERE id = ?
	`, id)
	return scanList(row)
}

// GetListByName returns the list with an exact name.
func (r *Repository) GetListByName(ctx context.Context, name string) (domain.List, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM lists
		WHERE name = ?
	`, strings.TrimSpace(name))
	return scanList(row)
}

// ListLists lists lists in creation order.
func (r *Repository) ListLists(ctx context.Context) ([]domain.List, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM lists
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.List{}
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListItems lists the items of one list in position order.
func (r *Repository) ListItems(ctx context.Context, listID string) ([]domain.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, list_id, position, text, completed, created_at, updated_at
		FROM items
		WHERE list_id = ?
		ORDER BY position ASC, id ASC
	`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// GetItem returns item.
func (r *Repository) GetItem(ctx context.Context, id string) (domain.Item, error) {
	return getItemByID(ctx, r.db, id)
}

// InsertItem inserts at item.Position and shifts later siblings down inside one transaction.
func (r *Repository) InsertItem(ctx context.Context, item domain.Item) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var count int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE list_id = ?`, item.ListID).Scan(&count); err != nil {
		return err
	}
	if item.Position > count {
		item.Position = count
	}
	if err = shiftAndInsert(ctx, tx, item); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// InsertItemAfter places item directly after the anchor and returns it as stored.
// The anchor position is read inside the insert transaction.
func (r *Repository) InsertItemAfter(ctx context.Context, anchorID string, item domain.Item) (_ domain.Item, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Item{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	anchor, err := getItemByID(ctx, tx, anchorID)
	if err != nil {
		return domain.Item{}, err
	}
	item.ListID = anchor.ListID
	item.Position = anchor.Position + 1
	if err = shiftAndInsert(ctx, tx, item); err != nil {
		return domain.Item{}, err
	}
	if err = tx.Commit(); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

// shiftAndInsert opens a slot at item.Position and writes the item into it.
func shiftAndInsert(ctx context.Context, tx *sql.Tx, item domain.Item) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE items SET position = position + 1
		WHERE list_id = ? AND position >= ?
	`, item.ListID, item.Position); err != nil {
		return err
	}
	return insertItemRow(ctx, tx, item)
}

// insertItemRow writes one item row, mapping a missing list onto ErrNotFound.
func insertItemRow(ctx context.Context, e execer, item domain.Item) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO items(id, list_id, position, text, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.ListID, item.Position, item.Text, boolInt(item.Completed), ts(item.CreatedAt), ts(item.UpdatedAt))
	if isForeignKeyErr(err) {
		return fmt.Errorf("list %q: %w", item.ListID, app.ErrNotFound)
	}
	return err
}

// UpdateItem updates the item text and completion flag.
func (r *Repository) UpdateItem(ctx context.Context, item domain.Item) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE items
		SET text = ?, completed = ?, updated_at = ?
		WHERE id = ?
	`, item.Text, boolInt(item.Completed), ts(item.UpdatedAt), item.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// DeleteItem deletes one item and compacts positions, refusing the last item of a list.
func (r *Repository) DeleteItem(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	item, err := getItemByID(ctx, tx, id)
	if err != nil {
		return err
	}
	var count int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE list_id = ?`, item.ListID).Scan(&count); err != nil {
		return err
	}
	if count <= 1 {
		err = app.ErrLastItem
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err = translateNoRows(res); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `
		UPDATE items SET position = position - 1
		WHERE list_id = ? AND position > ?
	`, item.ListID, item.Position); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// ReplaceItems swaps the full item set of one list.
func (r *Repository) ReplaceItems(ctx context.Context, listID string, items []domain.Item) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM items WHERE list_id = ?`, listID); err != nil {
		return err
	}
	for _, item := range items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO items(id, list_id, position, text, completed, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				list_id = excluded.list_id,
				position = excluded.position,
				text = excluded.text,
				completed = excluded.completed,
				updated_at = excluded.updated_at
		`, item.ID, listID, item.Position, item.Text, boolInt(item.Completed), ts(item.CreatedAt), ts(item.UpdatedAt)); err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

// execer represents the write contract shared by DB and Tx.
type execer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// queryRower represents a query-only DB contract used by DB and Tx implementations.
type queryRower interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// getItemByID loads one item through a DB or Tx.
func getItemByID(ctx context.Context, q queryRower, id string) (domain.Item, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, list_id, position, text, completed, created_at, updated_at
		FROM items
		WHERE id = ?
	`, id)
	return scanItem(row)
}

// scanner represents scanner data used by this package.
type scanner interface {
	Scan(dest ...any) error
}

// scanList handles scan list.
func scanList(s scanner) (domain.List, error) {
	var (
		l          domain.List
		createdRaw string
		updatedRaw string
	)
	if err := s.Scan(&l.ID, &l.Name, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.List{}, app.ErrNotFound
		}
		return domain.List{}, err
	}
	l.CreatedAt = parseTS(createdRaw)
	l.UpdatedAt = parseTS(updatedRaw)
	return l, nil
}

// scanItem handles scan item.
func scanItem(s scanner) (domain.Item, error) {
	var (
		item       domain.Item
		completed  int64
		createdRaw string
		updatedRaw string
	)
	if err := s.Scan(&item.ID, &item.ListID, &item.Position, &item.Text, &completed, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Item{}, app.ErrNotFound
		}
		return domain.Item{}, err
	}
	item.Completed = completed != 0
	item.CreatedAt = parseTS(createdRaw)
	item.UpdatedAt = parseTS(updatedRaw)
	return item, nil
}

// translateNoRows handles translate no rows.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// boolInt stores booleans as sqlite integers.
func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// isUniqueErr reports whether the expected condition is satisfied.
func isUniqueErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

// isForeignKeyErr reports whether the expected condition is satisfied.
func isForeignKeyErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}

// isDuplicateColumnErr reports whether an ALTER TABLE hit an existing column.
func isDuplicateColumnErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column name")
}
