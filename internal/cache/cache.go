// Package cache keeps the last-known-good item payload of every list in a
// local sqlite database, so a tree can still be shown when the store is
// unreachable.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"tasktree/internal/service"
)

// ErrMiss is returned by Load when nothing is cached for the list.
var ErrMiss = errors.New("not cached")

const schema = `
	CREATE TABLE IF NOT EXISTS snapshots (
		backend    TEXT NOT NULL,
		list_id    TEXT NOT NULL,
		payload    TEXT NOT NULL,
		fetched_at TEXT NOT NULL,
		PRIMARY KEY (backend, list_id)
	);

	CREATE TABLE IF NOT EXISTS lists (
		backend    TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		fetched_at TEXT NOT NULL
	);
`

// Cache is a per-backend snapshot table. It satisfies
// mutation.SnapshotStore.
type Cache struct {
	db      *sql.DB
	backend string
}

// Open opens (creating if needed) the cache database at path. Entries are
// scoped to backend so switching stores never shows foreign trees.
func Open(path, backend string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache: %w", err)
	}
	return &Cache{db: db, backend: backend}, nil
}

// Save replaces the cached payload of listID.
func (c *Cache) Save(ctx context.Context, listID string, items []service.Item, fetchedAt time.Time) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO snapshots (backend, list_id, payload, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (backend, list_id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		c.backend, listID, string(payload), fetchedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns the cached payload of listID and the time it was fetched.
func (c *Cache) Load(ctx context.Context, listID string) ([]service.Item, time.Time, error) {
	var payload, fetched string
	err := c.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM snapshots WHERE backend = ? AND list_id = ?`,
		c.backend, listID).Scan(&payload, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, fmt.Errorf("list %s: %w", listID, ErrMiss)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load snapshot: %w", err)
	}

	var items []service.Item
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode snapshot: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, fetched)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("decode snapshot time: %w", err)
	}
	return items, at, nil
}

// SaveLists replaces the cached lists of the backend.
func (c *Cache) SaveLists(ctx context.Context, lists []service.List, fetchedAt time.Time) error {
	payload, err := json.Marshal(lists)
	if err != nil {
		return fmt.Errorf("encode lists: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO lists (backend, payload, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT (backend) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		c.backend, string(payload), fetchedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save lists: %w", err)
	}
	return nil
}

// LoadLists returns the cached lists of the backend.
func (c *Cache) LoadLists(ctx context.Context) ([]service.List, error) {
	var payload string
	err := c.db.QueryRowContext(ctx, `SELECT payload FROM lists WHERE backend = ?`, c.backend).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lists: %w", ErrMiss)
	}
	if err != nil {
		return nil, fmt.Errorf("load lists: %w", err)
	}
	var lists []service.List
	if err := json.Unmarshal([]byte(payload), &lists); err != nil {
		return nil, fmt.Errorf("decode lists: %w", err)
	}
	return lists, nil
}

// Forget drops the cached payload of listID.
func (c *Cache) Forget(ctx context.Context, listID string) error {
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE backend = ? AND list_id = ?`, c.backend, listID)
	return err
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}
