package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ziadkadry99/ewriter/internal/db"
)

// Area separates values synced across devices from device-local ones.
type Area string

const (
	AreaSync  Area = "sync"
	AreaLocal Area = "local"
)

// StoreError reports a failed persistence read or write.
type StoreError struct {
	Op   string
	Area Area
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s (%s): %v", e.Op, e.Area, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Store is a key-value store with JSON values, partitioned by Area.
// There are no transactions across calls; concurrent writers are last-write-wins.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Get returns the raw JSON values for the requested keys. Keys that are not
// stored are absent from the result. With no keys, every key in the area is returned.
func (s *Store) Get(ctx context.Context, area Area, keys ...string) (map[string]json.RawMessage, error) {
	query := "SELECT key, value FROM kv_entries WHERE area = ?"
	args := []any{string(area)}
	if len(keys) > 0 {
		query += " AND key IN (" + placeholders(len(keys)) + ")"
		for _, k := range keys {
			args = append(args, k)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StoreError{Op: "get", Area: area, Err: err}
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, &StoreError{Op: "get", Area: area, Err: err}
		}
		out[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "get", Area: area, Err: err}
	}
	return out, nil
}

// Set upserts every entry of values in one transaction.
func (s *Store) Set(ctx context.Context, area Area, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Op: "set", Area: area, Err: err}
	}
	defer tx.Rollback()

	for key, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return &StoreError{Op: "set", Area: area, Err: fmt.Errorf("marshalling %s: %w", key, err)}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kv_entries (area, key, value, updated_at)
			VALUES (?, ?, ?, datetime('now'))
			ON CONFLICT(area, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			string(area), key, string(data),
		); err != nil {
			return &StoreError{Op: "set", Area: area, Err: fmt.Errorf("writing %s: %w", key, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StoreError{Op: "set", Area: area, Err: err}
	}
	return nil
}

// Remove deletes the given keys. Missing keys are ignored.
func (s *Store) Remove(ctx context.Context, area Area, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := []any{string(area)}
	for _, k := range keys {
		args = append(args, k)
	}
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM kv_entries WHERE area = ? AND key IN ("+placeholders(len(keys))+")", args...)
	if err != nil {
		return &StoreError{Op: "remove", Area: area, Err: err}
	}
	return nil
}

// Decode unmarshals the value stored under key into dst. It reports false
// when the key is absent or the stored value does not fit dst.
func Decode(values map[string]json.RawMessage, key string, dst any) bool {
	raw, ok := values[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// Bound scopes a Store to one area.
type Bound struct {
	store *Store
	area  Area
}

// In returns a view of the store restricted to area.
func (s *Store) In(area Area) *Bound {
	return &Bound{store: s, area: area}
}

func (b *Bound) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	return b.store.Get(ctx, b.area, keys...)
}

func (b *Bound) Set(ctx context.Context, values map[string]any) error {
	return b.store.Set(ctx, b.area, values)
}

func (b *Bound) Remove(ctx context.Context, keys ...string) error {
	return b.store.Remove(ctx, b.area, keys...)
}
