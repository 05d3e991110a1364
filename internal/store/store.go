// Package store persists sync pairs in a local SQLite database, following
// the one-file state database layout of the agent's data directory.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mkarvela/davsync/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS sync_pairs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	local_path TEXT NOT NULL,
	remote_url TEXT NOT NULL,
	enabled INTEGER NOT NULL DEFAULT 1,
	sync_on_save INTEGER NOT NULL DEFAULT 1,
	sync_on_delete INTEGER NOT NULL DEFAULT 0,
	sync_hidden INTEGER NOT NULL DEFAULT 0,
	debounce_ms INTEGER NOT NULL DEFAULT 500,
	exclude TEXT,
	username TEXT,
	secret TEXT,
	status TEXT NOT NULL DEFAULT 'idle',
	last_sync_at INTEGER NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT ''
);
`

// Store is a core.PairStore backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads every persisted pair.
func (s *Store) Load() ([]core.SyncPair, error) {
	rows, err := s.db.Query(`
		SELECT id, name, local_path, remote_url, enabled, sync_on_save,
		       sync_on_delete, sync_hidden, debounce_ms, exclude, username,
		       secret, status, last_sync_at, last_error
		FROM sync_pairs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query sync pairs: %w", err)
	}
	defer rows.Close()

	var out []core.SyncPair
	for rows.Next() {
		var p core.SyncPair
		var enabled, onSave, onDelete, hidden int
		var debounceMs, lastSyncNano int64
		var exclude, username, secret sql.NullString
		var status string

		if err := rows.Scan(&p.ID, &p.Name, &p.LocalPath, &p.RemoteURL,
			&enabled, &onSave, &onDelete, &hidden, &debounceMs,
			&exclude, &username, &secret, &status, &lastSyncNano, &p.LastError); err != nil {
			return nil, fmt.Errorf("scan sync pair: %w", err)
		}

		p.Enabled = enabled != 0
		p.SyncOnSave = onSave != 0
		p.SyncOnDelete = onDelete != 0
		p.SyncHidden = hidden != 0
		p.Debounce = time.Duration(debounceMs) * time.Millisecond
		p.Username = username.String
		p.Secret = secret.String
		p.Status = core.Status(status)
		if lastSyncNano > 0 {
			p.LastSync = time.Unix(0, lastSyncNano)
		}
		if exclude.Valid && exclude.String != "" {
			if err := json.Unmarshal([]byte(exclude.String), &p.Exclude); err != nil {
				return nil, fmt.Errorf("decode exclude patterns for %s: %w", p.Name, err)
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Save upserts a pair's declarative record wholesale.
func (s *Store) Save(p core.SyncPair) error {
	exclude, err := json.Marshal(p.Exclude)
	if err != nil {
		return fmt.Errorf("encode exclude patterns: %w", err)
	}

	status := p.Status
	if status == "" {
		status = core.StatusIdle
	}
	var lastSyncNano int64
	if !p.LastSync.IsZero() {
		lastSyncNano = p.LastSync.UnixNano()
	}

	_, err = s.db.Exec(`
		INSERT INTO sync_pairs (id, name, local_path, remote_url, enabled,
			sync_on_save, sync_on_delete, sync_hidden, debounce_ms, exclude,
			username, secret, status, last_sync_at, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			local_path = excluded.local_path,
			remote_url = excluded.remote_url,
			enabled = excluded.enabled,
			sync_on_save = excluded.sync_on_save,
			sync_on_delete = excluded.sync_on_delete,
			sync_hidden = excluded.sync_hidden,
			debounce_ms = excluded.debounce_ms,
			exclude = excluded.exclude,
			username = excluded.username,
			secret = excluded.secret
	`, p.ID, p.Name, p.LocalPath, p.RemoteURL, boolInt(p.Enabled),
		boolInt(p.SyncOnSave), boolInt(p.SyncOnDelete), boolInt(p.SyncHidden),
		p.Debounce.Milliseconds(), string(exclude), p.Username, p.Secret,
		string(status), lastSyncNano, p.LastError)
	if err != nil {
		return fmt.Errorf("save sync pair %s: %w", p.Name, err)
	}
	return nil
}

// Delete removes a pair. Unknown ids are not an error.
func (s *Store) Delete(id string) error {
	if _, err := s.db.Exec("DELETE FROM sync_pairs WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete sync pair %s: %w", id, err)
	}
	return nil
}

// UpdateRuntime records the latest runtime outcome so status reporting
// works without a running daemon. Best-effort by contract.
func (s *Store) UpdateRuntime(id string, status core.Status, lastSync time.Time, lastErr string) error {
	var lastSyncNano int64
	if !lastSync.IsZero() {
		lastSyncNano = lastSync.UnixNano()
	}
	_, err := s.db.Exec(
		"UPDATE sync_pairs SET status = ?, last_sync_at = ?, last_error = ? WHERE id = ?",
		string(status), lastSyncNano, lastErr, id)
	if err != nil {
		return fmt.Errorf("update runtime for %s: %w", id, err)
	}
	return nil
}

// ResetRuntime clears the recorded runtime state for one pair, or for all
// pairs when id is empty.
func (s *Store) ResetRuntime(id string) error {
	var err error
	if id != "" {
		_, err = s.db.Exec(
			"UPDATE sync_pairs SET status = 'idle', last_sync_at = 0, last_error = '' WHERE id = ?", id)
	} else {
		_, err = s.db.Exec(
			"UPDATE sync_pairs SET status = 'idle', last_sync_at = 0, last_error = ''")
	}
	if err != nil {
		return fmt.Errorf("reset runtime: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
