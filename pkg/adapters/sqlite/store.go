// Package sqlite stores episode graphs and cross-episode memory in an
// embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wavebound/storyline/pkg/domain"
)

// Store implements ports.GraphStore and ports.MemoryStore on SQLite.
type Store struct {
	db *sql.DB
}

// Open initializes or connects to the database at path. Use ":memory:" for
// a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// Every connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Get loads the graph of an episode.
func (s *Store) Get(ctx context.Context, seriesID, episodeID string) (*domain.Graph, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		"SELECT document FROM episodes WHERE series_id = ? AND episode_id = ?",
		seriesID, episodeID,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrGraphNotFound
		}
		return nil, fmt.Errorf("select episode: %w", err)
	}

	var g domain.Graph
	if err := json.Unmarshal([]byte(doc), &g); err != nil {
		return nil, fmt.Errorf("decode episode %s/%s: %w", seriesID, episodeID, err)
	}
	return &g, nil
}

// Put replaces the graph of an episode.
func (s *Store) Put(ctx context.Context, seriesID, episodeID string, g *domain.Graph) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO episodes (series_id, episode_id, document, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (series_id, episode_id) DO UPDATE SET
    document = excluded.document,
    updated_at = excluded.updated_at`,
		seriesID, episodeID, string(data), now(),
	)
	if err != nil {
		return fmt.Errorf("upsert episode: %w", err)
	}
	return nil
}

// List returns the episode ids of a series, sorted.
func (s *Store) List(ctx context.Context, seriesID string) ([]string, error) {
	return s.strings(ctx,
		"SELECT episode_id FROM episodes WHERE series_id = ? ORDER BY episode_id",
		seriesID,
	)
}

// LoadFlags returns the flags a user has reached in a series, sorted.
func (s *Store) LoadFlags(ctx context.Context, seriesID, userID string) ([]string, error) {
	return s.strings(ctx,
		"SELECT flag FROM memory_flags WHERE series_id = ? AND user_id = ? ORDER BY flag",
		seriesID, userID,
	)
}

// MergeFlags adds flags to the user's set.
func (s *Store) MergeFlags(ctx context.Context, seriesID, userID string, flags []string) error {
	if len(flags) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin memory tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	ts := now()
	for _, flag := range flags {
		if flag == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO memory_flags (series_id, user_id, flag, created_at) VALUES (?, ?, ?, ?)",
			seriesID, userID, flag, ts,
		); err != nil {
			return fmt.Errorf("insert flag %q: %w", flag, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit memory tx: %w", err)
	}
	return nil
}

func (s *Store) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}
