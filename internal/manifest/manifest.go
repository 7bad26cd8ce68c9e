// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package manifest records which source items were already copied so an
// interrupted copy can resume without duplicating files.
package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ManuGH/drivecopy/internal/persistence/sqlite"
)

// Kind distinguishes copied files from created folders.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// ErrCorrupt is returned by Open when an existing manifest fails its integrity check.
var ErrCorrupt = errors.New("manifest database is corrupt")

// Entry is one copied item.
type Entry struct {
	SourceID string
	DestID   string
	Kind     Kind
	Name     string
	CopiedAt time.Time
}

// Store persists entries per run key (source and destination pair).
type Store struct {
	db     *sql.DB
	runKey string
	now    func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS copied (
	run_key   TEXT NOT NULL,
	source_id TEXT NOT NULL,
	dest_id   TEXT NOT NULL,
	kind      TEXT NOT NULL,
	name      TEXT NOT NULL,
	copied_at INTEGER NOT NULL,
	PRIMARY KEY (run_key, source_id)
);`

// RunKey identifies a copy job by its folder pair.
func RunKey(sourceID, destID string) string {
	return sourceID + "|" + destID
}

// Open opens (creating if needed) the manifest at path scoped to runKey.
// An existing database is integrity-checked first.
func Open(ctx context.Context, path, runKey string) (*Store, error) {
	if _, err := os.Stat(path); err == nil {
		issues, err := sqlite.VerifyIntegrity(ctx, path, sqlite.CheckQuick)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if len(issues) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrCorrupt, strings.Join(issues, "; "))
		}
	}

	db, err := sqlite.Open(ctx, path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create manifest schema: %w", err)
	}
	return &Store{db: db, runKey: runKey, now: time.Now}, nil
}

// Lookup returns the entry for sourceID, if recorded.
func (s *Store) Lookup(ctx context.Context, sourceID string) (Entry, bool, error) {
	var (
		e        Entry
		kind     string
		copiedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT source_id, dest_id, kind, name, copied_at FROM copied WHERE run_key = ? AND source_id = ?`,
		s.runKey, sourceID,
	).Scan(&e.SourceID, &e.DestID, &kind, &e.Name, &copiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("lookup %s: %w", sourceID, err)
	}
	e.Kind = Kind(kind)
	e.CopiedAt = time.Unix(0, copiedAt).UTC()
	return e, true, nil
}

// Record stores or replaces the entry for e.SourceID.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.CopiedAt.IsZero() {
		e.CopiedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO copied (run_key, source_id, dest_id, kind, name, copied_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_key, source_id) DO UPDATE SET
		   dest_id = excluded.dest_id, kind = excluded.kind, name = excluded.name, copied_at = excluded.copied_at`,
		s.runKey, e.SourceID, e.DestID, string(e.Kind), e.Name, e.CopiedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", e.SourceID, err)
	}
	return nil
}

// Count returns the number of entries of the given kind; an empty kind counts all.
func (s *Store) Count(ctx context.Context, kind Kind) (int, error) {
	query := `SELECT COUNT(*) FROM copied WHERE run_key = ?`
	args := []any{s.runKey}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
