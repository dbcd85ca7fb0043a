// Package store persists the stable-endpoint-id cache and a rolling
// analytics event log in SQLite, grounded on the teacher's own
// server/internal/store package: the same sql.DB-plus-migration shape,
// `modernc.org/sqlite` driver, and slog-on-the-happy-path logging
// (SPEC_FULL.md §2 "Domain stack").
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrStableIDNotFound is returned when no cached stable endpoint id exists
// for a (service_id, client_id) pair, or it has expired.
var ErrStableIDNotFound = errors.New("store: stable endpoint id not found")

// Store persists nearcore's process-crossing state in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at path and runs migrations.
// An empty path opens a shared-cache in-memory database: every Store opened
// with an empty path in this process sees the same data while any of them is
// open. It suits tests that open one store at a time and single-process runs
// that don't need the stable-id cache to survive a restart.
func Open(path string) (*Store, error) {
	dsn := path
	if strings.TrimSpace(path) == "" {
		dsn = "file::memory:?cache=shared"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite database: %w", err)
	}
	if dsn == "file::memory:?cache=shared" {
		db.SetMaxOpenConns(1)
	}

	st := &Store{db: db}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Info("sqlite store opened", "path", path)
	return st, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS stable_endpoint_ids (
	service_id TEXT NOT NULL,
	client_id TEXT NOT NULL,
	endpoint_id TEXT NOT NULL,
	expires_at_unix_ms INTEGER NOT NULL,
	PRIMARY KEY (service_id, client_id)
);

CREATE TABLE IF NOT EXISTS analytics_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	client_id TEXT NOT NULL,
	endpoint_id TEXT NOT NULL,
	event TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	ts_unix_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analytics_client ON analytics_events(client_id, ts_unix_ms);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: run sqlite migrations: %w", err)
	}
	slog.Debug("sqlite migrations applied")
	return nil
}

// PutStableEndpointID caches endpointID for (serviceID, clientID) until
// expiresAt — the stable-endpoint-id cache timeout from spec.md §9 (default
// 20s, internal/flags.Snapshot.StableEndpointIDCacheTimeout).
func (s *Store) PutStableEndpointID(ctx context.Context, serviceID, clientID, endpointID string, expiresAt time.Time) error {
	const q = `
INSERT INTO stable_endpoint_ids (service_id, client_id, endpoint_id, expires_at_unix_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT(service_id, client_id) DO UPDATE SET
	endpoint_id = excluded.endpoint_id,
	expires_at_unix_ms = excluded.expires_at_unix_ms
`
	if _, err := s.db.ExecContext(ctx, q, serviceID, clientID, endpointID, expiresAt.UnixMilli()); err != nil {
		return fmt.Errorf("store: put stable endpoint id: %w", err)
	}
	return nil
}

// GetStableEndpointID returns the cached endpoint id for (serviceID,
// clientID), or ErrStableIDNotFound if absent or expired.
func (s *Store) GetStableEndpointID(ctx context.Context, serviceID, clientID string, now time.Time) (string, error) {
	const q = `SELECT endpoint_id, expires_at_unix_ms FROM stable_endpoint_ids WHERE service_id = ? AND client_id = ?`
	var endpointID string
	var expiresAtMs int64
	err := s.db.QueryRowContext(ctx, q, serviceID, clientID).Scan(&endpointID, &expiresAtMs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrStableIDNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: get stable endpoint id: %w", err)
	}
	if now.UnixMilli() > expiresAtMs {
		return "", ErrStableIDNotFound
	}
	return endpointID, nil
}

// AnalyticsEvent is one row of the rolling event log.
type AnalyticsEvent struct {
	ClientID   string
	EndpointID string
	Event      string
	Detail     string
	Timestamp  time.Time
}

// RecordEvent appends one analytics event — connection attempts, rejections,
// cancellations (spec.md §7 "CANCELLED analytics marker"), bandwidth
// upgrades.
func (s *Store) RecordEvent(ctx context.Context, ev AnalyticsEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	const q = `INSERT INTO analytics_events (client_id, endpoint_id, event, detail, ts_unix_ms) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, ev.ClientID, ev.EndpointID, ev.Event, ev.Detail, ev.Timestamp.UnixMilli()); err != nil {
		return fmt.Errorf("store: record analytics event: %w", err)
	}
	slog.Debug("analytics event recorded", "client_id", ev.ClientID, "endpoint_id", ev.EndpointID, "event", ev.Event)
	return nil
}

// RecentEvents returns the most recent analytics events for clientID, newest
// first, for the diagnostics API.
func (s *Store) RecentEvents(ctx context.Context, clientID string, limit int) ([]AnalyticsEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT client_id, endpoint_id, event, detail, ts_unix_ms
FROM analytics_events
WHERE client_id = ?
ORDER BY ts_unix_ms DESC, id DESC
LIMIT ?
`
	rows, err := s.db.QueryContext(ctx, q, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query analytics events: %w", err)
	}
	defer rows.Close()

	var out []AnalyticsEvent
	for rows.Next() {
		var ev AnalyticsEvent
		var tsMs int64
		if err := rows.Scan(&ev.ClientID, &ev.EndpointID, &ev.Event, &ev.Detail, &tsMs); err != nil {
			return nil, fmt.Errorf("store: scan analytics event: %w", err)
		}
		ev.Timestamp = time.UnixMilli(tsMs)
		out = append(out, ev)
	}
	return out, rows.Err()
}
