// Package history mirrors gauge readings into SQLite so trends can be
// queried without parsing the CSV log.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ironsheep/oil-level-monitor/internal/gauge"
)

// Entry is one stored reading.
type Entry struct {
	ID         int64
	Timestamp  time.Time
	Percentage int
	Status     string
	ImagePath  string
	RawResult  string
}

// Stats summarizes the stored readings.
type Stats struct {
	Count  int
	Min    int
	Max    int
	Latest *Entry
}

// Store wraps the SQLite connection with thread-safe access.
type Store struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		taken_at DATETIME NOT NULL,
		percentage INTEGER NOT NULL CHECK (percentage BETWEEN 0 AND 100),
		status TEXT NOT NULL,
		image_path TEXT NOT NULL DEFAULT '',
		raw_result TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_readings_taken_at ON readings(taken_at);
	`

	_, err := s.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Record stores a parsed reading with its classification.
func (s *Store) Record(ctx context.Context, r *gauge.Reading, status gauge.Status) error {
	if r == nil || r.Percentage == nil {
		return errors.New("cannot record a reading without a percentage")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO readings (taken_at, percentage, status, image_path, raw_result)
		VALUES (?, ?, ?, ?, ?)
	`, r.Timestamp.UTC(), *r.Percentage, status.String(), r.SourceImagePath, r.RawText)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

// Recent returns up to n readings, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, taken_at, percentage, status, image_path, raw_result
		FROM readings ORDER BY taken_at DESC, id DESC LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Percentage, &e.Status, &e.ImagePath, &e.RawResult); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		e.Timestamp = e.Timestamp.Local()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Summary returns count, range and the latest reading. Latest is nil for an
// empty store.
func (s *Store) Summary(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	var (
		count    int
		min, max sql.NullInt64
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(percentage), MAX(percentage) FROM readings`,
	).Scan(&count, &min, &max)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("failed to summarize readings: %w", err)
	}

	stats := &Stats{Count: count, Min: int(min.Int64), Max: int(max.Int64)}
	if count == 0 {
		return stats, nil
	}

	latest, err := s.Recent(ctx, 1)
	if err != nil {
		return nil, err
	}
	stats.Latest = &latest[0]
	return stats, nil
}
