// Package store keeps a local sqlite journal of decoded telemetry readings.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed sql/schema.sql
var schemaSQL string

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/latest-readings.sql
var latestReadingsSQL string

// Reading is one persisted telemetry record.
type Reading struct {
	Time        time.Time
	Temperature float64
	Humidity    float64
	Pressure    float64
	Red         float64
	Green       float64
	Blue        float64
	Ambient     float64
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the reading journal at path. ":memory:"
// is accepted for tests.
func Open(path string) (*Store, error) {
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store open: %w", err)
	}

	// One writer, short-lived statements; sqlite wants low concurrency.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store ping: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InsertReading appends one reading to the journal.
func (s *Store) InsertReading(r Reading) error {
	ts := r.Time.UTC().Format(time.RFC3339Nano)
	_, err := s.db.Exec(insertReadingSQL,
		ts, r.Temperature, r.Humidity, r.Pressure,
		r.Red, r.Green, r.Blue, r.Ambient,
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// LatestReadings returns up to limit readings, newest first.
func (s *Store) LatestReadings(limit int) ([]Reading, error) {
	rows, err := s.db.Query(latestReadingsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close readings rows", "error", err)
		}
	}()

	var out []Reading
	for rows.Next() {
		var r Reading
		var ts string
		if err := rows.Scan(&ts, &r.Temperature, &r.Humidity, &r.Pressure,
			&r.Red, &r.Green, &r.Blue, &r.Ambient); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		r.Time = t
		out = append(out, r)
	}
	return out, rows.Err()
}

func buildDSN(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}

	// Ensure directory exists for a file-backed db.
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
