package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements UsageStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc's driver serializes writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if err := createSQLiteSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func createSQLiteSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS command_usage (
			command    TEXT NOT NULL,
			subcommand TEXT NOT NULL DEFAULT '',
			day        TEXT NOT NULL,
			count      INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (command, subcommand, day)
		);
		CREATE INDEX IF NOT EXISTS idx_command_usage_day ON command_usage(day);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordUsage(ctx context.Context, command, subcommand string, day time.Time) error {
	query := `
		INSERT INTO command_usage (command, subcommand, day, count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (command, subcommand, day) DO UPDATE SET count = count + 1
	`
	if _, err := s.db.ExecContext(ctx, query, command, subcommand, dayKey(day)); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Usage(ctx context.Context, day time.Time) ([]UsageCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT command, subcommand, count FROM command_usage
		WHERE day = ?
		ORDER BY count DESC, command, subcommand
	`, dayKey(day))
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	var out []UsageCount
	for rows.Next() {
		var u UsageCount
		if err := rows.Scan(&u.Command, &u.Subcommand, &u.Count); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Close releases database resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
