// Package storage persists command usage counts and the blacklist.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// UsageCount is the number of invocations of one command path on one day.
type UsageCount struct {
	Command    string
	Subcommand string
	Count      int64
}

// Path is the slash path, e.g. "stats today".
func (u UsageCount) Path() string {
	if u.Subcommand == "" {
		return u.Command
	}
	return u.Command + " " + u.Subcommand
}

// UsageStore counts command usage per day.
type UsageStore interface {
	RecordUsage(ctx context.Context, command, subcommand string, day time.Time) error
	// Usage returns the counts for day, highest first.
	Usage(ctx context.Context, day time.Time) ([]UsageCount, error)
	Close() error
}

// Open picks the backend from dsn: postgres URLs go to Postgres, anything
// else is a SQLite file path whose directory is created on demand.
func Open(ctx context.Context, dsn string) (UsageStore, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewPostgresStore(ctx, dsn)
	}
	if dir := filepath.Dir(dsn); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	return NewSQLiteStore(dsn)
}

func dayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}
