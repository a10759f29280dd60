package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

// PostgresStore implements UsageStore on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS command_usage (
		command    VARCHAR NOT NULL,
		subcommand VARCHAR NOT NULL DEFAULT '',
		day        DATE NOT NULL,
		count      BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (command, subcommand, day)
	);`
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) RecordUsage(ctx context.Context, command, subcommand string, day time.Time) error {
	sql := `
	INSERT INTO command_usage (command, subcommand, day, count) VALUES ($1::VARCHAR, $2::VARCHAR, $3::DATE, 1)
	ON CONFLICT ON CONSTRAINT command_usage_pkey
	DO
		UPDATE SET count = command_usage.count + 1;
	`
	if _, err := s.pool.Exec(ctx, sql, command, subcommand, dayKey(day)); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

func (s *PostgresStore) Usage(ctx context.Context, day time.Time) ([]UsageCount, error) {
	rows, err := s.pool.Query(ctx, `
	SELECT command, subcommand, count FROM command_usage
	WHERE day = $1::DATE
	ORDER BY count DESC, command, subcommand;`, dayKey(day))
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

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
