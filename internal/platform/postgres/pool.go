// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package postgres opens the pgx connection pool behind every Trailhead store.
//
// Stores depend on the narrow [DB] interface rather than the pool, so the same
// code runs against a pool, a single connection or a transaction.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the query surface shared by [*pgxpool.Pool], [*pgx.Conn] and [pgx.Tx].
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const pingTimeout = 2 * time.Second

// PoolOptions sizes the pool and bounds its connections.
type PoolOptions struct {
	MaxConns int32
	MinConns int32
	// StatementTimeout is applied to every new session. Zero leaves the server default.
	StatementTimeout time.Duration
	// ConnectAttempts is how many times the first ping is tried before giving up.
	ConnectAttempts int
}

// DefaultPoolOptions suits a single API replica.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxConns:         25,
		MinConns:         2,
		StatementTimeout: 30 * time.Second,
		ConnectAttempts:  5,
	}
}

// NewPool parses dsn, opens a pool sized by options and waits until the
// database answers a ping.
func NewPool(ctx context.Context, dsn string, options PoolOptions, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid DSN: %w", err)
	}

	poolConfig.MaxConns = options.MaxConns
	poolConfig.MinConns = options.MinConns
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 10 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	poolConfig.ConnConfig.ConnectTimeout = 5 * time.Second

	if options.StatementTimeout > 0 {
		statement := fmt.Sprintf("SET statement_timeout = %d", options.StatementTimeout.Milliseconds())
		poolConfig.AfterConnect = func(ctx context.Context, connection *pgx.Conn) error {
			_, err := connection.Exec(ctx, statement)
			return err
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}

	if err := waitReady(ctx, pool, options.ConnectAttempts, logger); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("postgres pool connected",
		slog.String("host", poolConfig.ConnConfig.Host),
		slog.String("database", poolConfig.ConnConfig.Database),
		slog.Int("max_conns", int(poolConfig.MaxConns)),
	)
	return pool, nil
}

// waitReady pings until the database answers, doubling the pause after each
// failure.
func waitReady(ctx context.Context, pool *pgxpool.Pool, attempts int, logger *slog.Logger) error {
	attempts = max(attempts, 1)
	pause := 500 * time.Millisecond

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = Ping(ctx, pool); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		logger.Warn("postgres_not_ready",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", pause),
			slog.Any("error", err),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres: gave up waiting: %w", ctx.Err())
		case <-time.After(pause):
		}
		pause *= 2
	}
	return err
}

// Ping verifies that the PostgreSQL connection pool is healthy.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}
	return nil
}
