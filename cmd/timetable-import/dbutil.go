package main

import (
	"context"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
	"github.com/heartware/timetable-sync/pkg/configuration"
)

const (
	connectTimeout    = 10 * time.Second
	connectAttempts   = 3
	maxConnectBackoff = 4 * time.Second
)

func backoff(attempts int, maxBackoff time.Duration) time.Duration {
	if attempts <= 0 {
		return 0
	}
	// 1s * 2^(attempts-1)
	seconds := math.Pow(2, float64(attempts-1))
	d := time.Duration(seconds * float64(time.Second))
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// connectDB opens the per-run pool and pings it, retrying a few times, so
// connection problems surface before any file is read.
func connectDB(ctx context.Context, opts configuration.DatabaseOptions) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, opts.ConnectionString())
	if err != nil {
		return nil, withCode(exitDB, &domain.ConnectionError{Err: err})
	}
	if err := pingWithRetry(ctx, pool.Ping); err != nil {
		pool.Close()
		return nil, withCode(exitDB, &domain.ConnectionError{Err: err})
	}
	return pool, nil
}

func pingWithRetry(ctx context.Context, ping func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		err = ping(pingCtx)
		cancel()
		if err == nil || attempt == connectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(attempt, maxConnectBackoff)):
		}
	}
	return err
}

func connectSQLX(ctx context.Context, opts configuration.DatabaseOptions) (*sqlx.DB, error) {
	db, err := sqlx.Open("pgx", opts.ConnectionString())
	if err != nil {
		return nil, withCode(exitDB, &domain.ConnectionError{Err: err})
	}
	if err := pingWithRetry(ctx, db.PingContext); err != nil {
		_ = db.Close()
		return nil, withCode(exitDB, &domain.ConnectionError{Err: err})
	}
	return db, nil
}
