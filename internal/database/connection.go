package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const defaultMaxConns = 5

type poolOptions struct {
	maxConns int32
	logger   zerolog.Logger
}

// PoolOption configures NewPool.
type PoolOption func(*poolOptions)

// WithMaxConns overrides the pool's connection limit.
func WithMaxConns(n int32) PoolOption {
	return func(o *poolOptions) {
		if n > 0 {
			o.maxConns = n
		}
	}
}

// WithLogger sets the logger used to report connection setup.
func WithLogger(l zerolog.Logger) PoolOption {
	return func(o *poolOptions) { o.logger = l }
}

// NewPool creates a pgx connection pool for databaseURL and pings it.
// Migrations and the animal store share this pool, so the connection
// limit stays small by default.
func NewPool(ctx context.Context, databaseURL string, opts ...PoolOption) (*pgxpool.Pool, error) {
	o := poolOptions{maxConns: defaultMaxConns, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDatabaseURL, err)
	}

	poolCfg.MaxConns = o.maxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	o.logger.Debug().
		Str("host", poolCfg.ConnConfig.Host).
		Str("database", poolCfg.ConnConfig.Database).
		Int32("max_conns", o.maxConns).
		Msg("connected to database")

	return pool, nil
}
