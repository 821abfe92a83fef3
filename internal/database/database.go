package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"patentchat/internal/logging"
)

// Pool is the shared connection pool used by the HTTP handlers.
var Pool *pgxpool.Pool

// Connect opens the pool for databaseURL and checks it with a ping.
func Connect(ctx context.Context, databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	Pool, err = pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := Pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log := logging.Component("database")
	log.Info().Msg("Database connected successfully using PGX")
	return nil
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}

// PurgeIdempotencyKeys deletes stored idempotent responses older than ttl.
func PurgeIdempotencyKeys(ctx context.Context, ttl time.Duration) (int64, error) {
	tag, err := Pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, time.Now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Close releases the pool.
func Close() {
	if Pool != nil {
		Pool.Close()
	}
}
