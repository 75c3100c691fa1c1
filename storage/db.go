package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createReviewsTable = `
CREATE TABLE IF NOT EXISTS reviews (
    id UUID PRIMARY KEY,
    filename TEXT NOT NULL,
    country TEXT NOT NULL DEFAULT '',
    contract_type TEXT NOT NULL DEFAULT '',
    pages_detected INT NOT NULL,
    characters_extracted INT NOT NULL,
    sections_detected INT NOT NULL,
    analysis JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func Connect(ctx context.Context, databaseURL string, logger *slog.Logger) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var pool *pgxpool.Pool
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		config, cfgErr := pgxpool.ParseConfig(databaseURL)
		if cfgErr != nil {
			return nil, fmt.Errorf("unable to parse DATABASE_URL: %w", cfgErr)
		}

		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			err = pool.Ping(ctx)
			if err == nil {
				logger.Info("Successfully connected to the database")
				break
			}
		}

		logger.Warn("Failed to connect to the database",
			slog.Int("attempt", i+1),
			slog.Int("max_attempts", maxRetries),
			slog.String("error", err.Error()))
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database after %d attempts: %w", maxRetries, err)
	}

	if _, err := pool.Exec(ctx, createReviewsTable); err != nil {
		return nil, fmt.Errorf("unable to create reviews table: %w", err)
	}

	return pool, nil
}
