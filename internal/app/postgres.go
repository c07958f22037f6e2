package app

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/guttosm/tickerql/config"
	"github.com/guttosm/tickerql/internal/logger"

	_ "github.com/lib/pq" // PostgreSQL driver for database/sql
)

// sqlOpener is an indirection for unit testing; defaults to sql.Open
var sqlOpener = sql.Open

// pingBackoff builds the retry policy for the initial ping; tests shorten it.
var pingBackoff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// InitPostgres opens a PostgreSQL pool and waits for it to answer.
//
// Parameters:
//   - cfg (config.Config): Postgres settings; ConnectRetries bounds the ping attempts.
//
// Behavior:
//   - Opens a database handle with the DSN from cfg.Postgres.
//   - Pings with exponential backoff, logging each failed attempt.
//   - Closes the handle and returns the last error if the database never answers.
//
// Returns:
//   - *sql.DB: an open database connection pool (safe for concurrent use).
//   - error: if opening or pinging the database fails.
func InitPostgres(cfg config.Config) (*sql.DB, error) {
	db, err := sqlOpener("postgres", cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	retries := max(cfg.Postgres.ConnectRetries, 0)
	policy := backoff.WithMaxRetries(pingBackoff(), uint64(retries))
	err = backoff.RetryNotify(db.Ping, policy, func(err error, wait time.Duration) {
		logger.L().Warn().Err(err).Dur("retry_in", wait).Str("host", cfg.Postgres.Host).Msg("postgres not ready")
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return db, nil
}

// postgresOpener is an indirection used by InitializeApp; overridden in tests to avoid real connections.
var postgresOpener = InitPostgres
