package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mosaic-db/mosaic/internal/driver"
)

const (
	defaultMaxConns = 10
	defaultMinConns = 2
	defaultPort     = 5432
)

// buildDSN constructs the postgres key/value connection string.
func buildDSN(params driver.ConnectionParams) string {
	port := params.Port
	if port == 0 {
		port = defaultPort
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=prefer",
		params.Host, port, params.Username, params.Password, params.Database,
	)
}

// buildPool creates a bounded pgxpool for the given parameters.
func buildPool(ctx context.Context, params driver.ConnectionParams, maxConns int32) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(buildDSN(params))
	if err != nil {
		return nil, err
	}

	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	poolCfg.MaxConns = maxConns
	poolCfg.MinConns = defaultMinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
