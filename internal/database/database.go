// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

// Package database manages PostgreSQL connection pools for the data-source
// modules.
package database

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnConfig holds the pieces of a database connection string. Password is
// resolved through a secrets provider at startup and never read from
// versioned configuration.
type ConnConfig struct {
	Host     string
	Port     uint16
	Database string
	User     string
	Password string
	SSLMode  string

	MinConns int32
	MaxConns int32
}

// BuildConnString assembles a pgx connection string from the config. User
// and password are escaped so that special characters survive URL parsing.
func BuildConnString(cfg ConnConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		cfg.Database,
		sslMode,
	)
}

// Connect opens a pgx pool against the configured database and verifies the
// connection with a ping before returning it.
func Connect(ctx context.Context, cfg ConnConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("error parsing connection config: %w", err)
	}

	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("error creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	return pool, nil
}
