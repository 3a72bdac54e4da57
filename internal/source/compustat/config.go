// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package compustat

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/Barclays/research-data-science/internal/database"
	"github.com/Barclays/research-data-science/internal/secrets"
)

// Config holds the Compustat module environment configuration.
type Config struct {
	Host           string `env:"COMPUSTAT_HOST,required,notEmpty"`
	Port           uint16 `env:"COMPUSTAT_PORT" envDefault:"5432"`
	Database       string `env:"COMPUSTAT_DATABASE" envDefault:"comp"`
	User           string `env:"COMPUSTAT_USER,required,notEmpty"`
	PasswordSecret string `env:"COMPUSTAT_PASSWORD_SECRET" envDefault:"COMPUSTAT_PASSWORD"`
	SSLMode        string `env:"COMPUSTAT_SSLMODE" envDefault:"prefer"`
	MinConns       int32  `env:"COMPUSTAT_MIN_CONNS" envDefault:"1"`
	MaxConns       int32  `env:"COMPUSTAT_MAX_CONNS" envDefault:"4"`
}

// NewConfigFromEnv reads the Compustat configuration from environment
// variables.
func NewConfigFromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("error parsing compustat environment: %w", err)
	}
	return cfg, nil
}

// ConnConfig resolves the module's database connection settings, fetching
// the password from the secrets provider.
func (c Config) ConnConfig(provider secrets.Provider) (database.ConnConfig, error) {
	password, err := provider.FetchSecret(c.PasswordSecret)
	if err != nil {
		return database.ConnConfig{}, fmt.Errorf("error resolving compustat password: %w", err)
	}

	return database.ConnConfig{
		Host:     c.Host,
		Port:     c.Port,
		Database: c.Database,
		User:     c.User,
		Password: password,
		SSLMode:  c.SSLMode,
		MinConns: c.MinConns,
		MaxConns: c.MaxConns,
	}, nil
}
