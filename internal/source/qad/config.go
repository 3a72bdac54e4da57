// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package qad

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/Barclays/research-data-science/internal/database"
	"github.com/Barclays/research-data-science/internal/secrets"
)

// Config holds the QAD module environment configuration. The database
// password is looked up through the secrets provider under PasswordSecret,
// never read from configuration directly.
type Config struct {
	Host           string `env:"QAD_HOST,required,notEmpty"`
	Port           uint16 `env:"QAD_PORT" envDefault:"5432"`
	Database       string `env:"QAD_DATABASE" envDefault:"qai"`
	User           string `env:"QAD_USER,required,notEmpty"`
	PasswordSecret string `env:"QAD_PASSWORD_SECRET" envDefault:"QAD_PASSWORD"`
	SSLMode        string `env:"QAD_SSLMODE" envDefault:"prefer"`
	MinConns       int32  `env:"QAD_MIN_CONNS" envDefault:"1"`
	MaxConns       int32  `env:"QAD_MAX_CONNS" envDefault:"4"`
}

// NewConfigFromEnv reads the QAD configuration from environment variables.
func NewConfigFromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("error parsing qad environment: %w", err)
	}
	return cfg, nil
}

// ConnConfig resolves the module's database connection settings, fetching
// the password from the secrets provider.
func (c Config) ConnConfig(provider secrets.Provider) (database.ConnConfig, error) {
	password, err := provider.FetchSecret(c.PasswordSecret)
	if err != nil {
		return database.ConnConfig{}, fmt.Errorf("error resolving qad password: %w", err)
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
