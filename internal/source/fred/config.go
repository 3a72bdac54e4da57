// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package fred

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the FRED module environment configuration. The API key is
// looked up through the secrets provider under APIKeySecret.
type Config struct {
	BaseURL      string `env:"FRED_BASE_URL" envDefault:"https://api.stlouisfed.org/fred"`
	APIKeySecret string `env:"FRED_API_KEY_SECRET" envDefault:"FRED_API_KEY"`
	// ProxyURL routes requests through an outbound proxy, needed when the
	// process runs inside a network without direct internet access.
	ProxyURL string `env:"FRED_PROXY_URL"`
}

// NewConfigFromEnv reads the FRED configuration from environment variables.
func NewConfigFromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("error parsing fred environment: %w", err)
	}
	return cfg, nil
}
