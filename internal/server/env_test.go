// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadServerConfig()
		require.NoError(t, err)

		assert.Equal(t, "3000", cfg.HTTPPort)
		assert.Equal(t, "0.0.0.0", cfg.HTTPHost)
		assert.True(t, cfg.DisableStartupMessage)
	})

	t.Run("custom port", func(t *testing.T) {
		t.Setenv("HTTP_PORT", "8080")

		cfg, err := LoadServerConfig()
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.HTTPPort)
	})

	t.Run("invalid port", func(t *testing.T) {
		t.Setenv("HTTP_PORT", "not-a-port")

		_, err := LoadServerConfig()
		assert.ErrorIs(t, err, ErrEnvVariablesNotValid)
	})

	t.Run("port out of range", func(t *testing.T) {
		t.Setenv("HTTP_PORT", "70000")

		_, err := LoadServerConfig()
		assert.ErrorIs(t, err, ErrEnvVariablesNotValid)
	})
}
