// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvProvider(t *testing.T) {
	t.Setenv("SECRETS_TEST_PASSWORD", "hunter2")

	provider := Env()

	value, err := provider.FetchSecret("SECRETS_TEST_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", value)

	_, err = provider.FetchSecret("SECRETS_TEST_MISSING")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestStaticProvider(t *testing.T) {
	t.Parallel()

	provider := Static{"FRED_API_KEY": "abcdef"}

	value, err := provider.FetchSecret("FRED_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "abcdef", value)

	_, err = provider.FetchSecret("OTHER")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}
