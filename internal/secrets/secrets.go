// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

// Package secrets resolves credentials at runtime so that connection
// passwords and API keys never live in versioned configuration files.
package secrets

import (
	"errors"
	"fmt"
	"os"
)

// ErrSecretNotFound is returned when a provider cannot resolve a secret name.
var ErrSecretNotFound = errors.New("secret not found")

// Provider fetches a named secret from a backing store.
type Provider interface {
	FetchSecret(name string) (string, error)
}

type envProvider struct{}

// Env returns a Provider that reads secrets from environment variables.
func Env() Provider {
	return envProvider{}
}

func (envProvider) FetchSecret(name string) (string, error) {
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("%w: %q not set in environment", ErrSecretNotFound, name)
	}
	return value, nil
}

// Static is a fixed in-memory Provider, useful in tests and local runs.
type Static map[string]string

func (s Static) FetchSecret(name string) (string, error) {
	value, ok := s[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrSecretNotFound, name)
	}
	return value, nil
}
