package auth

import (
	"os"
	"strings"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvUsername = "ATPROTO_USERNAME"
	EnvPassword = "ATPROTO_PASSWORD"
	EnvEndpoint = "ATPROTO_ENDPOINT"
)

// EnvironmentStore is a read-only store over ATPROTO_USERNAME and
// ATPROTO_PASSWORD. It answers for the configured handle, or for any handle
// when ATPROTO_USERNAME is unset.
type EnvironmentStore struct {
	getenv func(string) string
}

// NewEnvironmentStore creates a store reading the process environment
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{getenv: os.Getenv}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables
func (e *EnvironmentStore) Retrieve(handle string) (*Account, error) {
	password := e.getenv(EnvPassword)
	if password == "" {
		return nil, ErrCredentialsNotFound
	}

	envHandle := strings.TrimSpace(e.getenv(EnvUsername))
	switch {
	case handle == "" && envHandle == "":
		return nil, ErrCredentialsNotFound
	case handle == "":
		handle = envHandle
	case envHandle != "" && envHandle != handle:
		return nil, ErrCredentialsNotFound
	}

	return &Account{
		Handle:       handle,
		Endpoint:     e.getenv(EnvEndpoint),
		AppPassword:  password,
		LastModified: time.Now(),
	}, nil
}

// List returns the environment account if one is configured
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(handle string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist for handle
func (e *EnvironmentStore) Exists(handle string) bool {
	_, err := e.Retrieve(handle)
	return err == nil
}
