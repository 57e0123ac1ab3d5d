package auth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "skycrawl"
	keyringPrefix  = "atproto_"
)

// KeyringStore keeps accounts in the system keychain, one JSON entry per handle
type KeyringStore struct{}

// NewKeyringStore returns a store after checking that the keychain accepts writes
func NewKeyringStore() (*KeyringStore, error) {
	probe := keyringPrefix + "probe"
	if err := keyring.Set(keyringService, probe, "ok"); err != nil {
		return nil, fmt.Errorf("%w: keyring: %v", ErrStoreUnavailable, err)
	}
	_ = keyring.Delete(keyringService, probe)
	return &KeyringStore{}, nil
}

func keyringKey(handle string) string {
	return keyringPrefix + handle
}

// Store saves credentials to the system keychain
func (k *KeyringStore) Store(account *Account) error {
	if account == nil || account.Handle == "" {
		return ErrInvalidCredentials
	}

	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}
	if err := keyring.Set(keyringService, keyringKey(account.Handle), string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Retrieve gets credentials from the system keychain
func (k *KeyringStore) Retrieve(handle string) (*Account, error) {
	if handle == "" {
		return nil, ErrInvalidCredentials
	}

	data, err := keyring.Get(keyringService, keyringKey(handle))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrCredentialsNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var account Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return &account, nil
}

// List always returns an empty list; go-keyring cannot enumerate entries
func (k *KeyringStore) List() ([]*Account, error) {
	return []*Account{}, nil
}

// Delete removes credentials from the system keychain
func (k *KeyringStore) Delete(handle string) error {
	if handle == "" {
		return ErrInvalidCredentials
	}

	err := keyring.Delete(keyringService, keyringKey(handle))
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrCredentialsNotFound
	} else if err != nil {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

// Exists checks if credentials exist in the keychain
func (k *KeyringStore) Exists(handle string) bool {
	if handle == "" {
		return false
	}
	_, err := keyring.Get(keyringService, keyringKey(handle))
	return err == nil
}
