package profile

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "knbackup"

// KeyringStore keeps the profile in the system keychain
type KeyringStore struct {
	account string
}

// NewKeyringStore creates a keyring store. account namespaces the entry so
// different profile paths do not collide.
func NewKeyringStore(account string) (*KeyringStore, error) {
	testKey := "availability_check"
	if err := keyring.Set(keyringService, testKey, "ok"); err != nil {
		return nil, fmt.Errorf("%w: keyring: %v", ErrStoreUnavailable, err)
	}
	_ = keyring.Delete(keyringService, testKey)

	if account == "" {
		account = "default"
	}
	return &KeyringStore{account: account}, nil
}

// Location describes the keyring entry
func (k *KeyringStore) Location() string {
	return "keyring:" + keyringService + "/" + k.account
}

// Load reads the profile from the keychain
func (k *KeyringStore) Load() (*Profile, error) {
	data, err := keyring.Get(keyringService, k.account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return &Profile{}, nil
		}
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}

	var p Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to parse keyring profile: %w", err)
	}
	return &p, nil
}

// Save writes the profile to the keychain
func (k *KeyringStore) Save(p *Profile) error {
	if err := validate(p); err != nil {
		return err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := keyring.Set(keyringService, k.account, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Clear deletes the keychain entry
func (k *KeyringStore) Clear() error {
	err := keyring.Delete(keyringService, k.account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}
