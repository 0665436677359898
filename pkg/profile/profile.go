package profile

import (
	"errors"
	"fmt"
	"strings"

	"knbackup/pkg/config"
)

var (
	// ErrInvalidProfile is returned when saving a profile without a refresh token
	ErrInvalidProfile = errors.New("profile requires a refresh token")
	// ErrStoreUnavailable is returned when a backend cannot be used on this system
	ErrStoreUnavailable = errors.New("profile store unavailable")
)

// Profile is the login state persisted between runs
type Profile struct {
	UserID       string `toml:"user_id,omitempty" json:"user_id,omitempty"`
	RefreshToken string `toml:"refresh_token,omitempty" json:"refresh_token,omitempty"`
}

// IsEmpty reports whether the profile carries no credentials
func (p *Profile) IsEmpty() bool {
	return p == nil || (p.UserID == "" && p.RefreshToken == "")
}

// Store persists a single default profile.
// Load returns an empty profile and no error when nothing has been saved yet.
type Store interface {
	Load() (*Profile, error)
	Save(p *Profile) error
	Clear() error
	Location() string
}

// NewStore creates the store for backend ("file", "keyring" or "encrypted").
// path is the profile file for "file" and "encrypted" and the keyring account
// name for "keyring".
func NewStore(backend, path string) (Store, error) {
	path = config.ExpandHome(path)

	switch strings.ToLower(backend) {
	case "", "file":
		return NewFileStore(path), nil
	case "keyring":
		return NewKeyringStore(path)
	case "encrypted":
		return NewEncryptedFileStore(path + ".enc")
	default:
		return nil, fmt.Errorf("unknown profile backend %q", backend)
	}
}

func validate(p *Profile) error {
	if p == nil || p.RefreshToken == "" {
		return ErrInvalidProfile
	}
	return nil
}
