// Package secrets stores VPN credentials (for --auth-user-pass) in the
// platform keyring, with an encrypted file store as the fallback backend.
package secrets

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

// ErrNotFound is returned when no credentials are stored for a remote.
var ErrNotFound = errors.New("credentials not found")

// serviceName is the keyring service identifier for all adapter credentials.
const serviceName = "openvpn-adapter"

// Credentials is a username/password pair for an OpenVPN remote.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Store provides secure credential storage keyed by remote name.
//
//go:generate go run github.com/matryer/moq@latest -pkg mocks -out mocks/store.go . Store
type Store interface {
	// Set stores credentials for a remote, replacing any existing entry.
	Set(remote string, creds Credentials) error

	// Get retrieves credentials for a remote.
	// Returns ErrNotFound if no entry exists.
	Get(remote string) (Credentials, error)

	// Delete removes the credentials for a remote.
	// Returns nil if no entry exists.
	Delete(remote string) error
}

// allowedBackends restricts backend selection; nil means any available
// backend. Tests pin this to the file backend for determinism.
var allowedBackends []keyring.BackendType

type store struct {
	ring keyring.Keyring
}

// Open opens the credential store. fileDir is where the file backend keeps
// its entries when no OS keyring is available; filePassword encrypts them
// (empty disables the passphrase prompt).
func Open(fileDir, filePassword string) (Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:      serviceName,
		AllowedBackends:  allowedBackends,
		FileDir:          fileDir,
		FilePasswordFunc: keyring.FixedStringPrompt(filePassword),
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return &store{ring: ring}, nil
}

func (s *store) Set(remote string, creds Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	err = s.ring.Set(keyring.Item{
		Key:   remote,
		Label: "OpenVPN - " + remote,
		Data:  data,
	})
	if err != nil {
		return fmt.Errorf("store credentials for %s: %w", remote, err)
	}
	return nil
}

func (s *store) Get(remote string) (Credentials, error) {
	item, err := s.ring.Get(remote)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return Credentials{}, ErrNotFound
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials for %s: %w", remote, err)
	}

	var creds Credentials
	if err := json.Unmarshal(item.Data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("decode credentials for %s: %w", remote, err)
	}
	return creds, nil
}

func (s *store) Delete(remote string) error {
	err := s.ring.Remove(remote)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete credentials for %s: %w", remote, err)
	}
	return nil
}
