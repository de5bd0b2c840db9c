// Package auth stores the carrier API key in the OS keyring, with a file
// fallback for environments without one (CI, containers, Codespaces).
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name for keyring storage
	KeyringService = "tracktime"
	// KeyringUser is the entry holding the carrier API key
	KeyringUser = "carrier-api-key"
	// FallbackDir is the directory under $HOME for file-based storage
	FallbackDir = ".tracktime"
)

// ErrNoKey is returned when no API key is stored
var ErrNoKey = errors.New("no API key stored")

// KeyStore persists the carrier API key
type KeyStore interface {
	Get() (string, error)
	Set(key string) error
	Delete() error
	// Backend names the storage in user-facing messages
	Backend() string
}

// NewKeyStore picks the keyring when it works and a file under $HOME otherwise
func NewKeyStore() (KeyStore, error) {
	if useFileBasedStorage() {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		return &FileStore{Path: filepath.Join(home, FallbackDir, "api-key")}, nil
	}
	return KeyringStore{}, nil
}

func useFileBasedStorage() bool {
	if os.Getenv("CODESPACES") != "" || os.Getenv("CI") != "" {
		return true
	}
	// probe with a throwaway entry
	const probe = "_keyring_probe_"
	if err := keyring.Set(KeyringService, probe, "ok"); err != nil {
		return true
	}
	_ = keyring.Delete(KeyringService, probe)
	return false
}

// KeyringStore keeps the key in the OS keyring
type KeyringStore struct{}

func (KeyringStore) Get() (string, error) {
	v, err := keyring.Get(KeyringService, KeyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoKey
	}
	if err != nil {
		return "", fmt.Errorf("failed to read keyring: %w", err)
	}
	return v, nil
}

func (KeyringStore) Set(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key cannot be empty")
	}
	if err := keyring.Set(KeyringService, KeyringUser, key); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	return nil
}

func (KeyringStore) Delete() error {
	err := keyring.Delete(KeyringService, KeyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNoKey
	}
	return err
}

func (KeyringStore) Backend() string { return "OS keyring" }

// FileStore keeps the key in a 0600 file
type FileStore struct {
	Path string
}

func (s *FileStore) Get() (string, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoKey
	}
	if err != nil {
		return "", fmt.Errorf("failed to read key file: %w", err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", ErrNoKey
	}
	return key, nil
}

func (s *FileStore) Set(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(s.Path, []byte(key+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to save key file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete() error {
	err := os.Remove(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNoKey
	}
	return err
}

func (s *FileStore) Backend() string { return s.Path }

// Mask hides all but the last four characters of key
func Mask(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

// ResolveKey returns explicit when set, else the stored key, else ""
func ResolveKey(explicit string, store KeyStore) string {
	if k := strings.TrimSpace(explicit); k != "" {
		return k
	}
	if store == nil {
		return ""
	}
	k, err := store.Get()
	if err != nil {
		return ""
	}
	return k
}
