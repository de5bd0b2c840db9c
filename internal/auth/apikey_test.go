package auth

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	var s KeyringStore

	if _, err := s.Get(); !errors.Is(err, ErrNoKey) {
		t.Fatalf("expected ErrNoKey, got %v", err)
	}
	if err := s.Set("  abc123  "); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := s.Get()
	if err != nil || got != "abc123" {
		t.Fatalf("expected trimmed key, got %q (%v)", got, err)
	}
	if err := s.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(); !errors.Is(err, ErrNoKey) {
		t.Errorf("expected ErrNoKey on second delete, got %v", err)
	}
}

func TestFileStore(t *testing.T) {
	s := &FileStore{Path: filepath.Join(t.TempDir(), "nested", "api-key")}

	if _, err := s.Get(); !errors.Is(err, ErrNoKey) {
		t.Fatalf("expected ErrNoKey, got %v", err)
	}
	if err := s.Set(""); err == nil {
		t.Error("empty key should be rejected")
	}
	if err := s.Set("secret-key"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got, _ := s.Get(); got != "secret-key" {
		t.Errorf("expected secret-key, got %q", got)
	}
	if err := s.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
}

func TestResolveKey(t *testing.T) {
	s := &FileStore{Path: filepath.Join(t.TempDir(), "api-key")}
	if got := ResolveKey("", s); got != "" {
		t.Errorf("expected no key, got %q", got)
	}
	_ = s.Set("stored")
	if got := ResolveKey("", s); got != "stored" {
		t.Errorf("expected stored key, got %q", got)
	}
	if got := ResolveKey(" flag ", s); got != "flag" {
		t.Errorf("explicit key should win, got %q", got)
	}
}

func TestMask(t *testing.T) {
	if got := Mask("abcdefgh"); got != "****efgh" {
		t.Errorf("Mask = %q", got)
	}
	if got := Mask("abc"); got != "***" {
		t.Errorf("Mask = %q", got)
	}
}
