package api

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tempFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.xlsx")
	if err := os.WriteFile(path, []byte("workbook"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestDownloadStore_SingleUse(t *testing.T) {
	t.Parallel()

	s := newDownloadStore()
	token := s.Put(tempFile(t), "export.xlsx", "application/octet-stream", false)

	if _, ok := s.Take(token); !ok {
		t.Fatalf("first take failed")
	}
	if _, ok := s.Take(token); ok {
		t.Fatalf("token redeemed twice")
	}
}

func TestDownloadStore_ExpiredTokenRejected(t *testing.T) {
	t.Parallel()

	s := newDownloadStore()
	path := tempFile(t)
	token := s.Put(path, "export.xlsx", "application/octet-stream", true)

	s.mu.Lock()
	d := s.items[token]
	d.expiresAt = time.Now().Add(-time.Minute)
	s.items[token] = d
	s.mu.Unlock()

	if _, ok := s.Take(token); ok {
		t.Fatalf("expired token redeemed")
	}
	// Purging an expired transient entry removes its file too.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("transient file survived expiry: %v", err)
	}
}

func TestDownloadStore_ExpiryKeepsLibraryFiles(t *testing.T) {
	t.Parallel()

	s := newDownloadStore()
	path := tempFile(t)
	token := s.Put(path, "manual.pdf", "application/pdf", false)

	s.mu.Lock()
	d := s.items[token]
	d.expiresAt = time.Now().Add(-time.Minute)
	s.items[token] = d
	s.mu.Unlock()

	if _, ok := s.Take(token); ok {
		t.Fatalf("expired token redeemed")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("library file removed on expiry: %v", err)
	}
}
