// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/danielhkuo/vote-x/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	// 24 bytes base64 without padding = 32 chars
	if len(token) != 32 {
		t.Errorf("GenerateToken() length = %d, want 32", len(token))
	}
	for _, c := range token {
		if c == '+' || c == '/' || c == '=' {
			t.Errorf("GenerateToken() contains non-URL-safe char: %c", c)
		}
	}

	other, _ := GenerateToken()
	if token == other {
		t.Error("GenerateToken() produced duplicate tokens (extremely unlikely)")
	}
}

func TestTokens(t *testing.T) {
	tokens := NewTokens(NewMemory())

	if tok, _ := tokens.AccessToken(); tok != "" {
		t.Errorf("expected no access token, got %q", tok)
	}
	if _, err := tokens.RefreshToken(); !errors.Is(err, ErrNoRefreshToken) {
		t.Errorf("expected ErrNoRefreshToken, got %v", err)
	}

	if err := tokens.Save(TokenPair{Access: "a1", Refresh: "r1"}); err != nil {
		t.Fatal(err)
	}
	if err := tokens.SetAccess("a2"); err != nil {
		t.Fatal(err)
	}
	if tok, _ := tokens.AccessToken(); tok != "a2" {
		t.Errorf("expected a2, got %q", tok)
	}
	if tok, _ := tokens.RefreshToken(); tok != "r1" {
		t.Errorf("expected r1, got %q", tok)
	}

	if err := tokens.Clear(); err != nil {
		t.Fatal(err)
	}
	if tok, _ := tokens.AccessToken(); tok != "" {
		t.Errorf("Clear left access token %q", tok)
	}
}

func TestSession(t *testing.T) {
	tokens := NewTokens(NewMemory())
	s := NewSession(tokens)

	if err := s.Reload(); err != nil {
		t.Fatal(err)
	}
	if s.Viewer().Authenticated {
		t.Error("no token stored: viewer must be anonymous")
	}

	_ = tokens.Save(TokenPair{Access: "a", Refresh: "r"})
	if err := s.SetProfile(models.Profile{ID: 5, Username: "alice", Email: "alice@x.com"}); err != nil {
		t.Fatal(err)
	}
	v := s.Viewer()
	if !v.Authenticated || v.ID != 5 || v.Email != "alice@x.com" || v.Username != "alice" {
		t.Errorf("unexpected viewer %+v", v)
	}

	if err := s.Logout(); err != nil {
		t.Fatal(err)
	}
	v = s.Viewer()
	if v.Authenticated || v.ID != 0 {
		t.Errorf("viewer still authenticated after logout: %+v", v)
	}
	if v.Email != "alice@x.com" {
		t.Errorf("voter email should survive logout, got %q", v.Email)
	}
}

func TestSessionNormalizesProfileEmail(t *testing.T) {
	tokens := NewTokens(NewMemory())
	s := NewSession(tokens)
	_ = tokens.Save(TokenPair{Access: "a", Refresh: "r"})

	if err := s.SetProfile(models.Profile{ID: 5, Username: "alice", Email: " Alice@X.COM "}); err != nil {
		t.Fatal(err)
	}
	if got := s.Viewer().Email; got != "alice@x.com" {
		t.Errorf("viewer email = %q, want alice@x.com", got)
	}
	if stored, _ := tokens.Email(); stored != "alice@x.com" {
		t.Errorf("stored email = %q, want alice@x.com", stored)
	}

	allowed := models.Poll{AllowedUsers: []models.SimpleUser{{Email: "alice@x.com"}}}
	if !allowed.Allows(s.Viewer().Email) {
		t.Error("capitalized profile email should still match the allowlist")
	}
}

// Another process writing the store flips the viewer after Reload.
func TestSessionSeesExternalChange(t *testing.T) {
	store := NewMemory()
	s := NewSession(NewTokens(store))
	_ = s.Reload()

	_ = store.Set(KeyAccess, "from-other-tab")
	if s.Viewer().Authenticated {
		t.Fatal("viewer changed before Reload")
	}
	_ = s.Reload()
	if !s.Viewer().Authenticated {
		t.Error("Reload did not pick up external login")
	}
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "votex.db")
	if err := os.WriteFile(path, []byte("v1"), 0o600); err != nil {
		t.Fatal(err)
	}

	changed := make(chan struct{}, 1)
	w := NewWatcher(path, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changed:
		t.Fatal("change reported for unrelated file")
	case <-time.After(100 * time.Millisecond):
	}

	if err := os.WriteFile(path+"-wal", []byte("v2"), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported for store file")
	}
}

func TestWatcherStopIdempotent(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "votex.db"), func() {})
	w.Stop()
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}
