// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Keys used in the persistent key-value store
const (
	KeyAccess  = "access"
	KeyRefresh = "refresh"
	KeyEmail   = "user_email"
)

var ErrNoRefreshToken = errors.New("no refresh token stored")

// Store is a persistent key-value store for client identity, the way a
// browser uses localStorage. Get returns "" for a missing key.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(keys ...string) error
}

// TokenPair is the access/refresh pair issued at login
type TokenPair struct {
	Access  string
	Refresh string
}

// Tokens reads and writes the token pair and voter email in a Store.
type Tokens struct {
	store Store
}

func NewTokens(store Store) *Tokens {
	return &Tokens{store: store}
}

// AccessToken returns the stored access token, or "" when anonymous.
func (t *Tokens) AccessToken() (string, error) {
	return t.store.Get(KeyAccess)
}

// RefreshToken returns the stored refresh token, or ErrNoRefreshToken.
func (t *Tokens) RefreshToken() (string, error) {
	refresh, err := t.store.Get(KeyRefresh)
	if err != nil {
		return "", err
	}
	if refresh == "" {
		return "", ErrNoRefreshToken
	}
	return refresh, nil
}

// Save stores both tokens.
func (t *Tokens) Save(pair TokenPair) error {
	if err := t.store.Set(KeyAccess, pair.Access); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	if err := t.store.Set(KeyRefresh, pair.Refresh); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

// SetAccess replaces only the access token, as after a refresh.
func (t *Tokens) SetAccess(access string) error {
	return t.store.Set(KeyAccess, access)
}

// Clear removes both tokens.
func (t *Tokens) Clear() error {
	return t.store.Delete(KeyAccess, KeyRefresh)
}

// Email returns the best-effort voter email.
func (t *Tokens) Email() (string, error) {
	return t.store.Get(KeyEmail)
}

func (t *Tokens) SetEmail(email string) error {
	return t.store.Set(KeyEmail, email)
}

// Memory is an in-process Store, used when no persistent store is configured.
type Memory struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string]string)}
}

func (s *Memory) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[key], nil
}

func (s *Memory) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *Memory) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.m, k)
	}
	return nil
}

// GenerateToken creates a random URL-safe token (24 bytes of entropy)
func GenerateToken() (string, error) {
	b := make([]byte, 24)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	// URL-safe base64 without padding
	return strings.TrimRight(base64.URLEncoding.EncodeToString(b), "="), nil
}
