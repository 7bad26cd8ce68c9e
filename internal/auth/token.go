// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package auth

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	xglog "github.com/ManuGH/drivecopy/internal/log"
	"github.com/google/renameio/v2"
	"golang.org/x/oauth2"
)

// LoadToken reads a cached OAuth2 token from path.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- token path comes from operator config
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token file %s: %w", path, err)
	}
	return &tok, nil
}

// SaveToken persists tok atomically with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// matchState compares the returned OAuth state using constant-time comparison.
// Empty values never match.
func matchState(got, expected string) bool {
	if strings.TrimSpace(expected) == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// savingSource writes refreshed tokens back to the cache file.
type savingSource struct {
	mu   sync.Mutex
	src  oauth2.TokenSource
	path string
	last string
}

func newSavingSource(src oauth2.TokenSource, path string, current *oauth2.Token) *savingSource {
	s := &savingSource{src: src, path: path}
	if current != nil {
		s.last = current.AccessToken
	}
	return s
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last && s.path != "" {
		if err := SaveToken(s.path, tok); err != nil {
			logger := xglog.WithComponent("auth")
			logger.Warn().Err(err).Str(xglog.FieldPath, s.path).Msg("failed to persist refreshed token")
		} else {
			s.last = tok.AccessToken
		}
	}
	return tok, nil
}
