// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type tokenServer struct {
	mu        sync.Mutex
	verifiers []string
	grants    []string
}

func (s *tokenServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	s.mu.Lock()
	s.verifiers = append(s.verifiers, r.PostForm.Get("code_verifier"))
	s.grants = append(s.grants, r.PostForm.Get("grant_type"))
	s.mu.Unlock()

	if r.PostForm.Get("grant_type") == "authorization_code" && r.PostForm.Get("code") != "good-code" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"invalid_grant"}`)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  "access-" + r.PostForm.Get("grant_type"),
		"token_type":    "Bearer",
		"expires_in":    3600,
		"refresh_token": "refresh-1",
	})
}

func newOAuthConfig(t *testing.T) (*oauth2.Config, *tokenServer) {
	t.Helper()
	ts := &tokenServer{}
	srv := httptest.NewServer(ts)
	t.Cleanup(srv.Close)
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Scopes:       []string{"scope-a"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.example.com/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}, ts
}

// consent simulates the browser: it follows the redirect with the given code and state.
func consent(t *testing.T, code string, alterState func(string) string) func(string) error {
	return func(raw string) error {
		u, err := url.Parse(raw)
		if err != nil {
			return err
		}
		q := u.Query()
		assert.Equal(t, "S256", q.Get("code_challenge_method"))
		assert.NotEmpty(t, q.Get("code_challenge"))
		assert.Equal(t, "offline", q.Get("access_type"))

		state := q.Get("state")
		if alterState != nil {
			state = alterState(state)
		}
		cb, err := url.Parse(q.Get("redirect_uri"))
		if err != nil {
			return err
		}
		cq := cb.Query()
		if code != "" {
			cq.Set("code", code)
		} else {
			cq.Set("error", "access_denied")
		}
		cq.Set("state", state)
		cb.RawQuery = cq.Encode()

		go func() {
			resp, err := http.Get(cb.String())
			if err == nil {
				_ = resp.Body.Close()
			}
		}()
		return nil
	}
}

func TestAuthenticate_RunsFlowAndCachesToken(t *testing.T) {
	cfg, server := newOAuthConfig(t)
	tokenFile := filepath.Join(t.TempDir(), "nested", "token.json")

	ts, err := Authenticate(context.Background(), cfg, Options{
		TokenFile:   tokenFile,
		Timeout:     5 * time.Second,
		OpenBrowser: consent(t, "good-code", nil),
		Out:         io.Discard,
	})
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-authorization_code", tok.AccessToken)

	server.mu.Lock()
	require.Len(t, server.verifiers, 1)
	assert.NotEmpty(t, server.verifiers[0], "PKCE verifier must be sent on exchange")
	server.mu.Unlock()

	info, err := os.Stat(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cached, err := LoadToken(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", cached.RefreshToken)
}

func TestAuthenticate_UsesValidCachedToken(t *testing.T) {
	cfg, server := newOAuthConfig(t)
	tokenFile := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, SaveToken(tokenFile, &oauth2.Token{
		AccessToken: "cached",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}))

	ts, err := Authenticate(context.Background(), cfg, Options{
		TokenFile: tokenFile,
		OpenBrowser: func(string) error {
			t.Fatal("browser must not be opened for a valid cached token")
			return nil
		},
	})
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "cached", tok.AccessToken)
	assert.Empty(t, server.grants)
}

func TestAuthenticate_RefreshesExpiredToken(t *testing.T) {
	cfg, server := newOAuthConfig(t)
	tokenFile := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, SaveToken(tokenFile, &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "refresh-0",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	ts, err := Authenticate(context.Background(), cfg, Options{
		TokenFile: tokenFile,
		OpenBrowser: func(string) error {
			t.Fatal("browser must not be opened when refresh succeeds")
			return nil
		},
	})
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-refresh_token", tok.AccessToken)
	assert.Equal(t, []string{"refresh_token"}, server.grants)

	cached, err := LoadToken(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "access-refresh_token", cached.AccessToken)
}

func TestAuthenticate_Failures(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		alterState func(string) string
	}{
		{name: "state mismatch", code: "good-code", alterState: func(string) string { return "forged" }},
		{name: "consent denied", code: ""},
		{name: "exchange rejected", code: "bad-code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := newOAuthConfig(t)
			tokenFile := filepath.Join(t.TempDir(), "token.json")

			_, err := Authenticate(context.Background(), cfg, Options{
				TokenFile:   tokenFile,
				Timeout:     5 * time.Second,
				OpenBrowser: consent(t, tt.code, tt.alterState),
				Out:         io.Discard,
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrAuthorizationFailed), "got %v", err)

			_, statErr := os.Stat(tokenFile)
			assert.True(t, os.IsNotExist(statErr), "no token may be cached after a failed flow")
		})
	}
}

func TestAuthenticate_ContextCanceled(t *testing.T) {
	cfg, _ := newOAuthConfig(t)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := Authenticate(ctx, cfg, Options{
		OpenBrowser: func(string) error {
			cancel()
			return nil
		},
		Out: io.Discard,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadClientConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client_secret.json")
	body := `{"installed":{"client_id":"id-1","client_secret":"s-1","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadClientConfig(path, []string{"https://www.googleapis.com/auth/drive"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", cfg.ClientID)
	assert.Equal(t, "https://oauth2.googleapis.com/token", cfg.Endpoint.TokenURL)
	assert.Equal(t, []string{"https://www.googleapis.com/auth/drive"}, cfg.Scopes)

	_, err = LoadClientConfig(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.Error(t, err)
}

func TestMatchState(t *testing.T) {
	assert.True(t, matchState("abc", "abc"))
	assert.False(t, matchState("abc", "abd"))
	assert.False(t, matchState("", "abc"))
	assert.False(t, matchState("abc", " "))
}
