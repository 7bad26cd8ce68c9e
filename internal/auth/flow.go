// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package auth implements the OAuth2 installed-application flow for the
// Drive API with a loopback redirect and a cached token file.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	xglog "github.com/ManuGH/drivecopy/internal/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrAuthorizationFailed reports a denied consent, a state mismatch or a failed code exchange.
var ErrAuthorizationFailed = errors.New("authorization failed")

const (
	defaultListenAddr = "127.0.0.1:0"
	defaultTimeout    = 5 * time.Minute
)

// Options controls Authenticate.
type Options struct {
	// TokenFile caches the token between runs. Empty disables caching.
	TokenFile string
	// ListenAddr is the loopback address receiving the redirect.
	ListenAddr string
	// Timeout bounds how long to wait for the user to finish consent.
	Timeout time.Duration
	// OpenBrowser is handed the consent URL. Nil prints it to Out.
	OpenBrowser func(url string) error
	// Out receives user-facing instructions. Defaults to os.Stdout.
	Out io.Writer
	// HTTPClient is used for token exchange and refresh.
	HTTPClient *http.Client
}

// LoadClientConfig parses a Google client-secret JSON file.
func LoadClientConfig(path string, scopes []string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- client secret path comes from the environment
	if err != nil {
		return nil, fmt.Errorf("read client secret file: %w", err)
	}
	cfg, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secret file: %w", err)
	}
	return cfg, nil
}

// Authenticate returns a token source for cfg. A cached token is reused
// (and refreshed if needed); otherwise the installed-app consent flow runs
// and the resulting token is cached.
func Authenticate(ctx context.Context, cfg *oauth2.Config, opts Options) (oauth2.TokenSource, error) {
	logger := xglog.WithComponentFromContext(ctx, "auth")
	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}

	if opts.TokenFile != "" {
		cached, err := LoadToken(opts.TokenFile)
		switch {
		case err == nil:
			if ts, ok := reuse(ctx, cfg, cached, opts.TokenFile); ok {
				logger.Debug().Str(xglog.FieldPath, opts.TokenFile).Msg("using cached token")
				return ts, nil
			}
			logger.Info().Msg("cached token expired and could not be refreshed")
		case errors.Is(err, os.ErrNotExist):
		default:
			logger.Warn().Err(err).Str(xglog.FieldPath, opts.TokenFile).Msg("ignoring unreadable token cache")
		}
	}

	tok, redirect, err := runFlow(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	if !tok.Valid() {
		return nil, fmt.Errorf("%w: token returned by exchange is not valid", ErrAuthorizationFailed)
	}

	if opts.TokenFile != "" {
		if err := SaveToken(opts.TokenFile, tok); err != nil {
			return nil, err
		}
	}

	c := *cfg
	c.RedirectURL = redirect
	return newSavingSource(c.TokenSource(ctx, tok), opts.TokenFile, tok), nil
}

func reuse(ctx context.Context, cfg *oauth2.Config, cached *oauth2.Token, path string) (oauth2.TokenSource, bool) {
	if cached.Valid() {
		return newSavingSource(cfg.TokenSource(ctx, cached), path, cached), true
	}
	if cached.RefreshToken == "" {
		return nil, false
	}
	src := newSavingSource(cfg.TokenSource(ctx, cached), path, cached)
	if _, err := src.Token(); err != nil {
		logger := xglog.WithComponentFromContext(ctx, "auth")
		logger.Warn().Err(err).Msg("token refresh failed")
		return nil, false
	}
	return src, true
}

type callbackResult struct {
	code string
	err  error
}

func runFlow(ctx context.Context, cfg *oauth2.Config, opts Options) (*oauth2.Token, string, error) {
	addr := opts.ListenAddr
	if addr == "" {
		addr = defaultListenAddr
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("listen for oauth redirect: %w", err)
	}

	c := *cfg
	c.RedirectURL = "http://" + ln.Addr().String() + "/"

	state, err := randomString(24)
	if err != nil {
		_ = ln.Close()
		return nil, "", err
	}
	verifier := oauth2.GenerateVerifier()

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		Handler:           callbackHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	consentURL := c.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
	if opts.OpenBrowser != nil {
		if err := opts.OpenBrowser(consentURL); err != nil {
			_, _ = fmt.Fprintf(out, "Open this URL in your browser to authorize access:\n%s\n", consentURL)
		}
	} else {
		_, _ = fmt.Fprintf(out, "Open this URL in your browser to authorize access:\n%s\n", consentURL)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var res callbackResult
	select {
	case res = <-results:
	case <-waitCtx.Done():
		return nil, "", fmt.Errorf("waiting for oauth redirect: %w", waitCtx.Err())
	}
	if res.err != nil {
		return nil, "", res.err
	}

	tok, err := c.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, "", fmt.Errorf("%w: exchange code: %v", ErrAuthorizationFailed, err)
	}
	return tok, c.RedirectURL, nil
}

func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("%w: %s", ErrAuthorizationFailed, q.Get("error"))
		case !matchState(q.Get("state"), state):
			res.err = fmt.Errorf("%w: state mismatch", ErrAuthorizationFailed)
		case q.Get("code") == "":
			res.err = fmt.Errorf("%w: missing authorization code", ErrAuthorizationFailed)
		default:
			res.code = q.Get("code")
		}

		if res.err != nil {
			http.Error(w, "Authorization failed. You may close this window.", http.StatusBadRequest)
		} else {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = io.WriteString(w, "Authorization complete. You may close this window.\n")
		}

		select {
		case results <- res:
		default:
		}
	})
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
