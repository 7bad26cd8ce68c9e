// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package drive

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/drivecopy/internal/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiStub struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []map[string]any
	handler  func(n int, r *http.Request) (int, any)
}

func (s *apiStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r)
	var body map[string]any
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	s.bodies = append(s.bodies, body)
	n := len(s.requests)
	s.mu.Unlock()

	status, payload := s.handler(n, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *apiStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func apiError(code int, reason string) map[string]any {
	return map[string]any{"error": map[string]any{
		"code":    code,
		"message": reason,
		"errors":  []map[string]any{{"reason": reason, "message": reason}},
	}}
}

func newTestService(t *testing.T, stub *apiStub) *Service {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	svc, err := NewService(context.Background(), srv.Client(), Options{
		PageSize: 2,
		Endpoint: srv.URL + "/",
		Breaker:  NewBreaker(100, time.Minute),
		Retry:    resilience.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond},
	})
	require.NoError(t, err)
	return svc
}

func TestService_ListFollowsPages(t *testing.T) {
	stub := &apiStub{handler: func(n int, r *http.Request) (int, any) {
		if r.URL.Query().Get("pageToken") == "" {
			return http.StatusOK, map[string]any{
				"nextPageToken": "page-2",
				"files": []map[string]any{
					{"id": "1", "name": "a.txt", "mimeType": "text/plain"},
					{"id": "2", "name": "sub", "mimeType": FolderMimeType},
				},
			}
		}
		return http.StatusOK, map[string]any{
			"files": []map[string]any{{"id": "3", "name": "c.txt", "mimeType": "text/plain"}},
		}
	}}
	svc := newTestService(t, stub)

	q := Query{Parent: "root-id", ExcludeTrashed: true, OrderBy: "name"}
	files, err := svc.List(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, files, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{files[0].ID, files[1].ID, files[2].ID})
	assert.True(t, files[1].IsFolder())
	assert.Equal(t, 2, stub.count())

	first := stub.requests[0]
	assert.Equal(t, q.String(), first.URL.Query().Get("q"))
	assert.Equal(t, "name", first.URL.Query().Get("orderBy"))
	assert.Equal(t, "true", first.URL.Query().Get("supportsAllDrives"))
	assert.Equal(t, "2", first.URL.Query().Get("pageSize"))
	assert.Equal(t, "page-2", stub.requests[1].URL.Query().Get("pageToken"))
}

func TestService_GetNotFound(t *testing.T) {
	stub := &apiStub{handler: func(int, *http.Request) (int, any) {
		return http.StatusNotFound, apiError(http.StatusNotFound, "notFound")
	}}
	svc := newTestService(t, stub)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	assert.Equal(t, 1, stub.count(), "not found must not be retried")
}

func TestService_GetRetriesServerErrors(t *testing.T) {
	stub := &apiStub{handler: func(n int, r *http.Request) (int, any) {
		if n == 1 {
			return http.StatusInternalServerError, apiError(http.StatusInternalServerError, "backendError")
		}
		assert.True(t, strings.HasSuffix(r.URL.Path, "/files/abc"))
		return http.StatusOK, map[string]any{"id": "abc", "name": "Source", "mimeType": FolderMimeType, "parents": []string{"p1"}}
	}}
	svc := newTestService(t, stub)

	f, err := svc.Get(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "Source", f.Name)
	assert.Equal(t, []string{"p1"}, f.Parents)
	assert.Equal(t, 2, stub.count())
}

func TestService_CopyRetriesOnlyRateLimits(t *testing.T) {
	t.Run("server error is returned to the caller", func(t *testing.T) {
		stub := &apiStub{handler: func(int, *http.Request) (int, any) {
			return http.StatusInternalServerError, apiError(http.StatusInternalServerError, "backendError")
		}}
		svc := newTestService(t, stub)

		_, err := svc.Copy(context.Background(), "file-1", "a.txt", "dest")
		require.Error(t, err)
		assert.Equal(t, 1, stub.count())
	})

	t.Run("rate limited copy is retried", func(t *testing.T) {
		stub := &apiStub{handler: func(n int, r *http.Request) (int, any) {
			if n == 1 {
				return http.StatusForbidden, apiError(http.StatusForbidden, "userRateLimitExceeded")
			}
			return http.StatusOK, map[string]any{"id": "copy-1", "name": "a.txt", "parents": []string{"dest"}}
		}}
		svc := newTestService(t, stub)

		f, err := svc.Copy(context.Background(), "file-1", "a.txt", "dest")
		require.NoError(t, err)
		assert.Equal(t, "copy-1", f.ID)
		assert.Equal(t, 2, stub.count())

		last := stub.requests[1]
		assert.Equal(t, http.MethodPost, last.Method)
		assert.True(t, strings.HasSuffix(last.URL.Path, "/files/file-1/copy"))
		assert.Equal(t, "a.txt", stub.bodies[1]["name"])
		assert.Equal(t, []any{"dest"}, stub.bodies[1]["parents"])
	})
}

func TestService_CreateFolder(t *testing.T) {
	stub := &apiStub{handler: func(int, *http.Request) (int, any) {
		return http.StatusOK, map[string]any{"id": "new", "name": "Reports", "mimeType": FolderMimeType, "parents": []string{"dest"}}
	}}
	svc := newTestService(t, stub)

	f, err := svc.CreateFolder(context.Background(), "Reports", "dest")
	require.NoError(t, err)
	assert.Equal(t, "new", f.ID)
	assert.True(t, f.IsFolder())
	assert.Equal(t, FolderMimeType, stub.bodies[0]["mimeType"])
	assert.Equal(t, "Reports", stub.bodies[0]["name"])
}

func TestService_BreakerOpensOnOutage(t *testing.T) {
	stub := &apiStub{handler: func(int, *http.Request) (int, any) {
		return http.StatusServiceUnavailable, apiError(http.StatusServiceUnavailable, "backendError")
	}}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	svc, err := NewService(context.Background(), srv.Client(), Options{
		Endpoint: srv.URL + "/",
		Breaker:  NewBreaker(2, time.Minute),
		Retry:    resilience.RetryPolicy{MaxAttempts: 5, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond},
	})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, resilience.ErrCircuitOpen), "got %v", err)
	assert.Equal(t, 2, stub.count())
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(ErrNotFound))
	assert.False(t, IsRetryable(resilience.ErrCircuitOpen))
	assert.False(t, IsRetryable(errors.New("plain")))
}
