// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package drive

import (
	"context"
	"fmt"
	"net/http"
	"time"

	xglog "github.com/ManuGH/drivecopy/internal/log"
	"github.com/ManuGH/drivecopy/internal/metrics"
	"github.com/ManuGH/drivecopy/internal/ratelimit"
	"github.com/ManuGH/drivecopy/internal/resilience"
	"github.com/ManuGH/drivecopy/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	fileFields = "id, name, mimeType, parents, trashed"
	listFields = "nextPageToken, files(id, name, mimeType, parents, trashed)"
)

// Options tunes a Service.
type Options struct {
	PageSize int64
	Limiter  *ratelimit.Limiter
	Breaker  *resilience.CircuitBreaker
	Retry    resilience.RetryPolicy

	// Endpoint overrides the API base URL (tests, private gateways).
	Endpoint string
}

// Service implements Client on top of google.golang.org/api/drive/v3.
// Every call is rate limited, guarded by a circuit breaker, retried on
// transient failures and traced.
type Service struct {
	files    *drivev3.FilesService
	pageSize int64
	limiter  *ratelimit.Limiter
	breaker  *resilience.CircuitBreaker
	retry    resilience.RetryPolicy
	tracer   trace.Tracer
}

var _ Client = (*Service)(nil)

// NewHTTPClient returns an OAuth2 client whose base transport is instrumented with otelhttp.
func NewHTTPClient(ctx context.Context, ts oauth2.TokenSource, timeout time.Duration) *http.Client {
	base := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	client := oauth2.NewClient(ctx, ts)
	client.Timeout = timeout
	return client
}

// NewService builds a Service that sends requests through httpClient.
func NewService(ctx context.Context, httpClient *http.Client, opts Options) (*Service, error) {
	clientOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}
	svc, err := drivev3.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited()
	}
	if opts.Breaker == nil {
		opts.Breaker = NewBreaker(5, 30*time.Second)
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry.MaxAttempts = 5
	}

	return &Service{
		files:    drivev3.NewFilesService(svc),
		pageSize: opts.PageSize,
		limiter:  opts.Limiter,
		breaker:  opts.Breaker,
		retry:    opts.Retry,
		tracer:   telemetry.Tracer("drivecopy/drive"),
	}, nil
}

// NewBreaker returns the breaker configuration used for Drive calls.
func NewBreaker(threshold int, reset time.Duration) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker("drive", threshold, reset, resilience.WithFailureClassifier(countsAsOutage))
}

// call runs one logical API operation with rate limiting, breaker, retries and tracing.
func (s *Service) call(ctx context.Context, op, id string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "drive."+op, trace.WithAttributes(telemetry.DriveCallAttributes(op, id)...))
	defer span.End()

	logger := xglog.WithComponentFromContext(ctx, "drive")

	policy := s.retry
	policy.Retryable = IsRetryable
	if op == "copy" || op == "create" {
		// Writes are not idempotent; only retry when the API rejected them outright.
		policy.Retryable = IsRateLimited
	}
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		metrics.IncDriveRetry(op)
		logger.Warn().
			Err(err).
			Str(xglog.FieldOperation, op).
			Str(xglog.FieldFileID, id).
			Int(xglog.FieldAttempt, attempt).
			Dur("wait", wait).
			Msg("retrying drive call")
	}

	_, err := resilience.Retry(ctx, policy, func(ctx context.Context) (struct{}, error) {
		if err := s.limiter.Wait(ctx, op); err != nil {
			return struct{}{}, err
		}
		err := s.breaker.Execute(func() error {
			start := time.Now()
			err := translate(op, id, fn(ctx))
			metrics.RecordDriveRequest(op, outcome(err), time.Since(start))
			return err
		})
		return struct{}{}, err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Get returns metadata for a single file or folder.
func (s *Service) Get(ctx context.Context, id string) (File, error) {
	var out File
	err := s.call(ctx, "get", id, func(ctx context.Context) error {
		f, err := s.files.Get(id).
			Fields(fileFields).
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		out = fromAPI(f)
		return nil
	})
	return out, err
}

// Parents returns the parent folder ids of id.
func (s *Service) Parents(ctx context.Context, id string) ([]string, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return f.Parents, nil
}

// List returns every match of q, following nextPageToken until exhausted.
func (s *Service) List(ctx context.Context, q Query) ([]File, error) {
	var (
		out   []File
		token string
	)
	for {
		var page *drivev3.FileList
		err := s.call(ctx, "list", q.Parent, func(ctx context.Context) error {
			call := s.files.List().
				Q(q.String()).
				Fields(listFields).
				PageSize(s.pageSize).
				SupportsAllDrives(true).
				IncludeItemsFromAllDrives(true).
				Context(ctx)
			if q.OrderBy != "" {
				call = call.OrderBy(q.OrderBy)
			}
			if token != "" {
				call = call.PageToken(token)
			}
			var err error
			page, err = call.Do()
			return err
		})
		if err != nil {
			return nil, err
		}
		for _, f := range page.Files {
			out = append(out, fromAPI(f))
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		token = page.NextPageToken
	}
}

// Copy creates a server-side copy of file id named name inside parent.
func (s *Service) Copy(ctx context.Context, id, name, parent string) (File, error) {
	var out File
	err := s.call(ctx, "copy", id, func(ctx context.Context) error {
		f, err := s.files.Copy(id, &drivev3.File{Name: name, Parents: []string{parent}}).
			Fields(fileFields).
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		out = fromAPI(f)
		return nil
	})
	return out, err
}

// CreateFolder creates an empty folder named name inside parent.
func (s *Service) CreateFolder(ctx context.Context, name, parent string) (File, error) {
	var out File
	err := s.call(ctx, "create", parent, func(ctx context.Context) error {
		f, err := s.files.Create(&drivev3.File{
			Name:     name,
			MimeType: FolderMimeType,
			Parents:  []string{parent},
		}).
			Fields(fileFields).
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		out = fromAPI(f)
		return nil
	})
	return out, err
}

func fromAPI(f *drivev3.File) File {
	if f == nil {
		return File{}
	}
	return File{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		Parents:  append([]string(nil), f.Parents...),
		Trashed:  f.Trashed,
	}
}
