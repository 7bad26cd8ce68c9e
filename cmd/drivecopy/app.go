// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/ManuGH/drivecopy/internal/auth"
	"github.com/ManuGH/drivecopy/internal/config"
	"github.com/ManuGH/drivecopy/internal/drive"
	"github.com/ManuGH/drivecopy/internal/health"
	"github.com/ManuGH/drivecopy/internal/jobs"
	xglog "github.com/ManuGH/drivecopy/internal/log"
	"github.com/ManuGH/drivecopy/internal/metrics"
	"github.com/ManuGH/drivecopy/internal/ratelimit"
	"github.com/ManuGH/drivecopy/internal/resilience"
	"github.com/ManuGH/drivecopy/internal/telemetry"
	"github.com/ManuGH/drivecopy/internal/version"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// MetricsFile is the Prometheus textfile written next to the reports.
const MetricsFile = "metrics.prom"

// secrets selects which environment secrets a command needs.
type secrets int

const (
	secretsNone secrets = iota
	secretsClientID
	secretsSource
	secretsAll
)

// app holds the process-wide state shared by the commands.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string

	// authorize and connect are replaced in tests.
	authorize func(ctx context.Context, cfg config.AppConfig) (oauth2.TokenSource, error)
	connect   func(ctx context.Context, cfg config.AppConfig) (drive.Client, error)
	now       func() time.Time
}

func newApp(stdout, stderr io.Writer) *app {
	a := &app{stdout: stdout, stderr: stderr, now: time.Now}
	a.authorize = a.authorizeOAuth
	a.connect = a.connectDrive
	return a
}

// loadConfig loads and validates the configuration and resolves the
// secrets the command needs.
func (a *app) loadConfig(need secrets) (config.AppConfig, error) {
	loader := config.NewLoader(a.configPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		return cfg, err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cfg, err
	}

	switch need {
	case secretsNone:
		return cfg, nil
	case secretsClientID:
		return cfg, loader.ResolveClientID(&cfg)
	case secretsSource:
		err = loader.ResolveSecrets(&cfg)
		var missing *config.MissingEnvError
		if errors.As(err, &missing) && missing.Var == cfg.Env.DestinationFolderID {
			err = nil
		}
	default:
		err = loader.ResolveSecrets(&cfg)
	}
	if err != nil {
		return cfg, err
	}
	return cfg, config.ValidateRun(cfg)
}

// configureLogging sends logs to stderr and, when logDir is set, to the
// timestamped log file in logDir.
func (a *app) configureLogging(cfg config.AppConfig, logDir string) error {
	lc := xglog.Config{
		Level:   cfg.LogLevel,
		Output:  a.stderr,
		Service: cfg.LogService,
		Version: version.Version,
	}
	if logDir != "" {
		lc.FilePath = filepath.Join(logDir, xglog.FileName(a.now()))
	}
	return xglog.Configure(lc)
}

// startSession prepares a Drive run: startup checks, log file, tracing
// and the optional health server. The returned function tears them down
// and writes the metrics textfile.
func (a *app) startSession(ctx context.Context, cfg config.AppConfig) (func(), error) {
	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return nil, err
	}
	if err := a.configureLogging(cfg, cfg.OutputsDir); err != nil {
		return nil, err
	}
	logger := xglog.WithComponent("cli")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: version.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,

		SourceFolderID:      cfg.SourceFolderID,
		DestinationFolderID: cfg.DestinationFolderID,
	})
	if err != nil {
		_ = xglog.Close()
		return nil, fmt.Errorf("start telemetry: %w", err)
	}

	var srv *health.Server
	if cfg.Metrics.ListenAddr != "" {
		m := health.NewManager(version.Version)
		m.RegisterChecker(health.NewFileChecker("client-secret", cfg.ClientIDFile))
		m.RegisterChecker(health.NewLastRunChecker(lastRun(cfg.OutputsDir)))
		srv, err = health.Start(cfg.Metrics.ListenAddr, health.NewHandler(m, nil))
		if err != nil {
			_ = tp.Shutdown(ctx)
			_ = xglog.Close()
			return nil, err
		}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if srv != nil {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("metrics server shutdown failed")
			}
		}
		if cfg.Metrics.Textfile {
			path := filepath.Join(cfg.OutputsDir, MetricsFile)
			if err := metrics.WriteTextfile(path); err != nil {
				logger.Warn().Err(err).Str(xglog.FieldPath, path).Msg("failed to write metrics textfile")
			}
		}
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
		_ = xglog.Close()
	}, nil
}

func lastRun(outputsDir string) func() (time.Time, string) {
	return func() (time.Time, string) {
		st, err := jobs.ReadStatus(outputsDir)
		if err != nil {
			return time.Time{}, ""
		}
		return st.FinishedAt, st.Error
	}
}

func (a *app) authorizeOAuth(ctx context.Context, cfg config.AppConfig) (oauth2.TokenSource, error) {
	oc, err := auth.LoadClientConfig(cfg.ClientIDFile, cfg.Drive.Scopes)
	if err != nil {
		return nil, err
	}
	return auth.Authenticate(ctx, oc, auth.Options{
		TokenFile: cfg.Drive.TokenFile,
		Out:       a.stderr,
	})
}

func (a *app) connectDrive(ctx context.Context, cfg config.AppConfig) (drive.Client, error) {
	ts, err := a.authorize(ctx, cfg)
	if err != nil {
		return nil, err
	}

	limits := ratelimit.DefaultConfig()
	limits.GlobalRate = rate.Limit(cfg.Drive.RequestsPerSecond)
	limits.GlobalBurst = cfg.Drive.Burst

	return drive.NewService(ctx, drive.NewHTTPClient(ctx, ts, cfg.Drive.Timeout), drive.Options{
		PageSize: cfg.Drive.PageSize,
		Limiter:  ratelimit.New(limits),
		Breaker:  drive.NewBreaker(cfg.Drive.BreakerThreshold, cfg.Drive.BreakerReset),
		Retry: resilience.RetryPolicy{
			MaxAttempts:     5,
			InitialInterval: time.Second,
			MaxInterval:     30 * time.Second,
		},
	})
}
