// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package jobs runs the report, copy and validation sequence against a
// source and a destination Drive folder.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/drivecopy/internal/assess"
	"github.com/ManuGH/drivecopy/internal/copier"
	xglog "github.com/ManuGH/drivecopy/internal/log"
	"github.com/ManuGH/drivecopy/internal/manifest"
	"github.com/ManuGH/drivecopy/internal/metrics"
	"github.com/ManuGH/drivecopy/internal/telemetry"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ManuGH/drivecopy/internal/jobs"

// Run stages, used for metrics and Status.Stage.
const (
	stageResolve  = "resolve"
	stageAssess   = "assess"
	stageCopy     = "copy"
	stageValidate = "validate"
	stageWrite    = "write"
)

// Run executes the full sequence: source reports, copy, destination report
// and validation. A validation mismatch still completes the run and returns
// the Status together with ErrValidationFailed.
func Run(ctx context.Context, deps Deps, cfg Config) (*Status, error) {
	return execute(ctx, deps, cfg, "run", true, func(ctx context.Context, r *runner) error {
		if err := r.assessSource(ctx); err != nil {
			return err
		}
		if err := r.copyTree(ctx); err != nil {
			return err
		}
		if err := r.assessDestination(ctx); err != nil {
			return err
		}
		return r.validate(ctx)
	})
}

// Assess writes the source reports (assessment 1 and 2) without copying.
func Assess(ctx context.Context, deps Deps, cfg Config) (*Status, error) {
	return execute(ctx, deps, cfg, "assess", false, func(ctx context.Context, r *runner) error {
		return r.assessSource(ctx)
	})
}

// Copy copies the source tree into the destination without any reports.
func Copy(ctx context.Context, deps Deps, cfg Config) (*Status, error) {
	return execute(ctx, deps, cfg, "copy", true, func(ctx context.Context, r *runner) error {
		return r.copyTree(ctx)
	})
}

type runner struct {
	deps   Deps
	cfg    Config
	status *Status
}

// stageError tags an error with the stage it happened in.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func atStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &stageError{stage: stage, err: err}
}

func execute(ctx context.Context, deps Deps, cfg Config, op string, needDestination bool, body func(context.Context, *runner) error) (*Status, error) {
	if err := validateConfig(cfg, needDestination); err != nil {
		return nil, fmt.Errorf("invalid run configuration: %w", err)
	}
	deps = deps.withDefaults()
	cfg.Concurrency = clampConcurrency(cfg.Concurrency, 4, maxConcurrency)

	st := &Status{RunID: deps.NewRunID(), Operation: op, StartedAt: deps.Clock()}
	ctx = xglog.ContextWithRunID(ctx, st.RunID)
	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "jobs."+op,
		trace.WithAttributes(telemetry.RunAttributes(st.RunID, op, cfg.SourceFolderID, cfg.DestinationFolderID)...))
	defer span.End()

	logger := xglog.WithComponentFromContext(ctx, "jobs")
	logger.Info().
		Str(xglog.FieldEvent, op+".start").
		Str(xglog.FieldOperation, op).
		Msg("starting " + op)

	r := &runner{deps: deps, cfg: cfg, status: st}
	r.resolveNames(ctx)

	err := body(ctx, r)

	st.finish(deps.Clock())
	var se *stageError
	switch {
	case errors.Is(err, ErrValidationFailed):
		st.Stage = stageValidate
		st.Error = err.Error()
	case errors.As(err, &se):
		st.Stage = se.stage
		st.Error = se.err.Error()
		metrics.IncRunFailure(se.stage)
	case err != nil:
		st.Error = err.Error()
	}

	if werr := writeStatus(ctx, cfg.path(StatusFile), st); werr != nil {
		logger.Warn().Err(werr).Str(xglog.FieldPath, cfg.path(StatusFile)).Msg("cannot write run status")
		metrics.IncRunFailure(stageWrite)
	}

	if err != nil && !errors.Is(err, ErrValidationFailed) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Str(xglog.FieldEvent, op+".failed").Dur("duration", st.Duration()).Msg(op + " failed")
		return st, err
	}

	logger.Info().
		Str(xglog.FieldEvent, op+".done").
		Dur("duration", st.Duration()).
		Bool("validated", st.Validated).
		Msg(op + " finished")
	if op == "run" {
		logger.Info().Msgf("COPIED: %s to %s", st.SourceName, st.DestinationName)
		_, _ = fmt.Fprintln(deps.Out, ScriptCompletedMsg)
	}
	return st, err
}

// resolveNames looks up the display names of the root folders. Lookup
// failures are logged and replaced by placeholder names.
func (r *runner) resolveNames(ctx context.Context) {
	logger := xglog.WithComponentFromContext(ctx, "jobs")

	r.status.SourceName = UnknownSource
	if f, err := r.deps.Client.Get(ctx, r.cfg.SourceFolderID); err != nil {
		logger.Warn().Err(err).Str(xglog.FieldFolderID, r.cfg.SourceFolderID).Msg("cannot resolve source folder name")
		metrics.IncRunFailure(stageResolve)
	} else {
		r.status.SourceName = f.Name
	}
	logger.Info().Str(xglog.FieldName, r.status.SourceName).Msgf("Source Folder Name: %s", r.status.SourceName)

	if r.cfg.DestinationFolderID == "" {
		return
	}
	r.status.DestinationName = UnknownDestination
	if f, err := r.deps.Client.Get(ctx, r.cfg.DestinationFolderID); err != nil {
		logger.Warn().Err(err).Str(xglog.FieldFolderID, r.cfg.DestinationFolderID).Msg("cannot resolve destination folder name")
		metrics.IncRunFailure(stageResolve)
	} else {
		r.status.DestinationName = f.Name
	}
	logger.Info().Str(xglog.FieldName, r.status.DestinationName).Msgf("Destination Folder Name: %s", r.status.DestinationName)
}

func (r *runner) assessSource(ctx context.Context) error {
	logger := xglog.WithComponentFromContext(ctx, "jobs")
	logger.Info().Msg("STARTING ASSESSMENTS...")

	summary, err := assess.Summary(ctx, r.deps.Client, r.cfg.SourceFolderID, r.status.SourceName)
	if err != nil {
		return atStage(stageAssess, err)
	}
	if err := r.writeReport(ctx, SummaryReport, summary); err != nil {
		return err
	}

	breakdown, err := assess.Breakdown(ctx, r.deps.Client, r.cfg.SourceFolderID)
	if err != nil {
		return atStage(stageAssess, err)
	}
	if err := r.writeReport(ctx, SourceReport, breakdown); err != nil {
		return err
	}
	r.status.Source = breakdown.Totals()
	return nil
}

func (r *runner) assessDestination(ctx context.Context) error {
	breakdown, err := assess.Breakdown(ctx, r.deps.Client, r.cfg.DestinationFolderID)
	if err != nil {
		return atStage(stageAssess, err)
	}
	if err := r.writeReport(ctx, DestinationReport, breakdown); err != nil {
		return err
	}
	r.status.Destination = breakdown.Totals()
	logger := xglog.WithComponentFromContext(ctx, "jobs")
	logger.Info().Msg("ASSESSMENTS COMPLETED!")
	return nil
}

func (r *runner) writeReport(ctx context.Context, name string, report assess.Report) error {
	path := r.cfg.path(name)
	if err := assess.WriteCSV(ctx, path, report); err != nil {
		return atStage(stageWrite, err)
	}
	totals := report.Totals()
	metrics.RecordAssessment(name, totals.Files, totals.Folders)
	r.status.Reports = append(r.status.Reports, path)

	logger := xglog.WithComponentFromContext(ctx, "jobs")
	logger.Info().
		Str(xglog.FieldPath, path).
		Int(xglog.FieldFiles, totals.Files).
		Int(xglog.FieldFolders, totals.Folders).
		Msg("report written")
	return nil
}

func (r *runner) copyTree(ctx context.Context) error {
	logger := xglog.WithComponentFromContext(ctx, "jobs")

	opts := copier.Options{
		MaxRetries:     r.cfg.MaxRetries,
		RetryBackoff:   r.cfg.RetryBackoff,
		Concurrency:    r.cfg.Concurrency,
		IncludeTrashed: r.cfg.IncludeTrashed,
	}
	if r.cfg.Resume {
		store, err := manifest.Open(ctx, r.cfg.path(ManifestFile), manifest.RunKey(r.cfg.SourceFolderID, r.cfg.DestinationFolderID))
		if err != nil {
			return atStage(stageCopy, fmt.Errorf("open manifest: %w", err))
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn().Err(err).Msg("close manifest")
			}
		}()
		opts.Manifest = store
	}

	logger.Info().Msgf("STARTING COPY TO %s...", r.status.DestinationName)
	res, err := copier.New(r.deps.Client, opts).Copy(ctx, r.cfg.SourceFolderID, r.cfg.DestinationFolderID)
	r.status.Copy = &res
	if err != nil {
		return atStage(stageCopy, err)
	}

	logger.Info().
		Int("files_copied", res.FilesCopied).
		Int("files_skipped", res.FilesSkipped).
		Int("files_failed", res.FilesFailed).
		Int("folders_created", res.FoldersCreated).
		Msg("COPY COMPLETED!")
	return nil
}

// validate compares the source and destination breakdowns as written to disk.
func (r *runner) validate(ctx context.Context) error {
	logger := xglog.WithComponentFromContext(ctx, "jobs")
	logger.Info().Msg("STARTING VALIDATION...")

	src, err := assess.ReadCSV(r.cfg.path(SourceReport))
	if err != nil {
		return atStage(stageValidate, err)
	}
	dst, err := assess.ReadCSV(r.cfg.path(DestinationReport))
	if err != nil {
		return atStage(stageValidate, err)
	}

	cmp := assess.Compare(src, dst)
	metrics.RecordValidation(cmp.Equal)
	r.status.Validated = cmp.Equal
	if cmp.Equal {
		logger.Info().Msg(assess.ValidationSuccessMsg)
		return nil
	}

	r.status.Diff = cmp.Diff
	logger.Error().Str("diff", cmp.Diff).Msg(assess.ValidationFailedMsg)
	_, _ = fmt.Fprintln(r.deps.Out, assess.ValidationFailedLine)
	return ErrValidationFailed
}
