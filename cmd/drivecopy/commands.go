// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/drivecopy/internal/audit"
	"github.com/ManuGH/drivecopy/internal/config"
	"github.com/ManuGH/drivecopy/internal/configaudit"
	"github.com/ManuGH/drivecopy/internal/jobs"
	xglog "github.com/ManuGH/drivecopy/internal/log"
	"github.com/ManuGH/drivecopy/internal/persistence/sqlite"
	"github.com/ManuGH/drivecopy/internal/render"
	"github.com/ManuGH/drivecopy/internal/version"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	authSuccessMsg = "Authentication successful."
	authFailureMsg = "Authentication failed."
)

var errAuditFindings = errors.New("audit found errors")

type jobFunc func(ctx context.Context, deps jobs.Deps, cfg jobs.Config) (*jobs.Status, error)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "drivecopy",
		Short: "Copy a Google Drive folder tree and validate the result",
		Long: `drivecopy writes assessment reports of a source folder, copies every
child object into a destination folder, reports the destination and
compares both reports.

The client secret path and the folder ids are read from the environment
variables named in the configuration (GOOGLE_DRIVE_CLIENT_ID_FILE,
GOOGLE_DRIVE_SOURCE_FOLDER_ID and GOOGLE_DRIVE_DESTINATION_FOLDER_ID by default).`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runJob(cmd.Context(), "run", jobs.Run, secretsAll)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Assess the source, copy it and validate the destination",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.runJob(cmd.Context(), "run", jobs.Run, secretsAll)
			},
		},
		&cobra.Command{
			Use:   "assess",
			Short: "Write the summary and breakdown reports of the source folder",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.runJob(cmd.Context(), "assess", jobs.Assess, secretsSource)
			},
		},
		&cobra.Command{
			Use:   "copy",
			Short: "Copy the source tree into the destination without reports",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.runJob(cmd.Context(), "copy", jobs.Copy, secretsAll)
			},
		},
		newAuthCmd(a),
		newAuditCmd(a),
		newConfigCmd(a),
		newManifestCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  noArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version.String())
			},
		},
	)
	return root
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return &usageError{err: fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())}
	}
	return nil
}

func (a *app) runJob(ctx context.Context, opName string, op jobFunc, need secrets) error {
	cfg, err := a.loadConfig(need)
	if err != nil {
		return err
	}
	done, err := a.startSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer done()

	client, err := a.connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to drive: %w", err)
	}

	events := audit.NewLogger()
	jc := jobs.ConfigFromApp(cfg)
	if need != secretsAll {
		jc.DestinationFolderID = ""
	}
	events.RunStart(opName, jc.SourceFolderID, jc.DestinationFolderID)

	st, err := op(ctx, jobs.Deps{Client: client, Out: a.stdout, Clock: a.now}, jc)
	switch {
	case st != nil && st.Error != "":
		events.RunFailure(st.RunID, opName, st.Stage, st.Error)
	case st != nil:
		copied := 0
		if st.Copy != nil {
			copied = st.Copy.FilesCopied
		}
		events.RunSuccess(st.RunID, opName, st.Duration(), copied)
	case err != nil:
		events.RunFailure("", opName, "setup", err.Error())
	}
	if st != nil {
		if rerr := render.Status(a.stdout, st); rerr != nil {
			logger := xglog.WithComponent("cli")
			logger.Warn().Err(rerr).Msg("failed to render summary")
		}
	}
	if errors.Is(err, jobs.ErrValidationFailed) {
		return &reportedError{err: err}
	}
	return err
}

func newAuthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Run the OAuth consent flow and cache the token",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(secretsClientID)
			if err != nil {
				return err
			}
			if err := a.configureLogging(cfg, ""); err != nil {
				return err
			}
			ts, err := a.authorize(cmd.Context(), cfg)
			if err == nil {
				_, err = ts.Token()
			}
			events := audit.NewLogger()
			if err != nil {
				logger := xglog.WithComponent("auth")
				logger.Error().Err(err).Msg("authentication failed")
				events.AuthFailure(cfg.ClientIDFile, err.Error())
				fmt.Fprintln(a.stdout, authFailureMsg)
				return &reportedError{err: err}
			}
			events.AuthSuccess(cfg.ClientIDFile)
			fmt.Fprintln(a.stdout, authSuccessMsg)
			return nil
		},
	}
}

func newAuditCmd(a *app) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "audit [paths...]",
		Short: "Check linter, test-runner and coverage settings",
		Long: `audit checks tool-configuration files for content that does not match
the format implied by the file name, syntax errors, unresolved
placeholders, missing or invalid coverage thresholds and duplicated
linter rules. Directories are walked; the default path is ".".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(secretsNone)
			if err != nil {
				return err
			}
			if err := a.configureLogging(cfg, ""); err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{"."}
			}
			auditor := configaudit.New(configaudit.Options{
				Placeholders: cfg.Audit.Placeholders,
				SkipDirs:     cfg.Audit.SkipDirs,
			})

			if watch {
				return auditor.Watch(cmd.Context(), args, func(r configaudit.Report) {
					_ = render.Audit(a.stdout, r)
				})
			}

			report, err := auditor.Audit(cmd.Context(), args...)
			if err != nil {
				return err
			}
			if err := render.Audit(a.stdout, report); err != nil {
				return err
			}
			if report.HasErrors() {
				return &reportedError{err: errAuditFindings}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-run the audit whenever a file changes")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
		Args:  noArgs,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file and the environment",
		Args:  noArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := a.loadConfig(secretsAll); err != nil {
				return err
			}
			name := a.configPath
			if name == "" {
				name = "configuration"
			}
			fmt.Fprintf(a.stdout, "✓ %s is valid\n", name)
			return nil
		},
	})

	var format string
	dump := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration (defaults + file + env)",
		Args:  noArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(secretsNone)
			if err != nil {
				return err
			}
			fc := config.ToFile(cfg)
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "yaml", "yml":
				enc := yaml.NewEncoder(a.stdout)
				enc.SetIndent(2)
				if err := enc.Encode(fc); err != nil {
					return fmt.Errorf("encode yaml: %w", err)
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(fc)
			default:
				return &usageError{err: fmt.Errorf("unsupported format %q (use yaml or json)", format)}
			}
		},
	}
	dump.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	cmd.AddCommand(dump)
	return cmd
}

func newManifestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Maintain the resume manifest",
		Args:  noArgs,
	}

	var full bool
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Check the integrity of the resume manifest",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(secretsNone)
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.OutputsDir, jobs.ManifestFile)
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("no manifest to verify: %w", err)
			}
			mode := sqlite.CheckQuick
			if full {
				mode = sqlite.CheckFull
			}
			issues, err := sqlite.VerifyIntegrity(cmd.Context(), path, mode)
			if err != nil {
				return err
			}
			if len(issues) > 0 {
				for _, issue := range issues {
					fmt.Fprintln(a.stdout, issue)
				}
				return &reportedError{err: fmt.Errorf("manifest %s is corrupt", path)}
			}
			fmt.Fprintf(a.stdout, "✓ %s is healthy\n", path)
			return nil
		},
	}
	verify.Flags().BoolVar(&full, "full", false, "run a full integrity_check instead of quick_check")
	cmd.AddCommand(verify)
	return cmd
}
