// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// drivecopy assesses a Google Drive folder tree, copies it into another
// folder and validates the copy. It also audits tool-configuration files.
//
// Usage:
//
//	drivecopy [run]         assess, copy and validate
//	drivecopy assess        write the source reports only
//	drivecopy copy          copy without reports
//	drivecopy auth          run the OAuth consent flow
//	drivecopy audit [path]  check linter and test-runner settings
//	drivecopy config validate|dump
//	drivecopy manifest verify
//	drivecopy version
//
// Exit codes:
//   - 0: success
//   - 1: the operation failed, validation failed or the audit found errors
//   - 2: usage error
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, newApp(os.Stdout, os.Stderr), os.Args[1:])
	stop()
	os.Exit(code)
}

// execute runs the command line and maps the outcome to an exit code.
func execute(ctx context.Context, a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	return exitCode(root.ExecuteContext(ctx), a.stderr)
}

// usageError marks bad invocations.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// reportedError marks failures whose outcome was already printed.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(stderr, "Error: %v\nRun 'drivecopy --help' for usage.\n", err)
		return 2
	}
	var re *reportedError
	if !errors.As(err, &re) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return 1
}
