// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// validate is a CLI tool to validate drivecopy YAML configuration files.
// It checks the file only; the environment secrets are not required.
//
// Usage:
//
//	validate -f config.yaml
//	validate --file config.yaml
//
// Exit codes:
//   - 0: Configuration is valid
//   - 1: Configuration is invalid (parse or validation error)
//   - 2: Usage error (missing required flag)
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ManuGH/drivecopy/internal/config"
	"github.com/ManuGH/drivecopy/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	var showVersion bool
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if showVersion {
		fmt.Fprintln(stdout, version.Version)
		return 0
	}

	if file == "" {
		fmt.Fprintln(stderr, "Error: --file is required")
		fmt.Fprintln(stderr, "")
		fmt.Fprintln(stderr, "Usage:")
		fmt.Fprintln(stderr, "  validate -f config.yaml")
		fmt.Fprintln(stderr, "  validate --file config.yaml")
		return 2
	}

	// Strict YAML parsing rejects unknown keys
	cfg, err := config.NewLoader(file, version.Version).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n", file)
		fmt.Fprintf(stderr, "  %v\n", err)
		return 1
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "Validation error in %s:\n", file)
		fmt.Fprintf(stderr, "  %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "✓ %s is valid\n", file)
	return 0
}
