// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"fmt"
)

// MissingEnvText prefixes every missing environment variable error.
const MissingEnvText = "Missing environment variable for"

var (
	// ErrUnknownConfigField classifies strict YAML parse failures caused by unknown keys.
	// Use errors.Is(err, ErrUnknownConfigField) instead of string matching.
	ErrUnknownConfigField = errors.New("unknown config field")

	// ErrMissingEnv is returned when a required environment variable is unset.
	ErrMissingEnv = errors.New("missing environment variable")
)

// MissingEnvError names the environment variable that was not set and what it is for.
type MissingEnvError struct {
	Var     string
	Purpose string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("%s %s: %s", MissingEnvText, e.Purpose, e.Var)
}

func (e *MissingEnvError) Unwrap() error { return ErrMissingEnv }

// ValidationError aggregates every problem found by Validate.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid configuration: " + e.Problems[0]
	}
	msg := fmt.Sprintf("invalid configuration (%d problems):", len(e.Problems))
	for _, p := range e.Problems {
		msg += "\n  - " + p
	}
	return msg
}
