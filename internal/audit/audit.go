// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package audit writes structured audit events for operations that touch
// Drive data or credentials. Events follow the WHO/WHAT/WHEN pattern.
package audit

import (
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/drivecopy/internal/log"
	"github.com/rs/zerolog"
)

// EventType represents the type of audit event.
type EventType string

const (
	// Run events
	EventRunStart   EventType = "run.start"
	EventRunSuccess EventType = "run.success"
	EventRunFailure EventType = "run.failure"

	// Authentication events
	EventAuthSuccess EventType = "auth.success"
	EventAuthFailure EventType = "auth.failure"

	// Health endpoint events
	EventAPIRateLimit EventType = "api.ratelimit"
)

// Event represents a structured audit event.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	Type       EventType         `json:"type"`
	Actor      string            `json:"actor"`    // WHO: local user, IP, or "system"
	Action     string            `json:"action"`   // WHAT: human-readable action description
	Resource   string            `json:"resource"` // folder pair, client secret file or endpoint
	Result     string            `json:"result"`   // started, success, failure, denied
	RemoteAddr string            `json:"remote_addr"`
	RunID      string            `json:"run_id"`
	Details    map[string]string `json:"details,omitempty"`
}

// Logger provides audit logging functionality.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a new audit logger with a dedicated "audit" component.
func NewLogger() *Logger {
	return newLogger(log.WithComponent("audit"))
}

func newLogger(base zerolog.Logger) *Logger {
	return &Logger{logger: base.With().Str("log_type", "audit").Logger()}
}

// Log writes an audit event.
func (l *Logger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Actor == "" {
		event.Actor = "system"
	}

	logEvent := l.logger.Info().
		Time("timestamp", event.Timestamp).
		Str("event_type", string(event.Type)).
		Str("actor", event.Actor).
		Str("action", event.Action).
		Str("resource", event.Resource).
		Str("result", event.Result)

	if event.RemoteAddr != "" {
		logEvent.Str("remote_addr", event.RemoteAddr)
	}
	if event.RunID != "" {
		logEvent.Str(log.FieldRunID, event.RunID)
	}
	for key, value := range event.Details {
		logEvent.Str(key, value)
	}

	logEvent.Msg("audit event")
}

// RunStart logs the start of a run between two folders.
func (l *Logger) RunStart(operation, sourceID, destinationID string) {
	l.Log(Event{
		Type:     EventRunStart,
		Action:   "started " + operation,
		Resource: folderPair(sourceID, destinationID),
		Result:   "started",
		Details:  map[string]string{log.FieldOperation: operation},
	})
}

// RunSuccess logs a completed run.
func (l *Logger) RunSuccess(runID, operation string, duration time.Duration, filesCopied int) {
	l.Log(Event{
		Type:     EventRunSuccess,
		Action:   "completed " + operation,
		Resource: operation,
		Result:   "success",
		RunID:    runID,
		Details: map[string]string{
			"duration_ms":  strconv.FormatInt(duration.Milliseconds(), 10),
			"files_copied": strconv.Itoa(filesCopied),
		},
	})
}

// RunFailure logs a failed run and the stage it failed at.
func (l *Logger) RunFailure(runID, operation, stage, reason string) {
	l.Log(Event{
		Type:     EventRunFailure,
		Action:   operation + " failed",
		Resource: operation,
		Result:   "failure",
		RunID:    runID,
		Details: map[string]string{
			"stage": stage,
			"error": reason,
		},
	})
}

// AuthSuccess logs a successful OAuth authorization.
func (l *Logger) AuthSuccess(clientFile string) {
	l.Log(Event{
		Type:     EventAuthSuccess,
		Action:   "authenticated successfully",
		Resource: clientFile,
		Result:   "success",
	})
}

// AuthFailure logs a failed OAuth authorization.
func (l *Logger) AuthFailure(clientFile, reason string) {
	l.Log(Event{
		Type:     EventAuthFailure,
		Action:   "authentication failed",
		Resource: clientFile,
		Result:   "failure",
		Details:  map[string]string{"reason": reason},
	})
}

// RateLimitExceeded logs rate limit violations on the health endpoints.
func (l *Logger) RateLimitExceeded(remoteAddr, endpoint string) {
	l.Log(Event{
		Type:       EventAPIRateLimit,
		Actor:      remoteAddr,
		Action:     "rate limit exceeded",
		Resource:   endpoint,
		Result:     "denied",
		RemoteAddr: remoteAddr,
	})
}

func folderPair(sourceID, destinationID string) string {
	if destinationID == "" {
		return sourceID
	}
	return strings.Join([]string{sourceID, destinationID}, " -> ")
}
