// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package ratelimit throttles outgoing Drive API calls on the client side so
// a large copy stays below the per-user quota instead of collecting 429s.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/drivecopy/internal/metrics"
	"golang.org/x/time/rate"
)

// Config holds rate limiting configuration
type Config struct {
	// Global limits shared by every operation
	GlobalRate  rate.Limit // requests per second
	GlobalBurst int        // max burst size

	// Optional per-operation limits (e.g. "copy", "create")
	OperationRates map[string]rate.Limit
	OperationBurst map[string]int
}

// DefaultConfig returns defaults well below the Drive per-user quota.
func DefaultConfig() Config {
	return Config{
		GlobalRate:  10,
		GlobalBurst: 20,

		OperationRates: map[string]rate.Limit{
			"copy":   3, // server-side copies are the expensive writes
			"create": 3,
		},
		OperationBurst: map[string]int{
			"copy":   6,
			"create": 6,
		},
	}
}

// Limiter manages rate limiting for Drive operations
type Limiter struct {
	config Config

	global *rate.Limiter
	perOp  map[string]*rate.Limiter
	mu     sync.RWMutex
}

// New creates a new rate limiter with the given config
func New(config Config) *Limiter {
	if config.GlobalBurst <= 0 {
		config.GlobalBurst = 1
	}
	l := &Limiter{
		config: config,
		global: rate.NewLimiter(config.GlobalRate, config.GlobalBurst),
		perOp:  make(map[string]*rate.Limiter),
	}

	for op, opRate := range config.OperationRates {
		burst := config.OperationBurst[op]
		if burst <= 0 {
			burst = 1
		}
		l.perOp[op] = rate.NewLimiter(opRate, burst)
	}

	return l
}

// Wait blocks until both the global and the operation limiter admit one call.
func (l *Limiter) Wait(ctx context.Context, op string) error {
	start := time.Now()
	defer func() { metrics.AddRateLimitWait(op, time.Since(start)) }()

	if err := l.global.Wait(ctx); err != nil {
		return fmt.Errorf("ratelimit %s: %w", op, err)
	}

	l.mu.RLock()
	opLimiter, exists := l.perOp[op]
	l.mu.RUnlock()

	if exists {
		if err := opLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("ratelimit %s: %w", op, err)
		}
	}
	return nil
}

// Allow reports whether a call may proceed right now without waiting.
func (l *Limiter) Allow(op string) bool {
	if !l.global.Allow() {
		return false
	}
	l.mu.RLock()
	opLimiter, exists := l.perOp[op]
	l.mu.RUnlock()
	return !exists || opLimiter.Allow()
}

// Unlimited returns a limiter that never blocks.
func Unlimited() *Limiter {
	return New(Config{GlobalRate: rate.Inf, GlobalBurst: 1})
}
