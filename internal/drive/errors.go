// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package drive

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/ManuGH/drivecopy/internal/resilience"
	"google.golang.org/api/googleapi"
)

// rate limit reasons reported with 403 responses.
var rateLimitReasons = map[string]struct{}{
	"userRateLimitExceeded":    {},
	"rateLimitExceeded":        {},
	"sharingRateLimitExceeded": {},
}

// IsRetryable reports whether err is a transient Drive failure worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, ErrNotFound) {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code >= 500 || IsRateLimited(err)
	}
	var nerr net.Error
	return errors.As(err, &nerr)
}

// IsRateLimited reports whether the API refused a call because of quota.
// Such calls had no effect and are always safe to repeat.
func IsRateLimited(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusTooManyRequests {
		return true
	}
	if gerr.Code == http.StatusForbidden {
		for _, item := range gerr.Errors {
			if _, ok := rateLimitReasons[item.Reason]; ok {
				return true
			}
		}
	}
	return false
}

// countsAsOutage decides which errors trip the circuit breaker. Client-side
// errors such as 404 say nothing about the health of the API.
func countsAsOutage(err error) bool {
	return IsRetryable(err)
}

// translate maps API errors onto package sentinels.
func translate(op, id string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "circuit_open"
	default:
		return "error"
	}
}
