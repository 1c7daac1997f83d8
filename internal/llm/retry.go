// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

type retryModel struct {
	next       Model
	maxRetries int
}

// WithRetry wraps m so failed calls are retried with exponential backoff
// (1s, 2s, 4s, ...). Context cancellation and deadline errors are returned
// immediately. maxRetries <= 0 disables retries.
func WithRetry(m Model, maxRetries int) Model {
	if maxRetries <= 0 {
		return m
	}
	return &retryModel{next: m, maxRetries: maxRetries}
}

func (r *retryModel) Invoke(ctx context.Context, system, user string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		out, err := r.next.Invoke(ctx, system, user)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", r.maxRetries, lastErr)
}
