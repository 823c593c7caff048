// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline provides the retry-then-fallback discipline applied
// around every stage of the research pipeline. A stage is attempted a
// bounded number of times with exponential backoff; when the attempts
// are exhausted a deterministic local fallback produces the result
// instead of an error, so downstream stages always have input.
package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// backoffBase controls the base duration for exponential backoff between
// attempts. Tests override this to avoid real sleeps.
var backoffBase = time.Second

// maxAttempts is the fixed attempt budget shared by all stages.
const maxAttempts = 3

// Stage is one attemptable unit of work: a provider call plus whatever
// parsing and validation must succeed for the attempt to count.
type Stage[T any] func(ctx context.Context) (T, error)

// Run executes stage up to three times, sleeping 2^attempt seconds after
// the attempt numbered attempt (2s, then 4s). After the final failure it
// returns fallback() instead of an error. The fallback must be pure and
// must not perform I/O; it is the designed terminal state, not an error
// path.
//
// A cancelled context cuts the backoff wait short and moves straight to
// the fallback.
func Run[T any](ctx context.Context, log *slog.Logger, name string, stage Stage[T], fallback func() T) T {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, err := stage(ctx)
		if err == nil {
			if attempt > 1 {
				log.Info("stage recovered", "stage", name, "attempt", attempt)
			}
			return out
		}
		lastErr = err
		log.Warn("stage attempt failed", "stage", name, "attempt", attempt, "error", err)

		if attempt == maxAttempts {
			break
		}

		backoff := backoffBase << attempt // 2^attempt seconds
		select {
		case <-ctx.Done():
			log.Warn("stage wait cancelled, using fallback", "stage", name)
			return fallback()
		case <-time.After(backoff):
		}
	}

	log.Warn("stage exhausted retries, using fallback", "stage", name, "error", lastErr)
	return fallback()
}
