// Package retry runs an operation again with exponential backoff until it succeeds, a
// permanent error is hit, or the attempts run out.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Timeout bounds each attempt; zero means attempts only end with ctx
	Timeout time.Duration
	// InfiniteRetry ignores MaxRetries and keeps going until ctx is done
	InfiniteRetry bool
	// Permanent reports errors that another attempt cannot fix
	Permanent func(error) bool
}

func WithRetry[T any](ctx context.Context, config Config, operation func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; config.InfiniteRetry || attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := runAttempt(ctx, config.Timeout, operation)
		if err == nil {
			return result, nil
		}

		if config.Permanent != nil && config.Permanent(err) {
			log.Debug().Err(err).Int("attempt", attempt+1).Msg("Permanent failure, not retrying")
			return zero, err
		}
		if !config.InfiniteRetry && attempt == config.MaxRetries {
			return zero, fmt.Errorf("operation failed after %d attempts: %w", attempt+1, err)
		}

		delay := backoffDelay(attempt, config.BaseDelay, config.MaxDelay)
		log.Debug().
			Err(err).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("Attempt failed, retrying after delay")

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, fmt.Errorf("unexpected: exceeded retry loop")
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, operation func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return operation(ctx)
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return operation(opCtx)
}

// backoffDelay doubles baseDelay per attempt, applies 0.5x to 1.5x jitter and caps at maxDelay
func backoffDelay(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	// 2^30 still fits in an int
	shift := min(attempt, 30)
	delay := time.Duration(1<<shift) * baseDelay
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}

	delay = time.Duration(float64(delay) * (0.5 + rand.Float64()))
	return min(delay, maxDelay)
}
