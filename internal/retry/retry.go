package retry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Spec governs one retried operation. It is a value object instantiated
// per call site; storage operations and queue sends share the executor and
// differ only in the Spec they pass.
type Spec struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64 // defaults to 2
	Retryable    func(error) bool
}

// StorageSpec returns the default spec for object store and table calls
func StorageSpec(retryable func(error) bool) Spec {
	return Spec{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Multiplier:   2,
		Retryable:    retryable,
	}
}

// QueueSpec returns the default spec for queue sends
func QueueSpec(retryable func(error) bool) Spec {
	return Spec{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		Multiplier:   2,
		Retryable:    retryable,
	}
}

// Do executes op up to spec.MaxAttempts times with exponential backoff
// between attempts. A failure the spec does not classify as retryable, or
// a failure on the last attempt, is returned unchanged. Backoff sleeps
// block only the invoking call and honor ctx cancellation.
func Do[T any](ctx context.Context, log *zap.Logger, spec Spec, name string, op func(context.Context) (T, error)) (T, error) {
	var zero T

	multiplier := spec.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}
	delay := spec.InitialDelay

	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.Info("Operation succeeded after retry",
					zap.String("operation", name),
					zap.Int("attempt", attempt),
				)
			}
			return result, nil
		}

		if spec.Retryable == nil || !spec.Retryable(err) {
			log.Error("Operation failed with non-retryable error",
				zap.String("operation", name),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return zero, err
		}

		if attempt >= spec.MaxAttempts {
			log.Error("Operation failed after all retries",
				zap.String("operation", name),
				zap.Int("max_attempts", spec.MaxAttempts),
				zap.Error(err),
			)
			return zero, err
		}

		log.Warn("Operation failed, retrying",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		delay = time.Duration(float64(delay) * multiplier)
	}
}
