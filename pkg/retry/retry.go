package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	errs "github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/errors"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/logger"
)

// Operation is a function that performs an operation that might need retrying
type Operation func() error

// OperationWithResult is a function that returns a result and might need retrying
type OperationWithResult[T any] func() (T, error)

// Policy holds the retry configuration for one call site. Each call site
// supplies its own instance; the bounds are tunable policy, not constants.
type Policy struct {
	// MaxAttempts is the maximum number of attempts (0 means unlimited)
	MaxAttempts int
	// Backoff strategy to use
	Backoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each retry attempt
	OnRetry func(attempt int, err error, delay time.Duration)
	// ResetCooldownMax bounds the extra random cooldown added after a
	// peer-initiated connection reset. Resets cluster, so the standard
	// backoff alone is not enough. Zero disables the supplement.
	ResetCooldownMax time.Duration
	// Context for cancellation
	Context context.Context
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultPolicy returns a retry policy with sensible defaults
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts: 5,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.GetLogger(),
	}
}

// NewPolicy builds a policy with exponential backoff from explicit bounds
func NewPolicy(maxAttempts int, baseDelay, maxDelay, maxJitter time.Duration) *Policy {
	p := DefaultPolicy()
	p.MaxAttempts = maxAttempts
	p.Backoff = &ExponentialBackoff{
		BaseDelay:  baseDelay,
		MaxDelay:   maxDelay,
		Multiplier: 2.0,
		MaxJitter:  maxJitter,
	}
	return p
}

// WithContext returns a copy of the policy bound to ctx
func (p *Policy) WithContext(ctx context.Context) *Policy {
	cp := *p
	cp.Context = ctx
	return &cp
}

// DefaultRetryIf retries transient errors only. Fatal, data-missing and
// context errors propagate immediately.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var ce *errs.Error
	if errors.As(err, &ce) {
		return errs.IsRetryable(ce.Type)
	}

	// Unclassified errors get retried; the executor classifies everything
	// it produces, so these come from callers that did not classify.
	return true
}

// Do executes an operation with retry logic
func Do(op Operation, p *Policy) error {
	if p == nil {
		p = DefaultPolicy()
	}
	ctx := p.Context
	if ctx == nil {
		ctx = context.Background()
	}

	var lastErr error
	attempt := 0

	for {
		attempt++

		if p.MaxAttempts > 0 && attempt > p.MaxAttempts {
			if p.Logger != nil {
				p.Logger.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
					"attempts":   attempt - 1,
					"last_error": lastErr.Error(),
				})
			}
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", p.MaxAttempts, lastErr)
		}

		err := op()
		if err == nil {
			if attempt > 1 && p.Logger != nil {
				p.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}

		lastErr = err

		if p.RetryIf != nil && !p.RetryIf(err) {
			if p.Logger != nil {
				p.Logger.DebugWithFields("error is not retryable", map[string]interface{}{
					"error": err.Error(),
				})
			}
			return err
		}

		delay := p.Backoff.NextDelay(attempt)

		// Peer resets cluster; insert an extra cooldown beyond the
		// standard backoff.
		if p.ResetCooldownMax > 0 && errs.IsConnectionReset(err) {
			cooldown := time.Duration(rand.Int63n(int64(p.ResetCooldownMax)))
			delay += cooldown
			if p.Logger != nil {
				p.Logger.WarnWithFields("connection reset detected, extending cooldown", map[string]interface{}{
					"cooldown_ms": cooldown.Milliseconds(),
				})
			}
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}

		if p.Logger != nil {
			p.Logger.WarnWithFields("retrying operation", map[string]interface{}{
				"attempt":      attempt,
				"error":        err.Error(),
				"delay_ms":     delay.Milliseconds(),
				"max_attempts": p.MaxAttempts,
			})
		}

		if err := Wait(ctx, delay); err != nil {
			if p.Logger != nil {
				p.Logger.WarnWithFields("retry cancelled", map[string]interface{}{
					"attempt": attempt,
					"reason":  err.Error(),
				})
			}
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](op OperationWithResult[T], p *Policy) (T, error) {
	var result T

	err := Do(func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, p)

	return result, err
}
