package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/errors"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/logger"
)

func TestExponentialBackoffBounds(t *testing.T) {
	base := 100 * time.Millisecond
	cap := time.Second
	jitter := 50 * time.Millisecond

	backoff := &ExponentialBackoff{
		BaseDelay:  base,
		MaxDelay:   cap,
		Multiplier: 2.0,
		MaxJitter:  jitter,
	}

	// delay(k) must satisfy min(base*2^(k-1), cap) <= d <= min(...)+jitter
	for attempt := 1; attempt <= 8; attempt++ {
		expected := base << (attempt - 1)
		if expected > cap {
			expected = cap
		}
		for i := 0; i < 20; i++ {
			delay := backoff.NextDelay(attempt)
			if delay < expected || delay > expected+jitter {
				t.Fatalf("attempt %d: delay %v outside [%v, %v]", attempt, delay, expected, expected+jitter)
			}
		}
	}
}

func TestExponentialBackoffNoJitterIsDeterministic(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second}, // capped
		{6, time.Second}, // still capped
	}

	for _, test := range tests {
		if got := backoff.NextDelay(test.attempt); got != test.want {
			t.Errorf("attempt %d: expected %v, got %v", test.attempt, test.want, got)
		}
	}
}

func TestJitterAddsRandomness(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2.0,
		MaxJitter:  100 * time.Millisecond,
	}

	delays := make(map[time.Duration]bool)
	for i := 0; i < 20; i++ {
		delays[backoff.NextDelay(2)] = true
	}
	if len(delays) < 2 {
		t.Error("expected varying delays with jitter")
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		if attempts < 3 {
			return errs.Transient(503, "busy")
		}
		return nil
	}

	p := &Policy{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.NewNopLogger(),
	}

	if err := Do(op, p); err != nil {
		t.Errorf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		return errs.Transient(500, "persistent")
	}

	p := &Policy{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.NewNopLogger(),
	}

	err := Do(op, p)
	if err == nil {
		t.Fatal("expected error when attempts exhausted")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if !errs.IsTransient(err) {
		t.Errorf("terminal error should wrap the last transient error, got %v", err)
	}
}

func TestFatalErrorIsNotRetried(t *testing.T) {
	attempts := 0
	fatal := errs.Fatal(404, "removed")
	op := func() error {
		attempts++
		return fatal
	}

	p := &Policy{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.NewNopLogger(),
	}

	err := Do(op, p)
	if !errors.Is(err, fatal) {
		t.Errorf("expected fatal error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt for fatal error, got %d", attempts)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	op := func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errs.Transient(500, "keeps failing")
	}

	p := &Policy{
		MaxAttempts: 100,
		Backoff:     &ConstantBackoff{Delay: 50 * time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     ctx,
		Logger:      logger.NewNopLogger(),
	}

	err := Do(op, p)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if attempts > 3 {
		t.Errorf("expected retries to stop on cancel, got %d attempts", attempts)
	}
}

func TestResetCooldownSupplement(t *testing.T) {
	var delays []time.Duration
	attempts := 0
	op := func() error {
		attempts++
		if attempts == 1 {
			return errs.Transient(0, "read tcp: connection reset by peer")
		}
		return nil
	}

	p := &Policy{
		MaxAttempts:      3,
		Backoff:          &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:          DefaultRetryIf,
		ResetCooldownMax: 5 * time.Millisecond,
		Context:          context.Background(),
		Logger:           logger.NewNopLogger(),
		OnRetry: func(attempt int, err error, delay time.Duration) {
			delays = append(delays, delay)
		},
	}

	if err := Do(op, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(delays) != 1 {
		t.Fatalf("expected one retry, got %d", len(delays))
	}
	// Base constant delay is 1ms; anything at or above that is the backoff
	// plus a cooldown in [0, 5ms).
	if delays[0] < time.Millisecond || delays[0] >= 6*time.Millisecond {
		t.Errorf("cooldown-extended delay %v outside expected bounds", delays[0])
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	op := func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errs.Transient(502, "flaky")
		}
		return "payload", nil
	}

	p := &Policy{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.NewNopLogger(),
	}

	result, err := DoWithResult(op, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "payload" {
		t.Errorf("expected payload, got %q", result)
	}
}
