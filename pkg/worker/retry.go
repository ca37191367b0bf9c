package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// Validator is implemented by per-action result records. Valid must be a
// pure predicate.
type Validator interface {
	Valid() bool
}

// Policy is the caller-level retry policy. Each attempt is a full
// invocation that restarts candidate fallback from the first candidate.
type Policy struct {
	MaxAttempts int
	// Delay before the second attempt; zero retries immediately.
	Delay      time.Duration
	Multiplier float64
	MaxDelay   time.Duration
	Logger     *slog.Logger
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 1, Multiplier: 2.0, MaxDelay: 10 * time.Second}
}

func (p Policy) WithMaxAttempts(n int) Policy {
	p.MaxAttempts = n
	return p
}

func (p Policy) WithDelay(d time.Duration) Policy {
	p.Delay = d
	return p
}

// NextDelay returns the pause after the given 1-based attempt.
func (p Policy) NextDelay(attempt int) time.Duration {
	if p.Delay <= 0 || attempt <= 0 {
		return 0
	}
	d := float64(p.Delay)
	for i := 1; i < attempt; i++ {
		if p.Multiplier > 1 {
			d *= p.Multiplier
		}
	}
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	return time.Duration(d)
}

// Result is a worker reply that decoded into T and passed T.Valid. Raw is
// the document exactly as the worker wrote it.
type Result[T Validator] struct {
	Value    T
	Raw      json.RawMessage
	Attempts int
}

// Call invokes action until the result decodes into T and T.Valid reports
// true, or the attempts run out. On failure it returns the last error; the
// Result still carries the number of attempts made. Cancellation stops
// retrying.
func Call[T Validator](ctx context.Context, inv Invoker, action string, payload Payload, p Policy) (Result[T], error) {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err := decodeValid[T](ctx, inv, action, payload)
		if err == nil {
			res.Attempts = attempt
			return res, nil
		}
		lastErr = err
		logger.Warn("worker attempt failed",
			slog.String("action", action),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Any("error", err),
		)

		var abort *AbortError
		if errors.As(err, &abort) || ctx.Err() != nil {
			return Result[T]{Attempts: attempt}, err
		}
		if attempt == attempts {
			break
		}
		if d := p.NextDelay(attempt); d > 0 {
			t := time.NewTimer(d)
			select {
			case <-ctx.Done():
				t.Stop()
				return Result[T]{Attempts: attempt}, &AbortError{Cause: ctx.Err()}
			case <-t.C:
			}
		}
	}
	return Result[T]{Attempts: attempts}, lastErr
}

func decodeValid[T Validator](ctx context.Context, inv Invoker, action string, payload Payload) (Result[T], error) {
	raw, err := inv.Invoke(ctx, action, payload)
	if err != nil {
		return Result[T]{}, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return Result[T]{}, &ValidationError{Action: action, Reason: "unexpected JSON types", Err: err}
	}
	if !v.Valid() {
		return Result[T]{}, &ValidationError{Action: action, Reason: "unexpected shape"}
	}
	return Result[T]{Value: v, Raw: raw}, nil
}
