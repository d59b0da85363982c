package retry

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// Policy configures the retry wrapper.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultPolicy matches the documented defaults: 3 attempts, 1s initial
// delay, 10s cap, doubling each attempt.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
	}
}

// Result summarizes one Do call.
type Result struct {
	Success       bool
	Value         any
	Err           error
	Attempts      int
	TotalDuration time.Duration
}

// Executor runs a function under a Policy, retrying retriable failures
// with jittered exponential backoff.
type Executor struct {
	Policy Policy
	Logger *slog.Logger
}

// New builds an Executor. logger may be nil.
func New(policy Policy, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{Policy: policy, Logger: logger}
}

// Do invokes fn until it succeeds, a non-retriable error is classified, or
// MaxAttempts is exhausted. It sleeps between attempts per the policy's
// backoff schedule, honoring ctx cancellation during that sleep.
func (e *Executor) Do(ctx context.Context, fn func(ctx context.Context) (any, error)) Result {
	start := time.Now()
	maxAttempts := e.Policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	attempt := 0
	for attempt < maxAttempts {
		attempt++
		value, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				e.Logger.Info("call succeeded after retry", "attempt", attempt)
			}
			return Result{Success: true, Value: value, Attempts: attempt, TotalDuration: time.Since(start)}
		}
		lastErr = err

		if !Classify(err) {
			break
		}
		if attempt >= maxAttempts {
			break
		}

		delay := backoff(e.Policy, attempt)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			lastErr = ctx.Err()
			attempt++
			return Result{Success: false, Err: lastErr, Attempts: attempt - 1, TotalDuration: time.Since(start)}
		}
	}

	return Result{Success: false, Err: lastErr, Attempts: attempt, TotalDuration: time.Since(start)}
}

// backoff computes min(initialDelay * multiplier^(attempt-1), maxDelay)
// plus up to 10% jitter.
func backoff(p Policy, attempt int) time.Duration {
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 2
	}
	base := float64(p.InitialDelay) * math.Pow(multiplier, float64(attempt-1))
	if cap := float64(p.MaxDelay); p.MaxDelay > 0 && base > cap {
		base = cap
	}
	jitter := base * 0.1 * rand.Float64()
	return time.Duration(base + jitter)
}
