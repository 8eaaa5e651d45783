// Package retry runs fallible AI calls with bounded attempts and exponential backoff.
package retry

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second

	// MaxDelay caps a single backoff sleep.
	MaxDelay = 2 * time.Minute
)

// Attempt describes a failed try that is about to be retried.
type Attempt struct {
	Index       int // 0-indexed attempt that failed
	MaxAttempts int
	Delay       time.Duration
	Err         error
}

// Policy configures Do. Zero fields fall back to the package defaults.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration

	// Retryable classifies an error as transient. Defaults to IsTransient.
	Retryable func(error) bool

	// Sleep waits between attempts (overridable for tests).
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is called before each backoff sleep.
	OnRetry func(ctx context.Context, a Attempt)
}

// Default returns the policy used by the chat, automation and code flows.
func Default() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Retryable:   IsTransient,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return p
}

// Delay returns the wait before the given 0-indexed attempt (attempt >= 1).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	d := p.normalized().BaseDelay
	for i := 1; i < attempt; i++ {
		if d >= MaxDelay/2 {
			return MaxDelay
		}
		d *= 2
	}
	return min(d, MaxDelay)
}

// Do calls op until it succeeds, fails with a non-retryable error, or
// MaxAttempts tries have failed. The last error is returned on exhaustion.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var zero T
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := p.Delay(attempt)
			log.Printf("AI call failed (attempt %d/%d), retrying in %dms...", attempt, p.MaxAttempts, delay.Milliseconds())
			if p.OnRetry != nil {
				p.OnRetry(ctx, Attempt{Index: attempt - 1, MaxAttempts: p.MaxAttempts, Delay: delay, Err: lastErr})
			}
			if err := p.Sleep(ctx, delay); err != nil {
				return zero, err
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !p.Retryable(err) {
			return zero, err
		}
	}

	return zero, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Gemini reports HTTP failures as *googleapi.Error, but SDK and network
// errors often arrive as plain text, so message markers are checked too.
var (
	overloadMarkers = []string{"503", "overloaded", "429", "rate limit"}
	networkMarkers  = []string{"ECONNRESET", "connection reset", "timeout"}
)

// IsOverloadOrRateLimit reports service-overload and rate-limit failures.
func IsOverloadOrRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return true
		}
	}
	return containsAny(err.Error(), overloadMarkers)
}

// IsTransient extends IsOverloadOrRateLimit with connection resets and timeouts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return IsOverloadOrRateLimit(err) || containsAny(err.Error(), networkMarkers)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
