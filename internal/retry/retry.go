// Package retry runs remote calls under a bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/api/googleapi"
)

// Policy retries an operation a fixed number of times with exponentially
// growing pauses, but only for errors Retryable accepts.
type Policy struct {
	Attempts   int
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Retryable  func(error) bool

	// sleep is swapped in tests.
	sleep func(context.Context, time.Duration) error
}

// Default is four attempts starting at 800ms and doubling, retrying rate
// limit errors from Google APIs.
func Default() Policy {
	return Policy{
		Attempts:   4,
		Initial:    800 * time.Millisecond,
		Max:        8 * time.Second,
		Multiplier: 2,
		Retryable:  IsRateLimited,
	}
}

// WithSleep returns a copy of p that pauses with fn.
func (p Policy) WithSleep(fn func(context.Context, time.Duration) error) Policy {
	p.sleep = fn
	return p
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: %s: giving up after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do calls fn until it succeeds, fails with a non-retryable error, the
// context is done or the attempts run out.
func (p Policy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = gax.Sleep
	}
	bo := gax.Backoff{Initial: p.Initial, Max: p.Max, Multiplier: p.Multiplier}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		pause := bo.Pause()
		slog.WarnContext(ctx, "Remote call rate limited, backing off",
			"operation", op,
			"attempt", attempt,
			"pause", pause,
			"error", err)
		if serr := sleep(ctx, pause); serr != nil {
			return fmt.Errorf("%s: %w", op, serr)
		}
	}
	return &ExhaustedError{Op: op, Attempts: attempts, Err: err}
}

// IsRateLimited matches HTTP 429 from Google APIs and quota messages.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Quota exceeded") ||
		strings.Contains(msg, "Read requests") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
