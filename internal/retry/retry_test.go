package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

type recorder struct{ pauses []time.Duration }

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.pauses = append(r.pauses, d)
	return nil
}

func TestDoRetriesRateLimitsUntilSuccess(t *testing.T) {
	rec := &recorder{}
	p := Default().WithSleep(rec.sleep)

	calls := 0
	err := p.Do(context.Background(), "append", func(context.Context) error {
		calls++
		if calls < 3 {
			return &googleapi.Error{Code: http.StatusTooManyRequests, Message: "slow down"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	require.Len(t, rec.pauses, 2)
	for _, d := range rec.pauses {
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 8*time.Second)
	}
}

func TestDoGivesUpAfterAttempts(t *testing.T) {
	rec := &recorder{}
	p := Default().WithSleep(rec.sleep)

	calls := 0
	quota := errors.New("googleapi: Error 429: Quota exceeded for quota metric 'Read requests'")
	err := p.Do(context.Background(), "list", func(context.Context) error {
		calls++
		return quota
	})

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 4, ex.Attempts)
	assert.ErrorIs(t, err, quota)
	assert.Equal(t, 4, calls)
	assert.Len(t, rec.pauses, 3)
	assert.Contains(t, err.Error(), "giving up after 4 attempts")
}

func TestDoDoesNotRetryOtherErrors(t *testing.T) {
	rec := &recorder{}
	p := Default().WithSleep(rec.sleep)

	calls := 0
	notFound := &googleapi.Error{Code: http.StatusNotFound}
	err := p.Do(context.Background(), "get", func(context.Context) error {
		calls++
		return notFound
	})
	assert.Same(t, notFound, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.pauses)
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := Default().WithSleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() })

	err := p.Do(ctx, "update", func(context.Context) error {
		return &googleapi.Error{Code: http.StatusTooManyRequests}
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{&googleapi.Error{Code: http.StatusTooManyRequests}, true},
		{fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusTooManyRequests}), true},
		{&googleapi.Error{Code: http.StatusInternalServerError}, false},
		{errors.New("Quota exceeded for quota group"), true},
		{errors.New("Read requests per minute per user"), true},
		{errors.New("permission denied"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRateLimited(tt.err), "%v", tt.err)
	}
}
