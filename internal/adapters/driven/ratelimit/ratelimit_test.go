package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DisabledReturnsNil(t *testing.T) {
	l := New(Config{})
	assert.Nil(t, l)

	// A nil limiter never blocks.
	require.NoError(t, l.Wait(context.Background()))
	l.Backoff(time.Hour)
	assert.False(t, l.Observe(&http.Response{StatusCode: http.StatusOK}))
}

func TestLimiter_WaitAllowsBurst(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1, BurstSize: 3})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx))
	}
}

func TestLimiter_BackoffBlocksUntilDeadline(t *testing.T) {
	l := New(Config{RequestsPerSecond: 100, BurstSize: 10})
	l.Backoff(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiter_BackoffNeverShortens(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(Config{RequestsPerSecond: 1})
	l.now = func() time.Time { return base }

	l.Backoff(time.Minute)
	l.Backoff(time.Second)

	assert.Equal(t, base.Add(time.Minute), l.retryAt)
}

func TestLimiter_Observe(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{"Retry-After": []string{"7"}}}

	assert.True(t, l.Observe(resp))
	assert.Equal(t, base.Add(7*time.Second), l.retryAt)
	assert.False(t, l.Observe(&http.Response{StatusCode: http.StatusOK}))
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, RetryAfter(http.Header{"Retry-After": []string{"3"}}))
	assert.Zero(t, RetryAfter(http.Header{}))
	assert.Zero(t, RetryAfter(http.Header{"Retry-After": []string{"Wed, 21 Oct 2015 07:28:00 GMT"}}))
}
