package ratelimit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsWithoutRetry(t *testing.T) {
	g := New()
	calls := 0
	err := g.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoStopsImmediatelyOnNonRetryableError(t *testing.T) {
	g := New()
	calls := 0
	sentinel := errors.New("bad request")
	err := g.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesRetryableErrorThenSucceeds(t *testing.T) {
	g := New()
	calls := 0
	err := g.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return Retryable(errors.New("transient"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestShouldSlowDownAfterRepeatedThrottles(t *testing.T) {
	g := New()
	assert.False(t, g.ShouldSlowDown())
	g.recordThrottle()
	g.recordThrottle()
	g.recordThrottle()
	assert.True(t, g.ShouldSlowDown())
}
