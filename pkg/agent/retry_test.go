package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastRetryPolicy keeps test wall time negligible.
func fastRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialDelay:    time.Millisecond,
		MaxDelay:        4 * time.Millisecond,
		ExponentialBase: 2.0,
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), fastRetryPolicy(), nil, "op", func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), fastRetryPolicy(), nil, "op", func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	boom := errors.New("persistent failure")
	calls := 0
	_, err := Retry(context.Background(), fastRetryPolicy(), nil, "op", func(context.Context) (string, error) {
		calls++
		return "", boom
	})
	require.Error(t, err)
	// The last error surfaces unwrapped.
	assert.Equal(t, boom, err)
	assert.Equal(t, 3, calls)
}

func TestRetryNonRetryableStopsImmediately(t *testing.T) {
	fatal := errors.New("bad request")
	policy := fastRetryPolicy()
	policy.Classify = func(err error) bool { return !errors.Is(err, fatal) }

	calls := 0
	_, err := Retry(context.Background(), policy, nil, "op", func(context.Context) (string, error) {
		calls++
		return "", fatal
	})
	require.Error(t, err)
	assert.Equal(t, fatal, err)
	assert.Equal(t, 1, calls)
}

func TestRetryBackoffGrowsAndCaps(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:     4,
		InitialDelay:    10 * time.Millisecond,
		MaxDelay:        20 * time.Millisecond,
		ExponentialBase: 2.0,
	}

	var attemptTimes []time.Time
	_, err := Retry(context.Background(), policy, nil, "op", func(context.Context) (string, error) {
		attemptTimes = append(attemptTimes, time.Now())
		return "", errors.New("transient")
	})
	require.Error(t, err)
	require.Len(t, attemptTimes, 4)

	// Expected sleeps: 10ms, 20ms, 20ms (capped).
	gaps := []time.Duration{
		attemptTimes[1].Sub(attemptTimes[0]),
		attemptTimes[2].Sub(attemptTimes[1]),
		attemptTimes[3].Sub(attemptTimes[2]),
	}
	assert.GreaterOrEqual(t, gaps[0], 10*time.Millisecond)
	assert.GreaterOrEqual(t, gaps[1], 20*time.Millisecond)
	assert.GreaterOrEqual(t, gaps[2], 20*time.Millisecond)
	// The cap keeps the third gap from doubling again.
	assert.Less(t, gaps[2], 40*time.Millisecond)
}

func TestRetryContextCancelDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{
		MaxAttempts:     3,
		InitialDelay:    time.Hour, // would hang without cancellation
		MaxDelay:        time.Hour,
		ExponentialBase: 2.0,
	}

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Retry(ctx, policy, nil, "op", func(context.Context) (string, error) {
			calls++
			return "", errors.New("transient")
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestRetryContextAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Retry(ctx, fastRetryPolicy(), nil, "op", func(context.Context) (string, error) {
		calls++
		return "", nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()
	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, time.Second, policy.InitialDelay)
	assert.Equal(t, 10*time.Second, policy.MaxDelay)
	assert.Equal(t, 2.0, policy.ExponentialBase)
	assert.Nil(t, policy.Classify)
}
