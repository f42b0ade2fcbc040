package util

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithContext_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	out, err := RetryWithContext(context.Background(), 3, 0, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Equal(t, 3, calls)
}

func TestRetryWithContext_ReturnsLastError(t *testing.T) {
	calls := 0
	_, err := RetryWithContext(context.Background(), 2, 0, func(context.Context) (string, error) {
		calls++
		return "", errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, "boom", err.Error())
	assert.Equal(t, 2, calls)
}

func TestRetryWithContext_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := RetryErrWithContext(ctx, 5, 0, func(context.Context) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_UTIL_INT", "12")
	t.Setenv("TEST_UTIL_BAD_INT", "x")
	t.Setenv("TEST_UTIL_BOOL", "1")
	t.Setenv("TEST_UTIL_FLOAT", "0.25")
	t.Setenv("TEST_UTIL_DUR", "7")

	assert.Equal(t, 12, GetEnvInt("TEST_UTIL_INT", 3))
	assert.Equal(t, 3, GetEnvInt("TEST_UTIL_BAD_INT", 3))
	assert.True(t, GetEnvBool("TEST_UTIL_BOOL", false))
	assert.InDelta(t, 0.25, GetEnvFloat("TEST_UTIL_FLOAT", 1), 1e-9)
	assert.Equal(t, "fallback", GetEnvString("TEST_UTIL_MISSING", "fallback"))
	assert.Equal(t, int64(7), int64(GetEnvDuration("TEST_UTIL_DUR", 0).Seconds()))
}
