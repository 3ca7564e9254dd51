package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoff(t *testing.T) {
	t.Parallel()

	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{attempts: 0, want: 0},
		{attempts: 1, want: 1 * time.Second},
		{attempts: 2, want: 2 * time.Second},
		{attempts: 5, want: maxConnectBackoff}, // cap
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, backoff(tc.attempts, maxConnectBackoff), "attempts=%d", tc.attempts)
	}
}

func TestPingWithRetry_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := pingWithRetry(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("refused")
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestPingWithRetry_RecoversAfterFailure(t *testing.T) {
	t.Parallel()

	calls := 0
	err := pingWithRetry(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("starting up")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}
