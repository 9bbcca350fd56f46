package timeout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"server/internal/domain"
)

func TestGuardReturnsResultBeforeDeadline(t *testing.T) {
	got, err := Guard(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, got)
}

func TestGuardRelaysOperationError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Guard(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestGuardTimesOut(t *testing.T) {
	start := time.Now()
	_, err := Guard(context.Background(), 20*time.Millisecond, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "late", ctx.Err()
	})
	require.ErrorIs(t, err, domain.ErrTimeout)
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestGuardDiscardsLateSuccess(t *testing.T) {
	var finished atomic.Bool
	release := make(chan struct{})

	got, err := Guard(context.Background(), 10*time.Millisecond, func(ctx context.Context) (string, error) {
		<-release
		finished.Store(true)
		return "late success", nil
	})
	require.ErrorIs(t, err, domain.ErrTimeout)
	require.Empty(t, got)

	// Let the loser finish; the guarded call already returned Timeout and
	// the late success stays unobserved.
	close(release)
	require.Eventually(t, finished.Load, time.Second, 5*time.Millisecond)
	require.ErrorIs(t, err, domain.ErrTimeout)
}

func TestGuardHonorsCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Guard(ctx, time.Second, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)
}
