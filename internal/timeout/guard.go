// Package timeout bounds network-bound operations with a deadline. The guard
// races the operation against a timer; whichever settles first wins and the
// loser's result is never observed by the caller.
package timeout

import (
	"context"
	"time"

	"server/internal/domain"
)

// Defaults used by the auth components.
const (
	AuthDeadline    = 15 * time.Second
	RefreshDeadline = 10 * time.Second
)

type outcome[T any] struct {
	value T
	err   error
}

// Guard runs op with a deadline of d. If the deadline fires first it returns
// domain.ErrTimeout and the operation's eventual result is discarded: op
// receives a context cancelled at the deadline, and its result lands in a
// buffered channel nobody reads, so no continuation of the loser runs in the
// caller. Operations must not commit partial state before returning.
func Guard[T any](ctx context.Context, d time.Duration, op func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		value, err := op(ctx)
		done <- outcome[T]{value: value, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		var zero T
		if ctx.Err() == context.DeadlineExceeded {
			return zero, domain.ErrTimeout
		}
		return zero, ctx.Err()
	}
}
