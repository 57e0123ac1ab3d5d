package crawler

import (
	"context"
	"time"

	apperrors "skycrawl/pkg/errors"
)

// callWithTimeout runs fn under a deadline of timeout (none when zero) and
// returns as soon as either fn finishes or the deadline passes. A client that
// ignores its context keeps running in the background, but no longer holds
// the pool slot.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	callCtx := ctx
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(callCtx)
		done <- outcome{val: v, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return o.val, apperrors.Wrap(apperrors.ErrorTypeTimeout, "call timed out", o.err)
		}
		return o.val, o.err
	case <-callCtx.Done():
		var zero T
		if ctx.Err() == nil {
			return zero, apperrors.Wrap(apperrors.ErrorTypeTimeout, "call timed out", callCtx.Err())
		}
		return zero, ctx.Err()
	}
}
