// Package lookup collapses concurrent identical reads.
package lookup

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

const defaultTimeout = 5 * time.Second

// Group runs one lookup per key at a time and shares the result with every
// caller that asked for the same key meanwhile.
type Group struct {
	sfg     singleflight.Group
	Timeout time.Duration
}

// Do runs fn once for all concurrent callers of key. The shared call does not
// inherit the cancellation of the caller that started it and is bounded by
// g.Timeout instead. Each caller returns as soon as its own ctx is done.
func Do[T any](ctx context.Context, g *Group, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ch := g.sfg.DoChan(key, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return fn(shared)
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
