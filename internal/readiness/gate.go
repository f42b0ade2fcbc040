// Package readiness holds resources that finish loading after the server has
// started accepting calls.
package readiness

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
)

// Gate publishes a value once a background loader finishes. Callers that need
// the value block in Wait until it is published, their context ends, or the
// gate timeout elapses.
type Gate[T any] struct {
	done    chan struct{}
	once    sync.Once
	timeout time.Duration

	val T
	err error
}

// New returns an unresolved gate. A non-positive timeout means Wait is bounded
// only by the caller's context.
func New[T any](timeout time.Duration) *Gate[T] {
	return &Gate[T]{done: make(chan struct{}), timeout: timeout}
}

// Resolved returns a gate that is already open.
func Resolved[T any](v T) *Gate[T] {
	g := New[T](0)
	g.Resolve(v)
	return g
}

// Start runs loader in the background and resolves the gate with its result.
func (g *Gate[T]) Start(ctx context.Context, loader func(context.Context) (T, error)) {
	go func() {
		v, err := loader(ctx)
		if err != nil {
			g.Fail(err)
			return
		}
		g.Resolve(v)
	}()
}

// Resolve opens the gate with v. Only the first Resolve or Fail takes effect.
func (g *Gate[T]) Resolve(v T) {
	g.once.Do(func() {
		g.val = v
		close(g.done)
	})
}

// Fail opens the gate with a permanent error.
func (g *Gate[T]) Fail(err error) {
	g.once.Do(func() {
		g.err = err
		close(g.done)
	})
}

// Ready reports whether the gate has been resolved successfully.
func (g *Gate[T]) Ready() bool {
	select {
	case <-g.done:
		return g.err == nil
	default:
		return false
	}
}

// Err returns the loader error once the gate has failed, nil otherwise.
func (g *Gate[T]) Err() error {
	select {
	case <-g.done:
		return g.err
	default:
		return nil
	}
}

// Wait blocks until the value is available. It fails with a NOT_READY error
// when the loader failed, the caller's context ended or the timeout elapsed.
func (g *Gate[T]) Wait(ctx context.Context) (T, error) {
	var zero T
	select {
	case <-g.done:
		return g.result()
	default:
	}

	var timeout <-chan time.Time
	if g.timeout > 0 {
		t := time.NewTimer(g.timeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-g.done:
		return g.result()
	case <-ctx.Done():
		return zero, errs.Wrap(errs.KindNotReady, "readiness", ctx.Err(), "resources still loading")
	case <-timeout:
		return zero, errs.E(errs.KindNotReady, "readiness", "resources still loading after %s", g.timeout)
	}
}

func (g *Gate[T]) result() (T, error) {
	if g.err != nil {
		var zero T
		if errors.Is(g.err, errs.ErrNotReady) {
			return zero, g.err
		}
		return zero, errs.Wrap(errs.KindNotReady, "readiness", g.err, "resources failed to load")
	}
	return g.val, nil
}
