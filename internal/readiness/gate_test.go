package readiness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateQueuesUntilResolved(t *testing.T) {
	g := New[string](time.Second)
	require.False(t, g.Ready())

	release := make(chan struct{})
	g.Start(context.Background(), func(context.Context) (string, error) {
		<-release
		return "loaded", nil
	})

	result := make(chan string, 1)
	go func() {
		v, err := g.Wait(context.Background())
		if err == nil {
			result <- v
		}
	}()

	close(release)
	select {
	case v := <-result:
		assert.Equal(t, "loaded", v)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not released")
	}
	assert.True(t, g.Ready())
}

func TestGateTimesOutWithNotReady(t *testing.T) {
	g := New[int](20 * time.Millisecond)
	_, err := g.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotReady))
}

func TestGateHonoursCallerContext(t *testing.T) {
	g := New[int](0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Wait(ctx)
	require.Error(t, err)
	assert.Equal(t, errs.KindNotReady, errs.KindOf(err))
}

func TestGateFailureIsSticky(t *testing.T) {
	g := New[int](time.Second)
	g.Fail(errors.New("model download failed"))
	g.Resolve(3)

	_, err := g.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotReady))
	assert.Contains(t, err.Error(), "model download failed")
	assert.False(t, g.Ready())
	assert.Error(t, g.Err())
}

func TestResolvedGate(t *testing.T) {
	g := Resolved(42)
	v, err := g.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
