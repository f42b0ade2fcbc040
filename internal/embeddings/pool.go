package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/metrics"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/util"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// PoolOptions configure a Pool. Zero values pick the defaults.
type PoolOptions struct {
	Workers    int
	BatchSize  int
	MaxRetries int
	Backoff    time.Duration
}

// Pool splits large embedding calls into batches and runs them concurrently
// against the wrapped provider. At most Workers requests are in flight across
// all callers. Output vectors are aligned with the inputs by position.
type Pool struct {
	base Provider
	sem  *semaphore.Weighted
	opts PoolOptions
}

func NewPool(base Provider, opts PoolOptions) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 250 * time.Millisecond
	}
	return &Pool{base: base, sem: semaphore.NewWeighted(int64(opts.Workers)), opts: opts}
}

func (p *Pool) Name() string    { return p.base.Name() }
func (p *Pool) Dimensions() int { return p.base.Dimensions() }

func (p *Pool) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	out := make([][]float32, len(inputs))
	eg, ectx := errgroup.WithContext(ctx)
	for start := 0; start < len(inputs); start += p.opts.BatchSize {
		end := min(start+p.opts.BatchSize, len(inputs))
		eg.Go(func() error {
			if err := p.sem.Acquire(ectx, 1); err != nil {
				return err
			}
			defer p.sem.Release(1)

			began := time.Now()
			vecs, err := util.RetryWithContext(ectx, p.opts.MaxRetries, p.opts.Backoff, func(c context.Context) ([][]float32, error) {
				return p.base.Embed(c, inputs[start:end])
			})
			metrics.Default().ObserveEmbedBatch(p.base.Name(), end-start, err == nil, time.Since(began).Seconds())
			if err != nil {
				return fmt.Errorf("failed to embed inputs %d..%d: %w", start, end-1, err)
			}
			if len(vecs) != end-start {
				return fmt.Errorf("embedding result size mismatch: got %d want %d", len(vecs), end-start)
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, p Provider, text string) ([]float32, error) {
	vecs, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("unexpected embedding result size: got %d want 1", len(vecs))
	}
	return vecs[0], nil
}
