package embeddings

import (
	"context"
	"fmt"
	"strings"
)

// Adapt modes for WrapToDims.
const (
	AdaptPadOrTruncate = "pad_or_truncate"
	AdaptTruncate      = "truncate"
	AdaptPad           = "pad"
)

// dimAdapter reshapes vectors from base to the dimension of an existing
// database column.
type dimAdapter struct {
	base       Provider
	targetDims int
	mode       string
}

// WrapToDims returns a Provider whose vectors have exactly targetDims
// components. "pad" zero-fills short vectors, "truncate" cuts long ones and
// "pad_or_truncate" (the default) does both. A vector the mode cannot fit is
// an error. base is returned unchanged when it already matches.
func WrapToDims(base Provider, targetDims int, mode string) Provider {
	if base == nil || targetDims <= 0 || base.Dimensions() == targetDims {
		return base
	}
	m := strings.ToLower(strings.TrimSpace(mode))
	switch m {
	case AdaptPad, AdaptTruncate:
	default:
		m = AdaptPadOrTruncate
	}
	return &dimAdapter{base: base, targetDims: targetDims, mode: m}
}

func (a *dimAdapter) Name() string    { return a.base.Name() }
func (a *dimAdapter) Dimensions() int { return a.targetDims }

func (a *dimAdapter) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	vecs, err := a.base.Embed(ctx, inputs)
	if err != nil {
		return nil, err
	}
	for i, v := range vecs {
		fitted, err := fitVector(v, a.targetDims, a.mode)
		if err != nil {
			return nil, err
		}
		vecs[i] = fitted
	}
	return vecs, nil
}

func fitVector(v []float32, target int, mode string) ([]float32, error) {
	switch {
	case len(v) == target:
		return v, nil
	case len(v) > target:
		if mode == AdaptPad {
			return nil, fmt.Errorf("embedding has %d dims, column has %d and adapt mode %q cannot truncate", len(v), target, mode)
		}
		return v[:target], nil
	default:
		if mode == AdaptTruncate {
			return nil, fmt.Errorf("embedding has %d dims, column has %d and adapt mode %q cannot pad", len(v), target, mode)
		}
		out := make([]float32, target)
		copy(out, v)
		return out, nil
	}
}
