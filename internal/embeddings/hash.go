package embeddings

import (
	"context"
	"math"
	"strings"
	"unicode"
)

// HashProvider embeds text by hashing its lower-cased words into a fixed
// number of buckets and normalizing the counts. Texts sharing words get a
// positive cosine similarity. It needs no model and is deterministic.
type HashProvider struct {
	dims int
}

func NewHashProvider(dims int) *HashProvider {
	if dims <= 0 {
		dims = 384
	}
	return &HashProvider{dims: dims}
}

func (h *HashProvider) Name() string    { return "hash" }
func (h *HashProvider) Dimensions() int { return h.dims }

func (h *HashProvider) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		out[i] = h.vector(in)
	}
	return out, nil
}

func (h *HashProvider) vector(text string) []float32 {
	v := make([]float32, h.dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		v[hashString(w)%uint64(h.dims)]++
	}
	return normalize(v)
}

// hashString is djb2.
func hashString(s string) uint64 {
	var hash uint64 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint64(c)
	}
	return hash
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	n := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= n
	}
	return v
}
