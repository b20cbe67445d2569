package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Deterministic returns an Embedder that maps text to a stable pseudo-vector
// without any network call. The same text always yields the same unit-norm
// vector, so similarity rankings are reproducible. Used in tests and when no
// embedding server is configured.
func Deterministic(dim int) Embedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &deterministic{dim: dim}
}

type deterministic struct {
	dim int
}

func (d *deterministic) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, d.dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(d.dim))
		sign := float32(1)
		if sum&(1<<63) != 0 {
			sign = -1
		}
		vec[idx] += sign
	}

	// Unit-normalise so cosine and inner product agree.
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

func (d *deterministic) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := d.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (d *deterministic) Dimension() int { return d.dim }
func (d *deterministic) Model() string  { return "deterministic-local" }
