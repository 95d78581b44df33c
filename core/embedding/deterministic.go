package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/fusekb/fusekb/helper"
)

// DeterministicProvider derives a pseudo random unit vector from the text
// itself. The same text always yields the same vector, so similarity search
// and tests behave reproducibly without any model or API. It also backs the
// remote providers as their failure fallback.
type DeterministicProvider struct {
	dimension int
}

// NewDeterministicProvider creates a provider producing vectors of the given
// dimension.
func NewDeterministicProvider(dimension int) (*DeterministicProvider, error) {
	if dimension < 1 {
		return nil, helper.NewError("dimension validation", fmt.Errorf("dimension must be at least 1, got %v", dimension))
	}
	return &DeterministicProvider{dimension: dimension}, nil
}

// Embed returns the deterministic vector for the text, normalized to unit
// length.
func (p *DeterministicProvider) Embed(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, helper.NewError("embed", fmt.Errorf("text is empty"))
	}

	hash := fnv.New64a()
	hash.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(hash.Sum64())))

	vector := make([]float32, p.dimension)
	var norm float64
	for i := range vector {
		value := rng.NormFloat64()
		vector[i] = float32(value)
		norm += value * value
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vector[0] = 1.0
		return vector, nil
	}
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / norm)
	}

	return vector, nil
}

// EmbedBatch embeds every text independently.
func (p *DeterministicProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vector, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vector
	}
	return vectors, nil
}

// Dimension returns the configured vector length.
func (p *DeterministicProvider) Dimension() int {
	return p.dimension
}
