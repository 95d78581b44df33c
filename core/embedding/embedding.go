// Package embedding turns text into dense vectors for the vector index and
// the semantic rerank factor.
package embedding

import "context"

// Provider generates embedding vectors for text.
type Provider interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one embedding per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension returns the length of the vectors this provider produces.
	Dimension() int
}
