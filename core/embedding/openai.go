package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/fusekb/fusekb/helper"
)

// OpenAIProvider embeds text through an OpenAI compatible embeddings API.
// When a request fails it falls back to the deterministic provider so
// ingestion and retrieval keep working without the remote service.
type OpenAIProvider struct {
	client    openai.Client
	model     string
	dimension int
	fallback  *DeterministicProvider
	logger    *slog.Logger
}

// NewOpenAIProvider creates a provider for the given model and dimension.
// An empty baseURL uses the default OpenAI endpoint.
func NewOpenAIProvider(apiKey string, baseURL string, model string, dimension int, logger *slog.Logger) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, helper.NewError("api key validation", fmt.Errorf("api key is empty"))
	}
	if model == "" {
		return nil, helper.NewError("model validation", fmt.Errorf("model is empty"))
	}
	fallback, err := NewDeterministicProvider(dimension)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}

	return &OpenAIProvider{
		client:    openai.NewClient(clientOpts...),
		model:     model,
		dimension: dimension,
		fallback:  fallback,
		logger:    logger,
	}, nil
}

// Embed requests an embedding for the text, falling back to the
// deterministic vector on any API error.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, helper.NewError("embed", fmt.Errorf("text is empty"))
	}

	response, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model:      p.model,
		Dimensions: openai.Int(int64(p.dimension)),
	})
	if err != nil || len(response.Data) == 0 {
		p.logger.Warn("Embedding request failed, using deterministic fallback", "model", p.model, "error", err)
		return p.fallback.Embed(ctx, text)
	}

	embedding := response.Data[0].Embedding
	vector := make([]float32, len(embedding))
	for i, value := range embedding {
		vector[i] = float32(value)
	}
	return vector, nil
}

// maxBatchSize bounds the number of inputs per embeddings request.
const maxBatchSize = 64

// EmbedBatch embeds the texts in chunks of maxBatchSize, preserving input
// order. A failed chunk degrades to the deterministic fallback instead of
// failing the batch.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for _, text := range texts {
		if text == "" {
			return nil, helper.NewError("embed batch", fmt.Errorf("text is empty"))
		}
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := min(start+maxBatchSize, len(texts))

		response, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts[start:end]},
			Model:      p.model,
			Dimensions: openai.Int(int64(p.dimension)),
		})
		if err != nil || len(response.Data) != end-start {
			p.logger.Warn("Batch embedding request failed, using deterministic fallback", "model", p.model, "error", err)
			fallback, err := p.fallback.EmbedBatch(ctx, texts[start:end])
			if err != nil {
				return nil, err
			}
			vectors = append(vectors, fallback...)
			continue
		}

		for _, data := range response.Data {
			vector := make([]float32, len(data.Embedding))
			for i, value := range data.Embedding {
				vector[i] = float32(value)
			}
			vectors = append(vectors, vector)
		}
	}

	return vectors, nil
}

// Dimension returns the configured vector length.
func (p *OpenAIProvider) Dimension() int {
	return p.dimension
}
