package retrieval

import (
	"context"
	"log/slog"

	"github.com/fusekb/fusekb/core/embedding"
	"github.com/fusekb/fusekb/core/vectorstore"
	"github.com/fusekb/fusekb/helper"
	"github.com/fusekb/fusekb/model"
)

// VectorRetriever embeds the query and searches the vector index by cosine
// similarity.
type VectorRetriever struct {
	embedder embedding.Provider
	index    vectorstore.Index
	logger   *slog.Logger
}

// NewVectorRetriever creates the strategy.
func NewVectorRetriever(embedder embedding.Provider, index vectorstore.Index, logger *slog.Logger) *VectorRetriever {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &VectorRetriever{embedder: embedder, index: index, logger: logger}
}

func (r *VectorRetriever) Retrieve(ctx context.Context, query string, topK int, filters map[string]string) ([]*model.RetrievalResult, error) {
	queryVector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, helper.NewError("embed query", err)
	}

	hits, err := r.index.Search(ctx, queryVector, topK, filters)
	if err != nil {
		return nil, helper.NewError("vector search", err)
	}

	results := make([]*model.RetrievalResult, len(hits))
	for i, hit := range hits {
		results[i] = hitToResult(hit, model.SourceVector)
	}
	return results, nil
}

func (r *VectorRetriever) Source() model.Source {
	return model.SourceVector
}
