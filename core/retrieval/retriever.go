// Package retrieval implements the retrieval strategies, result fusion,
// reranking, caching and the orchestrator tying them together.
package retrieval

import (
	"context"

	"github.com/fusekb/fusekb/model"
)

// Retriever is a single retrieval strategy. Implementations return their
// results ranked best first.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, filters map[string]string) ([]*model.RetrievalResult, error)
	Source() model.Source
}

func hitToResult(hit *model.SearchHit, source model.Source) *model.RetrievalResult {
	metadata := model.Metadata{}
	for key, value := range hit.Payload {
		metadata[key] = value
	}

	content, _ := hit.Payload["content"].(string)
	documentID, _ := hit.Payload["document_id"].(string)

	return &model.RetrievalResult{
		Content:    content,
		Score:      hit.Score,
		Source:     source,
		Metadata:   metadata,
		DocumentID: documentID,
		ChunkID:    hit.ID,
	}
}
