package model

// Source identifies the retrieval strategy that produced a result
type Source string

const (
	SourceVector   Source = "vector"
	SourceGraph    Source = "graph"
	SourceFulltext Source = "fulltext"
)

// SearchHit is one nearest-neighbor hit from a vector index
type SearchHit struct {
	ID      string   `json:"id"`
	Score   float64  `json:"score"`
	Payload Metadata `json:"payload,omitempty"`
}

// RetrievalResult is the common output of every retrieval strategy.
// Score is source-specific until reranked; the reranker stores the original
// score and its factor values in Metadata.
type RetrievalResult struct {
	Content    string   `json:"content"`
	Score      float64  `json:"score"`
	Source     Source   `json:"source"`
	Metadata   Metadata `json:"metadata,omitempty"`
	DocumentID string   `json:"document_id,omitempty"`
	ChunkID    string   `json:"chunk_id,omitempty"`
}
