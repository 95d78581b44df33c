package model

import (
	"errors"
	"fmt"
)

// Mode selects which retrieval strategies run for a query
type Mode string

const (
	ModeVector   Mode = "vector"
	ModeGraph    Mode = "graph"
	ModeFulltext Mode = "fulltext"
	ModeHybrid   Mode = "hybrid"
)

// Validation errors for caller misuse. These are the only errors the
// orchestrator surfaces; backend failures degrade to empty contributions.
var (
	ErrEmptyQuery      = errors.New("query must not be empty")
	ErrInvalidTopK     = errors.New("top_k must be at least 1")
	ErrUnsupportedMode = errors.New("unsupported retrieval mode")
)

// RetrieveRequest carries the parameters of one retrieval call
type RetrieveRequest struct {
	Query   string            `json:"query"`
	Mode    Mode              `json:"mode"`
	TopK    int               `json:"top_k"`
	Filters map[string]string `json:"filters,omitempty"` // exact-match payload constraints (vector mode)
	Rerank  bool              `json:"rerank"`
}

// NewRetrieveRequest creates a request with the default mode, top k and
// reranking enabled
func NewRetrieveRequest(query string) *RetrieveRequest {
	return &RetrieveRequest{
		Query:  query,
		Mode:   ModeHybrid,
		TopK:   10,
		Rerank: true,
	}
}

// Validate checks the request for caller misuse
func (r *RetrieveRequest) Validate() error {
	if r.Query == "" {
		return ErrEmptyQuery
	}
	if r.TopK < 1 {
		return ErrInvalidTopK
	}
	switch r.Mode {
	case ModeVector, ModeGraph, ModeFulltext, ModeHybrid:
		return nil
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedMode, r.Mode)
	}
}
