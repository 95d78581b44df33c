// Package vectorstore abstracts the vector index behind a small interface
// with a Postgres (pgvector) and a Milvus implementation.
package vectorstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fusekb/fusekb/helper"
	"github.com/fusekb/fusekb/model"
)

// Backend selects the vector index implementation.
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendMilvus   Backend = "milvus"
)

// Index is the vector index the retrieval layer works against.
type Index interface {
	// Upsert inserts or replaces a vector row by id.
	Upsert(ctx context.Context, id string, embedding []float32, payload model.Metadata) error
	// Search returns the topK nearest neighbors by cosine similarity,
	// restricted to rows whose payload matches all filters exactly.
	Search(ctx context.Context, embedding []float32, topK int, filters map[string]string) ([]*model.SearchHit, error)
	// SearchText returns rows whose content matches any of the given
	// lowercase LIKE patterns, in stable order. Scores are left to the
	// caller.
	SearchText(ctx context.Context, patterns []string, topK int, filters map[string]string) ([]*model.SearchHit, error)
	// Delete removes vectors by id and returns the number removed.
	Delete(ctx context.Context, ids []string) (int, error)
	// DeleteByDocument removes all vectors belonging to a document.
	DeleteByDocument(ctx context.Context, documentID string) (int, error)
	// Count returns the number of stored vectors.
	Count(ctx context.Context) (int64, error)
}

// Config carries the backend tag plus the settings of whichever backend is
// selected.
type Config struct {
	Backend Backend

	// Postgres backend.
	Database *helper.Database

	// Milvus backend.
	MilvusAddress  string
	MilvusDatabase string
	Collection     string

	Dimension int
}

// New creates the vector index selected by the config's backend tag.
func New(ctx context.Context, config Config, logger *slog.Logger) (Index, error) {
	switch config.Backend {
	case BackendPostgres:
		return NewPostgresIndex(config.Database, config.Dimension)
	case BackendMilvus:
		return NewMilvusIndex(ctx, config, logger)
	default:
		return nil, helper.NewError("backend validation", fmt.Errorf("unknown vector backend %v", config.Backend))
	}
}
