package vectorstore

import (
	"context"

	"github.com/fusekb/fusekb/database"
	"github.com/fusekb/fusekb/helper"
	"github.com/fusekb/fusekb/model"
)

// PostgresIndex stores vectors in a pgvector table.
type PostgresIndex struct {
	vectors database.VectorsDBHandlerFunctions
}

// NewPostgresIndex creates the index on top of an open database connection.
func NewPostgresIndex(db *helper.Database, dimension int) (*PostgresIndex, error) {
	vectors, err := database.NewVectorsDBHandler(db, dimension, false)
	if err != nil {
		return nil, helper.NewError("create vectors handler", err)
	}
	return &PostgresIndex{vectors: vectors}, nil
}

func (i *PostgresIndex) Upsert(ctx context.Context, id string, embedding []float32, payload model.Metadata) error {
	return i.vectors.UpsertVector(ctx, id, embedding, payload)
}

func (i *PostgresIndex) Search(ctx context.Context, embedding []float32, topK int, filters map[string]string) ([]*model.SearchHit, error) {
	return i.vectors.SearchVectors(ctx, embedding, topK, filters)
}

func (i *PostgresIndex) SearchText(ctx context.Context, patterns []string, topK int, filters map[string]string) ([]*model.SearchHit, error) {
	return i.vectors.SearchFulltext(ctx, patterns, topK, filters)
}

func (i *PostgresIndex) Delete(ctx context.Context, ids []string) (int, error) {
	return i.vectors.DeleteVectors(ctx, ids)
}

func (i *PostgresIndex) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	return i.vectors.DeleteVectorsByDocument(ctx, documentID)
}

func (i *PostgresIndex) Count(ctx context.Context) (int64, error) {
	return i.vectors.CountVectors(ctx)
}
