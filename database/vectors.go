package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/fusekb/fusekb/helper"
	"github.com/fusekb/fusekb/model"
	loadSql "github.com/fusekb/fusekb/sql"
)

// VectorsDBHandlerFunctions defines the interface for vector index database operations.
type VectorsDBHandlerFunctions interface {
	UpsertVector(ctx context.Context, id string, embedding []float32, payload model.Metadata) error
	SearchVectors(ctx context.Context, embedding []float32, topK int, filters map[string]string) ([]*model.SearchHit, error)
	SearchFulltext(ctx context.Context, patterns []string, topK int, filters map[string]string) ([]*model.SearchHit, error)
	DeleteVectors(ctx context.Context, ids []string) (int, error)
	DeleteVectorsByDocument(ctx context.Context, documentID string) (int, error)
	CountVectors(ctx context.Context) (int64, error)
}

// VectorsDBHandler handles vector index database operations
type VectorsDBHandler struct {
	db *helper.Database
}

// NewVectorsDBHandler creates a new vectors database handler.
// It initializes the database connection and loads vector-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewVectorsDBHandler(db *helper.Database, embeddingDim int, force bool) (*VectorsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if embeddingDim < 1 {
		return nil, helper.NewError("embedding dimension validation", fmt.Errorf("embedding dimension must be at least 1, got %v", embeddingDim))
	}

	vectorsDbHandler := &VectorsDBHandler{
		db: db,
	}

	err := loadSql.LoadVectorsSql(vectorsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load vectors sql", err)
	}

	err = vectorsDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized VectorsDBHandler")

	return vectorsDbHandler, nil
}

// CreateTable creates the 'vectors' table with the given embedding dimension.
// If the table already exists, it does not create it again.
func (h *VectorsDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_vectors($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing vectors table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table vectors")

	return nil
}

// UpsertVector inserts or replaces a vector row by id
func (h *VectorsDBHandler) UpsertVector(ctx context.Context, id string, embedding []float32, payload model.Metadata) error {
	_, err := h.db.Instance.ExecContext(
		ctx,
		`SELECT upsert_vector($1, $2, $3)`,
		id,
		pgvector.NewVector(embedding),
		payload,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// SearchVectors performs a cosine nearest-neighbor search restricted by
// exact-match payload filters
func (h *VectorsDBHandler) SearchVectors(ctx context.Context, embedding []float32, topK int, filters map[string]string) ([]*model.SearchHit, error) {
	filterJSON, err := filtersToMetadata(filters).Marshal()
	if err != nil {
		return nil, helper.NewError("marshal filters", err)
	}
	var filterArg interface{}
	if len(filters) > 0 {
		filterArg = filterJSON
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM search_vectors($1, $2, $3)`,
		pgvector.NewVector(embedding),
		topK,
		filterArg,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var hits []*model.SearchHit
	for rows.Next() {
		hit := &model.SearchHit{}
		err := rows.Scan(
			&hit.ID,
			&hit.Score,
			&hit.Payload,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		hits = append(hits, hit)
	}

	return hits, rows.Err()
}

// SearchFulltext returns rows whose lowercased content matches any of the
// given LIKE patterns, in stable insertion order
func (h *VectorsDBHandler) SearchFulltext(ctx context.Context, patterns []string, topK int, filters map[string]string) ([]*model.SearchHit, error) {
	filterJSON, err := filtersToMetadata(filters).Marshal()
	if err != nil {
		return nil, helper.NewError("marshal filters", err)
	}
	var filterArg interface{}
	if len(filters) > 0 {
		filterArg = filterJSON
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM search_fulltext($1, $2, $3)`,
		pq.Array(patterns),
		topK,
		filterArg,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var hits []*model.SearchHit
	for rows.Next() {
		hit := &model.SearchHit{}
		err := rows.Scan(
			&hit.ID,
			&hit.Payload,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		hits = append(hits, hit)
	}

	return hits, rows.Err()
}

// DeleteVectors deletes vectors by id and returns the number of rows removed
func (h *VectorsDBHandler) DeleteVectors(ctx context.Context, ids []string) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT delete_vectors($1)`,
		pq.Array(ids),
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return deleted, nil
}

// DeleteVectorsByDocument deletes all vectors whose payload belongs to a document
func (h *VectorsDBHandler) DeleteVectorsByDocument(ctx context.Context, documentID string) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT delete_vectors_by_document($1)`,
		documentID,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return deleted, nil
}

// CountVectors returns the number of stored vectors
func (h *VectorsDBHandler) CountVectors(ctx context.Context) (int64, error) {
	var count int64
	err := h.db.Instance.QueryRowContext(ctx, `SELECT count_vectors()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

func filtersToMetadata(filters map[string]string) model.Metadata {
	m := model.Metadata{}
	for k, v := range filters {
		m[k] = v
	}
	return m
}
