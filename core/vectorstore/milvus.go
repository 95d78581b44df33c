package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/fusekb/fusekb/helper"
	"github.com/fusekb/fusekb/model"
)

const milvusVectorField = "vector"

// MilvusIndex stores vectors in a Milvus collection. The payload lives in a
// JSON field next to the vector, with document_id broken out into its own
// column for fast deletes.
type MilvusIndex struct {
	client     *milvusclient.Client
	collection string
	dimension  int
	logger     *slog.Logger
}

// NewMilvusIndex connects to Milvus and creates the collection with a cosine
// HNSW index if it does not exist yet.
func NewMilvusIndex(ctx context.Context, config Config, logger *slog.Logger) (*MilvusIndex, error) {
	if config.MilvusAddress == "" {
		return nil, helper.NewError("milvus address validation", fmt.Errorf("milvus address is empty"))
	}
	if config.Collection == "" {
		return nil, helper.NewError("collection validation", fmt.Errorf("collection name is empty"))
	}
	if config.Dimension < 1 {
		return nil, helper.NewError("dimension validation", fmt.Errorf("dimension must be at least 1, got %v", config.Dimension))
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	client, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address: config.MilvusAddress,
		DBName:  config.MilvusDatabase,
	})
	if err != nil {
		return nil, helper.NewError("create milvus client", err)
	}

	milvusIndex := &MilvusIndex{
		client:     client,
		collection: config.Collection,
		dimension:  config.Dimension,
		logger:     logger,
	}

	err = milvusIndex.createCollection(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info("Initialized Milvus vector index", "collection", config.Collection, "dimension", config.Dimension)

	return milvusIndex, nil
}

func (i *MilvusIndex) createCollection(ctx context.Context) error {
	exists, err := i.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(i.collection))
	if err != nil {
		return helper.NewError("check collection", err)
	}
	if exists {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: i.collection,
		AutoID:         false,
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "512"},
				PrimaryKey: true,
				AutoID:     false,
			},
			{
				Name:       milvusVectorField,
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": fmt.Sprintf("%d", i.dimension)},
			},
			{
				Name:       "document_id",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "512"},
			},
			{
				Name:     "payload",
				DataType: entity.FieldTypeJSON,
			},
		},
	}

	err = i.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(i.collection, schema).WithIndexOptions(
		milvusclient.NewCreateIndexOption(i.collection, milvusVectorField, index.NewHNSWIndex(entity.COSINE, 64, 128))))
	if err != nil {
		return helper.NewError("create collection", err)
	}

	_, err = i.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(i.collection))
	if err != nil {
		return helper.NewError("load collection", err)
	}

	return nil
}

// Upsert replaces the row by deleting any existing id before inserting.
func (i *MilvusIndex) Upsert(ctx context.Context, id string, embedding []float32, payload model.Metadata) error {
	if len(embedding) != i.dimension {
		return helper.NewError("embedding validation", fmt.Errorf("expected dimension %v, got %v", i.dimension, len(embedding)))
	}

	_, err := i.Delete(ctx, []string{id})
	if err != nil {
		return err
	}

	documentID, _ := payload["document_id"].(string)
	payloadJSON, err := payload.Marshal()
	if err != nil {
		return helper.NewError("marshal payload", err)
	}

	columns := []column.Column{
		column.NewColumnVarChar("id", []string{id}),
		column.NewColumnFloatVector(milvusVectorField, i.dimension, [][]float32{embedding}),
		column.NewColumnVarChar("document_id", []string{documentID}),
		column.NewColumnJSONBytes("payload", [][]byte{payloadJSON}),
	}

	_, err = i.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(i.collection, columns...))
	if err != nil {
		return helper.NewError("insert vector", err)
	}
	return nil
}

// Search runs a cosine ANN search, optionally restricted by payload filters.
func (i *MilvusIndex) Search(ctx context.Context, embedding []float32, topK int, filters map[string]string) ([]*model.SearchHit, error) {
	searchOpt := milvusclient.NewSearchOption(i.collection, topK, []entity.Vector{entity.FloatVector(embedding)}).
		WithANNSField(milvusVectorField).
		WithOutputFields("id", "document_id", "payload").
		WithConsistencyLevel(entity.ClBounded)

	if expr := filterExpression(filters); expr != "" {
		searchOpt = searchOpt.WithFilter(expr)
	}

	results, err := i.client.Search(ctx, searchOpt)
	if err != nil {
		return nil, helper.NewError("search", err)
	}
	if len(results) == 0 {
		return []*model.SearchHit{}, nil
	}

	return i.resultToHits(results[0].Fields, results[0].Scores)
}

func (i *MilvusIndex) resultToHits(columns []column.Column, scores []float32) ([]*model.SearchHit, error) {
	if len(columns) == 0 {
		return []*model.SearchHit{}, nil
	}

	hits := make([]*model.SearchHit, columns[0].Len())
	for idx := range hits {
		hits[idx] = &model.SearchHit{Payload: model.Metadata{}}
		if idx < len(scores) {
			hits[idx].Score = float64(scores[idx])
		}
	}

	for _, col := range columns {
		switch col.Name() {
		case "id":
			for idx := 0; idx < col.Len(); idx++ {
				value, err := col.Get(idx)
				if err != nil {
					return nil, helper.NewError("get id column", err)
				}
				if id, ok := value.(string); ok {
					hits[idx].ID = id
				}
			}
		case "payload":
			for idx := 0; idx < col.Len(); idx++ {
				value, err := col.Get(idx)
				if err != nil || value == nil {
					continue
				}
				payload := model.Metadata{}
				switch typed := value.(type) {
				case []byte:
					if err := payload.Unmarshal(typed); err != nil {
						continue
					}
				case string:
					if err := payload.Unmarshal([]byte(typed)); err != nil {
						continue
					}
				default:
					continue
				}
				for key, entry := range payload {
					hits[idx].Payload[key] = entry
				}
			}
		case "document_id":
			for idx := 0; idx < col.Len(); idx++ {
				value, err := col.Get(idx)
				if err != nil {
					continue
				}
				if documentID, ok := value.(string); ok {
					hits[idx].Payload["document_id"] = documentID
				}
			}
		}
	}

	return hits, nil
}

// SearchText matches content with LIKE expressions on the payload field.
// Milvus matching is case sensitive, the lowercase patterns still hit the
// common ASCII keyword case because ingestion keeps content verbatim.
func (i *MilvusIndex) SearchText(ctx context.Context, patterns []string, topK int, filters map[string]string) ([]*model.SearchHit, error) {
	if len(patterns) == 0 {
		return []*model.SearchHit{}, nil
	}

	terms := make([]string, len(patterns))
	for idx, pattern := range patterns {
		terms[idx] = fmt.Sprintf(`payload["content"] like %q`, pattern)
	}
	expr := "(" + strings.Join(terms, " or ") + ")"
	if filterExpr := filterExpression(filters); filterExpr != "" {
		expr = expr + " and " + filterExpr
	}

	results, err := i.client.Query(ctx, milvusclient.NewQueryOption(i.collection).
		WithFilter(expr).
		WithOutputFields("id", "document_id", "payload").
		WithLimit(topK).
		WithConsistencyLevel(entity.ClBounded))
	if err != nil {
		return nil, helper.NewError("fulltext query", err)
	}

	columns := make([]column.Column, 0, 3)
	for _, name := range []string{"id", "document_id", "payload"} {
		if col := results.GetColumn(name); col != nil {
			columns = append(columns, col)
		}
	}
	return i.resultToHits(columns, nil)
}

// Delete removes vectors by id.
func (i *MilvusIndex) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	quoted := make([]string, len(ids))
	for idx, id := range ids {
		quoted[idx] = fmt.Sprintf("%q", id)
	}
	expr := fmt.Sprintf("id in [%s]", strings.Join(quoted, ", "))

	result, err := i.client.Delete(ctx, milvusclient.NewDeleteOption(i.collection).WithExpr(expr))
	if err != nil {
		return 0, helper.NewError("delete", err)
	}
	return int(result.DeleteCount), nil
}

// DeleteByDocument removes all vectors of a document.
func (i *MilvusIndex) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	expr := fmt.Sprintf("document_id == %q", documentID)

	result, err := i.client.Delete(ctx, milvusclient.NewDeleteOption(i.collection).WithExpr(expr))
	if err != nil {
		return 0, helper.NewError("delete by document", err)
	}
	return int(result.DeleteCount), nil
}

// Count returns the number of stored vectors.
func (i *MilvusIndex) Count(ctx context.Context) (int64, error) {
	results, err := i.client.Query(ctx, milvusclient.NewQueryOption(i.collection).
		WithOutputFields("count(*)").
		WithConsistencyLevel(entity.ClStrong))
	if err != nil {
		return 0, helper.NewError("count query", err)
	}

	countColumn := results.GetColumn("count(*)")
	if countColumn == nil || countColumn.Len() == 0 {
		return 0, nil
	}
	value, err := countColumn.Get(0)
	if err != nil {
		return 0, helper.NewError("get count column", err)
	}
	count, ok := value.(int64)
	if !ok {
		return 0, helper.NewError("count column type", fmt.Errorf("expected int64, got %T", value))
	}
	return count, nil
}

// Close releases the client connection.
func (i *MilvusIndex) Close(ctx context.Context) error {
	return i.client.Close(ctx)
}

func filterExpression(filters map[string]string) string {
	if len(filters) == 0 {
		return ""
	}

	terms := make([]string, 0, len(filters))
	for key, value := range filters {
		if key == "document_id" {
			terms = append(terms, fmt.Sprintf("document_id == %q", value))
			continue
		}
		terms = append(terms, fmt.Sprintf("payload[%q] == %q", key, value))
	}
	// Map iteration order is random, keep the expression stable.
	sort.Strings(terms)
	return strings.Join(terms, " and ")
}
