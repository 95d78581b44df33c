package retrieval

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fusekb/fusekb/core/embedding"
	"github.com/fusekb/fusekb/core/graphstore"
	"github.com/fusekb/fusekb/model"
)

// fakeIndex is an in memory vectorstore.Index for strategy tests.
type fakeIndex struct {
	hits    []*model.SearchHit
	failing bool
}

func (f *fakeIndex) Upsert(_ context.Context, id string, _ []float32, payload model.Metadata) error {
	f.hits = append(f.hits, &model.SearchHit{ID: id, Score: 0.9, Payload: payload})
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, topK int, _ map[string]string) ([]*model.SearchHit, error) {
	if f.failing {
		return nil, fmt.Errorf("index down")
	}
	if len(f.hits) > topK {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

func (f *fakeIndex) SearchText(_ context.Context, patterns []string, topK int, _ map[string]string) ([]*model.SearchHit, error) {
	if f.failing {
		return nil, fmt.Errorf("index down")
	}
	var matched []*model.SearchHit
	for _, hit := range f.hits {
		content, _ := hit.Payload["content"].(string)
		lowered := strings.ToLower(content)
		for _, pattern := range patterns {
			token := strings.Trim(pattern, "%")
			if strings.Contains(lowered, token) {
				matched = append(matched, hit)
				break
			}
		}
		if len(matched) >= topK {
			break
		}
	}
	return matched, nil
}

func (f *fakeIndex) Delete(_ context.Context, _ []string) (int, error)         { return 0, nil }
func (f *fakeIndex) DeleteByDocument(_ context.Context, _ string) (int, error) { return 0, nil }
func (f *fakeIndex) Count(_ context.Context) (int64, error)                    { return int64(len(f.hits)), nil }

// fakeGraph is an in memory graphstore.Store for strategy tests.
type fakeGraph struct {
	nodes   map[string]*model.Entity
	related map[string][]*model.RelatedEntity
}

func (f *fakeGraph) MergeNode(_ context.Context, entity *model.Entity) (bool, error) {
	f.nodes[entity.ID] = entity
	return true, nil
}
func (f *fakeGraph) MergeEdge(_ context.Context, _ *model.Relation) (bool, error) { return true, nil }
func (f *fakeGraph) GetNode(_ context.Context, id string) (*model.Entity, error) {
	entity, ok := f.nodes[id]
	if !ok {
		return nil, graphstore.ErrNodeNotFound
	}
	return entity, nil
}
func (f *fakeGraph) QueryRelations(_ context.Context, _, _, _ *string, _ int) ([]*model.Relation, error) {
	return nil, nil
}
func (f *fakeGraph) FindRelated(_ context.Context, entityID string, _ int) ([]*model.RelatedEntity, error) {
	return f.related[entityID], nil
}
func (f *fakeGraph) DeleteByDocument(_ context.Context, _ string) (int, error) { return 0, nil }
func (f *fakeGraph) CountNodes(_ context.Context) (int64, error)               { return int64(len(f.nodes)), nil }
func (f *fakeGraph) CountEdges(_ context.Context) (int64, error)               { return 0, nil }

func TestVectorRetriever(t *testing.T) {
	ctx := context.Background()
	embedder, err := embedding.NewDeterministicProvider(8)
	require.NoError(t, err)

	index := &fakeIndex{hits: []*model.SearchHit{
		{ID: "d1_chunk_0", Score: 0.95, Payload: model.Metadata{"content": "RAG结合检索和生成", "document_id": "d1"}},
		{ID: "d1_chunk_1", Score: 0.80, Payload: model.Metadata{"content": "知识图谱建模关系", "document_id": "d1"}},
	}}
	retriever := NewVectorRetriever(embedder, index, nil)

	t.Run("Maps hits to results", func(t *testing.T) {
		results, err := retriever.Retrieve(ctx, "什么是RAG技术？", 10, nil)

		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "RAG结合检索和生成", results[0].Content)
		assert.Equal(t, 0.95, results[0].Score)
		assert.Equal(t, model.SourceVector, results[0].Source)
		assert.Equal(t, "d1", results[0].DocumentID)
		assert.Equal(t, "d1_chunk_0", results[0].ChunkID)
	})

	t.Run("Respects top k", func(t *testing.T) {
		results, err := retriever.Retrieve(ctx, "query", 1, nil)

		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("Index failure surfaces", func(t *testing.T) {
		failing := NewVectorRetriever(embedder, &fakeIndex{failing: true}, nil)

		_, err := failing.Retrieve(ctx, "query", 10, nil)
		assert.Error(t, err)
	})
}

func TestGraphRetriever(t *testing.T) {
	ctx := context.Background()
	store := &fakeGraph{
		nodes: map[string]*model.Entity{
			"rag_tech":   {ID: "rag_tech", Type: "Concept", Name: "RAG技术"},
			"chunk_d1_0": {ID: "chunk_d1_0", Type: "DocumentChunk", Name: "Chunk 0"},
		},
		related: map[string][]*model.RelatedEntity{
			"rag_tech": {
				{EntityID: "chunk_d1_0", RelationType: "RELATES_TO", Weight: 0.6, Depth: 1},
				{EntityID: "unknown_node", RelationType: "RELATES_TO", Weight: 0.5, Depth: 2},
			},
		},
	}
	retriever := NewGraphRetriever(store, nil)

	t.Run("Builds connection sentences", func(t *testing.T) {
		results, err := retriever.Retrieve(ctx, "什么是RAG技术？", 10, nil)

		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "RAG技术 and Chunk 0 are connected by RELATES_TO", results[0].Content)
		assert.Equal(t, 0.6, results[0].Score)
		assert.Equal(t, model.SourceGraph, results[0].Source)
		assert.Equal(t, "rag_tech", results[0].Metadata["entity_id"])
	})

	t.Run("Missing node name falls back to id", func(t *testing.T) {
		results, err := retriever.Retrieve(ctx, "什么是RAG技术？", 10, nil)

		require.NoError(t, err)
		assert.Contains(t, results[1].Content, "unknown_node")
	})

	t.Run("Respects top k", func(t *testing.T) {
		results, err := retriever.Retrieve(ctx, "什么是RAG技术？", 1, nil)

		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("Unmatched query uses default entities", func(t *testing.T) {
		results, err := retriever.Retrieve(ctx, "今天天气", 10, nil)

		require.NoError(t, err)
		assert.Empty(t, results, "Expected no results when default entities have no edges")
	})
}

func TestFullTextRetriever(t *testing.T) {
	ctx := context.Background()
	index := &fakeIndex{hits: []*model.SearchHit{
		{ID: "c1", Payload: model.Metadata{"content": "rag是检索增强生成", "document_id": "d1"}},
		{ID: "c2", Payload: model.Metadata{"content": "向量检索的原理", "document_id": "d1"}},
		{ID: "c3", Payload: model.Metadata{"content": "完全无关的内容", "document_id": "d2"}},
	}}
	retriever := NewFullTextRetriever(index, nil)

	t.Run("Rank based scores", func(t *testing.T) {
		results, err := retriever.Retrieve(ctx, "什么是RAG技术？", 10, nil)

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "rag是检索增强生成", results[0].Content)
		assert.InDelta(t, 0.8, results[0].Score, 1e-9)
		assert.Equal(t, model.SourceFulltext, results[0].Source)
	})

	t.Run("Scores decrease with rank", func(t *testing.T) {
		results, err := retriever.Retrieve(ctx, "检索", 10, nil)

		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.InDelta(t, 0.8, results[0].Score, 1e-9)
		assert.InDelta(t, 0.7, results[1].Score, 1e-9)
	})
}

func TestFulltextScoreFloor(t *testing.T) {
	assert.InDelta(t, 0.8, fulltextScore(0), 1e-9)
	assert.InDelta(t, 0.1, fulltextScore(7), 1e-9)
	assert.InDelta(t, 0.1, fulltextScore(20), 1e-9)
}

func TestQueryPatterns(t *testing.T) {
	t.Run("Tokens and matched keywords", func(t *testing.T) {
		patterns := queryPatterns("什么是RAG技术？")

		assert.Contains(t, patterns, "%什么是rag技术？%")
		assert.Contains(t, patterns, "%rag%")
	})

	t.Run("Deduplicates", func(t *testing.T) {
		patterns := queryPatterns("rag rag")

		assert.Equal(t, []string{"%rag%"}, patterns)
	})
}
