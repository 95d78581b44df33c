package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fusekb/fusekb/core/embedding"
	"github.com/fusekb/fusekb/model"
)

func testReranker(t *testing.T) *Reranker {
	embedder, err := embedding.NewDeterministicProvider(16)
	require.NoError(t, err)
	return NewReranker(embedder, nil)
}

func TestCosineSimilarity(t *testing.T) {
	t.Run("Identical vectors", func(t *testing.T) {
		v := []float32{0.5, 0.5, 0.1}
		assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
	})

	t.Run("Orthogonal vectors", func(t *testing.T) {
		assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	})

	t.Run("Opposite vectors", func(t *testing.T) {
		assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	})

	t.Run("Symmetric", func(t *testing.T) {
		a := []float32{0.3, 0.7, 0.2}
		b := []float32{0.9, 0.1, 0.4}
		assert.Equal(t, CosineSimilarity(a, b), CosineSimilarity(b, a))
	})

	t.Run("Zero vector", func(t *testing.T) {
		assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	})

	t.Run("Mismatched lengths", func(t *testing.T) {
		assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 0}))
	})
}

func TestRerankFactors(t *testing.T) {
	ctx := context.Background()
	reranker := testReranker(t)

	t.Run("Source weights ordered vector graph fulltext", func(t *testing.T) {
		content := "short"
		results := []*model.RetrievalResult{
			result(content, 1.0, model.SourceFulltext),
			result(content, 1.0, model.SourceGraph),
			result(content, 1.0, model.SourceVector),
		}

		reranked := reranker.Rerank(ctx, "query", results)

		assert.Equal(t, model.SourceVector, reranked[0].Source)
		assert.Equal(t, model.SourceGraph, reranked[1].Source)
		assert.Equal(t, model.SourceFulltext, reranked[2].Source)
	})

	t.Run("Length bonus brackets", func(t *testing.T) {
		short := result("tiny", 1.0, model.SourceVector)
		medium := result(strings.Repeat("a", 100), 1.0, model.SourceVector)
		long := result(strings.Repeat("a", 600), 1.0, model.SourceVector)

		reranker.Rerank(ctx, "zzz", []*model.RetrievalResult{short, medium, long})

		assert.Equal(t, 0.9, factor(t, short, "length_bonus"))
		assert.Equal(t, 1.1, factor(t, medium, "length_bonus"))
		assert.Equal(t, 1.05, factor(t, long, "length_bonus"))
	})

	t.Run("Keyword bonus counts overlapping tokens", func(t *testing.T) {
		hit := result("retrieval with graph context", 1.0, model.SourceVector)
		miss := result("nothing in common", 1.0, model.SourceVector)

		reranker.Rerank(ctx, "retrieval graph", []*model.RetrievalResult{hit, miss})

		assert.InDelta(t, 1.2, factor(t, hit, "keyword_bonus"), 1e-9)
		assert.InDelta(t, 1.0, factor(t, miss, "keyword_bonus"), 1e-9)
	})

	t.Run("Keyword bonus counts duplicate query tokens once", func(t *testing.T) {
		hit := result("rag is retrieval augmented generation", 1.0, model.SourceVector)

		reranker.Rerank(ctx, "rag rag", []*model.RetrievalResult{hit})

		assert.InDelta(t, 1.1, factor(t, hit, "keyword_bonus"), 1e-9)
	})

	t.Run("Keyword bonus requires whole tokens", func(t *testing.T) {
		partial := result("storage systems", 1.0, model.SourceVector)

		reranker.Rerank(ctx, "rag", []*model.RetrievalResult{partial})

		assert.InDelta(t, 1.0, factor(t, partial, "keyword_bonus"), 1e-9)
	})

	t.Run("Semantic bonus skipped for short content", func(t *testing.T) {
		short := result("short content", 1.0, model.SourceVector)

		reranker.Rerank(ctx, "query", []*model.RetrievalResult{short})

		assert.Equal(t, 1.0, factor(t, short, "semantic_bonus"))
	})

	t.Run("Semantic bonus bounded for long content", func(t *testing.T) {
		long := result(strings.Repeat("很长的内容", 10), 1.0, model.SourceVector)

		reranker.Rerank(ctx, "query", []*model.RetrievalResult{long})

		bonus := factor(t, long, "semantic_bonus")
		assert.GreaterOrEqual(t, bonus, 0.5)
		assert.LessOrEqual(t, bonus, 1.5)
	})

	t.Run("Original score kept in metadata", func(t *testing.T) {
		r := result("some content", 0.42, model.SourceVector)

		reranker.Rerank(ctx, "query", []*model.RetrievalResult{r})

		assert.Equal(t, 0.42, r.Metadata["original_score"])
		factors := r.Metadata["rerank_factors"].(model.Metadata)
		product := 0.42
		for _, name := range []string{"source_weight", "length_bonus", "keyword_bonus", "semantic_bonus"} {
			product *= factors[name].(float64)
		}
		assert.InDelta(t, product, r.Score, 1e-9)
	})
}

func TestRerankStableTies(t *testing.T) {
	ctx := context.Background()
	reranker := testReranker(t)

	// Identical content and source means identical factors, ties must keep
	// the fused order.
	first := result("tie", 0.5, model.SourceVector)
	first.ChunkID = "first"
	second := result("tie", 0.5, model.SourceVector)
	second.ChunkID = "second"

	reranked := reranker.Rerank(ctx, "query", []*model.RetrievalResult{first, second})

	assert.Equal(t, "first", reranked[0].ChunkID)
	assert.Equal(t, "second", reranked[1].ChunkID)
}

func factor(t *testing.T, r *model.RetrievalResult, name string) float64 {
	t.Helper()
	factors, ok := r.Metadata["rerank_factors"].(model.Metadata)
	require.True(t, ok, "Expected rerank_factors metadata")
	value, ok := factors[name].(float64)
	require.True(t, ok, "Expected factor %v", name)
	return value
}
