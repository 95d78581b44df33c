package retrieval

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/fusekb/fusekb/core/embedding"
	"github.com/fusekb/fusekb/model"
)

const semanticContentLimit = 500

// Reranker rescales fused results by four multiplicative factors: the
// source weight, a content length bonus, a keyword overlap bonus and a
// semantic similarity bonus. The original score and the factors are kept
// in the result metadata so a ranking can be explained afterwards.
type Reranker struct {
	embedder embedding.Provider
	logger   *slog.Logger
}

// NewReranker creates a reranker using the embedder for the semantic
// factor.
func NewReranker(embedder embedding.Provider, logger *slog.Logger) *Reranker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reranker{embedder: embedder, logger: logger}
}

// Rerank rescores the results in place and sorts them best first. The sort
// is stable, so results with equal final scores keep their fused order.
func (r *Reranker) Rerank(ctx context.Context, query string, results []*model.RetrievalResult) []*model.RetrievalResult {
	for _, result := range results {
		sourceWeight := sourceWeight(result.Source)
		lengthBonus := lengthBonus(result.Content)
		keywordBonus := keywordBonus(query, result.Content)
		semanticBonus := r.semanticBonus(ctx, query, result.Content)

		if result.Metadata == nil {
			result.Metadata = model.Metadata{}
		}
		result.Metadata["original_score"] = result.Score
		result.Metadata["rerank_factors"] = model.Metadata{
			"source_weight":  sourceWeight,
			"length_bonus":   lengthBonus,
			"keyword_bonus":  keywordBonus,
			"semantic_bonus": semanticBonus,
		}

		result.Score = result.Score * sourceWeight * lengthBonus * keywordBonus * semanticBonus
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

func sourceWeight(source model.Source) float64 {
	switch source {
	case model.SourceVector:
		return 1.0
	case model.SourceGraph:
		return 0.9
	case model.SourceFulltext:
		return 0.8
	default:
		return 1.0
	}
}

// lengthBonus favors mid-sized chunks: very short content is usually a
// fragment, very long content dilutes the answer.
func lengthBonus(content string) float64 {
	length := len(content)
	switch {
	case length >= 50 && length <= 500:
		return 1.1
	case length > 500:
		return 1.05
	default:
		return 0.9
	}
}

// keywordBonus rewards token overlap between query and content, 0.1 per
// distinct shared token.
func keywordBonus(query string, content string) float64 {
	contentTokens := map[string]bool{}
	for _, token := range strings.Fields(strings.ToLower(content)) {
		contentTokens[token] = true
	}

	counted := map[string]bool{}
	overlap := 0
	for _, token := range strings.Fields(strings.ToLower(query)) {
		if counted[token] {
			continue
		}
		counted[token] = true
		if contentTokens[token] {
			overlap++
		}
	}
	return 1.0 + 0.1*float64(overlap)
}

// semanticBonus embeds the query and the content head and rewards cosine
// similarity. Short content is skipped and embedding failures degrade to a
// neutral factor, a rerank never fails retrieval.
func (r *Reranker) semanticBonus(ctx context.Context, query string, content string) float64 {
	if len(content) <= 20 {
		return 1.0
	}

	head := content
	if runes := []rune(head); len(runes) > semanticContentLimit {
		head = string(runes[:semanticContentLimit])
	}

	vectors, err := r.embedder.EmbedBatch(ctx, []string{query, head})
	if err != nil || len(vectors) != 2 {
		r.logger.Warn("Semantic rerank factor unavailable", "error", err)
		return 1.0
	}

	similarity := CosineSimilarity(vectors[0], vectors[1])
	similarity = math.Max(-1.0, math.Min(1.0, similarity))
	return 1.0 + 0.5*similarity
}

// CosineSimilarity returns the cosine of the angle between two vectors.
// Mismatched lengths or a zero vector yield 0.
func CosineSimilarity(a []float32, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
