package retrieval

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fusekb/fusekb/core/keyword"
	"github.com/fusekb/fusekb/core/vectorstore"
	"github.com/fusekb/fusekb/helper"
	"github.com/fusekb/fusekb/model"
)

// FullTextRetriever matches chunk content against the query keywords.
// Scores are rank based: the first match gets 0.8, each following match
// 0.1 less, with a floor of 0.1.
type FullTextRetriever struct {
	index  vectorstore.Index
	logger *slog.Logger
}

// NewFullTextRetriever creates the strategy.
func NewFullTextRetriever(index vectorstore.Index, logger *slog.Logger) *FullTextRetriever {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FullTextRetriever{index: index, logger: logger}
}

func (r *FullTextRetriever) Retrieve(ctx context.Context, query string, topK int, filters map[string]string) ([]*model.RetrievalResult, error) {
	patterns := queryPatterns(query)

	hits, err := r.index.SearchText(ctx, patterns, topK, filters)
	if err != nil {
		return nil, helper.NewError("fulltext search", err)
	}

	results := make([]*model.RetrievalResult, len(hits))
	for rank, hit := range hits {
		result := hitToResult(hit, model.SourceFulltext)
		result.Score = fulltextScore(rank)
		results[rank] = result
	}
	return results, nil
}

func (r *FullTextRetriever) Source() model.Source {
	return model.SourceFulltext
}

// queryPatterns builds the LIKE patterns for a query: each whitespace
// separated token plus any known concept keywords embedded in it, all
// lowercased and deduplicated.
func queryPatterns(query string) []string {
	tokens := strings.Fields(strings.ToLower(query))
	tokens = append(tokens, keyword.MatchedKeywords(query)...)
	if len(tokens) == 0 {
		tokens = []string{strings.ToLower(query)}
	}

	seen := map[string]struct{}{}
	patterns := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		patterns = append(patterns, "%"+token+"%")
	}
	return patterns
}

func fulltextScore(rank int) float64 {
	score := 0.8 - 0.1*float64(rank)
	if score < 0.1 {
		return 0.1
	}
	return score
}
