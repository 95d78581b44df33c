package retrieval

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fusekb/fusekb/model"
)

const defaultStrategyTimeout = 10 * time.Second

// Orchestrator runs the retrieval pipeline: validate the request, pick the
// strategies for its mode, fan them out concurrently, fuse, rerank and
// truncate. A failing strategy contributes an empty list instead of failing
// the request, so hybrid retrieval survives a single backend outage.
type Orchestrator struct {
	vector   Retriever
	graph    Retriever
	fulltext Retriever
	reranker *Reranker
	cache    Cache
	timeout  time.Duration
	logger   *slog.Logger
}

// NewOrchestrator wires the pipeline. The cache may be nil to disable
// caching, the timeout bounds each strategy in a hybrid fan out.
func NewOrchestrator(vector, graph, fulltext Retriever, reranker *Reranker, cache Cache, timeout time.Duration, logger *slog.Logger) *Orchestrator {
	if timeout <= 0 {
		timeout = defaultStrategyTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		vector:   vector,
		graph:    graph,
		fulltext: fulltext,
		reranker: reranker,
		cache:    cache,
		timeout:  timeout,
		logger:   logger,
	}
}

// Retrieve answers a retrieval request. Invalid requests fail before any
// backend is touched.
func (o *Orchestrator) Retrieve(ctx context.Context, request *model.RetrieveRequest) ([]*model.RetrievalResult, error) {
	err := request.Validate()
	if err != nil {
		return nil, err
	}

	cacheKey := CacheKey(request)
	if o.cache != nil {
		if cached, ok := o.cache.Get(ctx, cacheKey); ok {
			o.logger.Debug("Cache hit", "query", request.Query, "mode", request.Mode)
			return cached, nil
		}
	}

	var lists [][]*model.RetrievalResult
	switch request.Mode {
	case model.ModeVector:
		lists = [][]*model.RetrievalResult{o.retrieveOne(ctx, o.vector, request.Query, request.TopK, request.Filters)}
	case model.ModeGraph:
		lists = [][]*model.RetrievalResult{o.retrieveOne(ctx, o.graph, request.Query, request.TopK, request.Filters)}
	case model.ModeFulltext:
		lists = [][]*model.RetrievalResult{o.retrieveOne(ctx, o.fulltext, request.Query, request.TopK, request.Filters)}
	case model.ModeHybrid:
		lists = o.retrieveHybrid(ctx, request)
	}

	results := Fuse(lists...)
	if request.Rerank {
		results = o.reranker.Rerank(ctx, request.Query, results)
	}
	if len(results) > request.TopK {
		results = results[:request.TopK]
	}

	if o.cache != nil {
		if err := o.cache.Set(ctx, cacheKey, results); err != nil {
			o.logger.Warn("Cache write failed", "error", err)
		}
	}

	return results, nil
}

// retrieveHybrid fans out all strategies concurrently, each with a reduced
// per strategy budget. Fusion order is fixed: vector, graph, fulltext.
func (o *Orchestrator) retrieveHybrid(ctx context.Context, request *model.RetrieveRequest) [][]*model.RetrievalResult {
	budget := request.TopK/3 + 2
	strategies := []Retriever{o.vector, o.graph, o.fulltext}
	lists := make([][]*model.RetrievalResult, len(strategies))

	var wg sync.WaitGroup
	for i, strategy := range strategies {
		wg.Add(1)
		go func(i int, strategy Retriever) {
			defer wg.Done()
			strategyCtx, cancel := context.WithTimeout(ctx, o.timeout)
			defer cancel()
			lists[i] = o.retrieveOne(strategyCtx, strategy, request.Query, budget, request.Filters)
		}(i, strategy)
	}
	wg.Wait()

	return lists
}

// retrieveOne runs a single strategy, degrading failures to an empty list.
func (o *Orchestrator) retrieveOne(ctx context.Context, strategy Retriever, query string, topK int, filters map[string]string) []*model.RetrievalResult {
	results, err := strategy.Retrieve(ctx, query, topK, filters)
	if err != nil {
		o.logger.Error("Retrieval strategy failed", "source", strategy.Source(), "error", err)
		return []*model.RetrievalResult{}
	}
	return results
}
