package fusekb

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fusekb/fusekb/core/embedding"
	"github.com/fusekb/fusekb/core/graph"
	"github.com/fusekb/fusekb/core/graphstore"
	"github.com/fusekb/fusekb/core/retrieval"
	"github.com/fusekb/fusekb/core/vectorstore"
	"github.com/fusekb/fusekb/helper"
	"github.com/fusekb/fusekb/model"
	loadSql "github.com/fusekb/fusekb/sql"
)

// Config selects the backing stores and the embedding provider.
// Zero values fall back to Postgres backends, the deterministic embedder
// and an in process cache.
type Config struct {
	Database *helper.DatabaseConfiguration

	// VectorBackend selects where embeddings live, postgres by default.
	VectorBackend    vectorstore.Backend
	MilvusAddress    string
	MilvusDatabase   string
	MilvusCollection string

	// GraphBackend selects where the knowledge graph lives.
	GraphBackend graphstore.Backend

	// Embedder overrides the provider entirely. When nil, an OpenAI
	// provider is used if OpenAIAPIKey is set, otherwise the
	// deterministic provider.
	Embedder           embedding.Provider
	EmbeddingDimension int
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	EmbeddingModel     string

	// RedisAddress switches the retrieval cache from in process memory to
	// redis.
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// StrategyTimeout bounds each strategy in a hybrid fan out.
	StrategyTimeout time.Duration

	LogLevel slog.Level
}

// Statistics reports the size of the backing stores.
type Statistics struct {
	Vectors int64 `json:"vectors"`
	Nodes   int64 `json:"nodes"`
	Edges   int64 `json:"edges"`
}

// FuseKB is the unified entry point: ingestion on one side, retrieval on
// the other, sharing the same stores.
type FuseKB struct {
	DB           *helper.Database
	Vectors      vectorstore.Index
	Graph        graphstore.Store
	Builder      *graph.Builder
	Orchestrator *retrieval.Orchestrator

	embedder embedding.Provider
	cache    retrieval.Cache
	log      *slog.Logger
}

// New creates a FuseKB instance with all stores initialized.
func New(ctx context.Context, config *Config) (*FuseKB, error) {
	if config == nil {
		return nil, helper.NewError("config validation", fmt.Errorf("config is nil"))
	}

	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: config.LogLevel,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	if config.VectorBackend == "" {
		config.VectorBackend = vectorstore.BackendPostgres
	}
	if config.GraphBackend == "" {
		config.GraphBackend = graphstore.BackendPostgres
	}
	if config.EmbeddingDimension == 0 {
		config.EmbeddingDimension = embedding.LocalDimension
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 5 * time.Minute
	}

	embedder, err := buildEmbedder(config, logger)
	if err != nil {
		return nil, err
	}

	// Initialize database
	db := helper.NewDatabase("fusekb", config.Database, logger)
	err = loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	vectors, err := vectorstore.New(ctx, vectorstore.Config{
		Backend:        config.VectorBackend,
		Database:       db,
		MilvusAddress:  config.MilvusAddress,
		MilvusDatabase: config.MilvusDatabase,
		Collection:     config.MilvusCollection,
		Dimension:      embedder.Dimension(),
	}, logger)
	if err != nil {
		return nil, helper.NewError("create vector index", err)
	}

	graphStore, err := graphstore.New(ctx, graphstore.Config{
		Backend:  config.GraphBackend,
		Database: db,
	}, logger)
	if err != nil {
		return nil, helper.NewError("create graph store", err)
	}

	var cache retrieval.Cache
	if config.RedisAddress != "" {
		cache, err = retrieval.NewRedisCache(ctx, config.RedisAddress, config.RedisPassword, config.RedisDB, config.CacheTTL, logger)
		if err != nil {
			return nil, helper.NewError("create redis cache", err)
		}
	} else {
		cache = retrieval.NewMemoryCache(config.CacheTTL)
	}

	orchestrator := retrieval.NewOrchestrator(
		retrieval.NewVectorRetriever(embedder, vectors, logger),
		retrieval.NewGraphRetriever(graphStore, logger),
		retrieval.NewFullTextRetriever(vectors, logger),
		retrieval.NewReranker(embedder, logger),
		cache,
		config.StrategyTimeout,
		logger,
	)

	return &FuseKB{
		DB:           db,
		Vectors:      vectors,
		Graph:        graphStore,
		Builder:      graph.NewBuilder(graphStore, logger),
		Orchestrator: orchestrator,
		embedder:     embedder,
		cache:        cache,
		log:          logger,
	}, nil
}

func buildEmbedder(config *Config, logger *slog.Logger) (embedding.Provider, error) {
	if config.Embedder != nil {
		return config.Embedder, nil
	}
	if config.OpenAIAPIKey != "" {
		embeddingModel := config.EmbeddingModel
		if embeddingModel == "" {
			embeddingModel = "text-embedding-3-small"
		}
		return embedding.NewOpenAIProvider(config.OpenAIAPIKey, config.OpenAIBaseURL, embeddingModel, config.EmbeddingDimension, logger)
	}
	return embedding.NewDeterministicProvider(config.EmbeddingDimension)
}

// Retrieve answers a retrieval request through the configured strategies.
func (f *FuseKB) Retrieve(ctx context.Context, request *model.RetrieveRequest) ([]*model.RetrievalResult, error) {
	return f.Orchestrator.Retrieve(ctx, request)
}

// IndexChunks embeds the given contents and upserts them into the vector
// index as chunks of the document. Returns the stored chunks with their
// embeddings filled in. Any successful ingestion clears the retrieval
// cache.
func (f *FuseKB) IndexChunks(ctx context.Context, documentID string, contents []string) ([]*model.Chunk, error) {
	if documentID == "" {
		return nil, helper.NewError("index chunks", fmt.Errorf("document id is empty"))
	}
	if len(contents) == 0 {
		return nil, helper.NewError("index chunks", fmt.Errorf("no contents to index"))
	}

	embeddings, err := f.embedder.EmbedBatch(ctx, contents)
	if err != nil {
		return nil, helper.NewError("embed contents", err)
	}

	chunks := make([]*model.Chunk, len(contents))
	for i, content := range contents {
		chunk := &model.Chunk{
			DocumentID: documentID,
			ChunkIndex: i,
			Content:    content,
			Embedding:  embeddings[i],
			Metadata: model.Metadata{
				"document_id": documentID,
				"chunk_index": i,
				"content":     content,
			},
		}
		err := f.Vectors.Upsert(ctx, chunk.VectorID(), chunk.Embedding, chunk.Metadata)
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("upsert chunk %d", i), err)
		}
		chunks[i] = chunk
	}

	f.log.Info("Indexed chunks", slog.String("document_id", documentID), slog.Int("num_chunks", len(chunks)))
	f.clearCache(ctx)

	return chunks, nil
}

// BuildGraph merges the document, its chunks and matched topics into the
// knowledge graph. Rebuilding the same document is idempotent. A successful
// build clears the retrieval cache.
func (f *FuseKB) BuildGraph(ctx context.Context, documentID string, title string, chunks []*model.Chunk) *model.BuildResult {
	result := f.Builder.BuildFromChunks(ctx, documentID, title, chunks)
	if result.Success {
		f.clearCache(ctx)
	}
	return result
}

// IngestDocument indexes the contents and builds the graph in one call.
// An empty documentID gets a generated one. Returns the document id and
// the build result.
func (f *FuseKB) IngestDocument(ctx context.Context, documentID string, title string, contents []string) (string, *model.BuildResult, error) {
	if documentID == "" {
		documentID = uuid.New().String()
	}

	chunks, err := f.IndexChunks(ctx, documentID, contents)
	if err != nil {
		return documentID, nil, err
	}

	result := f.BuildGraph(ctx, documentID, title, chunks)
	if !result.Success {
		return documentID, result, helper.NewError("build graph", fmt.Errorf("%v", result.Error))
	}

	return documentID, result, nil
}

// DeleteDocument removes a document from the vector index and the graph
// and clears the retrieval cache.
func (f *FuseKB) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := f.Vectors.DeleteByDocument(ctx, documentID)
	if err != nil {
		return helper.NewError("delete vectors", err)
	}
	_, err = f.Graph.DeleteByDocument(ctx, documentID)
	if err != nil {
		return helper.NewError("delete graph nodes", err)
	}

	f.log.Info("Deleted document", slog.String("document_id", documentID))
	f.clearCache(ctx)

	return nil
}

// BuildContext concatenates result contents into a prompt context, capped
// at maxChars characters. Results that do not fit are dropped whole.
func BuildContext(results []*model.RetrievalResult, maxChars int) string {
	var builder strings.Builder
	total := 0
	for _, result := range results {
		section := fmt.Sprintf("[%v] %v", result.Source, result.Content)
		extra := len([]rune(section))
		if total > 0 {
			extra += 2
		}
		if maxChars > 0 && total+extra > maxChars {
			break
		}
		if total > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(section)
		total += extra
	}
	return builder.String()
}

// Statistics reports the current store sizes.
func (f *FuseKB) Statistics(ctx context.Context) (*Statistics, error) {
	vectors, err := f.Vectors.Count(ctx)
	if err != nil {
		return nil, helper.NewError("count vectors", err)
	}
	nodes, err := f.Graph.CountNodes(ctx)
	if err != nil {
		return nil, helper.NewError("count nodes", err)
	}
	edges, err := f.Graph.CountEdges(ctx)
	if err != nil {
		return nil, helper.NewError("count edges", err)
	}

	return &Statistics{Vectors: vectors, Nodes: nodes, Edges: edges}, nil
}

// HealthCheck verifies the backing stores are reachable.
func (f *FuseKB) HealthCheck(ctx context.Context) error {
	if f.DB != nil && f.DB.Instance != nil {
		if err := f.DB.Instance.PingContext(ctx); err != nil {
			return helper.NewError("database ping", err)
		}
	}
	if _, err := f.Vectors.Count(ctx); err != nil {
		return helper.NewError("vector index check", err)
	}
	if _, err := f.Graph.CountNodes(ctx); err != nil {
		return helper.NewError("graph store check", err)
	}
	return nil
}

// ClearCache drops all cached retrieval responses.
func (f *FuseKB) ClearCache(ctx context.Context) {
	f.clearCache(ctx)
}

func (f *FuseKB) clearCache(ctx context.Context) {
	if f.cache == nil {
		return
	}
	if err := f.cache.Clear(ctx); err != nil {
		f.log.Warn("Failed to clear retrieval cache", "error", err)
	}
}

// Close closes the database connection.
func (f *FuseKB) Close() error {
	if f.DB != nil && f.DB.Instance != nil {
		return f.DB.Instance.Close()
	}
	return nil
}
