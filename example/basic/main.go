package main

import (
	"context"
	"fmt"
	"log"

	"github.com/fusekb/fusekb"
	"github.com/fusekb/fusekb/core/embedding"
	"github.com/fusekb/fusekb/helper"
	"github.com/fusekb/fusekb/model"
)

var sampleChunks = []string{
	"RAG技术（检索增强生成）将向量检索与大语言模型结合，在回答前先从知识库中检索相关内容，能显著减少幻觉。",
	"知识图谱用节点表示实体、用边表示关系，为RAG补充了多跳推理能力。",
	"向量检索依赖文本嵌入，在高维空间中通过余弦相似度寻找语义相近的内容。",
	"机器学习通过数据训练模型，深度学习是其中依赖神经网络的子领域。",
}

func main() {
	ctx := context.Background()

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(ctx)

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	// The deterministic embedder keeps the example self contained, set
	// OpenAIAPIKey in the config to use real embeddings.
	embedder, err := embedding.NewDeterministicProvider(64)
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}

	kb, err := fusekb.New(ctx, &fusekb.Config{
		Database: dbConfig,
		Embedder: embedder,
	})
	if err != nil {
		log.Fatalf("Failed to create fusekb: %v", err)
	}
	defer kb.Close()

	// Ingest: index the chunks and build the knowledge graph
	documentID, buildResult, err := kb.IngestDocument(ctx, "", "RAG技术简介", sampleChunks)
	if err != nil {
		log.Fatalf("Failed to ingest document: %v", err)
	}
	fmt.Printf("Ingested document %v: %v chunks, %v entities, %v relations\n",
		documentID, buildResult.ChunksProcessed, buildResult.EntitiesAdded, buildResult.RelationsAdded)

	// Retrieve in every mode
	for _, mode := range []model.Mode{model.ModeVector, model.ModeGraph, model.ModeFulltext, model.ModeHybrid} {
		request := model.NewRetrieveRequest("什么是RAG技术？")
		request.Mode = mode
		request.TopK = 3

		results, err := kb.Retrieve(ctx, request)
		if err != nil {
			log.Fatalf("Retrieval in mode %v failed: %v", mode, err)
		}

		fmt.Printf("\n=== mode %v (%v results) ===\n", mode, len(results))
		for i, result := range results {
			fmt.Printf("%v. [%v] score=%.4f %v\n", i+1, result.Source, result.Score, result.Content)
		}
	}

	// Build a prompt context from the hybrid results
	request := model.NewRetrieveRequest("RAG和知识图谱如何配合？")
	results, err := kb.Retrieve(ctx, request)
	if err != nil {
		log.Fatalf("Hybrid retrieval failed: %v", err)
	}
	fmt.Printf("\n=== prompt context ===\n%v\n", fusekb.BuildContext(results, 800))

	stats, err := kb.Statistics(ctx)
	if err != nil {
		log.Fatalf("Failed to read statistics: %v", err)
	}
	fmt.Printf("\nStore sizes: %v vectors, %v nodes, %v edges\n", stats.Vectors, stats.Nodes, stats.Edges)
}
