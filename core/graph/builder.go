// Package graph builds the document knowledge graph from chunks.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fusekb/fusekb/core/graphstore"
	"github.com/fusekb/fusekb/core/keyword"
	"github.com/fusekb/fusekb/model"
)

const contentPreviewLength = 100

// Builder merges documents, chunks and topics into the graph store.
// Building the same document twice leaves the graph unchanged.
type Builder struct {
	store  graphstore.Store
	logger *slog.Logger
}

// NewBuilder creates a builder writing to the given store.
func NewBuilder(store graphstore.Store, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{store: store, logger: logger}
}

// BuildFromChunks merges the document node, one node per chunk and one node
// per matched topic, connected by CONTAINS_CHUNK and RELATES_TO edges.
// The counts report distinct nodes and edges touched by this call, so a
// rebuild of the same document reports the same numbers. Store failures
// produce a result with Success false instead of a partial count.
func (b *Builder) BuildFromChunks(ctx context.Context, documentID string, title string, chunks []*model.Chunk) *model.BuildResult {
	touchedNodes := map[string]struct{}{}
	touchedEdges := map[string]struct{}{}

	documentNodeID := fmt.Sprintf("doc_%v", documentID)
	_, err := b.store.MergeNode(ctx, &model.Entity{
		ID:   documentNodeID,
		Type: "Document",
		Name: title,
		Properties: model.Metadata{
			"document_id": documentID,
			"title":       title,
			"created_at":  time.Now().Format(time.RFC3339),
		},
	})
	if err != nil {
		return b.failure(documentID, "merge document node", err)
	}
	touchedNodes[documentNodeID] = struct{}{}

	for _, chunk := range chunks {
		chunkNodeID := chunk.NodeID()
		_, err := b.store.MergeNode(ctx, &model.Entity{
			ID:   chunkNodeID,
			Type: "DocumentChunk",
			Name: fmt.Sprintf("Chunk %v", chunk.ChunkIndex),
			Properties: model.Metadata{
				"document_id":     documentID,
				"chunk_index":     chunk.ChunkIndex,
				"content_preview": contentPreview(chunk.Content),
				"content_length":  len(chunk.Content),
			},
		})
		if err != nil {
			return b.failure(documentID, "merge chunk node", err)
		}
		touchedNodes[chunkNodeID] = struct{}{}

		_, err = b.store.MergeEdge(ctx, &model.Relation{
			FromID: documentNodeID,
			ToID:   chunkNodeID,
			Type:   "CONTAINS_CHUNK",
			Properties: model.Metadata{
				"chunk_order": chunk.ChunkIndex,
				"weight":      1.0,
			},
		})
		if err != nil {
			return b.failure(documentID, "merge chunk edge", err)
		}
		touchedEdges[edgeKey(documentNodeID, chunkNodeID, "CONTAINS_CHUNK")] = struct{}{}

		for _, topic := range keyword.ExtractTopics(chunk.Content) {
			topicNodeID := keyword.TopicEntityID(topic)
			_, err := b.store.MergeNode(ctx, &model.Entity{
				ID:   topicNodeID,
				Type: "Topic",
				Name: topic,
				Properties: model.Metadata{
					"category": "技术概念",
				},
			})
			if err != nil {
				return b.failure(documentID, "merge topic node", err)
			}
			touchedNodes[topicNodeID] = struct{}{}

			_, err = b.store.MergeEdge(ctx, &model.Relation{
				FromID: chunkNodeID,
				ToID:   topicNodeID,
				Type:   "RELATES_TO",
				Properties: model.Metadata{
					"confidence": 0.8,
					"weight":     0.6,
				},
			})
			if err != nil {
				return b.failure(documentID, "merge topic edge", err)
			}
			touchedEdges[edgeKey(chunkNodeID, topicNodeID, "RELATES_TO")] = struct{}{}
		}
	}

	b.logger.Info("Built graph for document",
		"document_id", documentID,
		"chunks", len(chunks),
		"entities", len(touchedNodes),
		"relations", len(touchedEdges),
	)

	return &model.BuildResult{
		Success:         true,
		ChunksProcessed: len(chunks),
		EntitiesAdded:   len(touchedNodes),
		RelationsAdded:  len(touchedEdges),
	}
}

func (b *Builder) failure(documentID string, operation string, err error) *model.BuildResult {
	b.logger.Error("Graph build failed", "document_id", documentID, "operation", operation, "error", err)
	return &model.BuildResult{
		Success: false,
		Error:   fmt.Sprintf("%v error: %v", operation, err),
	}
}

func contentPreview(content string) string {
	runes := []rune(content)
	if len(runes) <= contentPreviewLength {
		return content
	}
	return string(runes[:contentPreviewLength]) + "..."
}

func edgeKey(fromID, toID, relationType string) string {
	return fromID + "|" + toID + "|" + relationType
}
