package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fusekb/fusekb/core/graphstore"
	"github.com/fusekb/fusekb/core/keyword"
	"github.com/fusekb/fusekb/helper"
	"github.com/fusekb/fusekb/model"
)

const graphWalkDepth = 2

// GraphRetriever maps query keywords to known entities and walks their
// neighborhood in the knowledge graph. Each related entity becomes one
// result describing the connection.
type GraphRetriever struct {
	store  graphstore.Store
	logger *slog.Logger
}

// NewGraphRetriever creates the strategy.
func NewGraphRetriever(store graphstore.Store, logger *slog.Logger) *GraphRetriever {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GraphRetriever{store: store, logger: logger}
}

func (r *GraphRetriever) Retrieve(ctx context.Context, query string, topK int, _ map[string]string) ([]*model.RetrievalResult, error) {
	results := []*model.RetrievalResult{}

	for _, concept := range keyword.ExtractConcepts(query) {
		related, err := r.store.FindRelated(ctx, concept.EntityID, graphWalkDepth)
		if err != nil {
			return nil, helper.NewError("find related", err)
		}

		for _, relatedEntity := range related {
			results = append(results, &model.RetrievalResult{
				Content: fmt.Sprintf("%v and %v are connected by %v",
					concept.Name, r.entityName(ctx, relatedEntity.EntityID), relatedEntity.RelationType),
				Score:  relatedEntity.Weight,
				Source: model.SourceGraph,
				Metadata: model.Metadata{
					"entity_id":         concept.EntityID,
					"related_entity_id": relatedEntity.EntityID,
					"relation_type":     relatedEntity.RelationType,
					"depth":             relatedEntity.Depth,
					"weight":            relatedEntity.Weight,
				},
				ChunkID: relatedEntity.EntityID,
			})
			if len(results) >= topK {
				return results, nil
			}
		}
	}

	return results, nil
}

func (r *GraphRetriever) Source() model.Source {
	return model.SourceGraph
}

// entityName resolves the display name of a node, falling back to the id
// when the node is missing or unreadable.
func (r *GraphRetriever) entityName(ctx context.Context, entityID string) string {
	entity, err := r.store.GetNode(ctx, entityID)
	if err != nil {
		if !errors.Is(err, graphstore.ErrNodeNotFound) {
			r.logger.Warn("Failed to resolve entity name", "entity_id", entityID, "error", err)
		}
		return entityID
	}
	return entity.Name
}
