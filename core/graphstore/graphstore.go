// Package graphstore abstracts the knowledge graph behind a small interface
// backed by the Postgres node and edge tables.
package graphstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fusekb/fusekb/helper"
	"github.com/fusekb/fusekb/model"
)

// Backend selects the graph store implementation.
type Backend string

const (
	BackendPostgres Backend = "postgres"
)

// Store is the knowledge graph the builder writes and the retriever reads.
type Store interface {
	// MergeNode creates or updates a node in place, reporting whether it
	// was newly created.
	MergeNode(ctx context.Context, entity *model.Entity) (bool, error)
	// MergeEdge creates or updates an edge in place, reporting whether it
	// was newly created.
	MergeEdge(ctx context.Context, relation *model.Relation) (bool, error)
	// GetNode fetches a node by id. Missing nodes return ErrNodeNotFound.
	GetNode(ctx context.Context, id string) (*model.Entity, error)
	// QueryRelations fetches edges matching the constraints, nil acts as a
	// wildcard.
	QueryRelations(ctx context.Context, fromID, toID, relationType *string, limit int) ([]*model.Relation, error)
	// FindRelated walks outgoing edges up to depth hops.
	FindRelated(ctx context.Context, entityID string, depth int) ([]*model.RelatedEntity, error)
	// DeleteByDocument removes all nodes of a document along with their
	// edges.
	DeleteByDocument(ctx context.Context, documentID string) (int, error)
	// CountNodes returns the number of nodes.
	CountNodes(ctx context.Context) (int64, error)
	// CountEdges returns the number of edges.
	CountEdges(ctx context.Context) (int64, error)
}

// Config carries the backend tag plus the settings of whichever backend is
// selected.
type Config struct {
	Backend  Backend
	Database *helper.Database
}

// New creates the graph store selected by the config's backend tag.
func New(_ context.Context, config Config, _ *slog.Logger) (Store, error) {
	switch config.Backend {
	case BackendPostgres:
		return NewPostgresStore(config.Database)
	default:
		return nil, helper.NewError("backend validation", fmt.Errorf("unknown graph backend %v", config.Backend))
	}
}
