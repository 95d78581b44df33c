package graphstore

import (
	"context"
	"errors"

	"github.com/fusekb/fusekb/database"
	"github.com/fusekb/fusekb/helper"
	"github.com/fusekb/fusekb/model"
)

// ErrNodeNotFound is returned by GetNode when the id does not exist.
var ErrNodeNotFound = database.ErrNodeNotFound

// PostgresStore keeps the graph in the nodes and edges tables.
type PostgresStore struct {
	nodes database.NodesDBHandlerFunctions
	edges database.EdgesDBHandlerFunctions
}

// NewPostgresStore creates the store on top of an open database connection.
func NewPostgresStore(db *helper.Database) (*PostgresStore, error) {
	nodes, err := database.NewNodesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create nodes handler", err)
	}
	edges, err := database.NewEdgesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create edges handler", err)
	}
	return &PostgresStore{nodes: nodes, edges: edges}, nil
}

func (s *PostgresStore) MergeNode(ctx context.Context, entity *model.Entity) (bool, error) {
	return s.nodes.MergeNode(ctx, entity)
}

func (s *PostgresStore) MergeEdge(ctx context.Context, relation *model.Relation) (bool, error) {
	return s.edges.MergeEdge(ctx, relation)
}

func (s *PostgresStore) GetNode(ctx context.Context, id string) (*model.Entity, error) {
	entity, err := s.nodes.SelectNode(ctx, id)
	if errors.Is(err, database.ErrNodeNotFound) {
		return nil, ErrNodeNotFound
	}
	return entity, err
}

func (s *PostgresStore) QueryRelations(ctx context.Context, fromID, toID, relationType *string, limit int) ([]*model.Relation, error) {
	return s.edges.QueryRelations(ctx, fromID, toID, relationType, limit)
}

func (s *PostgresStore) FindRelated(ctx context.Context, entityID string, depth int) ([]*model.RelatedEntity, error) {
	return s.edges.FindRelated(ctx, entityID, depth)
}

func (s *PostgresStore) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	return s.nodes.DeleteNodesByDocument(ctx, documentID)
}

func (s *PostgresStore) CountNodes(ctx context.Context) (int64, error) {
	return s.nodes.CountNodes(ctx)
}

func (s *PostgresStore) CountEdges(ctx context.Context) (int64, error) {
	return s.edges.CountEdges(ctx)
}
