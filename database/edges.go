package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fusekb/fusekb/helper"
	"github.com/fusekb/fusekb/model"
	loadSql "github.com/fusekb/fusekb/sql"
)

// EdgesDBHandlerFunctions defines the interface for graph edge database operations.
type EdgesDBHandlerFunctions interface {
	MergeEdge(ctx context.Context, relation *model.Relation) (bool, error)
	QueryRelations(ctx context.Context, fromID, toID, relationType *string, limit int) ([]*model.Relation, error)
	FindRelated(ctx context.Context, entityID string, depth int) ([]*model.RelatedEntity, error)
	CountEdges(ctx context.Context) (int64, error)
}

// EdgesDBHandler handles graph edge database operations
type EdgesDBHandler struct {
	db *helper.Database
}

// NewEdgesDBHandler creates a new edges database handler.
// It initializes the database connection and loads edge-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEdgesDBHandler(db *helper.Database, force bool) (*EdgesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	edgesDbHandler := &EdgesDBHandler{
		db: db,
	}

	err := loadSql.LoadEdgesSql(edgesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load edges sql", err)
	}

	err = edgesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EdgesDBHandler")

	return edgesDbHandler, nil
}

// CreateTable creates the 'edges' table in the database.
// If the table already exists, it does not create it again.
func (h *EdgesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_edges();`)
	if err != nil {
		log.Panicf("error initializing edges table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table edges")

	return nil
}

// MergeEdge creates an edge or updates its properties in place if the
// (from_id, to_id, type) triple already exists. It reports whether the edge
// was newly created.
func (h *EdgesDBHandler) MergeEdge(ctx context.Context, relation *model.Relation) (bool, error) {
	var created bool
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM merge_edge($1, $2, $3, $4)`,
		relation.FromID,
		relation.ToID,
		relation.Type,
		relation.Properties,
	)

	err := row.Scan(
		&relation.FromID,
		&relation.ToID,
		&relation.Type,
		&relation.Properties,
		&created,
	)
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return created, nil
}

// QueryRelations fetches edges matching the given constraints.
// Nil constraints act as wildcards.
func (h *EdgesDBHandler) QueryRelations(ctx context.Context, fromID, toID, relationType *string, limit int) ([]*model.Relation, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM query_relations($1, $2, $3, $4)`,
		fromID,
		toID,
		relationType,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var relations []*model.Relation
	for rows.Next() {
		relation := &model.Relation{}
		err := rows.Scan(
			&relation.FromID,
			&relation.ToID,
			&relation.Type,
			&relation.Properties,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		relations = append(relations, relation)
	}

	return relations, rows.Err()
}

// FindRelated fetches entities connected to the given entity up to the given
// depth, each annotated with the relation type and weight
func (h *EdgesDBHandler) FindRelated(ctx context.Context, entityID string, depth int) ([]*model.RelatedEntity, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM find_related($1, $2)`,
		entityID,
		depth,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var related []*model.RelatedEntity
	for rows.Next() {
		rel := &model.RelatedEntity{}
		err := rows.Scan(
			&rel.EntityID,
			&rel.RelationType,
			&rel.Weight,
			&rel.Depth,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		related = append(related, rel)
	}

	return related, rows.Err()
}

// CountEdges returns the number of graph edges
func (h *EdgesDBHandler) CountEdges(ctx context.Context) (int64, error) {
	var count int64
	err := h.db.Instance.QueryRowContext(ctx, `SELECT count_edges()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}
