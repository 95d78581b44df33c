package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fusekb/fusekb/helper"
	"github.com/fusekb/fusekb/model"
	loadSql "github.com/fusekb/fusekb/sql"
)

// ErrNodeNotFound is returned when a node id does not exist
var ErrNodeNotFound = errors.New("node not found")

// NodesDBHandlerFunctions defines the interface for graph node database operations.
type NodesDBHandlerFunctions interface {
	MergeNode(ctx context.Context, entity *model.Entity) (bool, error)
	SelectNode(ctx context.Context, id string) (*model.Entity, error)
	DeleteNodesByDocument(ctx context.Context, documentID string) (int, error)
	CountNodes(ctx context.Context) (int64, error)
}

// NodesDBHandler handles graph node database operations
type NodesDBHandler struct {
	db *helper.Database
}

// NewNodesDBHandler creates a new nodes database handler.
// It initializes the database connection and loads node-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewNodesDBHandler(db *helper.Database, force bool) (*NodesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	nodesDbHandler := &NodesDBHandler{
		db: db,
	}

	err := loadSql.LoadNodesSql(nodesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load nodes sql", err)
	}

	err = nodesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized NodesDBHandler")

	return nodesDbHandler, nil
}

// CreateTable creates the 'nodes' table in the database.
// If the table already exists, it does not create it again.
func (h *NodesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_nodes();`)
	if err != nil {
		log.Panicf("error initializing nodes table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table nodes")

	return nil
}

// MergeNode creates a node or updates it in place if the id already exists.
// It reports whether the node was newly created.
func (h *NodesDBHandler) MergeNode(ctx context.Context, entity *model.Entity) (bool, error) {
	var created bool
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM merge_node($1, $2, $3, $4)`,
		entity.ID,
		entity.Type,
		entity.Name,
		entity.Properties,
	)

	err := row.Scan(
		&entity.ID,
		&entity.Type,
		&entity.Name,
		&entity.Properties,
		&created,
	)
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return created, nil
}

// SelectNode fetches a node by id
func (h *NodesDBHandler) SelectNode(ctx context.Context, id string) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_node($1)`,
		id,
	)

	err := row.Scan(
		&entity.ID,
		&entity.Type,
		&entity.Name,
		&entity.Properties,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNodeNotFound
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// DeleteNodesByDocument removes all nodes (and their edges) belonging to a document
func (h *NodesDBHandler) DeleteNodesByDocument(ctx context.Context, documentID string) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT delete_nodes_by_document($1)`,
		documentID,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return deleted, nil
}

// CountNodes returns the number of graph nodes
func (h *NodesDBHandler) CountNodes(ctx context.Context) (int64, error) {
	var count int64
	err := h.db.Instance.QueryRowContext(ctx, `SELECT count_nodes()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}
