package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed vectors.sql
var vectorsSQL string

//go:embed nodes.sql
var nodesSQL string

//go:embed edges.sql
var edgesSQL string

// Function lists for verification
var VectorsFunctions = []string{
	"init_vectors",
	"upsert_vector",
	"search_vectors",
	"search_fulltext",
	"delete_vectors",
	"delete_vectors_by_document",
	"count_vectors",
}

var NodesFunctions = []string{
	"init_nodes",
	"merge_node",
	"select_node",
	"delete_nodes_by_document",
	"count_nodes",
}

var EdgesFunctions = []string{
	"init_edges",
	"merge_edge",
	"query_relations",
	"find_related",
	"count_edges",
}

// Init initializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadVectorsSql loads vector-index SQL functions
func LoadVectorsSql(db *sql.DB, force bool) error {
	return loadFunctions(db, vectorsSQL, VectorsFunctions, "vectors", force)
}

// LoadNodesSql loads graph-node SQL functions
func LoadNodesSql(db *sql.DB, force bool) error {
	return loadFunctions(db, nodesSQL, NodesFunctions, "nodes", force)
}

// LoadEdgesSql loads graph-edge SQL functions
func LoadEdgesSql(db *sql.DB, force bool) error {
	return loadFunctions(db, edgesSQL, EdgesFunctions, "edges", force)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadVectorsSql(db, force); err != nil {
		return err
	}

	if err := LoadNodesSql(db, force); err != nil {
		return err
	}

	if err := LoadEdgesSql(db, force); err != nil {
		return err
	}

	return nil
}

func loadFunctions(db *sql.DB, script string, sqlFunctions []string, name string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, sqlFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing %v functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(script)
	if err != nil {
		return fmt.Errorf("error executing %v SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, sqlFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required %v SQL functions were created", name)
	}

	log.Printf("SQL %v functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
