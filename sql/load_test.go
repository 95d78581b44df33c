package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Creates vector extension", func(t *testing.T) {
		var exists bool
		err := db.Instance.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector');`,
		).Scan(&exists)

		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Is idempotent", func(t *testing.T) {
		assert.NoError(t, Init(db.Instance))
	})
}

func TestLoadVectorsSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Creates all vector functions", func(t *testing.T) {
		err := LoadVectorsSql(db.Instance, false)
		require.NoError(t, err)

		exist, err := checkFunctions(db.Instance, VectorsFunctions)
		require.NoError(t, err)
		assert.True(t, exist)
	})

	t.Run("Skips loading when functions exist", func(t *testing.T) {
		assert.NoError(t, LoadVectorsSql(db.Instance, false))
	})

	t.Run("Force reloads functions", func(t *testing.T) {
		err := LoadVectorsSql(db.Instance, true)
		require.NoError(t, err)

		exist, err := checkFunctions(db.Instance, VectorsFunctions)
		require.NoError(t, err)
		assert.True(t, exist)
	})
}

func TestLoadNodesSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Creates all node functions", func(t *testing.T) {
		err := LoadNodesSql(db.Instance, false)
		require.NoError(t, err)

		exist, err := checkFunctions(db.Instance, NodesFunctions)
		require.NoError(t, err)
		assert.True(t, exist)
	})

	t.Run("Force reloads functions", func(t *testing.T) {
		err := LoadNodesSql(db.Instance, true)
		require.NoError(t, err)

		exist, err := checkFunctions(db.Instance, NodesFunctions)
		require.NoError(t, err)
		assert.True(t, exist)
	})
}

func TestLoadEdgesSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Creates all edge functions", func(t *testing.T) {
		err := LoadEdgesSql(db.Instance, false)
		require.NoError(t, err)

		exist, err := checkFunctions(db.Instance, EdgesFunctions)
		require.NoError(t, err)
		assert.True(t, exist)
	})

	t.Run("Force reloads functions", func(t *testing.T) {
		err := LoadEdgesSql(db.Instance, true)
		require.NoError(t, err)

		exist, err := checkFunctions(db.Instance, EdgesFunctions)
		require.NoError(t, err)
		assert.True(t, exist)
	})
}

func TestLoadAllSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	err := LoadAllSql(db.Instance, false)
	require.NoError(t, err)

	for _, functions := range [][]string{VectorsFunctions, NodesFunctions, EdgesFunctions} {
		exist, err := checkFunctions(db.Instance, functions)
		require.NoError(t, err)
		assert.True(t, exist)
	}
}

func TestCheckFunctions(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	err := LoadAllSql(db.Instance, false)
	require.NoError(t, err)

	t.Run("All existing functions", func(t *testing.T) {
		exist, err := checkFunctions(db.Instance, VectorsFunctions)

		require.NoError(t, err)
		assert.True(t, exist)
	})

	t.Run("Nonexistent function", func(t *testing.T) {
		exist, err := checkFunctions(db.Instance, []string{"definitely_not_a_function"})

		require.NoError(t, err)
		assert.False(t, exist)
	})

	t.Run("Mixed existing and nonexistent", func(t *testing.T) {
		exist, err := checkFunctions(db.Instance, []string{"merge_node", "definitely_not_a_function"})

		require.NoError(t, err)
		assert.False(t, exist)
	})

	t.Run("Empty function list", func(t *testing.T) {
		exist, err := checkFunctions(db.Instance, []string{})

		require.NoError(t, err)
		assert.False(t, exist)
	})
}

func TestEmbeddedSQL(t *testing.T) {
	assert.Contains(t, initSQL, "CREATE EXTENSION")
	assert.Contains(t, vectorsSQL, "CREATE")
	assert.Contains(t, nodesSQL, "CREATE")
	assert.Contains(t, edgesSQL, "CREATE")

	assert.NotEmpty(t, VectorsFunctions)
	assert.NotEmpty(t, NodesFunctions)
	assert.NotEmpty(t, EdgesFunctions)
}
