package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ EnvSetter = (*testing.T)(nil)

func TestNewDatabaseConfiguration(t *testing.T) {
	t.Run("Complete configuration", func(t *testing.T) {
		SetTestDatabaseConfigEnvs(t, "5432")

		config, err := NewDatabaseConfiguration()

		require.NoError(t, err)
		assert.Equal(t, "localhost", config.Host)
		assert.Equal(t, "5432", config.Port)
		assert.Contains(t, config.ConnectionString(), "dbname=database")
		assert.Contains(t, config.ConnectionString(), "sslmode=disable")
	})

	t.Run("Defaults schema and ssl mode", func(t *testing.T) {
		SetTestDatabaseConfigEnvs(t, "5432")
		t.Setenv("DB_SCHEMA", "")
		t.Setenv("DB_SSL_MODE", "")

		config, err := NewDatabaseConfiguration()

		require.NoError(t, err)
		assert.Equal(t, "public", config.Schema)
		assert.Equal(t, "disable", config.SSLMode)
	})

	t.Run("Missing host fails", func(t *testing.T) {
		SetTestDatabaseConfigEnvs(t, "5432")
		t.Setenv("DB_HOST", "")

		config, err := NewDatabaseConfiguration()

		assert.Error(t, err)
		assert.Nil(t, config)
	})
}
