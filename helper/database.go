package helper

import (
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the connection parameters for PostgreSQL
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
}

// NewDatabaseConfiguration creates a configuration from environment variables.
// A .env file is loaded first if present.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	_ = godotenv.Load()

	config := &DatabaseConfiguration{
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		Database: os.Getenv("DB_DATABASE"),
		Username: os.Getenv("DB_USERNAME"),
		Password: os.Getenv("DB_PASSWORD"),
		Schema:   os.Getenv("DB_SCHEMA"),
		SSLMode:  os.Getenv("DB_SSL_MODE"),
	}

	if config.Host == "" || config.Port == "" || config.Database == "" || config.Username == "" {
		return nil, fmt.Errorf("incomplete database configuration, need DB_HOST, DB_PORT, DB_DATABASE and DB_USERNAME")
	}
	if config.Schema == "" {
		config.Schema = "public"
	}
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	return config, nil
}

// ConnectionString builds the lib/pq connection string
func (c *DatabaseConfiguration) ConnectionString() string {
	return fmt.Sprintf(
		"host=%v port=%v dbname=%v user=%v password=%v search_path=%v sslmode=%v",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.Schema, c.SSLMode,
	)
}

// Database wraps a sql.DB instance with a name and logger
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens a PostgreSQL connection and verifies it with a ping.
// It panics if the database is not reachable, matching startup semantics.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	db, err := openAndPing(config)
	if err != nil {
		log.Panicf("error connecting to database %v: %v", name, err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host))

	return &Database{
		Name:     name,
		Instance: db,
		Logger:   logger,
	}
}

// NewTestDatabase opens a PostgreSQL connection for tests with a discarding logger
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	db, err := openAndPing(config)
	if err != nil {
		log.Panicf("error connecting to test database: %v", err)
	}

	return &Database{
		Name:     "test",
		Instance: db,
		Logger:   slog.New(slog.DiscardHandler),
	}
}

// Close closes the underlying connection
func (d *Database) Close() error {
	if d.Instance != nil {
		return d.Instance.Close()
	}
	return nil
}

func openAndPing(config *DatabaseConfiguration) (*sql.DB, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, NewError("open database", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, NewError("ping database", err)
	}

	return db, nil
}

// EnvSetter is satisfied by *testing.T.
type EnvSetter interface {
	Setenv(key string, value string)
}

// SetTestDatabaseConfigEnvs sets the database environment variables for tests
// to match the values used by MustStartPostgresContainer.
func SetTestDatabaseConfigEnvs(t EnvSetter, port string) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", port)
	t.Setenv("DB_DATABASE", "database")
	t.Setenv("DB_USERNAME", "user")
	t.Setenv("DB_PASSWORD", "password")
	t.Setenv("DB_SCHEMA", "public")
	t.Setenv("DB_SSL_MODE", "disable")
}
