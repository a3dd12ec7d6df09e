package config

import (
	"os"
	"strconv"
	"strings"

	"formfill-poc/internal/datastore"
)

// GetSourceStoreConfig returns the source store configuration based on
// environment variables.
func GetSourceStoreConfig() datastore.Config {
	storeType := os.Getenv("FORM_STORE_TYPE")
	if storeType == "" {
		storeType = "postgresql"
	}

	cfg := datastore.Config{
		MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 2),
	}

	switch strings.ToLower(storeType) {
	case "mock":
		cfg.Type = datastore.MockStore
		cfg.MockDataPath = getMockDataPath()
	case "postgresql", "postgres", "db":
		cfg.Type = datastore.PostgreSQLStore
		cfg.ConnectionString = getConnectionString()
	default:
		cfg.Type = datastore.PostgreSQLStore
		cfg.ConnectionString = getConnectionString()
	}

	return cfg
}

// getMockDataPath returns the path to mock record fixtures.
func getMockDataPath() string {
	path := os.Getenv("FORM_MOCK_DATA_PATH")
	if path == "" {
		return "data/mocks"
	}
	return path
}

// getConnectionString returns the database connection string.
func getConnectionString() string {
	connStr := os.Getenv("DB_CONN_STRING")
	if connStr == "" {
		// Default connection string for local development
		return "postgres://localhost:5432/postgres?sslmode=disable"
	}
	return connStr
}

func getIntEnv(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// IsMockMode returns true if running against fixture records.
func IsMockMode() bool {
	return strings.EqualFold(os.Getenv("FORM_STORE_TYPE"), "mock")
}
