package datastore

import (
	"context"

	"formfill-poc/internal/mapping"
	"formfill-poc/internal/mocks"
	"formfill-poc/internal/store"
)

// SourceStore is the read API the mapping engine consumes. Implementations
// assemble the flat source record by joining the underlying operational
// entities (client, property, transaction, agent).
type SourceStore interface {
	// FetchRecord resolves one source record by transaction identifier.
	// It returns mapping.ErrRecordNotFound when no record exists and a
	// *mapping.RepositoryError for transport or storage failures.
	FetchRecord(ctx context.Context, recordID string) (mapping.SourceRecord, error)

	// Close releases the store's resources.
	Close() error
}

// Type selects a source store backend.
type Type string

const (
	// PostgreSQLStore reads from the office's operational database.
	PostgreSQLStore Type = "postgresql"
	// MockStore reads JSON fixture records for offline development.
	MockStore Type = "mock"
)

// Config holds source store creation settings.
type Config struct {
	Type             Type
	ConnectionString string
	MockDataPath     string
	MaxOpenConns     int
	MaxIdleConns     int
}

// NewSourceStore creates a source store from configuration.
func NewSourceStore(cfg Config) (SourceStore, error) {
	switch cfg.Type {
	case PostgreSQLStore:
		return store.NewPostgresStore(cfg.ConnectionString, cfg.MaxOpenConns, cfg.MaxIdleConns)
	case MockStore:
		return mocks.NewMockStore(cfg.MockDataPath), nil
	default:
		return nil, &UnsupportedStoreTypeError{Type: string(cfg.Type)}
	}
}

// UnsupportedStoreTypeError is returned when an unsupported store type is
// requested.
type UnsupportedStoreTypeError struct {
	Type string
}

func (e *UnsupportedStoreTypeError) Error() string {
	return "unsupported store type: " + e.Type
}
