// Package mocks provides a JSON-file source store for offline development
// and tests: one fixture file per record under the mock data path.
package mocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"formfill-poc/internal/mapping"
)

// MockStore serves source records from JSON fixture files named
// <record_id>.json. Files are parsed once and cached.
type MockStore struct {
	dataPath string

	mu    sync.RWMutex
	cache map[string]mapping.SourceRecord
}

// NewMockStore creates a mock store over a fixture directory.
func NewMockStore(dataPath string) *MockStore {
	return &MockStore{
		dataPath: dataPath,
		cache:    make(map[string]mapping.SourceRecord),
	}
}

// FetchRecord loads one fixture record.
func (m *MockStore) FetchRecord(ctx context.Context, recordID string) (mapping.SourceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, &mapping.RepositoryError{Op: "fetch record " + recordID, Err: err}
	}

	m.mu.RLock()
	rec, ok := m.cache[recordID]
	m.mu.RUnlock()
	if ok {
		return rec, nil
	}

	path := filepath.Join(m.dataPath, recordID+".json")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("record %s: %w", recordID, mapping.ErrRecordNotFound)
	}
	if err != nil {
		return nil, &mapping.RepositoryError{Op: "read fixture " + path, Err: err}
	}

	rec = mapping.SourceRecord{}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &mapping.RepositoryError{Op: "parse fixture " + path, Err: err}
	}

	m.mu.Lock()
	m.cache[recordID] = rec
	m.mu.Unlock()

	return rec, nil
}

// Close is a no-op; fixture files need no cleanup.
func (m *MockStore) Close() error {
	return nil
}
