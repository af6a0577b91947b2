package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MockReportStorage is an in-memory ReportStorage for testing
type MockReportStorage struct {
	files   map[string][]byte
	mu      sync.RWMutex
	SaveErr error
}

// NewMockReportStorage creates a new mock report storage
func NewMockReportStorage() *MockReportStorage {
	return &MockReportStorage{
		files: make(map[string][]byte),
	}
}

func (m *MockReportStorage) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if m.SaveErr != nil {
		return "", m.SaveErr
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.files[name]; exists {
		return "", ErrObjectExists
	}
	m.files[name] = content

	return name, nil
}

func (m *MockReportStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	m.mu.RLock()
	content, exists := m.files[name]
	m.mu.RUnlock()

	if !exists {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (m *MockReportStorage) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	delete(m.files, name)
	m.mu.Unlock()
	return nil
}

// Files returns a copy of all stored files (for testing assertions)
func (m *MockReportStorage) Files() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make(map[string][]byte, len(m.files))
	for k, v := range m.files {
		files[k] = v
	}
	return files
}

// Exists checks if a file exists in mock storage
func (m *MockReportStorage) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.files[name]
	return exists
}
