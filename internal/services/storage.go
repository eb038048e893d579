package services

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Storage keeps media objects.
type Storage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	GetSignedURL(ctx context.Context, path string, duration time.Duration) (string, error)
}

// MemoryStorage keeps objects in process. It backs STORAGE_PROVIDER=none and tests.
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	baseURL string
	FailOn  func(key string) error
}

func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte), baseURL: baseURL}
}

func (m *MemoryStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	if m.FailOn != nil {
		if err := m.FailOn(key); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStorage) GetSignedURL(_ context.Context, path string, _ time.Duration) (string, error) {
	return fmt.Sprintf("%s/media/%s", m.baseURL, path), nil
}

// Get returns a copy of the object stored under key.
func (m *MemoryStorage) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return append([]byte(nil), data...), ok
}

// Len returns the number of stored objects.
func (m *MemoryStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
