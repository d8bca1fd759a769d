package storage

import (
	"context"
	"sync"
)

type object struct {
	contentType string
	data        []byte
}

// Memory keeps blobs in process; used in development and tests.
type Memory struct {
	baseURL
	mu      sync.RWMutex
	objects map[string]object
}

func NewMemory(publicBase string) *Memory {
	return &Memory{baseURL: baseURL(publicBase), objects: map[string]object{}}
}

func (m *Memory) Put(_ context.Context, key, contentType string, data []byte) error {
	m.mu.Lock()
	m.objects[key] = object{contentType: contentType, data: append([]byte(nil), data...)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Get returns a stored object.
func (m *Memory) Get(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.data, obj.contentType, ok
}
