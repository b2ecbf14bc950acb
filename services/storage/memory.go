package storagesvc

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/genzugar/backend/core"
)

// MemoryStorage keeps objects in memory. Used by tests and when no bucket is configured.
type MemoryStorage struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string][]byte
}

var _ core.ObjectStorage = (*MemoryStorage)(nil) // interface compliance check

func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{baseURL: strings.TrimRight(baseURL, "/"), objects: make(map[string][]byte)}
}

func (s *MemoryStorage) Upload(_ context.Context, key string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", key)
	}
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return s.PublicURL(key), nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) PublicURL(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}

// Get returns a copy of the object stored under key.
func (s *MemoryStorage) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	return bytes.Clone(data), ok
}

func (s *MemoryStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}
