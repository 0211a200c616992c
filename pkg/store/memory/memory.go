// Package memory provides an in-process ObjectStore used by tests. It
// mirrors the conditional-write semantics of the S3 backend with monotonic
// revision counters standing in for ETags.
package memory

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/nextier/graph-etl/pkg/store"
)

type object struct {
	data []byte
	etag string
}

// MemoryStore is a thread-safe map-backed ObjectStore.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]object
	rev     int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]object),
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, "", store.ErrNotFound
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return data, obj.etag, nil
}

func (m *MemoryStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(key, data)
	return nil
}

func (m *MemoryStore) PutIf(ctx context.Context, key string, data []byte, etag string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, exists := m.objects[key]
	if etag == "" {
		if exists {
			return store.ErrConflict
		}
	} else if !exists || obj.etag != etag {
		return store.ErrConflict
	}
	m.set(key, data)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Len reports the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func (m *MemoryStore) set(key string, data []byte) {
	m.rev++
	stored := make([]byte, len(data))
	copy(stored, data)
	m.objects[key] = object{data: stored, etag: strconv.FormatInt(m.rev, 10)}
}
