package index

import (
	"sync"
	"time"

	"github.com/Gknightt/tts-gateway/internal/domain"
)

// MemoryIndex provides in-memory storage and lookup for service mappings.
// It acts as a fallback when Redis is unavailable.
type MemoryIndex struct {
	mu         sync.RWMutex
	mappings   map[string]*domain.ServiceMapping // key -> mapping
	lastReload time.Time
}

// NewMemoryIndex creates a new memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		mappings: make(map[string]*domain.ServiceMapping),
	}
}

// ReplaceAll swaps the whole index for the given mappings.
func (idx *MemoryIndex) ReplaceAll(mappings []*domain.ServiceMapping) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.mappings = make(map[string]*domain.ServiceMapping, len(mappings))
	for _, m := range mappings {
		idx.mappings[m.Key()] = m
	}
	idx.lastReload = time.Now()
}

// Put inserts or overwrites a single mapping.
func (idx *MemoryIndex) Put(m *domain.ServiceMapping) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.mappings[m.Key()] = m
}

// Get retrieves a mapping by (system, service).
func (idx *MemoryIndex) Get(system, service string) (*domain.ServiceMapping, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	m, ok := idx.mappings[domain.MappingKey(system, service)]
	return m, ok
}

// Delete removes a mapping by (system, service).
func (idx *MemoryIndex) Delete(system, service string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.mappings, domain.MappingKey(system, service))
}

// GetAll returns all mappings.
func (idx *MemoryIndex) GetAll() []*domain.ServiceMapping {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	mappings := make([]*domain.ServiceMapping, 0, len(idx.mappings))
	for _, m := range idx.mappings {
		mappings = append(mappings, m)
	}
	return mappings
}

// Count returns the number of mappings in the index.
func (idx *MemoryIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.mappings)
}

// GetLastReload returns the timestamp of the last full reload.
func (idx *MemoryIndex) GetLastReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastReload
}
