package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gknightt/tts-gateway/internal/domain"
	"github.com/Gknightt/tts-gateway/internal/index"
	"github.com/Gknightt/tts-gateway/internal/logger"
	redisstore "github.com/Gknightt/tts-gateway/internal/store/redis"
)

var (
	// ErrNotFound is returned when a (system, service) pair is not registered.
	ErrNotFound = errors.New("service not registered")
	// ErrInvalidMapping is returned when an upsert carries bad identifiers
	// or a non-absolute base URL.
	ErrInvalidMapping = errors.New("invalid mapping")
)

// Registry is the lookup table from (system, service) pairs to backend
// base URLs. Redis is the authoritative store; the memory index mirrors
// it and serves lookups when Redis is unavailable (degraded mode).
type Registry struct {
	store  *redisstore.Store
	index  *index.MemoryIndex
	logger logger.Logger
}

// New creates a registry over the given store and index.
func New(store *redisstore.Store, idx *index.MemoryIndex, log logger.Logger) *Registry {
	return &Registry{
		store:  store,
		index:  idx,
		logger: log,
	}
}

// Lookup resolves a (system, service) pair to its mapping. It reads the
// latest committed mapping from Redis; if Redis is unreachable it falls
// back to the memory index.
func (r *Registry) Lookup(ctx context.Context, system, service string) (*domain.ServiceMapping, error) {
	mapping, err := r.store.GetMapping(ctx, system, service)
	if err == nil {
		return mapping, nil
	}
	if errors.Is(err, redisstore.ErrMappingNotFound) {
		return nil, ErrNotFound
	}

	// Redis is down or misbehaving; serve from memory.
	r.logger.Warn("registry lookup falling back to memory index",
		logger.String("system", system),
		logger.String("service", service),
		logger.Error(err))

	if m, ok := r.index.Get(system, service); ok {
		return m, nil
	}
	return nil, ErrNotFound
}

// Resolve returns the base URL for a pair, reporting a miss instead of
// an error. This is the shape the forwarder consumes on the hot path.
func (r *Registry) Resolve(ctx context.Context, system, service string) (string, bool, error) {
	mapping, err := r.Lookup(ctx, system, service)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return mapping.BaseURL, true, nil
}

// Upsert registers or overwrites the mapping for a pair. It reports
// whether a new mapping was created. CreatedAt and accumulated sources
// survive overwrites.
func (r *Registry) Upsert(ctx context.Context, mapping *domain.ServiceMapping, source string) (bool, error) {
	mapping.Normalize()
	if err := mapping.Validate(); err != nil {
		return false, fmt.Errorf("%w: %s", ErrInvalidMapping, err)
	}

	now := time.Now()
	created := true

	existing, err := r.store.GetMapping(ctx, mapping.System, mapping.Service)
	if err == nil {
		created = false
		mapping.CreatedAt = existing.CreatedAt
		mapping.Sources = existing.Sources
	} else if !errors.Is(err, redisstore.ErrMappingNotFound) {
		return false, err
	} else {
		mapping.CreatedAt = now
	}

	mapping.UpdatedAt = now
	mapping.AddSource(source)

	if err := r.store.SaveMapping(ctx, mapping); err != nil {
		return false, err
	}
	r.index.Put(mapping)

	return created, nil
}

// UpsertMany registers a batch of mappings in one pipeline. Invalid
// entries fail the whole batch before anything is written.
func (r *Registry) UpsertMany(ctx context.Context, mappings []*domain.ServiceMapping, source string) error {
	now := time.Now()

	for _, mapping := range mappings {
		mapping.Normalize()
		if err := mapping.Validate(); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidMapping, err)
		}

		existing, err := r.store.GetMapping(ctx, mapping.System, mapping.Service)
		if err == nil {
			mapping.CreatedAt = existing.CreatedAt
			mapping.Sources = existing.Sources
		} else if !errors.Is(err, redisstore.ErrMappingNotFound) {
			return err
		} else {
			mapping.CreatedAt = now
		}
		mapping.UpdatedAt = now
		mapping.AddSource(source)
	}

	if err := r.store.SaveMappingsMany(ctx, mappings); err != nil {
		return err
	}
	for _, mapping := range mappings {
		r.index.Put(mapping)
	}

	return nil
}

// Delete removes a pair from the registry. Returns ErrNotFound if the
// pair was never registered.
func (r *Registry) Delete(ctx context.Context, system, service string) error {
	if _, err := r.store.GetMapping(ctx, system, service); err != nil {
		if errors.Is(err, redisstore.ErrMappingNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := r.store.DeleteMapping(ctx, system, service); err != nil {
		return err
	}
	r.index.Delete(system, service)

	return nil
}

// ListAll returns every registered mapping, falling back to the memory
// index when Redis is unavailable.
func (r *Registry) ListAll(ctx context.Context) ([]*domain.ServiceMapping, error) {
	mappings, err := r.store.GetAllMappings(ctx)
	if err != nil {
		r.logger.Warn("registry list falling back to memory index",
			logger.Error(err))
		return r.index.GetAll(), nil
	}
	return mappings, nil
}
