package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Gknightt/tts-gateway/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ErrMappingNotFound is returned when a (system, service) pair is not present.
var ErrMappingNotFound = errors.New("mapping not found")

// Store handles Redis operations for service mappings.
//
// Mappings are stored without TTL: a pair stays registered until it is
// explicitly removed through the administrative API.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// SaveMapping stores a mapping in Redis, overwriting any previous value
// for the same (system, service) pair.
func (s *Store) SaveMapping(ctx context.Context, mapping *domain.ServiceMapping) error {
	data, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	key := MappingKey(mapping.Key())

	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}

	if err := s.client.SAdd(ctx, AllMappingsKey(), mapping.Key()).Err(); err != nil {
		return fmt.Errorf("failed to add mapping to set: %w", err)
	}

	return nil
}

// GetMapping retrieves a mapping from Redis by (system, service).
func (s *Store) GetMapping(ctx context.Context, system, service string) (*domain.ServiceMapping, error) {
	key := MappingKey(domain.MappingKey(system, service))
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s/%s", ErrMappingNotFound, system, service)
		}
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}

	var mapping domain.ServiceMapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mapping: %w", err)
	}

	return &mapping, nil
}

// GetAllMappings retrieves all mappings from Redis.
func (s *Store) GetAllMappings(ctx context.Context) ([]*domain.ServiceMapping, error) {
	keys, err := s.client.SMembers(ctx, AllMappingsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping keys: %w", err)
	}

	if len(keys) == 0 {
		return []*domain.ServiceMapping{}, nil
	}

	mappings := make([]*domain.ServiceMapping, 0, len(keys))
	for _, key := range keys {
		data, err := s.client.Get(ctx, MappingKey(key)).Bytes()
		if err != nil {
			// Skip mappings whose value is gone; the set entry is stale.
			continue
		}
		var mapping domain.ServiceMapping
		if err := json.Unmarshal(data, &mapping); err != nil {
			continue
		}
		mappings = append(mappings, &mapping)
	}

	return mappings, nil
}

// DeleteMapping removes a mapping from Redis.
func (s *Store) DeleteMapping(ctx context.Context, system, service string) error {
	key := domain.MappingKey(system, service)

	if err := s.client.Del(ctx, MappingKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}

	if err := s.client.SRem(ctx, AllMappingsKey(), key).Err(); err != nil {
		return fmt.Errorf("failed to remove mapping from set: %w", err)
	}

	return nil
}

// SaveMappingsMany stores multiple mappings in Redis (bulk operation).
func (s *Store) SaveMappingsMany(ctx context.Context, mappings []*domain.ServiceMapping) error {
	pipe := s.client.Pipeline()

	for _, mapping := range mappings {
		data, err := json.Marshal(mapping)
		if err != nil {
			return fmt.Errorf("failed to marshal mapping %s: %w", mapping.Key(), err)
		}

		pipe.Set(ctx, MappingKey(mapping.Key()), data, 0)
		pipe.SAdd(ctx, AllMappingsKey(), mapping.Key())
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save mappings: %w", err)
	}

	return nil
}
