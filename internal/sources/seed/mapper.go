package seed

import (
	"fmt"
	"sort"

	"github.com/Gknightt/tts-gateway/internal/domain"
)

// Mapper converts seed file entries to domain.ServiceMapping entities
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapMappings converts a MappingsConfig to []*domain.ServiceMapping.
// Entries with empty or invalid base URLs are skipped; an entirely
// unusable file is an error. Output order is deterministic.
func (m *Mapper) MapMappings(config MappingsConfig) ([]*domain.ServiceMapping, error) {
	var mappings []*domain.ServiceMapping

	for system, services := range config.Systems {
		for service, baseURL := range services {
			if baseURL == "" {
				continue
			}

			mapping := &domain.ServiceMapping{
				System:  system,
				Service: service,
				BaseURL: baseURL,
			}
			mapping.Normalize()
			if err := mapping.Validate(); err != nil {
				// Skip malformed entries rather than failing the reload.
				continue
			}

			mappings = append(mappings, mapping)
		}
	}

	if len(mappings) == 0 {
		return nil, fmt.Errorf("no valid mappings found in seed config")
	}

	sort.Slice(mappings, func(i, j int) bool {
		return mappings[i].Key() < mappings[j].Key()
	})

	return mappings, nil
}
