package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// SourceSeed marks mappings written by the seed file reloader.
	SourceSeed = "seed"
	// SourceAPI marks mappings written through the administrative API.
	SourceAPI = "api"
)

// ServiceMapping binds a logical (system, service) pair to the base URL
// of the backend deployment that serves it.
//
// The pair is unique within the registry: at most one BaseURL is
// associated with a pair at any time. The forwarding path only reads
// mappings; all mutation happens through the administrative API or the
// seed reloader.
type ServiceMapping struct {
	// System is the owning system identifier. Example: TTS
	System string `json:"system"`

	// Service is the service identifier within the system. Example: Ticket
	Service string `json:"service"`

	// BaseURL is the absolute URL of the backend, no trailing slash.
	BaseURL string `json:"base_url"`

	// Sources indicates where this mapping was written from.
	// Example: seed, api
	Sources []string `json:"sources,omitempty"`

	// CreatedAt is the first time the pair was registered.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is bumped on every upsert, including no-op overwrites.
	UpdatedAt time.Time `json:"updated_at"`
}

// MappingKey returns the canonical registry key for a pair.
func MappingKey(system, service string) string {
	return system + "/" + service
}

// Key returns the canonical registry key of the mapping.
func (m *ServiceMapping) Key() string {
	return MappingKey(m.System, m.Service)
}

// Validate checks identifiers and the base URL. It rejects empty or
// slash-containing identifiers (they would corrupt the routing path) and
// non-absolute base URLs.
func (m *ServiceMapping) Validate() error {
	if err := validateIdentifier("system", m.System); err != nil {
		return err
	}
	if err := validateIdentifier("service", m.Service); err != nil {
		return err
	}
	u, err := url.Parse(m.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url %q: %w", m.BaseURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("base_url %q must be an absolute URL", m.BaseURL)
	}
	return nil
}

// Normalize strips the trailing slash from BaseURL so target URLs are
// always built as base + "/" + tail.
func (m *ServiceMapping) Normalize() {
	m.BaseURL = strings.TrimRight(m.BaseURL, "/")
}

// HasSource reports whether the mapping was ever written from the given source.
func (m *ServiceMapping) HasSource(source string) bool {
	for _, s := range m.Sources {
		if s == source {
			return true
		}
	}
	return false
}

// AddSource records a source, keeping the list free of duplicates.
func (m *ServiceMapping) AddSource(source string) {
	if !m.HasSource(source) {
		m.Sources = append(m.Sources, source)
	}
}

func validateIdentifier(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	if strings.Contains(value, "/") {
		return fmt.Errorf("%s %q must not contain '/'", field, value)
	}
	return nil
}
