package seed

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of the mappings.yaml seed file
type Loader struct {
	filePath string
}

// NewLoader creates a new seed loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads and parses the mappings.yaml file.
// Environment references in base URLs (${TICKET_HOST}) are expanded so
// one seed file can serve several deployments.
func (l *Loader) Load() (MappingsConfig, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return MappingsConfig{}, fmt.Errorf("failed to read mappings file: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var config MappingsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return MappingsConfig{}, fmt.Errorf("failed to parse mappings yaml: %w", err)
	}

	return config, nil
}
