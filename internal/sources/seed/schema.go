package seed

// MappingsConfig represents the top-level structure of mappings.yaml.
// System and service names are dynamic keys:
//
//	systems:
//	  TTS:
//	    Ticket: http://localhost:8004
//	    Workflow: http://localhost:8005
type MappingsConfig struct {
	Systems map[string]map[string]string `yaml:"systems"`
}
