package redis

import "fmt"

const (
	// KeyPrefixMapping is the prefix for service mapping keys
	KeyPrefixMapping = "gateway:mapping:"
	// KeyAllMappings is the key for the set of all mapping keys
	KeyAllMappings = "gateway:mappings:all"
)

// MappingKey returns the Redis key for a mapping by its (system, service) key
func MappingKey(key string) string {
	return KeyPrefixMapping + key
}

// AllMappingsKey returns the key for the set of all mapping keys
func AllMappingsKey() string {
	return KeyAllMappings
}

// ExtractMappingKey extracts the (system, service) key from a Redis key
func ExtractMappingKey(key string) (string, error) {
	if len(key) <= len(KeyPrefixMapping) {
		return "", fmt.Errorf("invalid mapping key: %s", key)
	}
	return key[len(KeyPrefixMapping):], nil
}
