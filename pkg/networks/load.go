package networks

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a registry from a YAML file, normalizes its chain ids and validates it.
// An empty path yields the default registry.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}

	return Parse(data)
}

// Parse decodes a YAML registry document.
func Parse(data []byte) (*Registry, error) {
	var reg Registry
	err := yaml.Unmarshal(data, &reg)
	if err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}

	reg.Normalize()

	err = reg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate registry: %w", err)
	}

	return &reg, nil
}
