package world

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlWorldFile is the top-level YAML structure for world files.
type yamlWorldFile struct {
	World *World `yaml:"world"`
}

// LoadFromBytes parses and validates a world from YAML bytes.
//
// Precondition: data must be valid YAML with a top-level "world" key.
// Postcondition: Returns a validated World or a non-nil error.
func LoadFromBytes(data []byte) (*World, error) {
	var file yamlWorldFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing world YAML: %w", err)
	}
	if file.World == nil {
		return nil, fmt.Errorf("world YAML missing top-level 'world' key")
	}
	if err := file.World.Validate(); err != nil {
		return nil, fmt.Errorf("validating world: %w", err)
	}
	return file.World, nil
}

// LoadFromFile reads and validates a single world YAML file.
//
// Precondition: path must point to a readable YAML world file.
// Postcondition: Returns a validated World or a non-nil error.
func LoadFromFile(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading world file %s: %w", path, err)
	}
	w, err := LoadFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return w, nil
}
