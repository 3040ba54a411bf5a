package npc

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadDefinitionFromBytes parses a single NPC definition from raw YAML bytes.
// Unknown fields are rejected. Physical defaults to true when omitted.
//
// Postcondition: Returns a validated *Definition, or an error.
func LoadDefinitionFromBytes(data []byte) (*Definition, error) {
	def := Definition{Physical: true}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("parsing npc definition YAML: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadDefinitions reads all *.yaml files in dir and returns the parsed
// definitions in file name order.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all definitions or an error on the first parse or
// validate failure; on error, the partial result is discarded.
func LoadDefinitions(dir string) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading npc dir %q: %w", dir, err)
	}

	var defs []*Definition
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		def, err := LoadDefinitionFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		if prev, ok := seen[def.ID]; ok {
			return nil, fmt.Errorf("loading %q: %w: %q also defined in %q", path, ErrDuplicateDefinition, def.ID, prev)
		}
		seen[def.ID] = path
		defs = append(defs, def)
	}
	return defs, nil
}
