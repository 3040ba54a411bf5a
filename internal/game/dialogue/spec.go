package dialogue

import (
	"errors"
	"fmt"
)

// NodeSpec is the YAML form of a node.
type NodeSpec struct {
	ID      string   `yaml:"id"`
	Text    string   `yaml:"text"`
	Choices []Choice `yaml:"choices"`
}

// ContainerSpec is the YAML form of a container.
type ContainerSpec struct {
	Name  string     `yaml:"name"`
	Nodes []NodeSpec `yaml:"nodes"`
}

// Spec is the YAML form of an NPC's dialogue. Handler maps bind choice and
// node IDs to script function names; the npc package resolves them.
type Spec struct {
	Database   map[string]map[string]string `yaml:"database"`
	Containers []ContainerSpec              `yaml:"containers"`
	Interact   string                       `yaml:"interact"`
	OnChoice   map[string]string            `yaml:"on_choice"`
	OnNode     map[string]string            `yaml:"on_node"`
}

// Empty reports whether s declares no dialogue.
func (s Spec) Empty() bool {
	return len(s.Containers) == 0 && len(s.Database) == 0
}

// BuildDatabase returns the snippet database, or nil when none is declared.
func (s Spec) BuildDatabase() *Database {
	if len(s.Database) == 0 {
		return nil
	}
	db := NewDatabase()
	for module, entries := range s.Database {
		for key, text := range entries {
			db.WithModuleEntry(module, key, text)
		}
	}
	return db
}

// BuildContainers assembles every declared container.
func (s Spec) BuildContainers() ([]*Container, error) {
	out := make([]*Container, 0, len(s.Containers))
	var errs []error
	for _, cs := range s.Containers {
		b := NewBuilder(cs.Name)
		for _, ns := range cs.Nodes {
			b = b.AddNode(ns.ID, ns.Text, ns.Choices...)
		}
		ct, err := b.Build()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, ct)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Validate checks every container against the declared database, that the
// interaction container exists, and that every handler binding names a
// declared choice or node.
func (s Spec) Validate() error {
	cts, err := s.BuildContainers()
	if err != nil {
		return err
	}
	db := s.BuildDatabase()
	var errs []error
	names := make(map[string]bool)
	choices := make(map[string]bool)
	nodes := make(map[string]bool)
	for _, ct := range cts {
		if names[ct.Name] {
			errs = append(errs, fmt.Errorf("duplicate dialogue container %q", ct.Name))
		}
		names[ct.Name] = true
		if err := ct.Validate(db); err != nil {
			errs = append(errs, err)
		}
		for _, n := range ct.Nodes() {
			nodes[n.ID] = true
			for _, ch := range n.Choices {
				choices[ch.ID] = true
			}
		}
	}
	if s.Interact != "" && !names[s.Interact] {
		errs = append(errs, fmt.Errorf("interact container %q is not declared", s.Interact))
	}
	if s.Interact == "" && len(cts) > 0 {
		errs = append(errs, errors.New("interact container must be set when containers are declared"))
	}
	for id, fn := range s.OnChoice {
		if !choices[id] {
			errs = append(errs, fmt.Errorf("on_choice %q bound to %q: no such choice", id, fn))
		}
	}
	for id, fn := range s.OnNode {
		if !nodes[id] {
			errs = append(errs, fmt.Errorf("on_node %q bound to %q: no such node", id, fn))
		}
	}
	return errors.Join(errs...)
}
