// Package dialogue implements NPC conversation graphs: named containers of
// nodes linked by choices, a snippet database for reusable text, and a
// per-NPC controller that walks the graph under the process-wide focus slot.
package dialogue

import (
	"errors"
	"fmt"
)

// EntryNode is the node displayed when a container is opened by interaction.
const EntryNode = "ENTRY"

// Choice is a player-selectable option on a node.
type Choice struct {
	ID     string `yaml:"id"`
	Label  string `yaml:"label"`
	Target string `yaml:"target"`
}

// Node is one displayed line of dialogue. A node without choices is terminal.
type Node struct {
	ID      string
	Text    string
	Choices []Choice
}

// Terminal reports whether n has no outgoing choices.
func (n *Node) Terminal() bool { return len(n.Choices) == 0 }

// Choice returns the choice with id on n.
func (n *Node) Choice(id string) (Choice, bool) {
	for _, ch := range n.Choices {
		if ch.ID == id {
			return ch, true
		}
	}
	return Choice{}, false
}

// Container is a named dialogue graph.
type Container struct {
	Name  string
	nodes map[string]*Node
	order []string
}

// Node returns the node with id.
func (c *Container) Node(id string) (*Node, bool) {
	n, ok := c.nodes[id]
	return n, ok
}

// Nodes returns the nodes in declaration order.
func (c *Container) Nodes() []*Node {
	out := make([]*Node, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.nodes[id])
	}
	return out
}

// Validate checks the graph's structure, and snippet references against db
// when db is non-nil.
//
// Postcondition: Returns nil iff Name is non-empty, an ENTRY node exists,
// every choice ID is unique within its node, every choice target names a node
// of this container, and every {{module.key}} reference resolves in db.
func (c *Container) Validate(db *Database) error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("container name must not be empty"))
	}
	if _, ok := c.nodes[EntryNode]; !ok {
		errs = append(errs, fmt.Errorf("container %q: missing %s node", c.Name, EntryNode))
	}
	for _, id := range c.order {
		n := c.nodes[id]
		seen := make(map[string]bool, len(n.Choices))
		for _, ch := range n.Choices {
			if ch.ID == "" {
				errs = append(errs, fmt.Errorf("container %q node %q: choice with empty id", c.Name, id))
				continue
			}
			if seen[ch.ID] {
				errs = append(errs, fmt.Errorf("container %q node %q: duplicate choice %q", c.Name, id, ch.ID))
			}
			seen[ch.ID] = true
			if _, ok := c.nodes[ch.Target]; !ok {
				errs = append(errs, fmt.Errorf("container %q node %q: choice %q targets unknown node %q", c.Name, id, ch.ID, ch.Target))
			}
		}
		for _, ref := range References(n.Text) {
			if db == nil {
				errs = append(errs, fmt.Errorf("container %q node %q: snippet %s referenced but no database is set", c.Name, id, ref))
				continue
			}
			if _, ok := db.Lookup(ref.Module, ref.Key); !ok {
				errs = append(errs, fmt.Errorf("container %q node %q: unknown snippet %s", c.Name, id, ref))
			}
		}
	}
	return errors.Join(errs...)
}

type nodeDecl struct {
	id      string
	text    string
	choices []Choice
}

// Builder accumulates nodes for a container. Each method returns a new
// Builder, leaving the receiver unchanged.
type Builder struct {
	name  string
	nodes []nodeDecl
}

// NewBuilder starts a container named name.
func NewBuilder(name string) Builder {
	return Builder{name: name}
}

// AddNode appends a node. Omitting choices declares a terminal node.
func (b Builder) AddNode(id, text string, choices ...Choice) Builder {
	decl := nodeDecl{id: id, text: text, choices: append([]Choice(nil), choices...)}
	return Builder{name: b.name, nodes: append(b.nodes[:len(b.nodes):len(b.nodes)], decl)}
}

// Build assembles the container and checks node identity. Choice targets and
// snippet references are checked by Container.Validate at registration.
//
// Postcondition: Returns a container or the joined errors for empty and
// duplicate node IDs.
func (b Builder) Build() (*Container, error) {
	c := &Container{Name: b.name, nodes: make(map[string]*Node, len(b.nodes))}
	var errs []error
	for _, d := range b.nodes {
		if d.id == "" {
			errs = append(errs, fmt.Errorf("container %q: node with empty id", b.name))
			continue
		}
		if _, dup := c.nodes[d.id]; dup {
			errs = append(errs, fmt.Errorf("container %q: duplicate node %q", b.name, d.id))
			continue
		}
		c.nodes[d.id] = &Node{ID: d.id, Text: d.text, Choices: d.choices}
		c.order = append(c.order, d.id)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}
