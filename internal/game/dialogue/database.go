package dialogue

import (
	"fmt"
	"regexp"
	"sort"
)

var snippetRef = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\.([A-Za-z0-9_]+)\s*\}\}`)

// SnippetRef names a database entry referenced from node text.
type SnippetRef struct {
	Module string
	Key    string
}

func (r SnippetRef) String() string { return fmt.Sprintf("%s.%s", r.Module, r.Key) }

// References extracts every {{module.key}} reference in text, in order.
func References(text string) []SnippetRef {
	var refs []SnippetRef
	for _, m := range snippetRef.FindAllStringSubmatch(text, -1) {
		refs = append(refs, SnippetRef{Module: m[1], Key: m[2]})
	}
	return refs
}

// Database holds reusable text snippets grouped by module.
type Database struct {
	modules map[string]map[string]string
}

// NewDatabase returns an empty database.
func NewDatabase() *Database {
	return &Database{modules: make(map[string]map[string]string)}
}

// WithModuleEntry stores text under module/key, replacing any previous value,
// and returns d for chaining.
func (d *Database) WithModuleEntry(module, key, text string) *Database {
	m, ok := d.modules[module]
	if !ok {
		m = make(map[string]string)
		d.modules[module] = m
	}
	m[key] = text
	return d
}

// Lookup returns the snippet at module/key.
func (d *Database) Lookup(module, key string) (string, bool) {
	if d == nil {
		return "", false
	}
	text, ok := d.modules[module][key]
	return text, ok
}

// Modules returns the module names in sorted order.
func (d *Database) Modules() []string {
	out := make([]string, 0, len(d.modules))
	for m := range d.modules {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Expand substitutes every snippet reference in text. Snippets are not
// expanded recursively.
//
// Postcondition: Returns the expanded text, or an error naming the first
// unresolved reference together with text unchanged.
func (d *Database) Expand(text string) (string, error) {
	var missing *SnippetRef
	out := snippetRef.ReplaceAllStringFunc(text, func(match string) string {
		m := snippetRef.FindStringSubmatch(match)
		v, ok := d.Lookup(m[1], m[2])
		if !ok {
			if missing == nil {
				missing = &SnippetRef{Module: m[1], Key: m[2]}
			}
			return match
		}
		return v
	})
	if missing != nil {
		return text, fmt.Errorf("unknown snippet %s", missing)
	}
	return out, nil
}
