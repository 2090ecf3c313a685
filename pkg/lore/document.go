// Package lore models the on-disk lore corpus: one YAML document per
// story arc, each a flat set of top-level bindings. Documents keep the
// raw bytes of every binding so edits can replace one binding without
// disturbing the formatting of any other.
package lore

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// topKeyRe matches the start of a top-level binding: an identifier at
// column zero followed by a colon.
var topKeyRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.-]*):`)

// Entry is one top-level binding. Lead holds the comment and blank
// lines that introduce the binding; Raw holds the binding's exact
// source bytes from the key line on. Replacing a binding swaps Raw and
// keeps Lead, so an introducing comment survives the edit.
type Entry struct {
	Key  string
	Lead []byte
	Raw  []byte
}

// Document is a parsed lore file: a prelude (comments and blank lines
// before the first binding) followed by ordered entries.
type Document struct {
	Name    string
	Prelude []byte
	Entries []Entry
}

// Parse splits a lore file into its top-level bindings and verifies the
// whole document is valid YAML.
func Parse(name string, data []byte) (*Document, error) {
	var probe map[string]any
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("lore file %s is not valid YAML: %w", name, err)
	}

	doc := &Document{Name: name}
	lines := bytes.SplitAfter(data, []byte("\n"))
	var current *Entry
	var pending []byte
	for _, line := range lines {
		if m := topKeyRe.FindSubmatch(line); m != nil {
			doc.Entries = append(doc.Entries, Entry{Key: string(m[1]), Lead: pending})
			pending = nil
			current = &doc.Entries[len(doc.Entries)-1]
			current.Raw = append(current.Raw, line...)
			continue
		}
		if current == nil {
			doc.Prelude = append(doc.Prelude, line...)
			continue
		}
		trimmed := bytes.TrimRight(line, "\n")
		// Column-zero comments and blank lines introduce whatever
		// comes next, not the binding above them.
		if len(trimmed) == 0 || trimmed[0] == '#' {
			pending = append(pending, line...)
			continue
		}
		current.Raw = append(current.Raw, pending...)
		pending = nil
		current.Raw = append(current.Raw, line...)
	}
	// Nothing follows trailing lines, so they stay with the last
	// binding.
	if current != nil {
		current.Raw = append(current.Raw, pending...)
	} else {
		doc.Prelude = append(doc.Prelude, pending...)
	}
	return doc, nil
}

// Bytes reassembles the document source.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	buf.Write(d.Prelude)
	for _, e := range d.Entries {
		buf.Write(e.Lead)
		buf.Write(e.Raw)
	}
	return buf.Bytes()
}

// Keys lists the binding names in source order.
func (d *Document) Keys() []string {
	keys := make([]string, 0, len(d.Entries))
	for _, e := range d.Entries {
		keys = append(keys, e.Key)
	}
	return keys
}

// HasKey reports whether a top-level binding exists.
func (d *Document) HasKey(key string) bool {
	for _, e := range d.Entries {
		if e.Key == key {
			return true
		}
	}
	return false
}

// Value decodes one binding's value into v.
func (d *Document) Value(key string, v any) error {
	for _, e := range d.Entries {
		if e.Key != key {
			continue
		}
		var m map[string]yaml.Node
		if err := yaml.Unmarshal(e.Raw, &m); err != nil {
			return fmt.Errorf("binding %s in %s: %w", key, d.Name, err)
		}
		node, ok := m[key]
		if !ok {
			return fmt.Errorf("binding %s in %s: key not found after parse", key, d.Name)
		}
		return node.Decode(v)
	}
	return fmt.Errorf("binding %s not found in %s", key, d.Name)
}

// SetBinding replaces the named binding's source with the given YAML
// literal, or appends a new binding if none exists. The literal must
// itself parse as YAML or the document is left unchanged.
func (d *Document) SetBinding(key, literal string) error {
	var probe any
	if err := yaml.Unmarshal([]byte(literal), &probe); err != nil {
		return fmt.Errorf("proposed value for %s does not parse: %w", key, err)
	}

	raw := renderBinding(key, literal)
	var rendered map[string]any
	if err := yaml.Unmarshal(raw, &rendered); err != nil {
		return fmt.Errorf("rendered binding %s does not parse: %w", key, err)
	}
	for i := range d.Entries {
		if d.Entries[i].Key == key {
			d.Entries[i].Raw = raw
			return nil
		}
	}
	d.Entries = append(d.Entries, Entry{Key: key, Raw: raw})
	return nil
}

// renderBinding emits "key: value" source for a literal. Scalar
// literals sit inline; mappings and sequences nest under the key even
// when they fit on one line, since "key: a: b" is not valid YAML.
func renderBinding(key, literal string) []byte {
	literal = strings.TrimRight(literal, "\n")
	if !strings.Contains(literal, "\n") && isScalarLiteral(literal) {
		return []byte(fmt.Sprintf("%s: %s\n", key, strings.TrimSpace(literal)))
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s:\n", key)
	for _, line := range strings.Split(literal, "\n") {
		if strings.TrimSpace(line) == "" {
			buf.WriteByte('\n')
			continue
		}
		fmt.Fprintf(&buf, "  %s\n", line)
	}
	return buf.Bytes()
}

// isScalarLiteral reports whether a literal parses to a plain scalar
// rather than a mapping or sequence.
func isScalarLiteral(literal string) bool {
	var n yaml.Node
	if err := yaml.Unmarshal([]byte(literal), &n); err != nil {
		return false
	}
	return len(n.Content) == 1 && n.Content[0].Kind == yaml.ScalarNode
}

// CompanionNames extracts the names from the document's companions
// binding, if any. Names come back in their normalized identity form.
func (d *Document) CompanionNames() []string {
	var companions []struct {
		Name string `yaml:"name"`
	}
	if err := d.Value("companions", &companions); err != nil {
		return nil
	}
	names := make([]string, 0, len(companions))
	for _, c := range companions {
		if c.Name != "" {
			names = append(names, normalizeName(c.Name))
		}
	}
	return names
}

func normalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
