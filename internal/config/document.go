package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the primary configuration as a generic YAML mapping.
// Fields the merge pass does not touch round-trip unchanged.
type Document struct {
	root map[string]any
}

// Empty returns a document with no content.
func Empty() *Document {
	return &Document{root: map[string]any{}}
}

// LoadDocument reads and parses the primary configuration at path.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if root == nil {
		root = map[string]any{}
	}
	return &Document{root: root}, nil
}

// Save writes the document back to path.
func (d *Document) Save(path string) error {
	out, err := yaml.Marshal(d.root)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Meters returns the meters list, or nil when absent.
func (d *Document) Meters() []any {
	list, _ := d.root["meters"].([]any)
	return list
}

// MeterIDs returns the set of meter ids already configured, coerced to
// strings so numeric and quoted ids compare equal.
func (d *Document) MeterIDs() map[string]bool {
	ids := make(map[string]bool)
	for _, m := range d.Meters() {
		entry, ok := m.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := entry["id"]; ok {
			ids[fmt.Sprint(id)] = true
		}
	}
	return ids
}

// AppendMeter adds a meter entry to the meters list, creating the list
// if the document had none.
func (d *Document) AppendMeter(meter map[string]any) {
	d.root["meters"] = append(d.Meters(), meter)
}
