package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// catalogKey is the single recognized top-level key in the catalog file.
const catalogKey = "discovered_meters"

type catalogDoc struct {
	order   []string
	entries map[string]Entry
}

// decodeCatalog parses the catalog file, preserving the file order of the
// discovered_meters mapping. A document without that key yields an empty
// catalog. Map iteration would scramble merge order across restarts, so
// the mapping is walked as yaml nodes instead.
func decodeCatalog(data []byte) (catalogDoc, error) {
	doc := catalogDoc{entries: map[string]Entry{}}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return doc, err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return doc, nil
	}

	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return doc, fmt.Errorf("catalog root is not a mapping")
	}

	var meters *yaml.Node
	for i := 0; i+1 < len(top.Content); i += 2 {
		if top.Content[i].Value == catalogKey {
			meters = top.Content[i+1]
			break
		}
	}
	if meters == nil || meters.Kind != yaml.MappingNode {
		return doc, nil
	}

	for i := 0; i+1 < len(meters.Content); i += 2 {
		meterID := meters.Content[i].Value
		var entry Entry
		if err := meters.Content[i+1].Decode(&entry); err != nil {
			return doc, fmt.Errorf("entry %q: %w", meterID, err)
		}
		doc.order = append(doc.order, meterID)
		doc.entries[meterID] = entry
	}
	return doc, nil
}

// encodeCatalog renders the catalog under the discovered_meters key in
// insertion order.
func encodeCatalog(order []string, entries map[string]Entry) ([]byte, error) {
	meters := &yaml.Node{Kind: yaml.MappingNode}
	for _, meterID := range order {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: meterID}
		val := &yaml.Node{}
		if err := val.Encode(entries[meterID]); err != nil {
			return nil, fmt.Errorf("entry %q: %w", meterID, err)
		}
		meters.Content = append(meters.Content, key, val)
	}

	root := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: catalogKey},
			meters,
		},
	}
	return yaml.Marshal(root)
}
