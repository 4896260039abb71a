package blueprint

import (
	"fmt"

	"github.com/nerrad567/gray-logic-blueprints/internal/placeholder"
	"gopkg.in/yaml.v3"
)

// Extension is the file extension blueprint files carry on disk.
const Extension = ".yaml"

// ParseDocument decodes YAML into a document tree. The custom !input
// tag is normalized into the placeholder marker string form so the
// rest of the system only ever sees plain values, e.g.
//
//	service: !input target
//
// decodes as the string "!input target". An empty file decodes to an
// empty document, which then fails schema validation rather than
// parsing.
func ParseDocument(data []byte) (map[string]any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if root.Kind == 0 {
		return map[string]any{}, nil
	}

	normalizeInputTags(&root)

	var doc map[string]any
	if err := root.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// normalizeInputTags rewrites every !input-tagged scalar into the
// equivalent marker string in place.
func normalizeInputTags(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!input" {
		n.Tag = "!!str"
		n.Value = placeholder.Marker(n.Value)
		return
	}
	for _, child := range n.Content {
		normalizeInputTags(child)
	}
}

// dumpDocument serializes a document tree back to YAML, converting
// placeholder marker strings back into !input tags. Mapping keys are
// emitted in lexical order so output is deterministic.
func dumpDocument(doc map[string]any) ([]byte, error) {
	node, err := buildNode(doc)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(node)
}

func buildNode(v any) (*yaml.Node, error) {
	switch val := v.(type) {
	case map[string]any:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range sortedKeys(val) {
			child, err := buildNode(val[k])
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				child,
			)
		}
		return n, nil
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, elem := range val {
			child, err := buildNode(elem)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	case string:
		if name, ok := placeholder.ParseMarker(val); ok {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!input", Value: name}, nil
		}
		n := &yaml.Node{}
		if err := n.Encode(val); err != nil {
			return nil, fmt.Errorf("encoding string value: %w", err)
		}
		return n, nil
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	default:
		n := &yaml.Node{}
		if err := n.Encode(val); err != nil {
			return nil, fmt.Errorf("encoding %T value: %w", val, err)
		}
		return n, nil
	}
}
