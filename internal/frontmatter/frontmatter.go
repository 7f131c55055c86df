// Package frontmatter parses and serializes the YAML-like front-matter
// block of a note file, preserving key order and scalar style across a
// round trip.
package frontmatter

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Doc is an order-preserving front-matter document. The zero value is a
// document with no front-matter block.
type Doc struct {
	node *yaml.Node // mapping node, nil if the document has no front-matter
}

// ParseResult is the outcome of Parse.
type ParseResult struct {
	Doc            Doc
	Body           string
	HadFrontmatter bool
	Warning        string // non-empty if a front-matter block was present but malformed
}

// Parse splits raw note content into a front-matter Doc and body. A
// malformed front-matter block never fails the whole parse: the codec
// falls back to treating the entire content as body and surfaces a
// Warning.
func Parse(content string) ParseResult {
	if !strings.HasPrefix(content, delimiter+"\n") {
		return ParseResult{Body: content}
	}

	rest := content[len(delimiter)+1:]
	var yamlContent, body string
	closeIdx := strings.Index(rest, "\n"+delimiter+"\n")
	if strings.HasPrefix(rest, delimiter+"\n") {
		// Empty front-matter block.
		yamlContent, body = "", rest[len(delimiter)+1:]
	} else if closeIdx != -1 {
		yamlContent = rest[:closeIdx]
		body = rest[closeIdx+len("\n"+delimiter+"\n"):]
	} else if strings.HasSuffix(rest, "\n"+delimiter) {
		yamlContent = rest[:len(rest)-len("\n"+delimiter)]
		body = ""
	} else {
		return ParseResult{Body: content}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(yamlContent), &doc); err != nil {
		return ParseResult{
			Body:    content,
			Warning: fmt.Sprintf("malformed front matter, treating file as body-only: %v", err),
		}
	}

	mapping := mappingNode(&doc)
	if mapping == nil {
		// Empty or non-mapping front matter (e.g. "---\n---\n"): treat as
		// an empty document rather than failing.
		mapping = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}

	return ParseResult{
		Doc:            Doc{node: mapping},
		Body:           body,
		HadFrontmatter: true,
	}
}

// mappingNode unwraps a decoded yaml.Node (DocumentNode -> MappingNode).
func mappingNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil
		}
		return mappingNode(n.Content[0])
	}
	if n.Kind == yaml.MappingNode {
		return n
	}
	return nil
}

// New returns an empty front-matter document, ready for Set calls. New
// documents use a stable ordering: reserved fields first (as callers set
// them), then insertion order for everything else.
func New() Doc {
	return Doc{node: &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}}
}

// IsEmpty reports whether the document has no front matter at all.
func (d Doc) IsEmpty() bool {
	return d.node == nil || len(d.node.Content) == 0
}

// Keys returns the front-matter keys in on-disk order.
func (d Doc) Keys() []string {
	if d.node == nil {
		return nil
	}
	keys := make([]string, 0, len(d.node.Content)/2)
	for i := 0; i < len(d.node.Content); i += 2 {
		keys = append(keys, d.node.Content[i].Value)
	}
	return keys
}

// Get returns the decoded value for key and whether it was present.
func (d Doc) Get(key string) (any, bool) {
	idx := d.keyIndex(key)
	if idx == -1 {
		return nil, false
	}
	var v any
	if err := d.node.Content[idx+1].Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

// GetString returns a string value, or "" if absent or not a string.
func (d Doc) GetString(key string) string {
	v, ok := d.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (d Doc) keyIndex(key string) int {
	if d.node == nil {
		return -1
	}
	for i := 0; i < len(d.node.Content); i += 2 {
		if d.node.Content[i].Value == key {
			return i
		}
	}
	return -1
}

// Set assigns value to key. If key already exists, only its value node is
// replaced (preserving the key node's position). If key is new, it is
// appended at the end, preserving insertion order. Arrays of one element
// are encoded as a genuine sequence node, never collapsed to a bare scalar.
func (d *Doc) Set(key string, value any) error {
	if d.node == nil {
		d.node = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}

	valueNode := &yaml.Node{}
	if err := valueNode.Encode(value); err != nil {
		return err
	}
	forceSequenceStyle(valueNode, value)

	if idx := d.keyIndex(key); idx != -1 {
		d.node.Content[idx+1] = valueNode
		return nil
	}

	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	d.node.Content = append(d.node.Content, keyNode, valueNode)
	return nil
}

// forceSequenceStyle ensures a []any / []string of length 1 still encodes
// as a block sequence, matching the "arrays of one element are never
// silently collapsed" invariant.
func forceSequenceStyle(n *yaml.Node, value any) {
	switch value.(type) {
	case []any, []string, []int, []float64:
		n.Kind = yaml.SequenceNode
	}
}

// Delete removes key, if present.
func (d *Doc) Delete(key string) {
	idx := d.keyIndex(key)
	if idx == -1 {
		return
	}
	d.node.Content = append(d.node.Content[:idx], d.node.Content[idx+2:]...)
}

// Render serializes doc + body back into full note content. An empty
// document with a non-empty body is rendered as pure body (no front-matter
// delimiters), matching the parser's acceptance of body-only files.
func Render(doc Doc, body string) (string, error) {
	if doc.IsEmpty() {
		return body, nil
	}

	var buf strings.Builder
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc.node); err != nil {
		return "", fmt.Errorf("serialize front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("serialize front matter: %w", err)
	}

	var out strings.Builder
	out.WriteString(delimiter)
	out.WriteString("\n")
	out.WriteString(buf.String())
	out.WriteString(delimiter)
	out.WriteString("\n")
	out.WriteString(body)
	return out.String(), nil
}

// Clone returns a deep copy of doc, safe to mutate independently.
func (d Doc) Clone() Doc {
	if d.node == nil {
		return Doc{}
	}
	b, err := yaml.Marshal(d.node)
	if err != nil {
		return Doc{}
	}
	var data yaml.Node
	if err := yaml.Unmarshal(b, &data); err != nil {
		return Doc{}
	}
	return Doc{node: mappingNode(&data)}
}
