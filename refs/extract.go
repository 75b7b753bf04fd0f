package refs

import (
	"fmt"

	"github.com/everydev1618/daobuilder/model"
	"gopkg.in/yaml.v3"
)

// Extract parses src and records its anchors and aliases by path.
//
// A dangling alias, malformed YAML, or YAML outside the supported subset
// fails with a *model.ParseError. Empty input yields an empty map.
func Extract(src []byte) (ReferenceMap, error) {
	doc, err := model.DecodeDocument(src)
	if err != nil {
		return ReferenceMap{}, err
	}
	if doc == nil {
		return NewReferenceMap(), nil
	}
	return ExtractNode(doc)
}

// ExtractNode records anchors and aliases of an already parsed tree.
func ExtractNode(doc *yaml.Node) (ReferenceMap, error) {
	resolved, err := model.FromYAML(doc)
	if err != nil {
		return ReferenceMap{}, err
	}
	x := &extractor{rm: NewReferenceMap(), resolved: resolved}
	if err := x.walk(doc, model.Root()); err != nil {
		return ReferenceMap{}, err
	}
	return x.rm, nil
}

type extractor struct {
	rm       ReferenceMap
	resolved model.Node
}

func (x *extractor) walk(n *yaml.Node, p model.Path) error {
	if n.Anchor != "" && n.Kind != yaml.AliasNode {
		def := AnchorDefinition{
			Name:   n.Anchor,
			Path:   p,
			Line:   n.Line,
			Column: n.Column,
		}
		if sub, ok := model.Lookup(x.resolved, p); ok {
			def.Fingerprint = model.Fingerprint(sub)
		}
		// Redeclaring a name makes the later anchor authoritative.
		x.rm.Anchors[n.Anchor] = def
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) > 0 {
			return x.walk(n.Content[0], p)
		}
	case yaml.AliasNode:
		def, ok := x.rm.Anchors[n.Value]
		if !ok {
			return &model.ParseError{
				Kind:    model.DanglingAlias,
				Line:    n.Line,
				Column:  n.Column,
				Anchor:  n.Value,
				Message: fmt.Sprintf("alias *%s refers to an undefined anchor", n.Value),
			}
		}
		x.rm.Aliases = append(x.rm.Aliases, AliasUsage{
			Path:       p,
			AnchorName: n.Value,
			Definition: def.Path,
			Line:       n.Line,
			Column:     n.Column,
		})
	case yaml.SequenceNode:
		for i, c := range n.Content {
			if err := x.walk(c, p.Index(i)); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, err := model.KeyOf(n.Content[i])
			if err != nil {
				return err
			}
			if err := x.walk(n.Content[i+1], p.Key(key)); err != nil {
				return err
			}
		}
	}
	return nil
}
