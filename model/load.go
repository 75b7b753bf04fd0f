package model

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// maxExpandedNodes bounds the size of the resolved tree so that a small
// document with nested aliases cannot expand without limit.
const maxExpandedNodes = 1 << 20

// DecodeDocument parses src into a structure-preserving yaml.Node tree.
// Empty input yields a nil node and no error. A second document in the
// stream is rejected.
func DecodeDocument(src []byte) (*yaml.Node, error) {
	dec := yaml.NewDecoder(bytes.NewReader(src))

	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, FromYAMLError(src, err)
	}

	var extra yaml.Node
	switch err := dec.Decode(&extra); {
	case err == nil:
		return nil, &ParseError{
			Kind:    Unsupported,
			Line:    extra.Line,
			Message: "multiple YAML documents are not supported",
		}
	case !errors.Is(err, io.EOF):
		return nil, FromYAMLError(src, err)
	}
	return &doc, nil
}

// Load is the generic, alias-resolving loader: it parses src and returns the
// resolved tree with every alias replaced by an independent copy of its
// anchor's content. Empty input loads as an empty mapping.
func Load(src []byte) (Node, error) {
	doc, err := DecodeDocument(src)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return NewMapping(), nil
	}
	return FromYAML(doc)
}

// FromYAML resolves a yaml.Node tree into a Node.
func FromYAML(n *yaml.Node) (Node, error) {
	l := &resolver{budget: maxExpandedNodes, active: map[*yaml.Node]bool{}}
	return l.convert(n)
}

type resolver struct {
	budget int
	active map[*yaml.Node]bool
}

func (l *resolver) convert(n *yaml.Node) (Node, error) {
	l.budget--
	if l.budget < 0 {
		return nil, &ParseError{
			Kind:    Unsupported,
			Line:    n.Line,
			Column:  n.Column,
			Message: "document expands beyond the supported size through aliases",
		}
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return NewMapping(), nil
		}
		return l.convert(n.Content[0])

	case yaml.ScalarNode:
		tag := n.ShortTag()
		if tag == NullTag {
			return Null(), nil
		}
		return &Scalar{Tag: tag, Value: n.Value}, nil

	case yaml.SequenceNode:
		seq := &Sequence{Items: make([]Node, 0, len(n.Content))}
		for _, c := range n.Content {
			item, err := l.convert(c)
			if err != nil {
				return nil, err
			}
			seq.Items = append(seq.Items, item)
		}
		return seq, nil

	case yaml.MappingNode:
		m := &Mapping{Fields: make(map[string]Node, len(n.Content)/2)}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, err := KeyOf(n.Content[i])
			if err != nil {
				return nil, err
			}
			if _, dup := m.Fields[key]; dup {
				return nil, &ParseError{
					Kind:    Syntax,
					Line:    n.Content[i].Line,
					Column:  n.Content[i].Column,
					Message: fmt.Sprintf("mapping key %q already defined", key),
				}
			}
			val, err := l.convert(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Fields[key] = val
		}
		return m, nil

	case yaml.AliasNode:
		target := n.Alias
		if target == nil {
			return nil, &ParseError{
				Kind:    DanglingAlias,
				Line:    n.Line,
				Column:  n.Column,
				Anchor:  n.Value,
				Message: fmt.Sprintf("alias *%s refers to an undefined anchor", n.Value),
			}
		}
		if l.active[target] {
			return nil, &ParseError{
				Kind:    Unsupported,
				Line:    n.Line,
				Column:  n.Column,
				Anchor:  n.Value,
				Message: fmt.Sprintf("anchor &%s contains an alias to itself", n.Value),
			}
		}
		l.active[target] = true
		defer delete(l.active, target)
		return l.convert(target)

	default:
		return nil, &ParseError{
			Kind:    Unsupported,
			Line:    n.Line,
			Column:  n.Column,
			Message: fmt.Sprintf("unexpected YAML node kind %d", n.Kind),
		}
	}
}

// KeyOf returns the string form of a mapping key node. Only scalar keys, or
// aliases of scalars, are supported.
func KeyOf(k *yaml.Node) (string, error) {
	if k.Kind == yaml.AliasNode && k.Alias != nil {
		k = k.Alias
	}
	if k.Kind != yaml.ScalarNode {
		return "", &ParseError{
			Kind:    Unsupported,
			Line:    k.Line,
			Column:  k.Column,
			Message: "only scalar mapping keys are supported",
		}
	}
	return k.Value, nil
}
