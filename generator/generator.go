// Package generator serializes a configuration model back to YAML,
// re-introducing anchors and aliases only where the source document had them
// and the aliased copies still hold identical content.
//
// Output is deterministic: top-level sections follow a fixed canonical order
// and nested keys are sorted, so generating the same model twice yields
// byte-identical text.
package generator

import (
	"bytes"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/everydev1618/daobuilder/model"
	"github.com/everydev1618/daobuilder/refs"
)

// Generator renders models as YAML.
type Generator struct {
	// Indent is the number of spaces per nesting level.
	Indent int
}

// New creates a generator with two-space indentation.
func New() *Generator {
	return &Generator{Indent: 2}
}

// Generate renders root with the default generator.
func Generate(root model.Node, rm refs.ReferenceMap, overrides map[string]string) ([]byte, error) {
	return New().Generate(root, rm, overrides)
}

// Generate renders root as YAML. rm is the reference map extracted from the
// source document and overrides are the per-section anchor names chosen by
// the user. The result depends only on these three inputs.
//
// If writing references fails for any reason the document is written again
// with every shared value inlined, which is always valid.
func (g *Generator) Generate(root model.Node, rm refs.ReferenceMap, overrides map[string]string) ([]byte, error) {
	if root == nil {
		root = model.NewMapping()
	}
	if m, ok := root.(*model.Mapping); ok && contentLen(m) == 0 {
		return []byte{}, nil
	}

	out, err := g.encode(root, buildPlan(root, rm, overrides))
	if err == nil {
		return out, nil
	}
	slog.Warn("generator: writing references failed, inlining shared values", "error", err)

	out, err = g.encode(root, nil)
	if err != nil {
		return nil, fmt.Errorf("generate yaml: %w", err)
	}
	return out, nil
}

func (g *Generator) encode(root model.Node, p *plan) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("encode: %v", r)
		}
	}()

	e := &emitter{
		plan:    p,
		anchors: map[*group]*yaml.Node{},
		names:   map[*group]string{},
		used:    map[string]bool{},
	}
	if p != nil {
		// The memory anchor is named after the refName the session reports,
		// so it claims its name before any other group.
		if g, ok := p.byDef[model.PathOf(model.MemorySection)]; ok {
			e.names[g] = e.unique(g.name)
		}
	}
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{e.node(root, model.Root())}}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	indent := g.Indent
	if indent <= 0 {
		indent = 2
	}
	enc.SetIndent(indent)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// emitter builds the yaml.Node tree in output order. The first member of a
// group reached becomes the anchor; later members become aliases of it.
type emitter struct {
	plan    *plan
	anchors map[*group]*yaml.Node
	names   map[*group]string
	used    map[string]bool
}

func (e *emitter) node(n model.Node, at model.Path) *yaml.Node {
	var g *group
	if e.plan != nil {
		g = e.plan.groupOf[at]
	}
	if g != nil {
		if anchor, ok := e.anchors[g]; ok {
			return &yaml.Node{Kind: yaml.AliasNode, Value: e.nameFor(g), Alias: anchor}
		}
	}

	out := e.build(n, at)
	if g != nil {
		e.anchors[g] = out
	}
	return out
}

func (e *emitter) build(n model.Node, at model.Path) *yaml.Node {
	switch v := n.(type) {
	case *model.Scalar:
		return scalarNode(v)

	case *model.Sequence:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, it := range v.Items {
			out.Content = append(out.Content, e.node(it, at.Index(i)))
		}
		return out

	case *model.Mapping:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range model.OrderedKeys(v, at.IsRoot()) {
			if k == model.RefNameKey {
				continue
			}
			out.Content = append(out.Content, keyNode(k), e.node(v.Fields[k], at.Key(k)))
		}
		return out

	default:
		return scalarNode(model.Null())
	}
}

// nameFor assigns the output anchor name of g on first use, keeping names
// unique within the document.
func (e *emitter) nameFor(g *group) string {
	name, ok := e.names[g]
	if !ok {
		name = e.unique(g.name)
		e.names[g] = name
	}
	e.anchors[g].Anchor = name
	return name
}

func (e *emitter) unique(base string) string {
	name := base
	for i := 2; e.used[name]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	e.used[name] = true
	return name
}

func scalarNode(s *model.Scalar) *yaml.Node {
	tag := s.Tag
	if tag == "" {
		tag = model.StrTag
	}
	value := s.Value
	if tag == model.NullTag {
		value = "null"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func keyNode(k string) *yaml.Node {
	if k == "<<" {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!merge", Value: k}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: model.StrTag, Value: k}
}

func contentLen(m *model.Mapping) int {
	n := m.Len()
	if _, ok := m.Get(model.RefNameKey); ok {
		n--
	}
	return n
}
