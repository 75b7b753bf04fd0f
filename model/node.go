// Package model holds the resolved configuration tree that the form layer
// edits, together with the Path type used to address nodes in it.
//
// A configuration is a tree of three node kinds:
//
//	*Scalar   - a tagged leaf value (string, int, bool, float, null, custom tag)
//	*Sequence - an ordered list of nodes
//	*Mapping  - string keys to nodes
//
// Aliases never appear in the tree. Loading resolves every alias into an
// independent deep copy, so editing one copy never changes another. The record
// of which paths were anchors and aliases in the source lives in package refs.
package model

import "fmt"

// Kind discriminates the node variants.
type Kind int

const (
	ScalarKind Kind = iota + 1
	SequenceKind
	MappingKind
)

func (k Kind) String() string {
	switch k {
	case ScalarKind:
		return "scalar"
	case SequenceKind:
		return "sequence"
	case MappingKind:
		return "mapping"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Node is implemented by *Scalar, *Sequence and *Mapping only.
type Node interface {
	Kind() Kind
	isNode()
}

// Short YAML tags used for scalars.
const (
	StrTag   = "!!str"
	IntTag   = "!!int"
	FloatTag = "!!float"
	BoolTag  = "!!bool"
	NullTag  = "!!null"
)

// Scalar is a leaf. Tag is the resolved short tag; Value is the textual form.
type Scalar struct {
	Tag   string
	Value string
}

// Sequence is an ordered list.
type Sequence struct {
	Items []Node
}

// Mapping maps string keys to nodes. Key order carries no meaning; the
// generator decides output order.
type Mapping struct {
	Fields map[string]Node
}

func (*Scalar) Kind() Kind   { return ScalarKind }
func (*Sequence) Kind() Kind { return SequenceKind }
func (*Mapping) Kind() Kind  { return MappingKind }

func (*Scalar) isNode()   {}
func (*Sequence) isNode() {}
func (*Mapping) isNode()  {}

// Str returns a string scalar.
func Str(v string) *Scalar { return &Scalar{Tag: StrTag, Value: v} }

// Null returns a null scalar.
func Null() *Scalar { return &Scalar{Tag: NullTag, Value: "null"} }

// NewMapping returns an empty mapping.
func NewMapping() *Mapping { return &Mapping{Fields: map[string]Node{}} }

// Get returns the field value for key.
func (m *Mapping) Get(key string) (Node, bool) {
	if m == nil || m.Fields == nil {
		return nil, false
	}
	n, ok := m.Fields[key]
	return n, ok
}

// Set stores a field, allocating the map if needed.
func (m *Mapping) Set(key string, n Node) {
	if m.Fields == nil {
		m.Fields = map[string]Node{}
	}
	m.Fields[key] = n
}

// Delete removes a field.
func (m *Mapping) Delete(key string) {
	delete(m.Fields, key)
}

// Len returns the number of fields.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Fields)
}

// Clone returns a deep copy of n.
func Clone(n Node) Node {
	switch v := n.(type) {
	case *Scalar:
		c := *v
		return &c
	case *Sequence:
		items := make([]Node, len(v.Items))
		for i, it := range v.Items {
			items[i] = Clone(it)
		}
		return &Sequence{Items: items}
	case *Mapping:
		out := &Mapping{Fields: make(map[string]Node, len(v.Fields))}
		for k, f := range v.Fields {
			out.Fields[k] = Clone(f)
		}
		return out
	default:
		return nil
	}
}
