package model

import (
	"errors"
	"fmt"
)

// ErrPathNotFound is returned when a path does not resolve to a node.
var ErrPathNotFound = errors.New("path not found")

// Lookup returns the node at p.
func Lookup(root Node, p Path) (Node, bool) {
	cur := root
	for _, s := range p.Segments() {
		switch v := cur.(type) {
		case *Mapping:
			if s.IsIndex {
				return nil, false
			}
			next, ok := v.Get(s.Key)
			if !ok {
				return nil, false
			}
			cur = next
		case *Sequence:
			if !s.IsIndex || s.Index < 0 || s.Index >= len(v.Items) {
				return nil, false
			}
			cur = v.Items[s.Index]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

// Set stores v at p and returns the (possibly new) root. Missing mapping keys
// along the way are created as empty mappings. An index equal to the sequence
// length appends.
func Set(root Node, p Path, v Node) (Node, error) {
	if v == nil {
		return root, fmt.Errorf("set %s: nil node", p)
	}
	segs := p.Segments()
	if len(segs) == 0 {
		return v, nil
	}
	if root == nil {
		root = NewMapping()
	}

	cur := root
	for i, s := range segs {
		last := i == len(segs)-1
		switch node := cur.(type) {
		case *Mapping:
			if s.IsIndex {
				return root, fmt.Errorf("set %s: index %d into a mapping", p, s.Index)
			}
			if last {
				node.Set(s.Key, v)
				return root, nil
			}
			next, ok := node.Get(s.Key)
			if !ok {
				next = NewMapping()
				node.Set(s.Key, next)
			}
			cur = next
		case *Sequence:
			if !s.IsIndex {
				return root, fmt.Errorf("set %s: key %q into a sequence", p, s.Key)
			}
			if s.Index < 0 || s.Index > len(node.Items) {
				return root, fmt.Errorf("set %s: index %d out of range", p, s.Index)
			}
			if last {
				if s.Index == len(node.Items) {
					node.Items = append(node.Items, v)
				} else {
					node.Items[s.Index] = v
				}
				return root, nil
			}
			if s.Index == len(node.Items) {
				return root, fmt.Errorf("set %s: index %d out of range", p, s.Index)
			}
			cur = node.Items[s.Index]
		default:
			return root, fmt.Errorf("set %s: cannot descend into a scalar", p)
		}
	}
	return root, nil
}

// Delete removes the node at p. Deleting a sequence item shifts the items
// after it.
func Delete(root Node, p Path) error {
	last, ok := p.Last()
	if !ok {
		return fmt.Errorf("delete: cannot delete the document root")
	}
	parent, ok := Lookup(root, p.Parent())
	if !ok {
		return fmt.Errorf("delete %s: %w", p, ErrPathNotFound)
	}
	switch node := parent.(type) {
	case *Mapping:
		if last.IsIndex {
			return fmt.Errorf("delete %s: %w", p, ErrPathNotFound)
		}
		if _, ok := node.Get(last.Key); !ok {
			return fmt.Errorf("delete %s: %w", p, ErrPathNotFound)
		}
		node.Delete(last.Key)
	case *Sequence:
		if !last.IsIndex || last.Index >= len(node.Items) {
			return fmt.Errorf("delete %s: %w", p, ErrPathNotFound)
		}
		node.Items = append(node.Items[:last.Index], node.Items[last.Index+1:]...)
	default:
		return fmt.Errorf("delete %s: %w", p, ErrPathNotFound)
	}
	return nil
}

// Walk visits every node in depth-first order with its path. Mapping fields
// are visited in OrderedKeys order. Returning false from fn skips the node's
// children.
func Walk(root Node, fn func(p Path, n Node) bool) {
	walk(root, Root(), fn)
}

func walk(n Node, p Path, fn func(Path, Node) bool) {
	if !fn(p, n) {
		return
	}
	switch v := n.(type) {
	case *Sequence:
		for i, it := range v.Items {
			walk(it, p.Index(i), fn)
		}
	case *Mapping:
		for _, k := range OrderedKeys(v, p.IsRoot()) {
			walk(v.Fields[k], p.Key(k), fn)
		}
	}
}
