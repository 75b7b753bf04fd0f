package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a Path: a mapping key or a sequence index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

func (s Segment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Key
}

// Path identifies a node by its location from the document root.
//
// Paths are immutable values. Two paths built from the same segments compare
// equal with ==, so a Path can be used directly as a map key.
type Path struct {
	enc string
}

// Root returns the empty path.
func Root() Path { return Path{} }

// PathOf builds a path from keys (string) and indexes (int).
func PathOf(segs ...any) Path {
	p := Root()
	for _, s := range segs {
		switch v := s.(type) {
		case string:
			p = p.Key(v)
		case int:
			p = p.Index(v)
		default:
			panic(fmt.Sprintf("model.PathOf: unsupported segment type %T", s))
		}
	}
	return p
}

// Key returns p extended with a mapping key.
func (p Path) Key(k string) Path {
	return Path{enc: p.enc + "k" + strconv.Itoa(len(k)) + ":" + k}
}

// Index returns p extended with a sequence index.
func (p Path) Index(i int) Path {
	return Path{enc: p.enc + "i" + strconv.Itoa(i) + ";"}
}

// IsRoot reports whether p has no segments.
func (p Path) IsRoot() bool { return p.enc == "" }

// Segments decodes the path.
func (p Path) Segments() []Segment {
	var out []Segment
	s := p.enc
	for len(s) > 0 {
		switch s[0] {
		case 'k':
			colon := strings.IndexByte(s, ':')
			n, _ := strconv.Atoi(s[1:colon])
			out = append(out, Segment{Key: s[colon+1 : colon+1+n]})
			s = s[colon+1+n:]
		case 'i':
			semi := strings.IndexByte(s, ';')
			n, _ := strconv.Atoi(s[1:semi])
			out = append(out, Segment{Index: n, IsIndex: true})
			s = s[semi+1:]
		default:
			return out
		}
	}
	return out
}

// Len returns the number of segments.
func (p Path) Len() int { return len(p.Segments()) }

// Section returns the top-level mapping key the path lives under, or "" for
// the root and for paths that start with an index.
func (p Path) Section() string {
	segs := p.Segments()
	if len(segs) == 0 || segs[0].IsIndex {
		return ""
	}
	return segs[0].Key
}

// Parent returns the path without its last segment. The parent of the root is
// the root.
func (p Path) Parent() Path {
	segs := p.Segments()
	if len(segs) == 0 {
		return p
	}
	return fromSegments(segs[:len(segs)-1])
}

// Last returns the final segment and false for the root.
func (p Path) Last() (Segment, bool) {
	segs := p.Segments()
	if len(segs) == 0 {
		return Segment{}, false
	}
	return segs[len(segs)-1], true
}

// HasPrefix reports whether q is p or an ancestor of p.
func (p Path) HasPrefix(q Path) bool {
	return strings.HasPrefix(p.enc, q.enc)
}

// String renders the path as dotted keys with bracketed indexes,
// e.g. "app.orchestration.memory" or "agents[0].name".
func (p Path) String() string {
	var b strings.Builder
	for i, s := range p.Segments() {
		if s.IsIndex {
			b.WriteString(s.String())
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.Key)
	}
	return b.String()
}

func fromSegments(segs []Segment) Path {
	p := Root()
	for _, s := range segs {
		if s.IsIndex {
			p = p.Index(s.Index)
		} else {
			p = p.Key(s.Key)
		}
	}
	return p
}

// ParsePath parses the String form. Keys containing '.' or '[' cannot be
// expressed this way; use the JSON array form for those.
func ParsePath(s string) (Path, error) {
	p := Root()
	if s == "" {
		return p, nil
	}
	for _, part := range strings.Split(s, ".") {
		key := part
		rest := ""
		if i := strings.IndexByte(part, '['); i >= 0 {
			key, rest = part[:i], part[i:]
		}
		if key == "" && rest == "" {
			return Root(), fmt.Errorf("parse path %q: empty segment", s)
		}
		if key != "" {
			p = p.Key(key)
		}
		for rest != "" {
			end := strings.IndexByte(rest, ']')
			if rest[0] != '[' || end < 0 {
				return Root(), fmt.Errorf("parse path %q: malformed index", s)
			}
			n, err := strconv.Atoi(rest[1:end])
			if err != nil || n < 0 {
				return Root(), fmt.Errorf("parse path %q: bad index %q", s, rest[1:end])
			}
			p = p.Index(n)
			rest = rest[end+1:]
		}
	}
	return p, nil
}

// MarshalJSON encodes the path as an array of strings and integers.
func (p Path) MarshalJSON() ([]byte, error) {
	segs := p.Segments()
	out := make([]any, 0, len(segs))
	for _, s := range segs {
		if s.IsIndex {
			out = append(out, s.Index)
		} else {
			out = append(out, s.Key)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts either the array form or the dotted string form.
func (p *Path) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		parsed, err := ParsePath(str)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("path: expected string or array: %w", err)
	}
	out := Root()
	for _, r := range raw {
		var key string
		if err := json.Unmarshal(r, &key); err == nil {
			out = out.Key(key)
			continue
		}
		var idx int
		if err := json.Unmarshal(r, &idx); err != nil || idx < 0 {
			return fmt.Errorf("path: segment %s is neither a key nor an index", string(r))
		}
		out = out.Index(idx)
	}
	*p = out
	return nil
}
