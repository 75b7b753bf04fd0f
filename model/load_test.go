package model

import (
	"errors"
	"strings"
	"testing"
)

func TestLoadResolvesAliasesIntoCopies(t *testing.T) {
	src := `
memory: &mem
  checkpointer:
    type: postgres
app:
  orchestration:
    memory: *mem
`
	root, err := Load([]byte(src))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	def, ok := Lookup(root, PathOf("memory"))
	if !ok {
		t.Fatal("memory not found")
	}
	alias, ok := Lookup(root, PathOf("app", "orchestration", "memory"))
	if !ok {
		t.Fatal("app.orchestration.memory not found")
	}
	if !Equal(def, alias) {
		t.Fatal("alias copy should equal its anchor")
	}

	// Editing the copy must not leak into the definition.
	if _, err := Set(root, PathOf("app", "orchestration", "memory", "checkpointer", "type"), Str("sqlite")); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}
	typ, _ := Lookup(root, PathOf("memory", "checkpointer", "type"))
	if typ.(*Scalar).Value != "postgres" {
		t.Errorf("memory.checkpointer.type = %q, want postgres", typ.(*Scalar).Value)
	}
}

func TestLoadScalarTags(t *testing.T) {
	src := `
a: 1
b: "1"
c: true
d: 1.5
e:
f: ~
g: text
`
	root, err := Load([]byte(src))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	want := map[string]Scalar{
		"a": {IntTag, "1"},
		"b": {StrTag, "1"},
		"c": {BoolTag, "true"},
		"d": {FloatTag, "1.5"},
		"e": {NullTag, "null"},
		"f": {NullTag, "null"},
		"g": {StrTag, "text"},
	}
	for k, w := range want {
		n, ok := Lookup(root, PathOf(k))
		if !ok {
			t.Fatalf("%s not found", k)
		}
		s := n.(*Scalar)
		if *s != w {
			t.Errorf("%s = %+v, want %+v", k, *s, w)
		}
	}
}

func TestLoadEmpty(t *testing.T) {
	for _, src := range []string{"", "# only a comment\n"} {
		root, err := Load([]byte(src))
		if err != nil {
			t.Fatalf("Load(%q) returned error: %v", src, err)
		}
		m, ok := root.(*Mapping)
		if !ok || m.Len() != 0 {
			t.Errorf("Load(%q) = %#v, want empty mapping", src, root)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ParseErrorKind
		line int
	}{
		{"dangling alias", "a: 1\nb: *missing\n", DanglingAlias, 2},
		{"syntax", "a: [1, 2\nb: 3\n", Syntax, 0},
		{"multiple documents", "a: 1\n---\nb: 2\n", Unsupported, 0},
		{"duplicate key", "a: 1\na: 2\n", Syntax, 2},
		{"complex key", "? [a, b]\n: 1\n", Unsupported, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.src))
			if err == nil {
				t.Fatal("Load() should fail")
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %v is not a *ParseError", err)
			}
			if pe.Kind != tt.kind {
				t.Errorf("Kind = %s, want %s", pe.Kind, tt.kind)
			}
			if tt.line > 0 && pe.Line != tt.line {
				t.Errorf("Line = %d, want %d", pe.Line, tt.line)
			}
		})
	}
}

func TestLoadDanglingAliasColumn(t *testing.T) {
	_, err := Load([]byte("app:\n  memory: *missing\n"))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error %v is not a *ParseError", err)
	}
	if pe.Line != 2 || pe.Column != 11 {
		t.Errorf("position = %d:%d, want 2:11", pe.Line, pe.Column)
	}
	if pe.Anchor != "missing" {
		t.Errorf("Anchor = %q, want missing", pe.Anchor)
	}
	if !strings.Contains(pe.Error(), "line 2") {
		t.Errorf("Error() = %q, should mention the line", pe.Error())
	}
}

func TestFromAnyToAny(t *testing.T) {
	in := map[string]any{
		"name":    "agent",
		"count":   float64(3),
		"ratio":   0.25,
		"enabled": true,
		"tags":    []any{"a", "b"},
		"empty":   nil,
	}
	n, err := FromAny(in)
	if err != nil {
		t.Fatalf("FromAny() returned error: %v", err)
	}
	count, _ := Lookup(n, PathOf("count"))
	if s := count.(*Scalar); s.Tag != IntTag || s.Value != "3" {
		t.Errorf("count = %+v, want !!int 3", *s)
	}

	out := ToAny(n).(map[string]any)
	if out["count"] != int64(3) {
		t.Errorf("count = %#v, want int64(3)", out["count"])
	}
	if out["ratio"] != 0.25 {
		t.Errorf("ratio = %#v", out["ratio"])
	}
	if out["enabled"] != true {
		t.Errorf("enabled = %#v", out["enabled"])
	}
	if out["empty"] != nil {
		t.Errorf("empty = %#v", out["empty"])
	}
	if tags := out["tags"].([]any); len(tags) != 2 || tags[1] != "b" {
		t.Errorf("tags = %#v", out["tags"])
	}
}
