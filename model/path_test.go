package model

import (
	"encoding/json"
	"testing"
)

func TestPathEquality(t *testing.T) {
	a := Root().Key("app").Key("orchestration").Key("memory")
	b := PathOf("app", "orchestration", "memory")
	if a != b {
		t.Fatalf("paths built from the same segments differ: %q vs %q", a, b)
	}

	seen := map[Path]bool{a: true}
	if !seen[b] {
		t.Error("Path should be usable as a map key")
	}

	if PathOf("a", 1) == PathOf("a", "1") {
		t.Error("index 1 and key \"1\" must not compare equal")
	}
	if PathOf("ab") == PathOf("a", "b") {
		t.Error("key \"ab\" and keys a.b must not compare equal")
	}
}

func TestPathString(t *testing.T) {
	tests := []struct {
		path Path
		want string
	}{
		{Root(), ""},
		{PathOf("memory"), "memory"},
		{PathOf("app", "orchestration", "memory"), "app.orchestration.memory"},
		{PathOf("agents", 0, "name"), "agents[0].name"},
		{PathOf("matrix", 1, 2), "matrix[1][2]"},
	}
	for _, tt := range tests {
		if got := tt.path.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestParsePath(t *testing.T) {
	tests := []string{
		"memory",
		"app.orchestration.memory",
		"agents[0].name",
		"matrix[1][2]",
	}
	for _, s := range tests {
		p, err := ParsePath(s)
		if err != nil {
			t.Fatalf("ParsePath(%q) returned error: %v", s, err)
		}
		if p.String() != s {
			t.Errorf("ParsePath(%q).String() = %q", s, p.String())
		}
	}

	for _, bad := range []string{"a..b", "a[x]", "a[1"} {
		if _, err := ParsePath(bad); err == nil {
			t.Errorf("ParsePath(%q) should fail", bad)
		}
	}
}

func TestPathNavigation(t *testing.T) {
	p := PathOf("app", "orchestration", "memory")

	if p.Section() != "app" {
		t.Errorf("Section() = %q, want %q", p.Section(), "app")
	}
	if p.Parent() != PathOf("app", "orchestration") {
		t.Errorf("Parent() = %q", p.Parent())
	}
	if !p.HasPrefix(PathOf("app")) {
		t.Error("HasPrefix(app) = false")
	}
	if PathOf("apps", "x").HasPrefix(PathOf("app")) {
		t.Error("apps.x should not have prefix app")
	}
	if p.Len() != 3 {
		t.Errorf("Len() = %d, want 3", p.Len())
	}
	last, ok := PathOf("agents", 4).Last()
	if !ok || !last.IsIndex || last.Index != 4 {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
	if Root().Parent() != Root() {
		t.Error("Root().Parent() should be the root")
	}
}

func TestPathJSON(t *testing.T) {
	p := PathOf("agents", 2, "tools")
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(data) != `["agents",2,"tools"]` {
		t.Errorf("Marshal = %s", data)
	}

	var back Path
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if back != p {
		t.Errorf("Unmarshal = %q, want %q", back, p)
	}

	var dotted Path
	if err := json.Unmarshal([]byte(`"app.orchestration.memory"`), &dotted); err != nil {
		t.Fatalf("Unmarshal dotted returned error: %v", err)
	}
	if dotted != PathOf("app", "orchestration", "memory") {
		t.Errorf("Unmarshal dotted = %q", dotted)
	}

	var keyWithDot Path
	if err := json.Unmarshal([]byte(`["variables","db.host"]`), &keyWithDot); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if keyWithDot != PathOf("variables", "db.host") {
		t.Errorf("Unmarshal = %q", keyWithDot)
	}
}
