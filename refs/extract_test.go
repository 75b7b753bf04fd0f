package refs

import (
	"errors"
	"testing"

	"github.com/everydev1618/daobuilder/model"
	"gopkg.in/yaml.v3"
)

const memoryDoc = `
memory: &mem
  checkpointer:
    type: postgres
app:
  orchestration:
    memory: *mem
`

func TestExtractAnchorAndAlias(t *testing.T) {
	rm, err := Extract([]byte(memoryDoc))
	if err != nil {
		t.Fatalf("Extract() returned error: %v", err)
	}

	def, ok := rm.Anchors["mem"]
	if !ok {
		t.Fatal("anchor 'mem' not recorded")
	}
	if def.Path != model.PathOf("memory") {
		t.Errorf("anchor path = %q, want memory", def.Path)
	}
	if def.Line != 2 {
		t.Errorf("anchor line = %d, want 2", def.Line)
	}

	if len(rm.Aliases) != 1 {
		t.Fatalf("len(Aliases) = %d, want 1", len(rm.Aliases))
	}
	u := rm.Aliases[0]
	if u.Path != model.PathOf("app", "orchestration", "memory") {
		t.Errorf("alias path = %q", u.Path)
	}
	if u.AnchorName != "mem" || u.Definition != def.Path {
		t.Errorf("alias = %+v", u)
	}

	resolved, err := model.Load([]byte(memoryDoc))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	sub, _ := model.Lookup(resolved, model.PathOf("memory"))
	if def.Fingerprint != model.Fingerprint(sub) {
		t.Error("fingerprint should match the resolved subtree")
	}
}

func TestExtractSequencesAndScalars(t *testing.T) {
	src := `
resources:
  llms:
    default: &llm
      name: claude
agents:
  - name: a
    model: *llm
    tags: &tags [x, y]
  - name: b
    model: *llm
    tags: *tags
`
	rm, err := Extract([]byte(src))
	if err != nil {
		t.Fatalf("Extract() returned error: %v", err)
	}
	if rm.Anchors["llm"].Path != model.PathOf("resources", "llms", "default") {
		t.Errorf("llm path = %q", rm.Anchors["llm"].Path)
	}
	if rm.Anchors["tags"].Path != model.PathOf("agents", 0, "tags") {
		t.Errorf("tags path = %q", rm.Anchors["tags"].Path)
	}

	want := []model.Path{
		model.PathOf("agents", 0, "model"),
		model.PathOf("agents", 1, "model"),
		model.PathOf("agents", 1, "tags"),
	}
	if len(rm.Aliases) != len(want) {
		t.Fatalf("len(Aliases) = %d, want %d", len(rm.Aliases), len(want))
	}
	for i, p := range want {
		if rm.Aliases[i].Path != p {
			t.Errorf("Aliases[%d].Path = %q, want %q", i, rm.Aliases[i].Path, p)
		}
	}
}

func TestExtractRedefinitionLastWins(t *testing.T) {
	src := `
a: &x 1
b: *x
c: &x 2
d: *x
`
	rm, err := Extract([]byte(src))
	if err != nil {
		t.Fatalf("Extract() returned error: %v", err)
	}
	if rm.Anchors["x"].Path != model.PathOf("c") {
		t.Errorf("anchor x path = %q, want c", rm.Anchors["x"].Path)
	}
	if rm.Aliases[0].Definition != model.PathOf("a") {
		t.Errorf("first alias definition = %q, want a", rm.Aliases[0].Definition)
	}
	if rm.Aliases[1].Definition != model.PathOf("c") {
		t.Errorf("second alias definition = %q, want c", rm.Aliases[1].Definition)
	}
}

func TestExtractDanglingAlias(t *testing.T) {
	_, err := Extract([]byte("memory:\n  type: x\napp:\n  memory: *missing\n"))
	var pe *model.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Extract() error = %v, want *model.ParseError", err)
	}
	if pe.Kind != model.DanglingAlias {
		t.Errorf("Kind = %s, want dangling_alias", pe.Kind)
	}
	if pe.Line != 4 {
		t.Errorf("Line = %d, want 4", pe.Line)
	}
}

func TestExtractNodeAliasBeforeAnchor(t *testing.T) {
	target := &yaml.Node{Kind: yaml.ScalarNode, Value: "v", Anchor: "x"}
	doc := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: "a"},
			{Kind: yaml.AliasNode, Value: "x", Alias: target},
			{Kind: yaml.ScalarNode, Value: "b"},
			target,
		},
	}
	_, err := ExtractNode(doc)
	var pe *model.ParseError
	if !errors.As(err, &pe) || pe.Kind != model.DanglingAlias {
		t.Fatalf("ExtractNode() error = %v, want dangling alias", err)
	}
}

func TestExtractEmpty(t *testing.T) {
	rm, err := Extract(nil)
	if err != nil {
		t.Fatalf("Extract(nil) returned error: %v", err)
	}
	if !rm.Empty() {
		t.Errorf("Extract(nil) = %+v, want empty", rm)
	}
}

func TestExtractRecursiveAnchor(t *testing.T) {
	_, err := Extract([]byte("a: &x\n  b: *x\n"))
	if err == nil {
		t.Fatal("self-referencing anchor should fail")
	}
	if !model.IsParseError(err) {
		t.Errorf("error %v is not a ParseError", err)
	}
}

func TestAnchorNameFrom(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Shared Memory", "shared_memory"},
		{"  postgres-mem!! ", "postgres_mem"},
		{"", "memory"},
		{"***", "memory"},
	}
	for _, tt := range tests {
		if got := AnchorNameFrom(tt.in, "memory"); got != tt.want {
			t.Errorf("AnchorNameFrom(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if !ValidAnchorName(AnchorNameFrom(tt.in, "memory")) {
			t.Errorf("AnchorNameFrom(%q) is not a valid anchor", tt.in)
		}
	}
}
