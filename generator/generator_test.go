package generator

import (
	"strings"
	"testing"

	"github.com/everydev1618/daobuilder/model"
	"github.com/everydev1618/daobuilder/refs"
)

const memoryDoc = `
memory: &mem
  checkpointer:
    type: postgres
app:
  orchestration:
    memory: *mem
`

// load imports src the way the pipeline does, minus refName handling.
func load(t *testing.T, src string) (model.Node, refs.ReferenceMap) {
	t.Helper()
	rm, err := refs.Extract([]byte(src))
	if err != nil {
		t.Fatalf("Extract() returned error: %v", err)
	}
	root, err := model.Load([]byte(src))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	return root, rm
}

func generate(t *testing.T, root model.Node, rm refs.ReferenceMap, overrides map[string]string) string {
	t.Helper()
	out, err := Generate(root, rm, overrides)
	if err != nil {
		t.Fatalf("Generate() returned error: %v", err)
	}
	return string(out)
}

func TestGenerateAliasFidelity(t *testing.T) {
	root, rm := load(t, memoryDoc)
	got := generate(t, root, rm, nil)

	want := `memory: &mem
  checkpointer:
    type: postgres
app:
  orchestration:
    memory: *mem
`
	if got != want {
		t.Fatalf("Generate() =\n%s\nwant\n%s", got, want)
	}
}

func TestGenerateDriftFallsBackToInline(t *testing.T) {
	root, rm := load(t, memoryDoc)
	if _, err := model.Set(root, model.PathOf("app", "orchestration", "memory", "checkpointer", "type"), model.Str("sqlite")); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}

	got := generate(t, root, rm, nil)
	if strings.Contains(got, "&") || strings.Contains(got, "*") {
		t.Fatalf("drifted copies must not share a reference:\n%s", got)
	}

	back, err := model.Load([]byte(got))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	def, _ := model.Lookup(back, model.PathOf("memory", "checkpointer", "type"))
	alias, _ := model.Lookup(back, model.PathOf("app", "orchestration", "memory", "checkpointer", "type"))
	if def.(*model.Scalar).Value != "postgres" {
		t.Errorf("memory.checkpointer.type = %q, want postgres", def.(*model.Scalar).Value)
	}
	if alias.(*model.Scalar).Value != "sqlite" {
		t.Errorf("app.orchestration.memory.checkpointer.type = %q, want sqlite", alias.(*model.Scalar).Value)
	}
}

func TestGenerateDriftOnDefinitionSide(t *testing.T) {
	root, rm := load(t, memoryDoc)
	if _, err := model.Set(root, model.PathOf("memory", "checkpointer", "type"), model.Str("redis")); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}

	got := generate(t, root, rm, nil)
	if strings.Contains(got, "*mem") {
		t.Fatalf("drifted definition must not be aliased:\n%s", got)
	}
	if !strings.Contains(got, "type: redis") || !strings.Contains(got, "type: postgres") {
		t.Errorf("both copies should keep their own content:\n%s", got)
	}
}

func TestGenerateNoSpeculativeDeduplication(t *testing.T) {
	root, rm := load(t, "tools:\n  a: {x: 1}\n  b: {x: 1}\n")
	got := generate(t, root, rm, nil)
	if strings.Contains(got, "&") || strings.Contains(got, "*") {
		t.Errorf("identical content without a source alias must stay inline:\n%s", got)
	}
}

func TestGenerateAnchorPrecedesAliasAfterReordering(t *testing.T) {
	src := `
app:
  orchestration:
    memory: &m
      checkpointer: {type: postgres}
memory: *m
`
	root, rm := load(t, src)
	got := generate(t, root, rm, nil)

	if strings.Index(got, "&m") > strings.Index(got, "*m") {
		t.Fatalf("anchor must precede alias:\n%s", got)
	}
	back, err := refs.Extract([]byte(got))
	if err != nil {
		t.Fatalf("generated YAML does not parse: %v\n%s", err, got)
	}
	if back.Anchors["m"].Path != model.PathOf("memory") {
		t.Errorf("anchor m at %q, want memory", back.Anchors["m"].Path)
	}
	if len(back.Aliases) != 1 || back.Aliases[0].Path != model.PathOf("app", "orchestration", "memory") {
		t.Errorf("aliases = %+v", back.Aliases)
	}
}

func TestGenerateSectionOverride(t *testing.T) {
	root, rm := load(t, memoryDoc)
	got := generate(t, root, rm, map[string]string{"memory": "shared_mem"})

	if !strings.Contains(got, "memory: &shared_mem") || !strings.Contains(got, "memory: *shared_mem") {
		t.Errorf("override name not used:\n%s", got)
	}
	if strings.Contains(got, "&mem\n") {
		t.Errorf("recorded name should be replaced:\n%s", got)
	}
}

func TestGenerateOverrideWithoutAnchorsAddsNothing(t *testing.T) {
	root, rm := load(t, "memory:\n  type: x\napp:\n  orchestration:\n    memory:\n      type: x\n")
	got := generate(t, root, rm, map[string]string{"memory": "shared_mem"})
	if strings.Contains(got, "&") || strings.Contains(got, "*") {
		t.Errorf("an override must not invent a reference:\n%s", got)
	}
}

func TestGenerateRedefinedAnchorNamesStayUnique(t *testing.T) {
	root, rm := load(t, "a: &x 1\nb: *x\nc: &x 2\nd: *x\n")
	got := generate(t, root, rm, nil)

	back, err := refs.Extract([]byte(got))
	if err != nil {
		t.Fatalf("generated YAML does not parse: %v\n%s", err, got)
	}
	if back.Anchors["x"].Path != model.PathOf("a") {
		t.Errorf("anchor x at %q, want a", back.Anchors["x"].Path)
	}
	if back.Anchors["x_2"].Path != model.PathOf("c") {
		t.Errorf("anchor x_2 at %q, want c", back.Anchors["x_2"].Path)
	}
	if len(back.Aliases) != 2 {
		t.Fatalf("aliases = %+v", back.Aliases)
	}
}

func TestGenerateMemoryRefNameLink(t *testing.T) {
	root, _ := load(t, "memory:\n  checkpointer: {type: postgres}\napp:\n  orchestration:\n    memory:\n      checkpointer: {type: postgres}\n")
	mem, _ := model.Lookup(root, model.PathOf("memory"))
	site, _ := model.Lookup(root, model.PathOf("app", "orchestration", "memory"))
	model.SetRefName(mem, "my_memory")
	model.SetRefName(site, "my_memory")

	got := generate(t, root, refs.NewReferenceMap(), nil)
	if !strings.Contains(got, "memory: &my_memory") || !strings.Contains(got, "memory: *my_memory") {
		t.Fatalf("refName link not written as an alias:\n%s", got)
	}
	if strings.Contains(got, model.RefNameKey) {
		t.Errorf("refName must never be exported:\n%s", got)
	}

	// A linked site whose content drifted is written inline.
	if _, err := model.Set(root, model.PathOf("app", "orchestration", "memory", "checkpointer", "type"), model.Str("sqlite")); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}
	got = generate(t, root, refs.NewReferenceMap(), nil)
	if strings.Contains(got, "my_memory") {
		t.Errorf("drifted memory link must not be aliased:\n%s", got)
	}
}

func TestGenerateMemoryKeepsRefNameOnCollision(t *testing.T) {
	src := "resources:\n  a: &mem {x: 1}\n  b: *mem\n" + memoryDoc
	root, rm := load(t, src)
	mem, _ := model.Lookup(root, model.PathOf("memory"))
	site, _ := model.Lookup(root, model.PathOf("app", "orchestration", "memory"))
	model.SetRefName(mem, "mem")
	model.SetRefName(site, "mem")

	got := generate(t, root, rm, nil)
	for _, want := range []string{"a: &mem_2", "b: *mem_2", "memory: &mem\n", "memory: *mem\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestGenerateStalePathFallsBack(t *testing.T) {
	root, _ := load(t, "memory: {type: x}\n")
	rm := refs.NewReferenceMap()
	rm.Anchors["gone"] = refs.AnchorDefinition{Name: "gone", Path: model.PathOf("nowhere")}
	rm.Aliases = append(rm.Aliases, refs.AliasUsage{
		Path:       model.PathOf("memory"),
		AnchorName: "gone",
		Definition: model.PathOf("nowhere"),
	})

	got := generate(t, root, rm, nil)
	if got != "memory:\n  type: x\n" {
		t.Errorf("Generate() = %q", got)
	}
}

func TestGenerateCanonicalOrdering(t *testing.T) {
	a := model.Node(model.NewMapping())
	b := model.Node(model.NewMapping())

	edits := []struct {
		path  model.Path
		value string
	}{
		{model.PathOf("app", "name"), "demo"},
		{model.PathOf("agents", "writer", "model"), "claude"},
		{model.PathOf("variables", "host"), "localhost"},
		{model.PathOf("memory", "type"), "postgres"},
		{model.PathOf("custom", "flag"), "on"},
	}
	for _, e := range edits {
		a, _ = model.Set(a, e.path, model.Str(e.value))
	}
	for i := len(edits) - 1; i >= 0; i-- {
		b, _ = model.Set(b, edits[i].path, model.Str(edits[i].value))
	}

	ga := generate(t, a, refs.NewReferenceMap(), nil)
	gb := generate(t, b, refs.NewReferenceMap(), nil)
	if ga != gb {
		t.Fatalf("outputs differ:\n%s\n---\n%s", ga, gb)
	}

	order := []string{"variables:", "memory:", "agents:", "app:", "custom:"}
	last := -1
	for _, key := range order {
		idx := strings.Index(ga, key)
		if idx < last {
			t.Fatalf("%s out of canonical order:\n%s", key, ga)
		}
		last = idx
	}
}

func TestGenerateRoundTripIdempotence(t *testing.T) {
	docs := []string{
		memoryDoc,
		"a: &x 1\nb: *x\nc: &x 2\nd: *x\n",
		`
resources:
  llms:
    default: &llm
      name: claude
      temperature: 0.1
agents:
  writer:
    model: *llm
    prompt: |
      You write things.
      Carefully.
  reviewer:
    model: *llm
    tags: ["1", 2, true, null]
app:
  name: demo
  agents: [writer, reviewer]
`,
		"base: &b {x: 1}\nchild:\n  <<: *b\n  y: 2\n",
	}
	for _, src := range docs {
		root, rm := load(t, src)
		overrides := map[string]string{"memory": "shared"}

		first := generate(t, root, rm, overrides)
		root2, rm2 := load(t, first)
		second := generate(t, root2, rm2, overrides)

		if first != second {
			t.Errorf("not idempotent for %q:\nfirst:\n%s\nsecond:\n%s", src, first, second)
		}
	}
}

func TestGenerateEmpty(t *testing.T) {
	if got := generate(t, model.NewMapping(), refs.NewReferenceMap(), nil); got != "" {
		t.Errorf("Generate(empty) = %q, want empty", got)
	}
	if got := generate(t, nil, refs.NewReferenceMap(), nil); got != "" {
		t.Errorf("Generate(nil) = %q, want empty", got)
	}
}

func TestGenerateIsPure(t *testing.T) {
	root, rm := load(t, memoryDoc)
	before := model.Clone(root)

	first := generate(t, root, rm, nil)
	second := generate(t, root, rm, nil)
	if first != second {
		t.Error("identical inputs must give identical output")
	}
	if !model.Equal(root, before) {
		t.Error("Generate must not modify the model")
	}
}
