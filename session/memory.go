package session

import (
	"fmt"
	"log/slog"

	"github.com/everydev1618/daobuilder/model"
	"github.com/everydev1618/daobuilder/refs"
)

var memoryPath = model.PathOf(model.MemorySection)

// stripRefNames deletes every refName field read from source text. Links
// come only from aliases in the source and from LinkMemory, so a document
// without anchors cannot declare one by spelling out the field.
func stripRefNames(root model.Node) {
	model.Walk(root, func(_ model.Path, n model.Node) bool {
		if m, ok := n.(*model.Mapping); ok {
			m.Delete(model.RefNameKey)
		}
		return true
	})
}

// assignMemoryRefName records the anchor name of the memory section on the
// section itself and on every place that aliased it in the source. The name
// comes from the memory anchor, else from the memory's own name.
func assignMemoryRefName(root model.Node, rm refs.ReferenceMap) {
	mem, ok := model.Lookup(root, memoryPath)
	if !ok {
		return
	}
	if _, ok := mem.(*model.Mapping); !ok {
		return
	}

	name, ok := rm.AnchorAt(memoryPath)
	if !ok || !refs.ValidAnchorName(name) {
		name = defaultMemoryRefName(mem)
	}
	model.SetRefName(mem, name)

	for _, u := range rm.Aliases {
		def, ok := rm.DefinitionOf(u)
		if !ok || def != memoryPath {
			continue
		}
		if site, ok := model.Lookup(root, u.Path); ok {
			model.SetRefName(site, name)
		}
	}
}

func defaultMemoryRefName(mem model.Node) string {
	m := mem.(*model.Mapping)
	if n, ok := m.Get("name"); ok {
		if s, ok := n.(*model.Scalar); ok {
			return refs.AnchorNameFrom(s.Value, model.MemorySection)
		}
	}
	return model.MemorySection
}

// renameMemoryRefName moves every mapping that carries the memory section's
// refName over to name.
func renameMemoryRefName(root model.Node, name string) {
	mem, ok := model.Lookup(root, memoryPath)
	if !ok {
		return
	}
	old, ok := model.RefName(mem)
	if !ok {
		model.SetRefName(mem, name)
		return
	}
	model.Walk(root, func(_ model.Path, n model.Node) bool {
		if r, ok := model.RefName(n); ok && r == old {
			model.SetRefName(n, name)
		}
		return true
	})
}

// LinkMemory points the mapping at p at the memory section: p receives a copy
// of memory carrying the same refName, so export writes it as an alias for as
// long as the two stay equal.
func (s *Session) LinkMemory(p model.Path) error {
	if p.IsRoot() || p.HasPrefix(memoryPath) {
		return fmt.Errorf("link memory at %s: path must be outside the memory section", p)
	}
	mem, ok := model.Lookup(s.root, memoryPath)
	if !ok {
		return fmt.Errorf("link memory at %s: %w", p, ErrNoMemory)
	}
	if _, ok := mem.(*model.Mapping); !ok {
		return fmt.Errorf("link memory at %s: memory section is not a mapping", p)
	}

	name, ok := model.RefName(mem)
	if !ok {
		name = defaultMemoryRefName(mem)
		if o, ok := s.store.SectionOverride(model.MemorySection); ok {
			name = o
		}
		model.SetRefName(mem, name)
	}

	root, err := model.Set(s.root, p, model.Clone(mem))
	if err != nil {
		return fmt.Errorf("link memory: %w", err)
	}
	s.root = root
	slog.Debug("session: linked memory", "path", p.String(), "ref_name", name)
	return nil
}

// MemoryRefName returns the anchor name threaded through the memory section.
func (s *Session) MemoryRefName() (string, bool) {
	mem, ok := model.Lookup(s.root, memoryPath)
	if !ok {
		return "", false
	}
	return model.RefName(mem)
}
