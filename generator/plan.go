package generator

import (
	"github.com/everydev1618/daobuilder/model"
	"github.com/everydev1618/daobuilder/refs"
)

// group is a set of paths that may share one anchor in the output: the
// definition path plus every alias path whose content still equals it.
type group struct {
	def      model.Path
	recorded string
	name     string
}

// plan maps each validated path to its group. Paths absent from groupOf are
// emitted inline.
type plan struct {
	groupOf map[model.Path]*group
	byDef   map[model.Path]*group
	groups  []*group
	memRef  string
}

func (p *plan) groupAt(def model.Path, recorded string) *group {
	if g, ok := p.byDef[def]; ok {
		return g
	}
	g := &group{def: def, recorded: recorded}
	p.byDef[def] = g
	p.groups = append(p.groups, g)
	return g
}

func (p *plan) assign(at model.Path, g *group) {
	if _, taken := p.groupOf[at]; !taken {
		p.groupOf[at] = g
	}
}

// buildPlan pairs every recorded alias with its definition and keeps the
// pair only if both paths still exist and hold equal content. Nothing is
// shared that the source did not share, except sites explicitly linked to
// the memory section through its refName.
func buildPlan(root model.Node, rm refs.ReferenceMap, overrides map[string]string) *plan {
	p := &plan{
		groupOf: map[model.Path]*group{},
		byDef:   map[model.Path]*group{},
	}

	for _, u := range rm.Aliases {
		def, ok := rm.DefinitionOf(u)
		if !ok || !linkable(root, def, u.Path) {
			continue
		}
		if owner, taken := p.groupOf[def]; taken && owner.def != def {
			continue
		}
		g := p.groupAt(def, u.AnchorName)
		p.assign(def, g)
		p.assign(u.Path, g)
	}

	planMemoryLinks(p, root)
	nameGroups(p, overrides)
	return p
}

// linkable reports whether the alias at a can still be written as an alias
// of the definition at d.
func linkable(root model.Node, d, a model.Path) bool {
	if d == a || d.HasPrefix(a) || a.HasPrefix(d) {
		return false
	}
	dn, ok := model.Lookup(root, d)
	if !ok {
		return false
	}
	an, ok := model.Lookup(root, a)
	if !ok {
		return false
	}
	return model.Equal(dn, an)
}

// planMemoryLinks joins every mapping that carries the memory section's
// refName, and still matches it, to the memory group.
func planMemoryLinks(p *plan, root model.Node) {
	memPath := model.PathOf(model.MemorySection)
	mem, ok := model.Lookup(root, memPath)
	if !ok {
		return
	}
	refName, ok := model.RefName(mem)
	if !ok {
		return
	}
	p.memRef = refName

	var sites []model.Path
	model.Walk(root, func(at model.Path, n model.Node) bool {
		if at.IsRoot() {
			return true
		}
		if at.HasPrefix(memPath) {
			return false
		}
		if name, ok := model.RefName(n); ok && name == refName && model.Equal(n, mem) {
			sites = append(sites, at)
			return false
		}
		return true
	})
	if len(sites) == 0 {
		return
	}

	g := p.groupAt(memPath, refName)
	p.assign(memPath, g)
	for _, at := range sites {
		p.assign(at, g)
	}
}

// nameGroups picks the base anchor name for every group: a section override
// for the shallowest group defined in that section, then the memory refName,
// then the name recorded at extraction.
func nameGroups(p *plan, overrides map[string]string) {
	designated := map[string]*group{}
	for _, g := range p.groups {
		section := g.def.Section()
		if _, ok := overrides[section]; !ok {
			continue
		}
		cur, ok := designated[section]
		if !ok || shallower(g.def, cur.def) {
			designated[section] = g
		}
	}

	for _, g := range p.groups {
		g.name = g.recorded
		if g.def == model.PathOf(model.MemorySection) && p.memRef != "" {
			g.name = p.memRef
		}
		if d, ok := designated[g.def.Section()]; ok && d == g {
			g.name = overrides[g.def.Section()]
		}
		if !refs.ValidAnchorName(g.name) {
			g.name = refs.AnchorNameFrom(g.name, "ref")
		}
	}
}

func shallower(a, b model.Path) bool {
	if a.Len() != b.Len() {
		return a.Len() < b.Len()
	}
	return a.String() < b.String()
}
