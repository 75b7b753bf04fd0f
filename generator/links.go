package generator

import (
	"github.com/everydev1618/daobuilder/model"
	"github.com/everydev1618/daobuilder/refs"
)

// LinkState describes what became of an alias recorded at import.
type LinkState string

const (
	// LinkIntact means both copies still match and will be written as an alias.
	LinkIntact LinkState = "intact"
	// LinkDrifted means one copy was edited; both are written inline.
	LinkDrifted LinkState = "drifted"
	// LinkMissing means the definition or the alias path no longer exists.
	LinkMissing LinkState = "missing"
)

// Link reports the state of one recorded alias against the current model.
type Link struct {
	Anchor     string     `json:"anchor"`
	Definition model.Path `json:"definition"`
	Alias      model.Path `json:"alias"`
	State      LinkState  `json:"state"`
	// DefinitionEdited is set when the content at the definition no longer
	// matches the fingerprint taken at extraction time.
	DefinitionEdited bool `json:"definition_edited"`
}

// Links evaluates every alias in rm against root. Drift is not an error; this
// is a report for display.
func Links(root model.Node, rm refs.ReferenceMap) []Link {
	out := make([]Link, 0, len(rm.Aliases))
	for _, u := range rm.Aliases {
		def, ok := rm.DefinitionOf(u)
		l := Link{Anchor: u.AnchorName, Definition: def, Alias: u.Path}

		dn, dok := model.Lookup(root, def)
		_, aok := model.Lookup(root, u.Path)
		switch {
		case !ok || !dok || !aok:
			l.State = LinkMissing
		case linkable(root, def, u.Path):
			l.State = LinkIntact
		default:
			l.State = LinkDrifted
		}

		if a, ok := rm.Anchors[u.AnchorName]; ok && a.Path == def && dok {
			l.DefinitionEdited = model.Fingerprint(dn) != a.Fingerprint
		}
		out = append(out, l)
	}
	return out
}
