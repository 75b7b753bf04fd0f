// Package refs records which paths of a YAML document declared anchors and
// which used aliases, before a generic load flattens them away.
package refs

import (
	"regexp"
	"sort"
	"strings"

	"github.com/everydev1618/daobuilder/model"
)

// AnchorDefinition is a named binding point (&name) in the source document.
type AnchorDefinition struct {
	Name        string     `json:"name"`
	Path        model.Path `json:"path"`
	Fingerprint model.Hash `json:"fingerprint"`
	Line        int        `json:"line,omitempty"`
	Column      int        `json:"column,omitempty"`
}

// AliasUsage is a reference (*name) in the source document. Definition is
// the path of the anchor the alias resolved to when it was read, which
// differs from the final definition when a name is declared twice.
type AliasUsage struct {
	Path       model.Path `json:"path"`
	AnchorName string     `json:"anchor"`
	Definition model.Path `json:"definition"`
	Line       int        `json:"line,omitempty"`
	Column     int        `json:"column,omitempty"`
}

// ReferenceMap is the anchor/alias structure of one document.
type ReferenceMap struct {
	Anchors map[string]AnchorDefinition `json:"anchors"`
	Aliases []AliasUsage                `json:"aliases"`
}

// NewReferenceMap returns an empty map.
func NewReferenceMap() ReferenceMap {
	return ReferenceMap{Anchors: map[string]AnchorDefinition{}}
}

// Empty reports whether the document had no anchors or aliases.
func (rm ReferenceMap) Empty() bool {
	return len(rm.Anchors) == 0 && len(rm.Aliases) == 0
}

// DefinitionOf returns the definition path an alias points at.
func (rm ReferenceMap) DefinitionOf(u AliasUsage) (model.Path, bool) {
	if !u.Definition.IsRoot() {
		return u.Definition, true
	}
	def, ok := rm.Anchors[u.AnchorName]
	if !ok {
		return model.Root(), false
	}
	return def.Path, true
}

// AnchorAt returns the anchor name declared at p, if any.
func (rm ReferenceMap) AnchorAt(p model.Path) (string, bool) {
	for name, def := range rm.Anchors {
		if def.Path == p {
			return name, true
		}
	}
	for _, u := range rm.Aliases {
		if u.Definition == p && !p.IsRoot() {
			return u.AnchorName, true
		}
	}
	return "", false
}

// AnchorNames returns the anchor names in sorted order.
func (rm ReferenceMap) AnchorNames() []string {
	names := make([]string, 0, len(rm.Anchors))
	for name := range rm.Anchors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy that shares nothing with rm.
func (rm ReferenceMap) Clone() ReferenceMap {
	out := ReferenceMap{
		Anchors: make(map[string]AnchorDefinition, len(rm.Anchors)),
		Aliases: append([]AliasUsage(nil), rm.Aliases...),
	}
	for k, v := range rm.Anchors {
		out.Anchors[k] = v
	}
	return out
}

var anchorNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidAnchorName reports whether name can be written as &name / *name.
func ValidAnchorName(name string) bool {
	return anchorNamePattern.MatchString(name)
}

// AnchorNameFrom turns free text into a valid anchor name, falling back to
// fallback when nothing usable remains.
func AnchorNameFrom(s, fallback string) string {
	var b strings.Builder
	lastSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSep = false
		case b.Len() > 0 && !lastSep:
			b.WriteByte('_')
			lastSep = true
		}
	}
	out := strings.TrimRight(b.String(), "_")
	if out == "" {
		return fallback
	}
	return out
}
