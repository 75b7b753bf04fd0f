package refs

import "fmt"

// Store holds the reference map of the one document currently open, plus the
// anchor names the user chose per top-level section.
//
// A Store is owned by a single session and is not safe for concurrent use.
type Store struct {
	refs      ReferenceMap
	overrides map[string]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		refs:      NewReferenceMap(),
		overrides: map[string]string{},
	}
}

// Set replaces the reference map wholesale.
func (s *Store) Set(rm ReferenceMap) {
	if rm.Anchors == nil {
		rm.Anchors = map[string]AnchorDefinition{}
	}
	s.refs = rm
}

// Get returns the current reference map.
func (s *Store) Get() ReferenceMap {
	return s.refs
}

// Clear empties the reference map. Section overrides are kept.
func (s *Store) Clear() {
	s.refs = NewReferenceMap()
}

// SetSectionOverride forces the anchor name used for a section.
func (s *Store) SetSectionOverride(section, name string) error {
	if section == "" {
		return fmt.Errorf("section override: empty section key")
	}
	if !ValidAnchorName(name) {
		return fmt.Errorf("section override %s: invalid anchor name %q", section, name)
	}
	s.overrides[section] = name
	return nil
}

// SectionOverride returns the override for a section.
func (s *Store) SectionOverride(section string) (string, bool) {
	name, ok := s.overrides[section]
	return name, ok
}

// SectionOverrides returns a copy of all overrides.
func (s *Store) SectionOverrides() map[string]string {
	out := make(map[string]string, len(s.overrides))
	for k, v := range s.overrides {
		out[k] = v
	}
	return out
}

// ClearSectionOverrides drops every override.
func (s *Store) ClearSectionOverrides() {
	s.overrides = map[string]string{}
}
