// Package session holds one open configuration document: the live model the
// form layer edits, the reference map taken from the YAML it was imported
// from, and the anchor names the user forced per section.
//
// A Session is not safe for concurrent use. Callers serialise access; the
// HTTP layer keeps one mutex per session.
package session

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/everydev1618/daobuilder/generator"
	"github.com/everydev1618/daobuilder/model"
	"github.com/everydev1618/daobuilder/refs"
)

// ErrNoMemory is returned by memory link operations when the document has no
// memory section to point at.
var ErrNoMemory = errors.New("document has no memory section")

// Session is the state of a single open document.
type Session struct {
	store *refs.Store
	root  model.Node
	gen   *generator.Generator
}

// New returns an empty session.
func New() *Session {
	return &Session{
		store: refs.NewStore(),
		root:  model.NewMapping(),
		gen:   generator.New(),
	}
}

// Import opens src as a new document. Section overrides from the previous
// document are dropped.
func (s *Session) Import(src []byte) error {
	if err := s.load(src, true); err != nil {
		return err
	}
	slog.Debug("session: imported document", "bytes", len(src), "anchors", len(s.store.Get().Anchors))
	return nil
}

// Apply replaces the document with an edited version of itself. Section
// overrides are kept since the edit continues the same document.
func (s *Session) Apply(src []byte) error {
	if err := s.load(src, false); err != nil {
		return err
	}
	slog.Debug("session: applied edited yaml", "bytes", len(src), "overrides", len(s.store.SectionOverrides()))
	return nil
}

// load parses src twice, once keeping references and once resolving them,
// and only then commits. A failed parse leaves the session unchanged.
func (s *Session) load(src []byte, fresh bool) error {
	rm, err := refs.Extract(src)
	if err != nil {
		return fmt.Errorf("extract references: %w", err)
	}
	root, err := model.Load(src)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	stripRefNames(root)

	s.store.Set(rm)
	s.root = root
	if fresh {
		s.store.ClearSectionOverrides()
	}
	assignMemoryRefName(s.root, rm)
	if name, ok := s.store.SectionOverride(model.MemorySection); ok {
		renameMemoryRefName(s.root, name)
	}
	return nil
}

// Reset closes the document.
func (s *Session) Reset() {
	s.store.Clear()
	s.store.ClearSectionOverrides()
	s.root = model.NewMapping()
	slog.Debug("session: reset")
}

// Config returns a copy of the live model.
func (s *Session) Config() model.Node {
	return model.Clone(s.root)
}

// Lookup returns a copy of the node at p.
func (s *Session) Lookup(p model.Path) (model.Node, bool) {
	n, ok := model.Lookup(s.root, p)
	if !ok {
		return nil, false
	}
	return model.Clone(n), true
}

// Set stores v at p. The root can only be replaced by a mapping.
func (s *Session) Set(p model.Path, v model.Node) error {
	if p.IsRoot() {
		if _, ok := v.(*model.Mapping); !ok {
			return fmt.Errorf("set %s: document root must be a mapping", p)
		}
	}
	root, err := model.Set(s.root, p, v)
	if err != nil {
		return err
	}
	s.root = root
	slog.Debug("session: set", "path", p.String(), "kind", v.Kind().String())
	return nil
}

// Delete removes the node at p.
func (s *Session) Delete(p model.Path) error {
	if err := model.Delete(s.root, p); err != nil {
		return err
	}
	slog.Debug("session: delete", "path", p.String())
	return nil
}

// SetSectionOverride forces the anchor name written for a top-level section.
func (s *Session) SetSectionOverride(section, name string) error {
	if err := s.store.SetSectionOverride(section, name); err != nil {
		return err
	}
	if section == model.MemorySection {
		renameMemoryRefName(s.root, name)
	}
	slog.Debug("session: section override", "section", section, "name", name)
	return nil
}

// SectionOverrides returns the current section overrides.
func (s *Session) SectionOverrides() map[string]string {
	return s.store.SectionOverrides()
}

// ClearSectionOverrides drops every section override.
func (s *Session) ClearSectionOverrides() {
	s.store.ClearSectionOverrides()
	slog.Debug("session: cleared section overrides")
}

// Export renders the document as YAML.
func (s *Session) Export() ([]byte, error) {
	return s.gen.Generate(s.root, s.store.Get(), s.store.SectionOverrides())
}

// Sanitized returns the form of the document that may be sent to validation
// and deployment endpoints. The root keeps the document's shape, so a
// sequence or scalar document is returned as such.
func (s *Session) Sanitized() (any, error) {
	return generator.Sanitize(s.root, s.store.Get(), s.store.SectionOverrides())
}

// References returns a copy of the reference map taken at the last import.
func (s *Session) References() refs.ReferenceMap {
	return s.store.Get().Clone()
}

// Drift reports the state of every recorded alias against the live model.
func (s *Session) Drift() []generator.Link {
	return generator.Links(s.root, s.store.Get())
}
