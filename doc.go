// Package daobuilder edits multi-agent AI configuration files without losing
// their YAML anchors and aliases.
//
// A configuration is imported twice: once with a structure preserving parse
// that records which paths declared anchors (&name) and which used aliases
// (*name), and once with a resolving load that yields the plain tree the form
// layer edits. On export the tree is written back out and the recorded
// references are re-emitted wherever the aliased copies still hold identical
// content. Copies that were edited independently are written inline.
//
// # Packages
//
//   - model: the configuration tree, paths, structural equality and edits
//   - refs: anchor/alias extraction and the per-document reference store
//   - generator: deterministic YAML output with reference re-emission
//   - session: one open document and its import/apply pipeline
//   - serve: the HTTP API, export history and deployment tracking
//
// # Quick Start
//
//	s := session.New()
//	if err := s.Import(src); err != nil {
//	    var pe *model.ParseError
//	    if errors.As(err, &pe) {
//	        log.Fatalf("line %d: %s", pe.Line, pe.Message)
//	    }
//	    log.Fatal(err)
//	}
//	s.Set(model.PathOf("app", "name"), model.Str("support-bot"))
//	out, _ := s.Export()
//
// The daobuilder command wraps the same pipeline for files and serves it over
// HTTP.
package daobuilder
