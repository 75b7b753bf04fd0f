package model

import "sort"

// RefNameKey is the internal field that carries the anchor name of the
// memory section. It is bookkeeping: equality and fingerprints ignore it and
// it is never written to exported YAML.
const RefNameKey = "refName"

// MemorySection is the top-level section whose anchor name is threaded
// through the model as RefNameKey.
const MemorySection = "memory"

// Sections is the canonical top-level section order used for output.
var Sections = []string{
	"variables",
	"service_principals",
	"schemas",
	"resources",
	"retrievers",
	"tools",
	"guardrails",
	"middleware",
	"memory",
	"prompts",
	"agents",
	"app",
}

var sectionRank = func() map[string]int {
	m := make(map[string]int, len(Sections))
	for i, s := range Sections {
		m[s] = i
	}
	return m
}()

// IsSection reports whether key is one of the known top-level sections.
func IsSection(key string) bool {
	_, ok := sectionRank[key]
	return ok
}

// OrderedKeys returns the keys of m in output order. At the document root
// known sections come first in canonical order followed by any other keys
// alphabetically; nested mappings are alphabetical.
func OrderedKeys(m *Mapping, atRoot bool) []string {
	keys := make([]string, 0, m.Len())
	for k := range m.Fields {
		keys = append(keys, k)
	}
	if !atRoot {
		sort.Strings(keys)
		return keys
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := sectionRank[keys[i]]
		rj, jok := sectionRank[keys[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

// RefName returns the RefNameKey value stored on a mapping node.
func RefName(n Node) (string, bool) {
	m, ok := n.(*Mapping)
	if !ok {
		return "", false
	}
	v, ok := m.Get(RefNameKey)
	if !ok {
		return "", false
	}
	s, ok := v.(*Scalar)
	if !ok || s.Value == "" {
		return "", false
	}
	return s.Value, true
}

// SetRefName stores name as the RefNameKey field of n when n is a mapping.
func SetRefName(n Node, name string) bool {
	m, ok := n.(*Mapping)
	if !ok {
		return false
	}
	m.Set(RefNameKey, Str(name))
	return true
}
