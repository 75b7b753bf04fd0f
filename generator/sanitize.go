package generator

import (
	"fmt"
	"math"

	"github.com/everydev1618/daobuilder/model"
	"github.com/everydev1618/daobuilder/refs"
	"gopkg.in/yaml.v3"
)

// Sanitize produces the copy of the model that may leave the process: the
// model is generated to YAML and re-parsed with a generic loader, which drops
// internal bookkeeping such as refName and resolves every alias and merge key.
// Validation and deployment endpoints must only ever receive this form.
//
// The root keeps whatever shape the document has. An empty document yields
// an empty map. Non-finite floats (.inf, .nan) come back as their YAML
// spelling so the result always encodes as JSON.
func Sanitize(root model.Node, rm refs.ReferenceMap, overrides map[string]string) (any, error) {
	out, err := Generate(root, rm, overrides)
	if err != nil {
		return nil, fmt.Errorf("sanitize: %w", err)
	}

	var clean any
	if err := yaml.Unmarshal(out, &clean); err != nil {
		return nil, fmt.Errorf("sanitize: reparse generated yaml: %w", err)
	}
	if clean == nil {
		return map[string]any{}, nil
	}
	return jsonSafe(clean), nil
}

func jsonSafe(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, x := range t {
			t[k] = jsonSafe(x)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[fmt.Sprint(k)] = jsonSafe(x)
		}
		return m
	case []any:
		for i, x := range t {
			t[i] = jsonSafe(x)
		}
		return t
	case float64:
		switch {
		case math.IsNaN(t):
			return ".nan"
		case math.IsInf(t, 1):
			return ".inf"
		case math.IsInf(t, -1):
			return "-.inf"
		}
		return t
	default:
		return v
	}
}
