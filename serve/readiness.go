package serve

import (
	"fmt"
	"sort"
	"strings"
)

// Readiness is the deployment pre-check of a sanitized configuration.
type Readiness struct {
	Valid        bool          `json:"valid"`
	Errors       []string      `json:"errors"`
	Warnings     []string      `json:"warnings"`
	Requirements []Requirement `json:"requirements"`
	AppName      string        `json:"app_name,omitempty"`
	EndpointName string        `json:"endpoint_name,omitempty"`
	AgentCount   int           `json:"agent_count"`
}

// Requirement is infrastructure a deployment will need to provision.
type Requirement struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

var resourceRequirements = []Requirement{
	{Type: "vector_search", Description: "Vector Search endpoints and indexes"},
	{Type: "genie", Description: "Genie Rooms"},
	{Type: "database", Description: "Lakebase/PostgreSQL databases"},
	{Type: "functions", Description: "Unity Catalog functions"},
}

var resourceKeys = map[string]string{
	"vector_search": "vector_stores",
	"genie":         "genie_rooms",
	"database":      "databases",
	"functions":     "functions",
}

// ReadinessOf runs CheckReadiness over a sanitized document of any shape.
// A document whose root is not a mapping is never deployable.
func ReadinessOf(config any) Readiness {
	if m, ok := config.(map[string]any); ok {
		return CheckReadiness(m)
	}
	return Readiness{
		Errors:       []string{rootShapeError(config)},
		Warnings:     []string{},
		Requirements: []Requirement{},
	}
}

func rootShapeError(config any) string {
	kind := "scalar"
	if _, ok := config.([]any); ok {
		kind = "list"
	}
	return fmt.Sprintf("configuration root must be a mapping, got a %s", kind)
}

// CheckReadiness reports what stands between config and a deployment.
func CheckReadiness(config map[string]any) Readiness {
	r := Readiness{
		Errors:       []string{},
		Warnings:     []string{},
		Requirements: []Requirement{},
	}

	app := mapAt(config, "app")
	r.AppName = stringAt(app, "name")
	if r.AppName == "" {
		r.Errors = append(r.Errors, "app.name is required")
	}

	if rm, ok := app["registered_model"].(map[string]any); !ok {
		r.Errors = append(r.Errors, "app.registered_model is required for deployment")
	} else {
		if stringAt(rm, "name") == "" {
			r.Errors = append(r.Errors, "app.registered_model.name is required")
		}
		if _, ok := rm["schema"]; !ok {
			r.Errors = append(r.Errors, "app.registered_model.schema is required")
		}
	}

	r.EndpointName = stringAt(app, "endpoint_name")
	if r.EndpointName == "" {
		r.Warnings = append(r.Warnings, "app.endpoint_name not set - will default to app name")
		r.EndpointName = r.AppName
	}

	agents := mapAt(config, "agents")
	r.AgentCount = len(agents)
	if r.AgentCount == 0 {
		r.Errors = append(r.Errors, "At least one agent is required")
	}
	r.Errors = append(r.Errors, checkAgentRefs(app, agents)...)

	orch := mapAt(app, "orchestration")
	if orch["supervisor"] == nil && orch["swarm"] == nil {
		r.Errors = append(r.Errors, "Orchestration pattern (supervisor or swarm) is required")
	}

	resources := mapAt(config, "resources")
	if len(mapAt(resources, "llms")) == 0 {
		r.Warnings = append(r.Warnings, "No LLMs configured in resources")
	}
	for _, req := range resourceRequirements {
		if n := countAt(resources, resourceKeys[req.Type]); n > 0 {
			req.Count = n
			r.Requirements = append(r.Requirements, req)
		}
	}

	r.Valid = len(r.Errors) == 0
	return r
}

// checkAgentRefs verifies that every agent listed under app.agents is
// defined in the agents section.
func checkAgentRefs(app, agents map[string]any) []string {
	list, ok := app["agents"].([]any)
	if !ok {
		return nil
	}

	defined := make([]string, 0, len(agents))
	for name := range agents {
		defined = append(defined, name)
	}
	sort.Strings(defined)

	var errs []string
	for i, item := range list {
		name := agentRefName(item, agents)
		if name == "" {
			continue
		}
		if _, ok := agents[name]; ok {
			continue
		}
		msg := fmt.Sprintf("app.agents[%d]: agent %q is not defined", i, name)
		if hint := findSimilar(name, defined); hint != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", hint)
		}
		errs = append(errs, msg)
	}
	return errs
}

// agentRefName returns the agent name an app.agents entry refers to. Entries
// are usually aliases resolved to the agent body, in which case the body is
// matched back to its key.
func agentRefName(item any, agents map[string]any) string {
	switch v := item.(type) {
	case string:
		return v
	case map[string]any:
		for key, def := range agents {
			if d, ok := def.(map[string]any); ok && stringAt(d, "name") != "" && stringAt(d, "name") == stringAt(v, "name") {
				return key
			}
		}
		return ""
	}
	return ""
}

// findSimilar returns the candidate closest to target, or "" if none is
// close enough to suggest.
func findSimilar(target string, candidates []string) string {
	target = strings.ToLower(target)
	best := ""
	bestScore := 0

	for _, c := range candidates {
		score := similarity(target, strings.ToLower(c))
		if score > bestScore {
			bestScore = score
			best = c
		}
	}

	if bestScore < 4 {
		return ""
	}
	return best
}

// similarity returns a simple similarity score.
func similarity(a, b string) int {
	if a == b {
		return 100
	}

	// Check prefix
	score := 0
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			score += 2
		} else {
			break
		}
	}

	if strings.Contains(b, a) || strings.Contains(a, b) {
		score += 10
	}

	return score
}

func mapAt(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return map[string]any{}
}

func stringAt(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func countAt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case map[string]any:
		return len(v)
	case []any:
		return len(v)
	}
	return 0
}
