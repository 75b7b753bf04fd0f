package serve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func parseConfig(t *testing.T, src string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(src), &m))
	if m == nil {
		m = map[string]any{}
	}
	return m
}

func TestCheckReadiness_Deployable(t *testing.T) {
	r := CheckReadiness(parseConfig(t, deployableDoc))

	assert.True(t, r.Valid, r.Errors)
	assert.Empty(t, r.Errors)
	assert.Equal(t, "Demo App", r.AppName)
	assert.Equal(t, "Demo App", r.EndpointName)
	assert.Equal(t, 1, r.AgentCount)
	assert.Contains(t, r.Warnings, "app.endpoint_name not set - will default to app name")
}

func TestCheckReadiness_Empty(t *testing.T) {
	r := CheckReadiness(map[string]any{})

	assert.False(t, r.Valid)
	assert.Equal(t, []string{
		"app.name is required",
		"app.registered_model is required for deployment",
		"At least one agent is required",
		"Orchestration pattern (supervisor or swarm) is required",
	}, r.Errors)
	assert.Contains(t, r.Warnings, "No LLMs configured in resources")
}

func TestReadinessOf_NonMappingRoot(t *testing.T) {
	r := ReadinessOf([]any{map[string]any{"x": 1}})
	assert.False(t, r.Valid)
	assert.Equal(t, []string{"configuration root must be a mapping, got a list"}, r.Errors)

	r = ReadinessOf("hello")
	assert.False(t, r.Valid)
	assert.Equal(t, []string{"configuration root must be a mapping, got a scalar"}, r.Errors)
}

func TestCheckReadiness_RegisteredModelFields(t *testing.T) {
	r := CheckReadiness(parseConfig(t, `
app:
  name: demo
  registered_model: {}
`))
	assert.Contains(t, r.Errors, "app.registered_model.name is required")
	assert.Contains(t, r.Errors, "app.registered_model.schema is required")
}

func TestCheckReadiness_UnknownAgentHint(t *testing.T) {
	r := CheckReadiness(parseConfig(t, `
agents:
  writer: {name: writer}
  reviewer: {name: reviewer}
app:
  name: demo
  agents: [writter, reviewer]
`))
	require.False(t, r.Valid)
	assert.Contains(t, r.Errors, `app.agents[0]: agent "writter" is not defined (did you mean "writer"?)`)
	for _, e := range r.Errors {
		assert.NotContains(t, e, `"reviewer" is not defined`)
	}
}

func TestCheckReadiness_Requirements(t *testing.T) {
	r := CheckReadiness(parseConfig(t, `
resources:
  llms: {default: {name: claude}}
  vector_stores: {docs: {}, faq: {}}
  databases: {main: {}}
`))
	assert.Equal(t, []Requirement{
		{Type: "vector_search", Description: "Vector Search endpoints and indexes", Count: 2},
		{Type: "database", Description: "Lakebase/PostgreSQL databases", Count: 1},
	}, r.Requirements)
	assert.NotContains(t, r.Warnings, "No LLMs configured in resources")
}

func TestFindSimilar(t *testing.T) {
	candidates := []string{"reviewer", "writer", "researcher"}

	assert.Equal(t, "writer", findSimilar("writter", candidates))
	assert.Equal(t, "researcher", findSimilar("research", candidates))
	assert.Equal(t, "", findSimilar("zzz", candidates))
	assert.Equal(t, "", findSimilar("x", nil))
}
