package serve

import (
	"encoding/json"
	"time"

	"github.com/everydev1618/daobuilder/generator"
	"github.com/everydev1618/daobuilder/model"
	"github.com/everydev1618/daobuilder/refs"
)

// --- API Request Types ---

// YAMLRequest carries YAML source text.
type YAMLRequest struct {
	YAML string `json:"yaml"`
}

// RemoteImportRequest names a template in the configured repository.
type RemoteImportRequest struct {
	Path string `json:"path"`
}

// PatchConfigRequest edits one node of the live model. Value is ignored when
// Delete is set.
type PatchConfigRequest struct {
	Path   model.Path      `json:"path"`
	Value  json.RawMessage `json:"value,omitempty"`
	Delete bool            `json:"delete,omitempty"`
}

// MemoryLinkRequest points a mapping at the memory section.
type MemoryLinkRequest struct {
	Path model.Path `json:"path"`
}

// OverrideRequest sets a section anchor name.
type OverrideRequest struct {
	Name string `json:"name"`
}

// --- API Response Types ---

// SessionResponse is returned when a session is opened.
type SessionResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// ConfigResponse is the state of an open document after a change.
type ConfigResponse struct {
	Config        any               `json:"config"`
	YAML          string            `json:"yaml"`
	Overrides     map[string]string `json:"overrides"`
	MemoryRefName string            `json:"memory_ref_name,omitempty"`
}

// ReferencesResponse describes the anchors and aliases of the document.
type ReferencesResponse struct {
	Anchors   map[string]refs.AnchorDefinition `json:"anchors"`
	Aliases   []refs.AliasUsage                `json:"aliases"`
	Overrides map[string]string                `json:"overrides"`
	Links     []generator.Link                 `json:"links"`
}

// DeploymentListResponse is the deployment history.
type DeploymentListResponse struct {
	Deployments []Deployment `json:"deployments"`
	Count       int          `json:"count"`
}

// DeployResponse acknowledges a started deployment.
type DeployResponse struct {
	DeploymentID string `json:"deployment_id"`
	Status       string `json:"status"`
	Message      string `json:"message"`
	StatusURL    string `json:"status_url"`
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Uptime   string `json:"uptime"`
}

// VersionResponse reports component versions.
type VersionResponse struct {
	App     string `json:"app"`
	Version string `json:"version"`
	DaoAI   string `json:"dao_ai"`
}

// ErrorResponse is the API error format.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ParseErrorResponse reports YAML that could not be imported.
type ParseErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
	Anchor string `json:"anchor,omitempty"`
}
