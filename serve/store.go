package serve

import (
	"errors"
	"time"
)

// ErrNotFound is returned by Store lookups that match no row.
var ErrNotFound = errors.New("not found")

// Store persists export history and deployment records.
type Store interface {
	// Init creates tables if they don't exist.
	Init() error

	// Close closes the store.
	Close() error

	// InsertExport records a YAML export.
	InsertExport(e ExportRecord) error

	// ListExports returns the exports of a session, newest first.
	ListExports(sessionID string, limit int) ([]ExportRecord, error)

	// InsertDeployment records a new deployment.
	InsertDeployment(d Deployment) error

	// UpdateDeployment overwrites the mutable fields of a deployment.
	UpdateDeployment(d Deployment) error

	// GetDeployment returns a deployment by id.
	GetDeployment(id string) (Deployment, error)

	// ListDeployments returns recent deployments, newest first.
	ListDeployments(limit int) ([]Deployment, error)

	// PruneBefore deletes exports and finished deployments older than
	// before, returning the number of rows removed.
	PruneBefore(before time.Time) (int64, error)
}

// ExportRecord is one YAML download.
type ExportRecord struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	Filename    string    `json:"filename"`
	Size        int       `json:"size"`
	Anchors     int       `json:"anchors"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
}

// Deployment states.
const (
	DeploymentStarting  = "starting"
	DeploymentDeploying = "deploying"
	DeploymentCompleted = "completed"
	DeploymentFailed    = "failed"
	DeploymentCancelled = "cancelled"
)

// Deployment is a submission of a sanitized configuration to the deployer.
type Deployment struct {
	ID           string           `json:"id"`
	SessionID    string           `json:"session_id"`
	Type         string           `json:"type"`
	Status       string           `json:"status"`
	Steps        []DeploymentStep `json:"steps"`
	CurrentStep  int              `json:"current_step"`
	AppName      string           `json:"app_name,omitempty"`
	EndpointName string           `json:"endpoint_name,omitempty"`
	Error        string           `json:"error,omitempty"`
	Result       string           `json:"result,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
}

// DeploymentStep is one stage of a deployment.
type DeploymentStep struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Done reports whether the deployment reached a final state.
func (d Deployment) Done() bool {
	switch d.Status {
	case DeploymentCompleted, DeploymentFailed, DeploymentCancelled:
		return true
	}
	return false
}
