package serve

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// --- Validation ---

func (s *Server) handleSanitized(w http.ResponseWriter, r *http.Request) {
	e := entryFrom(r)
	clean, err := e.s.Sanitized()
	if err != nil {
		writeInternal(w, "sanitize", err)
		return
	}
	writeJSON(w, http.StatusOK, clean)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	e := entryFrom(r)
	clean, err := e.s.Sanitized()
	if err != nil {
		writeInternal(w, "sanitize", err)
		return
	}
	writeJSON(w, http.StatusOK, validateConfig(r.Context(), s.validator, clean))
}

func (s *Server) handleDeployValidate(w http.ResponseWriter, r *http.Request) {
	e := entryFrom(r)
	clean, err := e.s.Sanitized()
	if err != nil {
		writeInternal(w, "sanitize", err)
		return
	}
	writeJSON(w, http.StatusOK, ReadinessOf(clean))
}

// --- Deployments ---

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	e := entryFrom(r)
	clean, err := e.s.Sanitized()
	if err != nil {
		writeInternal(w, "sanitize", err)
		return
	}

	ready := ReadinessOf(clean)
	config, ok := clean.(map[string]any)
	if !ready.Valid || !ok {
		writeJSON(w, http.StatusUnprocessableEntity, ready)
		return
	}
	if s.deployer == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "no deployer configured"})
		return
	}

	d, err := s.deploys.start(e.id, config, ready)
	if err != nil {
		writeInternal(w, "start deployment", err)
		return
	}
	writeJSON(w, http.StatusAccepted, DeployResponse{
		DeploymentID: d.ID,
		Status:       "started",
		Message:      "Deployment started. Poll the status URL for progress.",
		StatusURL:    fmt.Sprintf("/api/deployments/%s", d.ID),
	})
}

func (s *Server) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListDeployments(100)
	if err != nil {
		writeInternal(w, "list deployments", err)
		return
	}
	if list == nil {
		list = []Deployment{}
	}
	writeJSON(w, http.StatusOK, DeploymentListResponse{Deployments: list, Count: len(list)})
}

func (s *Server) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.GetDeployment(chi.URLParam(r, "depID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleCancelDeployment(w http.ResponseWriter, r *http.Request) {
	d, err := s.deploys.cancel(chi.URLParam(r, "depID"))
	if errors.Is(err, ErrDeploymentFinished) {
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: fmt.Sprintf("deployment %s is already %s", d.ID, d.Status)})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
