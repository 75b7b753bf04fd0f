package serve

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/everydev1618/daobuilder/model"
	"github.com/everydev1618/daobuilder/session"
)

const maxBodySize = 8 << 20

// --- Service Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Sessions: s.sessions.len(),
		Uptime:   time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	daoAI := s.cfg.DaoAIVersion
	if daoAI == "" {
		daoAI = "unknown"
	}
	version := s.cfg.Version
	if version == "" {
		version = "dev"
	}
	writeJSON(w, http.StatusOK, VersionResponse{
		App:     "daobuilder",
		Version: version,
		DaoAI:   daoAI,
	})
}

func (s *Server) handleGitHubConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Templates)
}

// --- Helpers ---

// writeJSON encodes v before committing the status, so a value that cannot
// be encoded becomes a 500 with an error body instead of an empty 2xx.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("encode response", "error", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{Error: fmt.Sprintf("encode response: %v", err)})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

// writeError maps err to a status code. Parse errors carry their location.
func writeError(w http.ResponseWriter, err error) {
	var pe *model.ParseError
	switch {
	case errors.As(err, &pe):
		writeJSON(w, http.StatusUnprocessableEntity, ParseErrorResponse{
			Error:  err.Error(),
			Kind:   pe.Kind.String(),
			Line:   pe.Line,
			Column: pe.Column,
			Anchor: pe.Anchor,
		})
	case errors.Is(err, model.ErrPathNotFound), errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, session.ErrNoMemory), errors.Is(err, ErrDeploymentFinished):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
}

func writeInternal(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: fmt.Sprintf("%s: %v", msg, err)})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
