package serve

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/everydev1618/daobuilder/model"
	"github.com/everydev1618/daobuilder/refs"
)

type sessionKey struct{}

// withSession resolves {id} and holds the session lock for the request.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e, ok := s.sessions.get(chi.URLParam(r, "id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "session not found"})
			return
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		e.lastUsed = time.Now()

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, e)))
	})
}

func entryFrom(r *http.Request) *sessionEntry {
	return r.Context().Value(sessionKey{}).(*sessionEntry)
}

// configResponse renders the current state of e.
func configResponse(e *sessionEntry) (ConfigResponse, error) {
	out, err := e.s.Export()
	if err != nil {
		return ConfigResponse{}, err
	}
	name, _ := e.s.MemoryRefName()
	return ConfigResponse{
		Config:        model.ToAny(e.s.Config()),
		YAML:          string(out),
		Overrides:     e.s.SectionOverrides(),
		MemoryRefName: name,
	}, nil
}

func writeConfig(w http.ResponseWriter, e *sessionEntry) {
	resp, err := configResponse(e)
	if err != nil {
		writeInternal(w, "generate yaml", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Session Lifecycle ---

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	e := s.sessions.create()
	slog.Debug("session created", "id", e.id)
	writeJSON(w, http.StatusCreated, SessionResponse{ID: e.id, CreatedAt: e.created})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	e := entryFrom(r)
	s.sessions.remove(e.id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- Import / Apply ---

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req YAMLRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	e := entryFrom(r)
	if err := e.s.Import([]byte(req.YAML)); err != nil {
		writeError(w, err)
		return
	}
	writeConfig(w, e)
}

func (s *Server) handleImportRemote(w http.ResponseWriter, r *http.Request) {
	var req RemoteImportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	src, err := s.cfg.Templates.Fetch(r.Context(), req.Path)
	if err != nil {
		if errors.Is(err, ErrBadTemplatePath) || errors.Is(err, ErrNotFound) {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}

	e := entryFrom(r)
	if err := e.s.Import(src); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("imported remote template", "session", e.id, "path", req.Path, "bytes", len(src))
	writeConfig(w, e)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req YAMLRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	e := entryFrom(r)
	if err := e.s.Apply([]byte(req.YAML)); err != nil {
		writeError(w, err)
		return
	}
	writeConfig(w, e)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	e := entryFrom(r)
	e.s.Reset()
	writeConfig(w, e)
}

// --- Form Layer ---

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeConfig(w, entryFrom(r))
}

func (s *Server) handlePatchConfig(w http.ResponseWriter, r *http.Request) {
	var req PatchConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	e := entryFrom(r)

	if req.Delete {
		if err := e.s.Delete(req.Path); err != nil {
			writeError(w, err)
			return
		}
		writeConfig(w, e)
		return
	}

	if len(req.Value) == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "value or delete is required"})
		return
	}
	dec := json.NewDecoder(bytes.NewReader(req.Value))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		writeError(w, fmt.Errorf("invalid value: %w", err))
		return
	}
	node, err := model.FromAny(raw)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := e.s.Set(req.Path, node); err != nil {
		writeError(w, err)
		return
	}
	writeConfig(w, e)
}

func (s *Server) handleMemoryLink(w http.ResponseWriter, r *http.Request) {
	var req MemoryLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	e := entryFrom(r)
	if err := e.s.LinkMemory(req.Path); err != nil {
		writeError(w, err)
		return
	}
	writeConfig(w, e)
}

// --- Export ---

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	e := entryFrom(r)
	out, err := e.s.Export()
	if err != nil {
		writeInternal(w, "generate yaml", err)
		return
	}

	if r.URL.Query().Get("download") != "" {
		filename := exportFilename(e.s.Config())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		s.recordExport(e, filename, out)
	}
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// recordExport stores a download in the export history. Failures are logged;
// the download itself still succeeds.
func (s *Server) recordExport(e *sessionEntry, filename string, out []byte) {
	anchors := 0
	if rm, err := refs.Extract(out); err == nil {
		anchors = len(rm.Anchors)
	}
	rec := ExportRecord{
		SessionID:   e.id,
		Filename:    filename,
		Size:        len(out),
		Anchors:     anchors,
		Fingerprint: model.Fingerprint(e.s.Config()).String(),
		CreatedAt:   time.Now(),
	}
	if err := s.store.InsertExport(rec); err != nil {
		slog.Error("failed to record export", "session", e.id, "error", err)
	}
}

func exportFilename(root model.Node) string {
	name := "config"
	if n, ok := model.Lookup(root, model.PathOf("app", "name")); ok {
		if sc, ok := n.(*model.Scalar); ok {
			name = refs.AnchorNameFrom(sc.Value, "config")
		}
	}
	return name + ".yaml"
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	e := entryFrom(r)
	list, err := s.store.ListExports(e.id, 50)
	if err != nil {
		writeInternal(w, "list exports", err)
		return
	}
	if list == nil {
		list = []ExportRecord{}
	}
	writeJSON(w, http.StatusOK, list)
}

// --- References ---

func (s *Server) handleReferences(w http.ResponseWriter, r *http.Request) {
	e := entryFrom(r)
	rm := e.s.References()
	aliases := rm.Aliases
	if aliases == nil {
		aliases = []refs.AliasUsage{}
	}
	writeJSON(w, http.StatusOK, ReferencesResponse{
		Anchors:   rm.Anchors,
		Aliases:   aliases,
		Overrides: e.s.SectionOverrides(),
		Links:     e.s.Drift(),
	})
}

func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	var req OverrideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	e := entryFrom(r)
	if err := e.s.SetSectionOverride(chi.URLParam(r, "section"), req.Name); err != nil {
		writeError(w, err)
		return
	}
	writeConfig(w, e)
}

func (s *Server) handleClearOverrides(w http.ResponseWriter, r *http.Request) {
	e := entryFrom(r)
	e.s.ClearSectionOverrides()
	writeConfig(w, e)
}
