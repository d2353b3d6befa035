package server

import (
	"errors"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/backyonatan-alt/fiftyone/internal/configflow"
	"github.com/backyonatan-alt/fiftyone/internal/entity"
	"github.com/backyonatan-alt/fiftyone/internal/model"
	"github.com/backyonatan-alt/fiftyone/internal/registry"
	"github.com/backyonatan-alt/fiftyone/internal/store"
)

const maxBodyBytes = 1 << 20

type entryHealth struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	LastUpdateSuccess bool    `json:"last_update_success"`
	LastUpdate        *string `json:"last_update,omitempty"`
	Entities          int     `json:"entities"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	runtimes := s.registry.All()
	entries := make([]entryHealth, 0, len(runtimes))
	for _, rt := range runtimes {
		h := entryHealth{
			ID:                rt.Entry.ID,
			Title:             rt.Entry.Title,
			LastUpdateSuccess: rt.Coordinator.LastUpdateSuccess(),
			Entities:          rt.Entities.Len(),
		}
		if snap := rt.Coordinator.Snapshot(); snap != nil {
			ts := snap.RefreshedAt.Format(time.RFC3339)
			h.LastUpdate = &ts
		}
		entries = append(entries, h)
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"entries": entries,
	})
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list entries", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if entries == nil {
		entries = []model.Entry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var in configflow.UserInput
	if !s.decode(w, r, &in) {
		return
	}

	entry, err := s.flow.User(r.Context(), in)
	var formErr *configflow.FormError
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusCreated, entry)
	case errors.Is(err, configflow.ErrAlreadyConfigured):
		s.writeJSON(w, http.StatusConflict, map[string]string{"type": "abort", "reason": err.Error()})
	case errors.As(err, &formErr):
		s.writeFormError(w, formErr)
	case entry.ID != "":
		// Persisted but not set up; it is retried on the next start.
		s.writeJSON(w, http.StatusAccepted, map[string]any{"entry": entry, "error": err.Error()})
	default:
		s.logger.Error("config flow failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

type imageSourcesRequest struct {
	ImageSources []model.ImageSource `json:"image_sources"`
}

func (s *Server) handleImageSources(w http.ResponseWriter, r *http.Request) {
	var req imageSourcesRequest
	if !s.decode(w, r, &req) {
		return
	}

	entry, err := s.flow.Options(r.Context(), r.PathValue("id"), req.ImageSources)
	var formErr *configflow.FormError
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, entry)
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "entry not found")
	case errors.As(err, &formErr):
		s.writeFormError(w, formErr)
	default:
		s.logger.Error("options flow failed", "entry", r.PathValue("id"), "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	err := s.flow.Remove(r.Context(), r.PathValue("id"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "entry not found")
	default:
		s.logger.Error("failed to remove entry", "entry", r.PathValue("id"), "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	rt, ok := s.runtime(w, r)
	if !ok {
		return
	}

	if err := rt.Coordinator.Refresh(r.Context()); err != nil {
		s.writeJSON(w, http.StatusBadGateway, map[string]any{
			"last_update_success": false,
			"error":               err.Error(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"last_update_success": true,
		"refreshed_at":        rt.Coordinator.Snapshot().RefreshedAt.Format(time.RFC3339),
	})
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	rt, ok := s.runtime(w, r)
	if !ok {
		return
	}

	key := "states:" + rt.Entry.ID
	if data, hit := s.responses.Get(key); hit {
		s.metrics.IncCacheHits()
		s.writeRaw(w, http.StatusOK, data)
		return
	}
	s.metrics.IncCacheMisses()

	data, err := json.Marshal(rt.Entities.States())
	if err != nil {
		s.logger.Error("failed to encode states", "entry", rt.Entry.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.responses.Set(key, data)
	s.writeRaw(w, http.StatusOK, data)
}

func (s *Server) handleEntity(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entity(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, e.State())
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entity(w, r)
	if !ok {
		return
	}
	img, ok := e.(entity.Imager)
	if !ok {
		s.writeError(w, http.StatusNotFound, "entity has no image")
		return
	}

	frame, ok := img.Image(r.Context())
	if !ok {
		s.writeError(w, http.StatusNotFound, "no image available")
		return
	}

	etag := frame.ETag
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etag != "" && r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(frame.Data))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(frame.Data)
}

func (s *Server) runtime(w http.ResponseWriter, r *http.Request) (*registry.Runtime, bool) {
	rt, ok := s.registry.Get(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "entry not loaded")
		return nil, false
	}
	return rt, true
}

func (s *Server) entity(w http.ResponseWriter, r *http.Request) (entity.Entity, bool) {
	rt, ok := s.runtime(w, r)
	if !ok {
		return nil, false
	}
	e, ok := rt.Entities.Get(r.PathValue("uid"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "entity not found")
		return nil, false
	}
	return e, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dest); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) writeFormError(w http.ResponseWriter, formErr *configflow.FormError) {
	s.writeJSON(w, http.StatusBadRequest, map[string]any{
		"type":   "form",
		"errors": map[string]string{formErr.Field: formErr.Code},
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode response", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	s.writeRaw(w, status, data)
}

func (s *Server) writeRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
