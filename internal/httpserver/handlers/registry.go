package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Gknightt/tts-gateway/internal/domain"
	"github.com/Gknightt/tts-gateway/internal/httpserver/deps"
	"github.com/Gknightt/tts-gateway/internal/logger"
	"github.com/Gknightt/tts-gateway/internal/registry"
)

type upsertRequest struct {
	System  string `json:"system"`
	Service string `json:"service"`
	BaseURL string `json:"base_url"`
}

type upsertResponse struct {
	Created bool                   `json:"created"`
	Mapping *domain.ServiceMapping `json:"mapping"`
}

type listResponse struct {
	Count    int                      `json:"count"`
	Mappings []*domain.ServiceMapping `json:"mappings"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ListMappings returns every registered (system, service, base_url) triple.
func ListMappings(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mappings, err := d.Registry.ListAll(r.Context())
		if err != nil {
			d.Logger.Error("failed to list mappings", logger.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list mappings"})
			return
		}

		writeJSON(w, http.StatusOK, listResponse{
			Count:    len(mappings),
			Mappings: mappings,
		})
	}
}

// GetMapping returns a single mapping by pair.
func GetMapping(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		system := chi.URLParam(r, "system")
		service := chi.URLParam(r, "service")

		mapping, err := d.Registry.Lookup(r.Context(), system, service)
		if err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, errorResponse{
					Error: fmt.Sprintf("Service not found for %s/%s", system, service),
				})
				return
			}
			d.Logger.Error("failed to get mapping", logger.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to get mapping"})
			return
		}

		writeJSON(w, http.StatusOK, mapping)
	}
}

// UpsertMapping creates or overwrites the mapping for a pair.
// Idempotent: posting the same pair twice overwrites base_url.
func UpsertMapping(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req upsertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}

		mapping := &domain.ServiceMapping{
			System:  req.System,
			Service: req.Service,
			BaseURL: req.BaseURL,
		}

		created, err := d.Registry.Upsert(r.Context(), mapping, domain.SourceAPI)
		if err != nil {
			if errors.Is(err, registry.ErrInvalidMapping) {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
				return
			}
			d.Logger.Error("failed to upsert mapping",
				logger.String("system", req.System),
				logger.String("service", req.Service),
				logger.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to save mapping"})
			return
		}

		d.Logger.Info("mapping upserted",
			logger.String("system", mapping.System),
			logger.String("service", mapping.Service),
			logger.String("base_url", mapping.BaseURL),
			logger.Bool("created", created))

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, upsertResponse{Created: created, Mapping: mapping})
	}
}

// DeleteMapping removes a pair from the registry.
func DeleteMapping(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		system := chi.URLParam(r, "system")
		service := chi.URLParam(r, "service")

		if err := d.Registry.Delete(r.Context(), system, service); err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, errorResponse{
					Error: fmt.Sprintf("Service not found for %s/%s", system, service),
				})
				return
			}
			d.Logger.Error("failed to delete mapping", logger.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to delete mapping"})
			return
		}

		d.Logger.Info("mapping deleted",
			logger.String("system", system),
			logger.String("service", service))
		w.WriteHeader(http.StatusNoContent)
	}
}
