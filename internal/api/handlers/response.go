package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/memora/internal/api/middleware"
	"github.com/Harshitk-cp/memora/internal/domain"
	"github.com/Harshitk-cp/memora/internal/service"
)

// maxBodyBytes caps request bodies; batch puts are the largest.
const maxBodyBytes = 8 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func requireTenant(w http.ResponseWriter, r *http.Request) (*domain.Tenant, bool) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return tenant, true
}

// resolveAgent looks the agent up within the caller's tenant by id or
// external id and writes the error response when it cannot.
func resolveAgent(w http.ResponseWriter, r *http.Request, agents *service.AgentService, tenant *domain.Tenant, ref string) (*domain.Agent, bool) {
	if ref == "" {
		writeError(w, http.StatusBadRequest, service.ErrAgentIDMissing.Error())
		return nil, false
	}
	agent, err := agents.Resolve(r.Context(), ref, tenant.ID)
	if err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "failed to look up agent")
		return nil, false
	}
	return agent, true
}

// writeServiceError maps service errors to HTTP statuses. Upstream model
// and retrieval failures are 502; a missing model configuration is 503.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrQueryEmpty),
		errors.Is(err, service.ErrAgentIDMissing),
		errors.Is(err, service.ErrContentEmpty),
		errors.Is(err, service.ErrInvalidFactType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAgentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConfiguration):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrRetrieval):
		writeError(w, http.StatusBadGateway, "failed to retrieve facts")
	case errors.Is(err, service.ErrGeneration):
		writeError(w, http.StatusBadGateway, "failed to generate answer")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
