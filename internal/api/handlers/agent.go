package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Harshitk-cp/memora/internal/domain"
	"github.com/Harshitk-cp/memora/internal/service"
	"github.com/go-chi/chi/v5"
)

type AgentHandler struct {
	svc   *service.AgentService
	facts *service.FactService
}

func NewAgentHandler(svc *service.AgentService, facts *service.FactService) *AgentHandler {
	return &AgentHandler{svc: svc, facts: facts}
}

type createAgentRequest struct {
	ExternalID string         `json:"external_id"`
	Name       string         `json:"name"`
	Metadata   map[string]any `json:"metadata"`
}

type listAgentsResponse struct {
	Agents []domain.Agent `json:"agents"`
}

func (h *AgentHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req createAgentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ExternalID = strings.TrimSpace(req.ExternalID)
	if req.ExternalID == "" {
		writeError(w, http.StatusBadRequest, "external_id is required")
		return
	}
	if req.Name == "" {
		req.Name = req.ExternalID
	}

	agent := &domain.Agent{
		TenantID:   tenant.ID,
		ExternalID: req.ExternalID,
		Name:       req.Name,
		Metadata:   req.Metadata,
	}
	if err := h.svc.Create(r.Context(), agent); err != nil {
		if errors.Is(err, service.ErrAgentConflict) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create agent")
		return
	}

	writeJSON(w, http.StatusCreated, agent)
}

func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant, ok := requireTenant(w, r)
	if !ok {
		return
	}

	agents, err := h.svc.List(r.Context(), tenant.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list agents")
		return
	}
	writeJSON(w, http.StatusOK, listAgentsResponse{Agents: agents})
}

// GetByID accepts either the agent's id or its external id in the path.
func (h *AgentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	tenant, ok := requireTenant(w, r)
	if !ok {
		return
	}
	agent, ok := resolveAgent(w, r, h.svc, tenant, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	withCounts, err := h.svc.GetByID(r.Context(), agent.ID, tenant.ID)
	if err != nil {
		writeServiceError(w, err, "failed to get agent")
		return
	}
	writeJSON(w, http.StatusOK, withCounts)
}

// Delete removes the agent together with all of its facts.
func (h *AgentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenant, ok := requireTenant(w, r)
	if !ok {
		return
	}
	agent, ok := resolveAgent(w, r, h.svc, tenant, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), agent.ID, tenant.ID); err != nil {
		writeServiceError(w, err, "failed to delete agent")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearMemories deletes every fact of the agent but keeps the agent.
func (h *AgentHandler) ClearMemories(w http.ResponseWriter, r *http.Request) {
	tenant, ok := requireTenant(w, r)
	if !ok {
		return
	}
	agent, ok := resolveAgent(w, r, h.svc, tenant, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.facts.DeleteAgent(r.Context(), agent.ID); err != nil {
		writeServiceError(w, err, "failed to delete memories")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
