package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/memora/internal/service"
)

type ThinkHandler struct {
	think  *service.ThinkService
	agents *service.AgentService
}

func NewThinkHandler(think *service.ThinkService, agents *service.AgentService) *ThinkHandler {
	return &ThinkHandler{think: think, agents: agents}
}

type thinkRequest struct {
	AgentID        string `json:"agent_id"`
	Query          string `json:"query"`
	ThinkingBudget int    `json:"thinking_budget,omitempty"`
}

// Think answers a question from the agent's memory. Opinions found in the
// answer are stored in the background and show up in later calls.
func (h *ThinkHandler) Think(w http.ResponseWriter, r *http.Request) {
	tenant, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req thinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	agent, ok := resolveAgent(w, r, h.agents, tenant, req.AgentID)
	if !ok {
		return
	}

	result, err := h.think.Think(r.Context(), agent.ID, req.Query, req.ThinkingBudget)
	if err != nil {
		writeServiceError(w, err, "think failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
