package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/memora/internal/domain"
	"github.com/Harshitk-cp/memora/internal/service"
)

type SearchHandler struct {
	search *service.SearchService
	agents *service.AgentService
}

func NewSearchHandler(search *service.SearchService, agents *service.AgentService) *SearchHandler {
	return &SearchHandler{search: search, agents: agents}
}

type searchRequest struct {
	AgentID        string   `json:"agent_id"`
	Query          string   `json:"query"`
	FactType       []string `json:"fact_type,omitempty"`
	ThinkingBudget int      `json:"thinking_budget,omitempty"`
	MaxTokens      int      `json:"max_tokens,omitempty"`
	Trace          bool     `json:"trace,omitempty"`
}

type searchResponse struct {
	Results []domain.Fact       `json:"results"`
	Trace   *domain.SearchTrace `json:"trace,omitempty"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	tenant, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req searchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	agent, ok := resolveAgent(w, r, h.agents, tenant, req.AgentID)
	if !ok {
		return
	}

	types := make([]domain.FactType, len(req.FactType))
	for i, t := range req.FactType {
		types[i] = domain.FactType(t)
	}

	facts, trace, err := h.search.SearchWithTrace(r.Context(), agent.ID, req.Query, req.ThinkingBudget, req.MaxTokens, types)
	if err != nil {
		writeServiceError(w, err, "search failed")
		return
	}

	resp := searchResponse{Results: facts}
	if req.Trace {
		resp.Trace = trace
	}
	writeJSON(w, http.StatusOK, resp)
}
