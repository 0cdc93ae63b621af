package handlers

import (
	"net/http"
	"time"

	"github.com/Harshitk-cp/memora/internal/domain"
	"github.com/Harshitk-cp/memora/internal/service"
)

// maxBatchItems bounds a single batch put.
const maxBatchItems = 500

type MemoryHandler struct {
	facts  *service.FactService
	agents *service.AgentService
}

func NewMemoryHandler(facts *service.FactService, agents *service.AgentService) *MemoryHandler {
	return &MemoryHandler{facts: facts, agents: agents}
}

type memoryItem struct {
	Content    string     `json:"content"`
	Context    *string    `json:"context,omitempty"`
	EventDate  *time.Time `json:"event_date,omitempty"`
	FactType   string     `json:"fact_type,omitempty"`
	Confidence *float64   `json:"confidence,omitempty"`
	DocumentID string     `json:"document_id,omitempty"`
}

func (m memoryItem) toPutRequest(agent domain.Agent) domain.PutRequest {
	return domain.PutRequest{
		AgentID:    agent.ID,
		Content:    m.Content,
		Context:    m.Context,
		EventDate:  m.EventDate,
		FactType:   domain.FactType(m.FactType),
		Confidence: m.Confidence,
		DocumentID: m.DocumentID,
	}
}

type putMemoryRequest struct {
	AgentID string `json:"agent_id"`
	memoryItem
}

type putBatchRequest struct {
	AgentID    string       `json:"agent_id"`
	DocumentID string       `json:"document_id,omitempty"`
	Items      []memoryItem `json:"items"`
}

type putBatchResponse struct {
	DocumentID string         `json:"document_id"`
	Count      int            `json:"count"`
	Facts      []*domain.Fact `json:"facts"`
}

func (h *MemoryHandler) Put(w http.ResponseWriter, r *http.Request) {
	tenant, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req putMemoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	agent, ok := resolveAgent(w, r, h.agents, tenant, req.AgentID)
	if !ok {
		return
	}

	f, err := h.facts.Put(r.Context(), req.toPutRequest(*agent))
	if err != nil {
		writeServiceError(w, err, "failed to store memory")
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *MemoryHandler) PutBatch(w http.ResponseWriter, r *http.Request) {
	tenant, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req putBatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items is required")
		return
	}
	if len(req.Items) > maxBatchItems {
		writeError(w, http.StatusBadRequest, "too many items")
		return
	}
	agent, ok := resolveAgent(w, r, h.agents, tenant, req.AgentID)
	if !ok {
		return
	}

	reqs := make([]domain.PutRequest, len(req.Items))
	for i, item := range req.Items {
		reqs[i] = item.toPutRequest(*agent)
	}

	facts, err := h.facts.PutBatch(r.Context(), reqs, req.DocumentID)
	if err != nil {
		writeServiceError(w, err, "failed to store memories")
		return
	}

	documentID := req.DocumentID
	if documentID == "" && len(facts) > 0 {
		documentID = facts[0].DocumentID
	}
	writeJSON(w, http.StatusCreated, putBatchResponse{
		DocumentID: documentID,
		Count:      len(facts),
		Facts:      facts,
	})
}
