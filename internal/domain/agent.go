package domain

import (
	"time"

	"github.com/google/uuid"
)

// Agent owns a set of facts. Facts are deleted with their agent.
type Agent struct {
	ID         uuid.UUID        `json:"id"`
	TenantID   uuid.UUID        `json:"tenant_id,omitempty"`
	ExternalID string           `json:"external_id"`
	Name       string           `json:"name"`
	Metadata   map[string]any   `json:"metadata,omitempty"`
	FactCounts map[FactType]int `json:"fact_counts,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}
