package domain

import (
	"context"

	"github.com/google/uuid"
)

type TenantStore interface {
	Create(ctx context.Context, t *Tenant) error
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*Tenant, error)
}

type AgentStore interface {
	Create(ctx context.Context, a *Agent) error
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*Agent, error)
	GetByExternalID(ctx context.Context, externalID string, tenantID uuid.UUID) (*Agent, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Agent, error)
	Delete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error
}

// SearchOpts controls a single fused search over an agent's facts.
// Embedding may be nil, in which case only the keyword arm ranks.
type SearchOpts struct {
	Query     string
	Embedding []float32
	FactTypes []FactType
	Limit     int
}

type FactStore interface {
	Create(ctx context.Context, f *Fact) error
	Search(ctx context.Context, agentID uuid.UUID, opts SearchOpts) ([]Fact, error)
	DeleteByAgent(ctx context.Context, agentID uuid.UUID) (int64, error)
	CountByAgent(ctx context.Context, agentID uuid.UUID) (map[FactType]int, error)
}
