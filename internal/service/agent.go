package service

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/memora/internal/domain"
	"github.com/Harshitk-cp/memora/internal/store"
	"github.com/google/uuid"
)

type AgentService struct {
	store     domain.AgentStore
	factStore domain.FactStore
}

func NewAgentService(s domain.AgentStore, fs domain.FactStore) *AgentService {
	return &AgentService{store: s, factStore: fs}
}

var (
	ErrAgentNotFound = errors.New("agent not found")
	ErrAgentConflict = errors.New("agent with this external_id already exists")
)

func (s *AgentService) Create(ctx context.Context, a *domain.Agent) error {
	err := s.store.Create(ctx, a)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ErrAgentConflict
		}
		return err
	}
	return nil
}

// GetByID returns the agent with its fact counts filled in.
func (s *AgentService) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*domain.Agent, error) {
	a, err := s.store.GetByID(ctx, id, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	if s.factStore != nil {
		counts, err := s.factStore.CountByAgent(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		a.FactCounts = counts
	}
	return a, nil
}

// Resolve finds an agent by id, falling back to its external id when ref is
// not a UUID.
func (s *AgentService) Resolve(ctx context.Context, ref string, tenantID uuid.UUID) (*domain.Agent, error) {
	if id, err := uuid.Parse(ref); err == nil {
		a, err := s.store.GetByID(ctx, id, tenantID)
		if err == nil {
			return a, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	a, err := s.store.GetByExternalID(ctx, ref, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *AgentService) List(ctx context.Context, tenantID uuid.UUID) ([]domain.Agent, error) {
	return s.store.ListByTenant(ctx, tenantID)
}

// Delete removes the agent and, through the store cascade, its facts.
func (s *AgentService) Delete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	err := s.store.Delete(ctx, id, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAgentNotFound
		}
		return err
	}
	return nil
}
