package service

import (
	"context"
	"testing"

	"github.com/Harshitk-cp/memora/internal/domain"
	"github.com/google/uuid"
)

func TestAgentService_Create(t *testing.T) {
	s := NewAgentService(newMockAgentStore(), nil)
	ctx := context.Background()
	tenantID := uuid.New()

	agent := &domain.Agent{
		TenantID:   tenantID,
		ExternalID: "bot-1",
		Name:       "Test Bot",
	}

	if err := s.Create(ctx, agent); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if agent.ID == uuid.Nil {
		t.Fatal("expected agent ID to be set")
	}
}

func TestAgentService_CreateDuplicate(t *testing.T) {
	s := NewAgentService(newMockAgentStore(), nil)
	ctx := context.Background()
	tenantID := uuid.New()

	agent := &domain.Agent{
		TenantID:   tenantID,
		ExternalID: "bot-1",
		Name:       "Test Bot",
	}
	if err := s.Create(ctx, agent); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	dup := &domain.Agent{
		TenantID:   tenantID,
		ExternalID: "bot-1",
		Name:       "Duplicate Bot",
	}
	err := s.Create(ctx, dup)
	if err != ErrAgentConflict {
		t.Fatalf("expected ErrAgentConflict, got %v", err)
	}
}

func TestAgentService_GetByID(t *testing.T) {
	mockStore := newMockAgentStore()
	s := NewAgentService(mockStore, nil)
	ctx := context.Background()
	tenantID := uuid.New()

	agent := &domain.Agent{
		TenantID:   tenantID,
		ExternalID: "bot-1",
		Name:       "Test Bot",
	}
	_ = s.Create(ctx, agent)

	found, err := s.GetByID(ctx, agent.ID, tenantID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if found.Name != "Test Bot" {
		t.Fatalf("expected name 'Test Bot', got %s", found.Name)
	}
}

func TestAgentService_GetByID_NotFound(t *testing.T) {
	s := NewAgentService(newMockAgentStore(), nil)
	ctx := context.Background()

	_, err := s.GetByID(ctx, uuid.New(), uuid.New())
	if err != ErrAgentNotFound {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestAgentService_GetByID_WrongTenant(t *testing.T) {
	mockStore := newMockAgentStore()
	s := NewAgentService(mockStore, nil)
	ctx := context.Background()
	tenantID := uuid.New()

	agent := &domain.Agent{
		TenantID:   tenantID,
		ExternalID: "bot-1",
		Name:       "Test Bot",
	}
	_ = s.Create(ctx, agent)

	_, err := s.GetByID(ctx, agent.ID, uuid.New())
	if err != ErrAgentNotFound {
		t.Fatalf("expected ErrAgentNotFound for wrong tenant, got %v", err)
	}
}

func TestAgentService_GetByID_FactCounts(t *testing.T) {
	fs := newMockFactStore()
	s := NewAgentService(newMockAgentStore(), fs)
	ctx := context.Background()
	tenantID := uuid.New()

	agent := &domain.Agent{TenantID: tenantID, ExternalID: "bot-1", Name: "Test Bot"}
	_ = s.Create(ctx, agent)
	fs.facts = []domain.Fact{
		fact(agent.ID, domain.FactTypeWorld, "w"),
		fact(agent.ID, domain.FactTypeOpinion, "o1"),
		fact(agent.ID, domain.FactTypeOpinion, "o2"),
	}

	found, err := s.GetByID(ctx, agent.ID, tenantID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := map[domain.FactType]int{domain.FactTypeAgent: 0, domain.FactTypeWorld: 1, domain.FactTypeOpinion: 2}
	for ft, n := range want {
		if found.FactCounts[ft] != n {
			t.Errorf("expected %d %s facts, got %d", n, ft, found.FactCounts[ft])
		}
	}
}

func TestAgentService_Resolve(t *testing.T) {
	s := NewAgentService(newMockAgentStore(), nil)
	ctx := context.Background()
	tenantID := uuid.New()

	agent := &domain.Agent{TenantID: tenantID, ExternalID: "bot-1", Name: "Test Bot"}
	_ = s.Create(ctx, agent)

	byID, err := s.Resolve(ctx, agent.ID.String(), tenantID)
	if err != nil || byID.ID != agent.ID {
		t.Fatalf("expected agent by id, got %v, %v", byID, err)
	}
	byExternal, err := s.Resolve(ctx, "bot-1", tenantID)
	if err != nil || byExternal.ID != agent.ID {
		t.Fatalf("expected agent by external id, got %v, %v", byExternal, err)
	}
	if _, err := s.Resolve(ctx, "bot-2", tenantID); err != ErrAgentNotFound {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
	if _, err := s.Resolve(ctx, "bot-1", uuid.New()); err != ErrAgentNotFound {
		t.Fatalf("expected ErrAgentNotFound for wrong tenant, got %v", err)
	}
}

func TestAgentService_ListAndDelete(t *testing.T) {
	s := NewAgentService(newMockAgentStore(), nil)
	ctx := context.Background()
	tenantID := uuid.New()

	a := &domain.Agent{TenantID: tenantID, ExternalID: "a", Name: "A"}
	b := &domain.Agent{TenantID: tenantID, ExternalID: "b", Name: "B"}
	other := &domain.Agent{TenantID: uuid.New(), ExternalID: "c", Name: "C"}
	for _, agent := range []*domain.Agent{a, b, other} {
		if err := s.Create(ctx, agent); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	agents, err := s.List(ctx, tenantID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(agents))
	}

	if err := s.Delete(ctx, a.ID, tenantID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := s.Delete(ctx, a.ID, tenantID); err != ErrAgentNotFound {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
	if err := s.Delete(ctx, other.ID, tenantID); err != ErrAgentNotFound {
		t.Fatalf("expected ErrAgentNotFound for wrong tenant, got %v", err)
	}
}
