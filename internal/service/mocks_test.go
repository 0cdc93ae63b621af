package service

import (
	"context"
	"sync"

	"github.com/Harshitk-cp/memora/internal/domain"
	"github.com/Harshitk-cp/memora/internal/store"
	"github.com/google/uuid"
)

// mockAgentStore implements domain.AgentStore for testing.
type mockAgentStore struct {
	agents map[uuid.UUID]*domain.Agent
}

func newMockAgentStore() *mockAgentStore {
	return &mockAgentStore{agents: make(map[uuid.UUID]*domain.Agent)}
}

func (m *mockAgentStore) Create(ctx context.Context, a *domain.Agent) error {
	for _, existing := range m.agents {
		if existing.ExternalID == a.ExternalID && existing.TenantID == a.TenantID {
			return store.ErrConflict
		}
	}
	a.ID = uuid.New()
	m.agents[a.ID] = a
	return nil
}

func (m *mockAgentStore) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*domain.Agent, error) {
	a, ok := m.agents[id]
	if !ok || a.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return a, nil
}

func (m *mockAgentStore) GetByExternalID(ctx context.Context, externalID string, tenantID uuid.UUID) (*domain.Agent, error) {
	for _, a := range m.agents {
		if a.ExternalID == externalID && a.TenantID == tenantID {
			return a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockAgentStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.Agent, error) {
	out := []domain.Agent{}
	for _, a := range m.agents {
		if a.TenantID == tenantID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAgentStore) Delete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	a, ok := m.agents[id]
	if !ok || a.TenantID != tenantID {
		return store.ErrNotFound
	}
	delete(m.agents, id)
	return nil
}

// mockFactStore keeps facts in insertion order. Search returns matching
// types in that order, which is enough to check callers.
type mockFactStore struct {
	mu    sync.Mutex
	facts []domain.Fact

	createErr error
	// failCreate, when set, decides per fact whether Create fails.
	failCreate func(f *domain.Fact) bool
	searchErr  error

	searchCalls []domain.SearchOpts
}

func newMockFactStore() *mockFactStore {
	return &mockFactStore{}
}

func (m *mockFactStore) Create(ctx context.Context, f *domain.Fact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if m.failCreate != nil && m.failCreate(f) {
		return store.ErrConflict
	}
	f.ID = uuid.New()
	f.CreatedAt = timeNow()
	m.facts = append(m.facts, *f)
	return nil
}

func (m *mockFactStore) Search(ctx context.Context, agentID uuid.UUID, opts domain.SearchOpts) ([]domain.Fact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCalls = append(m.searchCalls, opts)
	if m.searchErr != nil {
		return nil, m.searchErr
	}

	want := make(map[domain.FactType]bool, len(opts.FactTypes))
	for _, t := range opts.FactTypes {
		want[t] = true
	}
	var out []domain.Fact
	for _, f := range m.facts {
		if f.AgentID != agentID || !want[f.FactType] {
			continue
		}
		out = append(out, f)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (m *mockFactStore) DeleteByAgent(ctx context.Context, agentID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.facts[:0]
	var n int64
	for _, f := range m.facts {
		if f.AgentID == agentID {
			n++
			continue
		}
		kept = append(kept, f)
	}
	m.facts = kept
	return n, nil
}

func (m *mockFactStore) CountByAgent(ctx context.Context, agentID uuid.UUID) (map[domain.FactType]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[domain.FactType]int{}
	for _, t := range domain.AllFactTypes() {
		counts[t] = 0
	}
	for _, f := range m.facts {
		if f.AgentID == agentID {
			counts[f.FactType]++
		}
	}
	return counts, nil
}

func (m *mockFactStore) byType(t domain.FactType) []domain.Fact {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Fact
	for _, f := range m.facts {
		if f.FactType == t {
			out = append(out, f)
		}
	}
	return out
}

type mockEmbeddingClient struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (m *mockEmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

// stubRetriever returns a fixed result and records what it was asked.
type stubRetriever struct {
	facts []domain.Fact
	err   error

	calls     int
	budget    int
	maxTokens int
	factTypes []domain.FactType
}

func (r *stubRetriever) Search(ctx context.Context, agentID uuid.UUID, query string, budget, maxTokens int, factTypes []domain.FactType) ([]domain.Fact, error) {
	r.calls++
	r.budget = budget
	r.maxTokens = maxTokens
	r.factTypes = factTypes
	if r.err != nil {
		return nil, r.err
	}
	return r.facts, nil
}

// stubTaskSink records submissions and returns err from every Submit.
type stubTaskSink struct {
	mu    sync.Mutex
	tasks []domain.TaskDescriptor
	err   error
}

func (s *stubTaskSink) Submit(ctx context.Context, task domain.TaskDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return s.err
}

func (s *stubTaskSink) submitted() []domain.TaskDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.TaskDescriptor(nil), s.tasks...)
}
