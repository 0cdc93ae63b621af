package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Harshitk-cp/memora/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPool connects to TEST_DATABASE_URL, which must point at a database
// with migrations/001_init.up.sql applied.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))
	t.Cleanup(pool.Close)
	return pool
}

func seedAgent(t *testing.T, pool *pgxpool.Pool) (*domain.Tenant, *domain.Agent) {
	t.Helper()
	ctx := context.Background()

	tenant := &domain.Tenant{Name: "store-test", APIKeyHash: uuid.NewString()}
	require.NoError(t, NewTenantStore(pool).Create(ctx, tenant))

	agent := &domain.Agent{TenantID: tenant.ID, ExternalID: "agent-" + uuid.NewString()[:8], Name: "test"}
	require.NoError(t, NewAgentStore(pool).Create(ctx, agent))
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM tenants WHERE id = $1`, tenant.ID)
	})
	return tenant, agent
}

func unitVector(hot int) []float32 {
	v := make([]float32, 1536)
	v[hot] = 1
	return v
}

func TestAgentStore(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	tenant, agent := seedAgent(t, pool)
	agents := NewAgentStore(pool)

	dup := &domain.Agent{TenantID: tenant.ID, ExternalID: agent.ExternalID, Name: "dup"}
	assert.True(t, errors.Is(agents.Create(ctx, dup), ErrConflict))

	got, err := agents.GetByExternalID(ctx, agent.ExternalID, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, agent.ID, got.ID)

	_, err = agents.GetByID(ctx, agent.ID, uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))

	list, err := agents.ListByTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, agents.Delete(ctx, agent.ID, tenant.ID))
	assert.True(t, errors.Is(agents.Delete(ctx, agent.ID, tenant.ID), ErrNotFound))
}

func TestFactStore_SearchFusesBothArms(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	_, agent := seedAgent(t, pool)
	facts := NewFactStore(pool)

	put := func(text string, ft domain.FactType, vec []float32) *domain.Fact {
		f := &domain.Fact{AgentID: agent.ID, Text: text, FactType: ft, Embedding: vec}
		require.NoError(t, facts.Create(ctx, f))
		return f
	}
	both := put("raft leader election is explicit", domain.FactTypeWorld, unitVector(0))
	put("paxos is hard to teach", domain.FactTypeWorld, unitVector(1))
	put("raft is my favourite", domain.FactTypeOpinion, nil)
	put("I like consensus papers", domain.FactTypeAgent, unitVector(0))

	res, err := facts.Search(ctx, agent.ID, domain.SearchOpts{
		Query:     "raft election",
		Embedding: unitVector(0),
		FactTypes: domain.AllFactTypes(),
		Limit:     10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res)
	assert.Equal(t, both.ID, res[0].ID, "a fact ranked by both arms comes first")
	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, *res[i-1].Activation, *res[i].Activation)
	}

	res, err = facts.Search(ctx, agent.ID, domain.SearchOpts{
		Query:     "raft",
		FactTypes: []domain.FactType{domain.FactTypeOpinion},
		Limit:     10,
	})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, domain.FactTypeOpinion, res[0].FactType)

	counts, err := facts.CountByAgent(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, map[domain.FactType]int{
		domain.FactTypeAgent:   1,
		domain.FactTypeWorld:   2,
		domain.FactTypeOpinion: 1,
	}, counts)

	n, err := facts.DeleteByAgent(ctx, agent.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}
