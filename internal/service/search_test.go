package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Harshitk-cp/memora/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSearch_FiltersTypesAndUsesBudget(t *testing.T) {
	agentID := uuid.New()
	fs := newMockFactStore()
	fs.facts = []domain.Fact{
		fact(agentID, domain.FactTypeWorld, "w1"),
		fact(agentID, domain.FactTypeAgent, "a1"),
		fact(agentID, domain.FactTypeOpinion, "o1"),
		fact(uuid.New(), domain.FactTypeWorld, "other agent"),
	}
	ec := &mockEmbeddingClient{}
	s := NewSearchService(fs, ec, zap.NewNop())

	got, err := s.Search(context.Background(), agentID, "query", 10, 0, []domain.FactType{domain.FactTypeWorld, domain.FactTypeOpinion})
	require.NoError(t, err)
	assert.Equal(t, []string{"w1", "o1"}, texts(got))

	require.Len(t, fs.searchCalls, 1)
	assert.Equal(t, 10, fs.searchCalls[0].Limit)
	assert.Equal(t, "query", fs.searchCalls[0].Query)
	assert.NotEmpty(t, fs.searchCalls[0].Embedding)
	assert.Equal(t, 1, ec.calls)
}

func TestSearch_Defaults(t *testing.T) {
	fs := newMockFactStore()
	s := NewSearchService(fs, nil, zap.NewNop())

	got, err := s.Search(context.Background(), uuid.New(), "q", 0, 0, nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	require.Len(t, fs.searchCalls, 1)
	assert.Equal(t, DefaultThinkingBudget, fs.searchCalls[0].Limit)
	assert.ElementsMatch(t, domain.AllFactTypes(), fs.searchCalls[0].FactTypes)
	assert.Nil(t, fs.searchCalls[0].Embedding)
}

func TestSearch_EmbeddingFailureFallsBackToKeyword(t *testing.T) {
	fs := newMockFactStore()
	s := NewSearchService(fs, &mockEmbeddingClient{err: errors.New("quota")}, zap.NewNop())

	_, err := s.Search(context.Background(), uuid.New(), "q", 5, 0, nil)
	require.NoError(t, err)
	require.Len(t, fs.searchCalls, 1)
	assert.Nil(t, fs.searchCalls[0].Embedding)
}

func TestSearch_StoreError(t *testing.T) {
	cause := errors.New("db down")
	fs := newMockFactStore()
	fs.searchErr = cause
	s := NewSearchService(fs, nil, zap.NewNop())

	_, err := s.Search(context.Background(), uuid.New(), "q", 5, 0, nil)
	assert.ErrorIs(t, err, cause)
}

func TestSearch_Validation(t *testing.T) {
	s := NewSearchService(newMockFactStore(), nil, zap.NewNop())
	ctx := context.Background()

	_, err := s.Search(ctx, uuid.Nil, "q", 0, 0, nil)
	assert.ErrorIs(t, err, ErrAgentIDMissing)

	_, err = s.Search(ctx, uuid.New(), " ", 0, 0, nil)
	assert.ErrorIs(t, err, ErrQueryEmpty)

	_, err = s.Search(ctx, uuid.New(), "q", 0, 0, []domain.FactType{"rumor"})
	assert.ErrorIs(t, err, ErrInvalidFactType)
}

func TestSearch_MaxTokensTrims(t *testing.T) {
	agentID := uuid.New()
	fs := newMockFactStore()
	for _, text := range []string{strings.Repeat("a", 40), strings.Repeat("b", 40), strings.Repeat("c", 40)} {
		fs.facts = append(fs.facts, fact(agentID, domain.FactTypeWorld, text))
	}
	s := NewSearchService(fs, nil, zap.NewNop())

	got, trace, err := s.SearchWithTrace(context.Background(), agentID, "q", 10, 25, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, byte('a'), got[0].Text[0])
	assert.Equal(t, byte('b'), got[1].Text[0])

	require.NotNil(t, trace)
	assert.Equal(t, 3, trace.ActivationCount)
	assert.Equal(t, "q", trace.Query)
	assert.GreaterOrEqual(t, trace.TotalTime, 0.0)
}

func TestTrimToTokens(t *testing.T) {
	facts := []domain.Fact{{Text: "12345678"}, {Text: "1234"}}
	assert.Len(t, trimToTokens(facts, 0), 2)
	assert.Len(t, trimToTokens(facts, 3), 2)
	assert.Len(t, trimToTokens(facts, 2), 1)
	assert.Len(t, trimToTokens(facts, 1), 0)
	assert.Equal(t, 3, estimateTokens("123456789"))
}
