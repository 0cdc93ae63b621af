package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/memora/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultThinkingBudget is the number of facts a search may return when
	// the caller does not say.
	DefaultThinkingBudget = 50

	// charsPerToken approximates tokenizer output for the max_tokens cut.
	charsPerToken = 4
)

type SearchService struct {
	factStore       domain.FactStore
	embeddingClient domain.EmbeddingClient
	logger          *zap.Logger
}

func NewSearchService(fs domain.FactStore, ec domain.EmbeddingClient, logger *zap.Logger) *SearchService {
	return &SearchService{
		factStore:       fs,
		embeddingClient: ec,
		logger:          logger,
	}
}

// Search returns the agent's facts most relevant to query across the given
// fact types, best first. The result is never nil.
func (s *SearchService) Search(ctx context.Context, agentID uuid.UUID, query string, budget, maxTokens int, factTypes []domain.FactType) ([]domain.Fact, error) {
	facts, _, err := s.SearchWithTrace(ctx, agentID, query, budget, maxTokens, factTypes)
	return facts, err
}

func (s *SearchService) SearchWithTrace(ctx context.Context, agentID uuid.UUID, query string, budget, maxTokens int, factTypes []domain.FactType) ([]domain.Fact, *domain.SearchTrace, error) {
	if agentID == uuid.Nil {
		return nil, nil, ErrAgentIDMissing
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil, ErrQueryEmpty
	}
	for _, t := range factTypes {
		if !domain.ValidFactType(string(t)) {
			return nil, nil, fmt.Errorf("%w: %q", ErrInvalidFactType, t)
		}
	}
	if len(factTypes) == 0 {
		factTypes = domain.AllFactTypes()
	}
	if budget <= 0 {
		budget = DefaultThinkingBudget
	}

	start := time.Now()

	var embedding []float32
	if s.embeddingClient != nil {
		var err error
		embedding, err = s.embeddingClient.Embed(ctx, query)
		if err != nil {
			s.logger.Warn("query embedding failed, searching by keyword only",
				zap.String("agent_id", agentID.String()),
				zap.Error(err))
			embedding = nil
		}
	}

	facts, err := s.factStore.Search(ctx, agentID, domain.SearchOpts{
		Query:     query,
		Embedding: embedding,
		FactTypes: factTypes,
		Limit:     budget,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("search facts: %w", err)
	}
	activated := len(facts)

	facts = trimToTokens(facts, maxTokens)
	if facts == nil {
		facts = []domain.Fact{}
	}

	elapsed := time.Since(start)
	trace := &domain.SearchTrace{
		Query:           query,
		TotalTime:       elapsed.Seconds(),
		ActivationCount: activated,
		Duration:        elapsed,
	}

	s.logger.Debug("search complete",
		zap.String("agent_id", agentID.String()),
		zap.Int("activated", activated),
		zap.Int("returned", len(facts)),
		zap.Duration("duration", elapsed))

	return facts, trace, nil
}

// trimToTokens keeps the leading facts whose combined text fits in
// maxTokens. A non-positive limit keeps everything.
func trimToTokens(facts []domain.Fact, maxTokens int) []domain.Fact {
	if maxTokens <= 0 {
		return facts
	}
	used := 0
	for i, f := range facts {
		used += estimateTokens(f.Text)
		if used > maxTokens {
			return facts[:i]
		}
	}
	return facts
}

func estimateTokens(s string) int {
	return (len(s) + charsPerToken - 1) / charsPerToken
}
