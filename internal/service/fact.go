package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/memora/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// putBatchConcurrency bounds parallel embedding calls in PutBatch.
const putBatchConcurrency = 4

type FactService struct {
	factStore       domain.FactStore
	embeddingClient domain.EmbeddingClient
	logger          *zap.Logger
}

func NewFactService(fs domain.FactStore, ec domain.EmbeddingClient, logger *zap.Logger) *FactService {
	return &FactService{
		factStore:       fs,
		embeddingClient: ec,
		logger:          logger,
	}
}

func (s *FactService) Put(ctx context.Context, req domain.PutRequest) (*domain.Fact, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrContentEmpty
	}
	if req.AgentID == uuid.Nil {
		return nil, ErrAgentIDMissing
	}
	if req.FactType == "" {
		req.FactType = domain.FactTypeWorld
	}
	if !domain.ValidFactType(string(req.FactType)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFactType, req.FactType)
	}

	f := &domain.Fact{
		AgentID:    req.AgentID,
		Text:       content,
		FactType:   req.FactType,
		Context:    req.Context,
		EventDate:  req.EventDate,
		DocumentID: req.DocumentID,
	}
	if req.Confidence != nil {
		c := clamp01(*req.Confidence)
		f.Confidence = &c
	}

	// Without a vector the fact is still reachable through keyword search.
	if s.embeddingClient != nil {
		embedding, err := s.embeddingClient.Embed(ctx, content)
		if err != nil {
			s.logger.Warn("embedding failed, storing fact without vector",
				zap.String("agent_id", req.AgentID.String()),
				zap.Error(err))
		} else {
			f.Embedding = embedding
		}
	}

	if err := s.factStore.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return f, nil
}

// PutBatch stores reqs concurrently. Requests without a document id share
// documentID, or a generated one when it is empty. Results keep the order
// of reqs; the first failure cancels the remaining writes.
func (s *FactService) PutBatch(ctx context.Context, reqs []domain.PutRequest, documentID string) ([]*domain.Fact, error) {
	if documentID == "" {
		documentID = uuid.NewString()
	}

	facts := make([]*domain.Fact, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(putBatchConcurrency)

	for i, req := range reqs {
		if req.DocumentID == "" {
			req.DocumentID = documentID
		}
		g.Go(func() error {
			f, err := s.Put(gctx, req)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			facts[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("fact batch stored",
		zap.String("document_id", documentID),
		zap.Int("count", len(facts)))
	return facts, nil
}

// DeleteAgent removes every fact belonging to the agent.
func (s *FactService) DeleteAgent(ctx context.Context, agentID uuid.UUID) error {
	if agentID == uuid.Nil {
		return ErrAgentIDMissing
	}
	n, err := s.factStore.DeleteByAgent(ctx, agentID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.logger.Info("agent facts deleted",
		zap.String("agent_id", agentID.String()),
		zap.Int64("count", n))
	return nil
}
