package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/memora/internal/domain"
	"github.com/Harshitk-cp/memora/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const opinionScope = "memory_extract_opinion"

var timeNow = time.Now

// FactWriter persists a single fact.
type FactWriter interface {
	Put(ctx context.Context, req domain.PutRequest) (*domain.Fact, error)
}

type OpinionConfig struct {
	// MinConfidence drops candidates below it. Zero keeps every candidate.
	MinConfidence float64
	Temperature   float64
	MaxTokens     int
}

func DefaultOpinionConfig() OpinionConfig {
	return OpinionConfig{
		MinConfidence: 0,
		Temperature:   0.2,
		MaxTokens:     1000,
	}
}

var opinionSchema = domain.ResponseSchema{
	Name:        "opinion_extraction",
	Description: "Opinions formed while answering a question, with reasons and confidence.",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"opinions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"opinion": map[string]any{
							"type":        "string",
							"description": "The opinion or perspective formed",
						},
						"reasons": map[string]any{
							"type":        "string",
							"description": "The reasons supporting this opinion",
						},
						"confidence": map[string]any{
							"type":        "number",
							"description": "Confidence from 0.0 to 1.0",
						},
					},
					"required":             []string{"opinion", "reasons", "confidence"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"opinions"},
		"additionalProperties": false,
	},
}

type opinionExtraction struct {
	Opinions []domain.OpinionCandidate `json:"opinions"`
}

// OpinionService turns answers into stored opinion facts. It runs from the
// task backend and never returns extraction or persistence failures to it.
type OpinionService struct {
	generator domain.StructuredGenerator
	facts     FactWriter
	cfg       OpinionConfig
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewOpinionService(g domain.StructuredGenerator, fw FactWriter, cfg OpinionConfig, logger *zap.Logger) *OpinionService {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultOpinionConfig().MaxTokens
	}
	return &OpinionService{
		generator: g,
		facts:     fw,
		cfg:       cfg,
		logger:    logger,
	}
}

func (s *OpinionService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// ExtractOpinions asks the model for opinions expressed in answerText.
// Any failure yields an empty list.
func (s *OpinionService) ExtractOpinions(ctx context.Context, answerText, query string) []domain.OpinionCandidate {
	candidates, err := s.extract(ctx, answerText, query)
	if err != nil {
		s.metrics.ExtractionFailed()
		s.logger.Warn("opinion extraction failed", zap.Error(err))
		return []domain.OpinionCandidate{}
	}
	return candidates
}

func (s *OpinionService) extract(ctx context.Context, answerText, query string) ([]domain.OpinionCandidate, error) {
	answerText = strings.TrimSpace(answerText)
	if answerText == "" {
		return []domain.OpinionCandidate{}, nil
	}
	if s.generator == nil {
		return nil, fmt.Errorf("%w: %w: no language model configured", ErrExtraction, ErrConfiguration)
	}

	messages := []domain.Message{
		{Role: "system", Content: opinionSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(opinionExtractionPrompt, query, answerText)},
	}
	var out opinionExtraction
	err := s.generator.GenerateStructured(ctx, messages, domain.CallOptions{
		Scope:       opinionScope,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	}, opinionSchema, &out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	return s.filter(out.Opinions), nil
}

// filter drops empty opinions and those under MinConfidence, clamping
// confidence into [0, 1].
func (s *OpinionService) filter(in []domain.OpinionCandidate) []domain.OpinionCandidate {
	out := make([]domain.OpinionCandidate, 0, len(in))
	for _, c := range in {
		c.Opinion = strings.TrimSpace(c.Opinion)
		c.Reasons = strings.TrimSpace(c.Reasons)
		if c.Opinion == "" {
			continue
		}
		c.Confidence = clamp01(c.Confidence)
		if c.Confidence < s.cfg.MinConfidence {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FormOpinion extracts opinions from answerText and stores each one as an
// opinion fact. It returns how many were stored. A failed write is logged
// and the remaining candidates are still written.
func (s *OpinionService) FormOpinion(ctx context.Context, agentID uuid.UUID, answerText, query string) int {
	candidates := s.ExtractOpinions(ctx, answerText, query)
	if len(candidates) == 0 {
		return 0
	}

	formedAt := timeNow().UTC()
	factContext := "formed during thinking about: " + query

	stored := 0
	for _, c := range candidates {
		confidence := c.Confidence
		_, err := s.facts.Put(ctx, domain.PutRequest{
			AgentID:    agentID,
			Content:    opinionText(c),
			Context:    &factContext,
			EventDate:  &formedAt,
			FactType:   domain.FactTypeOpinion,
			Confidence: &confidence,
		})
		if err != nil {
			if !errors.Is(err, ErrPersistence) {
				err = fmt.Errorf("%w: %w", ErrPersistence, err)
			}
			s.logger.Warn("failed to store opinion",
				zap.String("agent_id", agentID.String()),
				zap.Error(err))
			continue
		}
		stored++
	}

	s.metrics.OpinionsPersisted(stored)
	s.logger.Info("opinions formed",
		zap.String("agent_id", agentID.String()),
		zap.Int("extracted", len(candidates)),
		zap.Int("count", stored))
	return stored
}

// HandleTask is the task backend entry point for form_opinion tasks. A run
// cut short by cancellation reports the context error so the backend can
// redeliver it.
func (s *OpinionService) HandleTask(ctx context.Context, task domain.TaskDescriptor) error {
	if task.Type != domain.TaskTypeFormOpinion {
		return fmt.Errorf("%w: unexpected type %q", ErrInvalidTask, task.Type)
	}
	if task.AgentID == uuid.Nil {
		return fmt.Errorf("%w: %w", ErrInvalidTask, ErrAgentIDMissing)
	}
	s.FormOpinion(ctx, task.AgentID, task.AnswerText, task.Query)
	return ctx.Err()
}

func opinionText(c domain.OpinionCandidate) string {
	return fmt.Sprintf("%s (Reasons: %s)", c.Opinion, c.Reasons)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
