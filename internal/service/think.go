package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/memora/internal/domain"
	"github.com/Harshitk-cp/memora/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	thinkScope      = "memory_think"
	eventDateLayout = "2006-01-02 15:04:05"
)

// Retriever runs one fused search over an agent's facts.
type Retriever interface {
	Search(ctx context.Context, agentID uuid.UUID, query string, budget, maxTokens int, factTypes []domain.FactType) ([]domain.Fact, error)
}

// TaskSink accepts background work without waiting for it to run.
type TaskSink interface {
	Submit(ctx context.Context, task domain.TaskDescriptor) error
}

type ThinkConfig struct {
	DefaultBudget   int
	SearchMaxTokens int
	Temperature     float64
	MaxTokens       int
}

func DefaultThinkConfig() ThinkConfig {
	return ThinkConfig{
		DefaultBudget:   DefaultThinkingBudget,
		SearchMaxTokens: 4096,
		Temperature:     0.7,
		MaxTokens:       1000,
	}
}

// ThinkService answers questions from an agent's memory. Opinions the answer
// contains are extracted later by a background task, so they never show up
// in the result of the call that formed them.
type ThinkService struct {
	retriever Retriever
	generator domain.Generator
	tasks     TaskSink
	cfg       ThinkConfig
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewThinkService(r Retriever, g domain.Generator, t TaskSink, cfg ThinkConfig, logger *zap.Logger) *ThinkService {
	def := DefaultThinkConfig()
	if cfg.DefaultBudget <= 0 {
		cfg.DefaultBudget = def.DefaultBudget
	}
	if cfg.SearchMaxTokens <= 0 {
		cfg.SearchMaxTokens = def.SearchMaxTokens
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	return &ThinkService{
		retriever: r,
		generator: g,
		tasks:     t,
		cfg:       cfg,
		logger:    logger,
	}
}

func (s *ThinkService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

func (s *ThinkService) Think(ctx context.Context, agentID uuid.UUID, query string, thinkingBudget int) (result *domain.ThinkResult, err error) {
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeOK
		if err != nil {
			outcome = metrics.OutcomeError
		}
		s.metrics.ObserveThink(outcome, time.Since(start))
	}()

	if s.generator == nil || s.retriever == nil {
		return nil, fmt.Errorf("%w: no language model configured", ErrConfiguration)
	}
	if agentID == uuid.Nil {
		return nil, ErrAgentIDMissing
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryEmpty
	}
	if thinkingBudget <= 0 {
		thinkingBudget = s.cfg.DefaultBudget
	}

	facts, err := s.retriever.Search(ctx, agentID, query, thinkingBudget, s.cfg.SearchMaxTokens, domain.AllFactTypes())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	basedOn := partitionFacts(facts)
	s.logger.Debug("think retrieval complete",
		zap.String("agent_id", agentID.String()),
		zap.Int("agent_facts", len(basedOn[domain.FactTypeAgent])),
		zap.Int("world_facts", len(basedOn[domain.FactTypeWorld])),
		zap.Int("opinions", len(basedOn[domain.FactTypeOpinion])))

	messages := []domain.Message{
		{Role: "system", Content: thinkSystemPrompt},
		{Role: "user", Content: buildThinkPrompt(basedOn, query)},
	}
	answer, err := s.generator.Generate(ctx, messages, domain.CallOptions{
		Scope:       thinkScope,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, fmt.Errorf("%w: empty answer", ErrGeneration)
	}

	s.submitOpinionTask(ctx, agentID, answer, query)

	return &domain.ThinkResult{
		Text:        answer,
		BasedOn:     basedOn,
		NewOpinions: []string{},
	}, nil
}

// submitOpinionTask hands the answer to the task backend. Failures are
// logged and dropped; the answer is returned either way.
func (s *ThinkService) submitOpinionTask(ctx context.Context, agentID uuid.UUID, answer, query string) {
	if s.tasks == nil {
		s.logger.Debug("no task backend configured, skipping opinion formation")
		return
	}

	// The answer is already generated; a client disconnecting now should not
	// stop the task from being queued.
	err := s.tasks.Submit(context.WithoutCancel(ctx), domain.TaskDescriptor{
		Type:       domain.TaskTypeFormOpinion,
		AgentID:    agentID,
		AnswerText: answer,
		Query:      query,
	})
	if err != nil {
		s.logger.Warn("failed to submit opinion task",
			zap.String("agent_id", agentID.String()),
			zap.Error(err))
	}
}

// partitionFacts splits facts by type keeping their relative order. All
// three types are always present.
func partitionFacts(facts []domain.Fact) map[domain.FactType][]domain.Fact {
	out := make(map[domain.FactType][]domain.Fact, 3)
	for _, t := range domain.AllFactTypes() {
		out[t] = []domain.Fact{}
	}
	for _, f := range facts {
		if _, ok := out[f.FactType]; !ok {
			continue
		}
		out[f.FactType] = append(out[f.FactType], f)
	}
	return out
}

type promptFact struct {
	Text      string   `json:"text"`
	Context   string   `json:"context,omitempty"`
	EventDate string   `json:"event_date,omitempty"`
	Score     *float64 `json:"score,omitempty"`
}

// formatFacts renders facts as an indented JSON array for the prompt.
func formatFacts(facts []domain.Fact) string {
	if len(facts) == 0 {
		return "[]"
	}
	items := make([]promptFact, len(facts))
	for i, f := range facts {
		items[i] = promptFact{Text: f.Text, Score: f.Activation}
		if f.Context != nil {
			items[i].Context = *f.Context
		}
		if f.EventDate != nil {
			items[i].EventDate = f.EventDate.UTC().Format(eventDateLayout)
		}
	}
	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func buildThinkPrompt(basedOn map[domain.FactType][]domain.Fact, query string) string {
	return fmt.Sprintf(thinkPrompt,
		formatFacts(basedOn[domain.FactTypeAgent]),
		formatFacts(basedOn[domain.FactTypeWorld]),
		formatFacts(basedOn[domain.FactTypeOpinion]),
		query,
	)
}
