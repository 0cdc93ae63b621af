package domain

import (
	"time"

	"github.com/google/uuid"
)

type FactType string

const (
	FactTypeAgent   FactType = "agent"
	FactTypeWorld   FactType = "world"
	FactTypeOpinion FactType = "opinion"
)

// AllFactTypes lists every fact type in the order the think prompt renders them.
func AllFactTypes() []FactType {
	return []FactType{FactTypeAgent, FactTypeWorld, FactTypeOpinion}
}

func ValidFactType(t string) bool {
	switch FactType(t) {
	case FactTypeAgent, FactTypeWorld, FactTypeOpinion:
		return true
	}
	return false
}

// Fact is a single unit of agent memory as stored and as returned by search.
// Activation is only set on search results and carries the fused relevance score.
type Fact struct {
	ID         uuid.UUID  `json:"id"`
	AgentID    uuid.UUID  `json:"agent_id"`
	Text       string     `json:"text"`
	FactType   FactType   `json:"fact_type"`
	Context    *string    `json:"context,omitempty"`
	EventDate  *time.Time `json:"event_date,omitempty"`
	Activation *float64   `json:"activation,omitempty"`
	Confidence *float64   `json:"confidence,omitempty"`
	DocumentID string     `json:"document_id,omitempty"`
	Embedding  []float32  `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
}

// PutRequest describes a fact to persist. FactType may be left empty to use
// the store default (world).
type PutRequest struct {
	AgentID    uuid.UUID
	Content    string
	Context    *string
	EventDate  *time.Time
	FactType   FactType
	Confidence *float64
	DocumentID string
}

// ThinkResult is the answer to a think call together with the facts it was
// grounded on, partitioned by fact type.
type ThinkResult struct {
	Text        string              `json:"text"`
	BasedOn     map[FactType][]Fact `json:"based_on"`
	NewOpinions []string            `json:"new_opinions"`
}

// OpinionCandidate is an opinion extracted from an answer before it is
// written through as an opinion fact.
type OpinionCandidate struct {
	Opinion    string  `json:"opinion"`
	Reasons    string  `json:"reasons"`
	Confidence float64 `json:"confidence"`
}

// SearchTrace carries timing details for a search call.
type SearchTrace struct {
	Query           string        `json:"query"`
	TotalTime       float64       `json:"total_time"`
	ActivationCount int           `json:"activation_count"`
	Duration        time.Duration `json:"-"`
}
