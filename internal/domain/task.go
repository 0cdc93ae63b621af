package domain

import "github.com/google/uuid"

const TaskTypeFormOpinion = "form_opinion"

// TaskDescriptor is a unit of background work handed to a task backend.
// Handlers must tolerate running the same descriptor more than once.
type TaskDescriptor struct {
	Type       string    `json:"type"`
	AgentID    uuid.UUID `json:"agent_id"`
	AnswerText string    `json:"answer_text"`
	Query      string    `json:"query"`
}
