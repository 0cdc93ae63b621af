package service

import "errors"

// Failure kinds of the think pipeline. Callers match with errors.Is; the
// underlying cause stays reachable through the wrap chain.
var (
	ErrConfiguration = errors.New("service not configured")
	ErrRetrieval     = errors.New("retrieval failed")
	ErrGeneration    = errors.New("generation failed")
	ErrExtraction    = errors.New("opinion extraction failed")
	ErrPersistence   = errors.New("persisting fact failed")
)

var (
	ErrQueryEmpty      = errors.New("query is required")
	ErrAgentIDMissing  = errors.New("agent_id is required")
	ErrContentEmpty    = errors.New("content is required")
	ErrInvalidFactType = errors.New("invalid fact_type")
	ErrInvalidTask     = errors.New("invalid task")
)
