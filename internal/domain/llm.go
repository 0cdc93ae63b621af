package domain

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CallOptions are the per-call sampling parameters passed to a gateway.
// Scope names the caller for logs and metrics.
type CallOptions struct {
	Scope       string
	Temperature float64
	MaxTokens   int
}

// ResponseSchema describes the JSON shape a structured generation call must
// return. Schema is a JSON Schema document.
type ResponseSchema struct {
	Name        string
	Description string
	Schema      map[string]any
}

type Generator interface {
	Generate(ctx context.Context, messages []Message, opts CallOptions) (string, error)
}

// StructuredGenerator decodes a schema-constrained response into out. A
// response that does not conform must be reported as an error, never
// partially decoded.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, messages []Message, opts CallOptions, schema ResponseSchema, out any) error
}

type LLMClient interface {
	Generator
	StructuredGenerator
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
