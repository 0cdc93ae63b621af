package llm

import (
	"context"
	"sync"

	"github.com/Harshitk-cp/memora/internal/domain"
)

const (
	defaultMockAnswer     = "Mock answer"
	defaultMockStructured = `{"opinions":[]}`
)

// MockClient is a configurable LLM client for testing.
// Set the response fields to control what each method returns. Structured
// responses are raw JSON and go through the same schema validation as the
// real providers.
type MockClient struct {
	mu sync.Mutex

	GenerateResponse   string
	GenerateError      error
	StructuredResponse string
	StructuredError    error

	// Call tracking for assertions
	GenerateCalls   [][]domain.Message
	GenerateOpts    []domain.CallOptions
	StructuredCalls [][]domain.Message
	StructuredOpts  []domain.CallOptions
}

func NewMockClient() *MockClient {
	return &MockClient{
		GenerateResponse:   defaultMockAnswer,
		StructuredResponse: defaultMockStructured,
	}
}

func (c *MockClient) Generate(ctx context.Context, messages []domain.Message, opts domain.CallOptions) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.GenerateCalls = append(c.GenerateCalls, messages)
	c.GenerateOpts = append(c.GenerateOpts, opts)
	if c.GenerateError != nil {
		return "", c.GenerateError
	}
	return c.GenerateResponse, nil
}

func (c *MockClient) GenerateStructured(ctx context.Context, messages []domain.Message, opts domain.CallOptions, schema domain.ResponseSchema, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.StructuredCalls = append(c.StructuredCalls, messages)
	c.StructuredOpts = append(c.StructuredOpts, opts)
	if c.StructuredError != nil {
		return c.StructuredError
	}
	return decodeStructured(c.StructuredResponse, schema, out)
}

// GenerateCallCount returns the number of Generate calls so far.
func (c *MockClient) GenerateCallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.GenerateCalls)
}

// StructuredCallCount returns the number of GenerateStructured calls so far.
func (c *MockClient) StructuredCallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.StructuredCalls)
}

// Reset clears all recorded calls and resets responses to defaults.
func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.GenerateResponse = defaultMockAnswer
	c.GenerateError = nil
	c.StructuredResponse = defaultMockStructured
	c.StructuredError = nil
	c.GenerateCalls = nil
	c.GenerateOpts = nil
	c.StructuredCalls = nil
	c.StructuredOpts = nil
}
