// Package client is a small Go client for the Memora HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Harshitk-cp/memora/internal/domain"
)

const defaultTimeout = 60 * time.Second

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("memora: %d %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Memory is one fact to store.
type Memory struct {
	Content    string     `json:"content"`
	Context    *string    `json:"context,omitempty"`
	EventDate  *time.Time `json:"event_date,omitempty"`
	FactType   string     `json:"fact_type,omitempty"`
	Confidence *float64   `json:"confidence,omitempty"`
	DocumentID string     `json:"document_id,omitempty"`
}

type BatchResult struct {
	DocumentID string        `json:"document_id"`
	Count      int           `json:"count"`
	Facts      []domain.Fact `json:"facts"`
}

type SearchRequest struct {
	AgentID        string   `json:"agent_id"`
	Query          string   `json:"query"`
	FactTypes      []string `json:"fact_type,omitempty"`
	ThinkingBudget int      `json:"thinking_budget,omitempty"`
	MaxTokens      int      `json:"max_tokens,omitempty"`
	Trace          bool     `json:"trace,omitempty"`
}

type SearchResult struct {
	Results []domain.Fact       `json:"results"`
	Trace   *domain.SearchTrace `json:"trace,omitempty"`
}

func (c *Client) CreateAgent(ctx context.Context, externalID, name string) (*domain.Agent, error) {
	var out domain.Agent
	body := map[string]string{"external_id": externalID, "name": name}
	if err := c.do(ctx, http.MethodPost, "/v1/agents", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	var out struct {
		Agents []domain.Agent `json:"agents"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/agents", nil, &out); err != nil {
		return nil, err
	}
	return out.Agents, nil
}

// GetAgent accepts an agent id or external id and returns the agent with
// its fact counts.
func (c *Client) GetAgent(ctx context.Context, ref string) (*domain.Agent, error) {
	var out domain.Agent
	if err := c.do(ctx, http.MethodGet, "/v1/agents/"+url.PathEscape(ref), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Put(ctx context.Context, agentID string, m Memory) (*domain.Fact, error) {
	body := struct {
		AgentID string `json:"agent_id"`
		Memory
	}{AgentID: agentID, Memory: m}

	var out domain.Fact
	if err := c.do(ctx, http.MethodPost, "/v1/memories", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PutBatch(ctx context.Context, agentID, documentID string, items []Memory) (*BatchResult, error) {
	body := map[string]any{
		"agent_id":    agentID,
		"document_id": documentID,
		"items":       items,
	}
	var out BatchResult
	if err := c.do(ctx, http.MethodPost, "/v1/memories/batch", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	var out SearchResult
	if err := c.do(ctx, http.MethodPost, "/v1/search", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Think(ctx context.Context, agentID, query string, thinkingBudget int) (*domain.ThinkResult, error) {
	body := map[string]any{"agent_id": agentID, "query": query}
	if thinkingBudget > 0 {
		body["thinking_budget"] = thinkingBudget
	}
	var out domain.ThinkResult
	if err := c.do(ctx, http.MethodPost, "/v1/think", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
