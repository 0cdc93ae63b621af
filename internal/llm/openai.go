package llm

import (
	"context"
	"fmt"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/Harshitk-cp/memora/internal/domain"
)

// OpenAIClient talks to the OpenAI chat completions API or any server that
// speaks the same protocol (Groq, Cerebras).
type OpenAIClient struct {
	client oai.Client
	model  string
}

func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{
		client: oai.NewClient(opts...),
		model:  model,
	}
}

func (c *OpenAIClient) buildParams(messages []domain.Message, opts domain.CallOptions) oai.ChatCompletionNewParams {
	msgs := make([]oai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			msgs = append(msgs, oai.SystemMessage(m.Content))
		case "assistant":
			msgs = append(msgs, oai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, oai.UserMessage(m.Content))
		}
	}

	params := oai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.model),
		Messages:    msgs,
		Temperature: oai.Float(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = oai.Int(int64(opts.MaxTokens))
	}
	return params
}

func (c *OpenAIClient) complete(ctx context.Context, params oai.ChatCompletionNewParams) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *OpenAIClient) Generate(ctx context.Context, messages []domain.Message, opts domain.CallOptions) (string, error) {
	result, err := c.complete(ctx, c.buildParams(messages, opts))
	if err != nil {
		return "", fmt.Errorf("%s: %w", opts.Scope, err)
	}
	return result, nil
}

func (c *OpenAIClient) GenerateStructured(ctx context.Context, messages []domain.Message, opts domain.CallOptions, schema domain.ResponseSchema, out any) error {
	params := c.buildParams(messages, opts)
	params.ResponseFormat = oai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &oai.ResponseFormatJSONSchemaParam{
			JSONSchema: oai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        schema.Name,
				Description: oai.String(schema.Description),
				Schema:      schema.Schema,
				Strict:      oai.Bool(true),
			},
		},
	}

	result, err := c.complete(ctx, params)
	if err != nil {
		return fmt.Errorf("%s: %w", opts.Scope, err)
	}
	return decodeStructured(result, schema, out)
}
