package llm

import (
	"errors"
	"testing"

	"github.com/Harshitk-cp/memora/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = domain.ResponseSchema{
	Name: "opinion_extraction",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"opinions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"opinion":    map[string]any{"type": "string"},
						"reasons":    map[string]any{"type": "string"},
						"confidence": map[string]any{"type": "number"},
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

type testOpinions struct {
	Opinions []domain.OpinionCandidate `json:"opinions"`
}

func TestDecodeStructured_Valid(t *testing.T) {
	var out testOpinions
	err := decodeStructured(`{"opinions":[{"opinion":"Go is pragmatic","reasons":"simple tooling","confidence":0.8}]}`, testSchema, &out)
	require.NoError(t, err)
	require.Len(t, out.Opinions, 1)
	assert.Equal(t, "Go is pragmatic", out.Opinions[0].Opinion)
	assert.Equal(t, "simple tooling", out.Opinions[0].Reasons)
	assert.InDelta(t, 0.8, out.Opinions[0].Confidence, 1e-9)
}

func TestDecodeStructured_StripsFences(t *testing.T) {
	var out testOpinions
	err := decodeStructured("```json\n{\"opinions\":[]}\n```", testSchema, &out)
	require.NoError(t, err)
	assert.Empty(t, out.Opinions)
}

func TestDecodeStructured_Violations(t *testing.T) {
	cases := map[string]string{
		"not json":          `I think the answer is yes`,
		"missing root key":  `{}`,
		"wrong root type":   `[]`,
		"missing field":     `{"opinions":[{"opinion":"x","reasons":"y"}]}`,
		"wrong field type":  `{"opinions":[{"opinion":"x","reasons":"y","confidence":"high"}]}`,
		"unexpected field":  `{"opinions":[],"extra":true}`,
		"items not objects": `{"opinions":["x"]}`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var out testOpinions
			err := decodeStructured(raw, testSchema, &out)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSchemaViolation), "expected ErrSchemaViolation, got %v", err)
			assert.Empty(t, out.Opinions)
		})
	}
}

func TestValidateSchema_RequiredFromParsedJSON(t *testing.T) {
	schema := map[string]any{
		"type":     "object",
		"required": []any{"a"},
	}
	assert.NoError(t, validateSchema(map[string]any{"a": 1.0}, schema, "$"))
	assert.Error(t, validateSchema(map[string]any{"b": 1.0}, schema, "$"))
}

func TestValidateSchema_Integer(t *testing.T) {
	schema := map[string]any{"type": "integer"}
	assert.NoError(t, validateSchema(3.0, schema, "$"))
	assert.Error(t, validateSchema(3.5, schema, "$"))
}

func TestWithSchemaInstruction(t *testing.T) {
	msgs := []domain.Message{{Role: "user", Content: "hello"}}
	out, err := withSchemaInstruction(msgs, testSchema)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "user", out[0].Role)
	assert.Equal(t, "system", out[1].Role)
	assert.Contains(t, out[1].Content, "opinion_extraction")
	assert.Contains(t, out[1].Content, `"confidence"`)
	assert.Len(t, msgs, 1, "input messages must not be modified")
}
