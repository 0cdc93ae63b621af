package llm

import (
	"encoding/json"
	"fmt"

	"github.com/Harshitk-cp/memora/internal/domain"
)

const schemaInstructionPrompt = `Respond ONLY with a single JSON value that conforms to the following JSON Schema. No markdown, no explanation.

Schema (%s):
%s`

// withSchemaInstruction appends a system message carrying the schema for
// providers that cannot be asked for schema-constrained output natively.
func withSchemaInstruction(messages []domain.Message, schema domain.ResponseSchema) ([]domain.Message, error) {
	raw, err := json.MarshalIndent(schema.Schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal response schema: %w", err)
	}

	out := make([]domain.Message, 0, len(messages)+1)
	out = append(out, messages...)
	out = append(out, domain.Message{
		Role:    "system",
		Content: fmt.Sprintf(schemaInstructionPrompt, schema.Name, string(raw)),
	})
	return out, nil
}
