package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Harshitk-cp/memora/internal/domain"
)

// ErrSchemaViolation is returned when a structured response is not valid
// JSON or does not conform to the requested schema.
var ErrSchemaViolation = errors.New("response does not match schema")

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// decodeStructured validates raw against schema and only then decodes it
// into out, so out is never left partially populated by a bad response.
func decodeStructured(raw string, schema domain.ResponseSchema, out any) error {
	raw = stripFences(raw)

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("%w: %s: invalid JSON: %v (raw: %s)", ErrSchemaViolation, schema.Name, err, raw)
	}
	if err := validateSchema(doc, schema.Schema, "$"); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSchemaViolation, schema.Name, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSchemaViolation, schema.Name, err)
	}
	return nil
}

// validateSchema checks the subset of JSON Schema used by structured calls:
// type, properties, required, items and additionalProperties=false.
func validateSchema(value any, schema map[string]any, path string) error {
	if schema == nil {
		return nil
	}

	typ, _ := schema["type"].(string)
	switch typ {
	case "object":
		obj, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected object", path)
		}
		for _, name := range requiredFields(schema["required"]) {
			if _, ok := obj[name]; !ok {
				return fmt.Errorf("%s: missing required field %q", path, name)
			}
		}
		props, _ := schema["properties"].(map[string]any)
		closed := schema["additionalProperties"] == false
		for name, v := range obj {
			sub, ok := props[name].(map[string]any)
			if !ok {
				if closed {
					return fmt.Errorf("%s: unexpected field %q", path, name)
				}
				continue
			}
			if err := validateSchema(v, sub, path+"."+name); err != nil {
				return err
			}
		}
	case "array":
		arr, ok := value.([]any)
		if !ok {
			return fmt.Errorf("%s: expected array", path)
		}
		items, _ := schema["items"].(map[string]any)
		for i, v := range arr {
			if err := validateSchema(v, items, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%s: expected string", path)
		}
	case "number":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("%s: expected number", path)
		}
	case "integer":
		f, ok := value.(float64)
		if !ok || f != math.Trunc(f) {
			return fmt.Errorf("%s: expected integer", path)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s: expected boolean", path)
		}
	}
	return nil
}

func requiredFields(v any) []string {
	switch r := v.(type) {
	case []string:
		return r
	case []any:
		out := make([]string, 0, len(r))
		for _, x := range r {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
