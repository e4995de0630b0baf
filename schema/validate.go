package schema

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Violation is one constraint the validated value failed to satisfy.
type Violation struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Description)
}

// Validate checks a decoded JSON value against the schema and returns every
// violation found, not just the first. A nil, empty slice means the value
// conforms. The returned error reports validator failures (a malformed
// schema), never value-level problems.
func Validate(value any, s Schema) ([]Violation, error) {
	return run(gojsonschema.NewGoLoader(value), s)
}

// ValidateBytes validates a raw JSON payload. A payload that does not parse
// as JSON fails closed: it yields a single root violation rather than an
// error, so callers treat it like any other non-conforming response.
func ValidateBytes(raw []byte, s Schema) ([]Violation, error) {
	if !json.Valid(raw) {
		return []Violation{{Field: "(root)", Description: "payload is not valid JSON"}}, nil
	}
	return run(gojsonschema.NewBytesLoader(raw), s)
}

func run(document gojsonschema.JSONLoader, s Schema) ([]Violation, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(s.Document()), document)
	if err != nil {
		return nil, fmt.Errorf("schema validation failed to run: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	violations := make([]Violation, 0, len(result.Errors()))
	for _, issue := range result.Errors() {
		violations = append(violations, Violation{
			Field:       issue.Field(),
			Description: issue.Description(),
		})
	}
	return violations, nil
}
