// Package schema defines the declarative output-schema representation used
// by process steps, and validates agent responses against it. Schemas are a
// small sum type over JSON node kinds; validation is delegated to
// gojsonschema after rendering the schema as a standard JSON Schema document.
package schema

type Kind string

const (
	KindObject  Kind = "object"
	KindArray   Kind = "array"
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
)

// Schema describes the expected shape of one JSON value. Exactly the fields
// relevant to the Kind are consulted; the rest are ignored.
type Schema struct {
	Kind        Kind
	Description string

	// Object
	Properties map[string]Schema
	Required   []string
	// Map-valued object: every property validates against this schema.
	AdditionalProperties *Schema

	// Array
	Items    *Schema
	MinItems *int

	// String
	Enum []string

	// Number / integer
	Minimum *float64
	Maximum *float64
}

func Object(properties map[string]Schema, required ...string) Schema {
	return Schema{Kind: KindObject, Properties: properties, Required: required}
}

// Map is an object whose property names are free-form and whose values all
// conform to the given schema.
func Map(values Schema) Schema {
	return Schema{Kind: KindObject, AdditionalProperties: &values}
}

func Array(items Schema) Schema {
	return Schema{Kind: KindArray, Items: &items}
}

func ArrayMin(items Schema, min int) Schema {
	return Schema{Kind: KindArray, Items: &items, MinItems: &min}
}

func String() Schema {
	return Schema{Kind: KindString}
}

func Enum(values ...string) Schema {
	return Schema{Kind: KindString, Enum: values}
}

func Number() Schema {
	return Schema{Kind: KindNumber}
}

func NumberBetween(min, max float64) Schema {
	return Schema{Kind: KindNumber, Minimum: &min, Maximum: &max}
}

func Integer() Schema {
	return Schema{Kind: KindInteger}
}

func IntegerBetween(min, max float64) Schema {
	return Schema{Kind: KindInteger, Minimum: &min, Maximum: &max}
}

func Boolean() Schema {
	return Schema{Kind: KindBoolean}
}

// Describe returns a copy of the schema with a description attached.
func (s Schema) Describe(text string) Schema {
	s.Description = text
	return s
}

// Document renders the schema as a JSON Schema document suitable for a
// validator or for embedding in an agent prompt.
func (s Schema) Document() map[string]any {
	doc := map[string]any{"type": string(s.Kind)}
	if s.Description != "" {
		doc["description"] = s.Description
	}
	switch s.Kind {
	case KindObject:
		if len(s.Properties) > 0 {
			props := make(map[string]any, len(s.Properties))
			for name, prop := range s.Properties {
				props[name] = prop.Document()
			}
			doc["properties"] = props
		}
		if len(s.Required) > 0 {
			required := make([]any, 0, len(s.Required))
			for _, name := range s.Required {
				required = append(required, name)
			}
			doc["required"] = required
		}
		if s.AdditionalProperties != nil {
			doc["additionalProperties"] = s.AdditionalProperties.Document()
		}
	case KindArray:
		if s.Items != nil {
			doc["items"] = s.Items.Document()
		}
		if s.MinItems != nil {
			doc["minItems"] = *s.MinItems
		}
	case KindString:
		if len(s.Enum) > 0 {
			values := make([]any, 0, len(s.Enum))
			for _, v := range s.Enum {
				values = append(values, v)
			}
			doc["enum"] = values
		}
	case KindNumber, KindInteger:
		if s.Minimum != nil {
			doc["minimum"] = *s.Minimum
		}
		if s.Maximum != nil {
			doc["maximum"] = *s.Maximum
		}
	}
	return doc
}
