package schema

import "fmt"

// FromDocument converts a JSON Schema document (decoded from JSON or YAML)
// into the internal representation. Only the node kinds the harness itself
// emits are accepted; anything else is a configuration error.
func FromDocument(doc map[string]any) (Schema, error) {
	kind, err := documentKind(doc)
	if err != nil {
		return Schema{}, err
	}
	s := Schema{Kind: kind}
	if text, ok := doc["description"].(string); ok {
		s.Description = text
	}

	switch kind {
	case KindObject:
		if raw, ok := doc["properties"].(map[string]any); ok {
			s.Properties = make(map[string]Schema, len(raw))
			for name, value := range raw {
				propDoc, ok := value.(map[string]any)
				if !ok {
					return Schema{}, fmt.Errorf("property %q is not a schema object", name)
				}
				prop, err := FromDocument(propDoc)
				if err != nil {
					return Schema{}, fmt.Errorf("property %q: %w", name, err)
				}
				s.Properties[name] = prop
			}
		}
		if raw, ok := doc["required"].([]any); ok {
			for _, value := range raw {
				name, ok := value.(string)
				if !ok {
					return Schema{}, fmt.Errorf("required entry %v is not a string", value)
				}
				s.Required = append(s.Required, name)
			}
		}
		if raw, ok := doc["additionalProperties"].(map[string]any); ok {
			values, err := FromDocument(raw)
			if err != nil {
				return Schema{}, fmt.Errorf("additionalProperties: %w", err)
			}
			s.AdditionalProperties = &values
		}
	case KindArray:
		if raw, ok := doc["items"].(map[string]any); ok {
			items, err := FromDocument(raw)
			if err != nil {
				return Schema{}, fmt.Errorf("items: %w", err)
			}
			s.Items = &items
		}
		if value, ok := numeric(doc["minItems"]); ok {
			min := int(value)
			s.MinItems = &min
		}
	case KindString:
		if raw, ok := doc["enum"].([]any); ok {
			for _, value := range raw {
				name, ok := value.(string)
				if !ok {
					return Schema{}, fmt.Errorf("enum value %v is not a string", value)
				}
				s.Enum = append(s.Enum, name)
			}
		}
	case KindNumber, KindInteger:
		if value, ok := numeric(doc["minimum"]); ok {
			s.Minimum = &value
		}
		if value, ok := numeric(doc["maximum"]); ok {
			s.Maximum = &value
		}
	}
	return s, nil
}

func documentKind(doc map[string]any) (Kind, error) {
	raw, ok := doc["type"]
	if !ok {
		// Reflected struct schemas sometimes omit "type" at the root.
		if _, hasProps := doc["properties"]; hasProps {
			return KindObject, nil
		}
		return "", fmt.Errorf("schema document has no type")
	}
	name, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("schema type %v is not a string", raw)
	}
	switch Kind(name) {
	case KindObject, KindArray, KindString, KindNumber, KindInteger, KindBoolean:
		return Kind(name), nil
	default:
		return "", fmt.Errorf("unsupported schema type %q", name)
	}
}

func numeric(raw any) (float64, bool) {
	switch value := raw.(type) {
	case float64:
		return value, true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case uint64:
		return float64(value), true
	default:
		return 0, false
	}
}
