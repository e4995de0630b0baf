package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// FromValue derives a schema from a Go struct via reflection. It is a
// convenience for steps whose expected output already has a typed
// representation in the host program; hand-written schemas take precedence
// where the two disagree.
func FromValue(v any) (Schema, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	reflected := reflector.Reflect(v)
	raw, err := json.Marshal(reflected)
	if err != nil {
		return Schema{}, fmt.Errorf("failed to encode reflected schema: %w", err)
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Schema{}, fmt.Errorf("failed to decode reflected schema: %w", err)
	}
	delete(doc, "$schema")
	delete(doc, "$id")
	return FromDocument(doc)
}
