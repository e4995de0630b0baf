package task

import (
	"errors"
	"strings"

	"github.com/prodflowhq/prodflow/prompt"
	"github.com/prodflowhq/prodflow/schema"
)

// StepSpec is the declarative table row a catalog writes for one step. Its
// Factory method turns the row into a pure descriptor factory, which is how
// the near-identical per-step factories across workflows stay boilerplate
// free.
type StepSpec struct {
	Name         string
	Title        string
	Agent        string
	Prompt       prompt.Spec
	OutputSchema schema.Schema
	Labels       []string
}

// Factory returns the pure descriptor factory for this spec. Prompt
// variables come from the arguments mapping; a template token with no
// matching argument is a malformed mapping and fails with
// InvalidArgumentError.
func (s StepSpec) Factory() Factory {
	return func(args Args, rc RunContext) (Descriptor, error) {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return Descriptor{}, &InvalidArgumentError{Key: "name", Reason: "step spec has no name"}
		}
		payload, err := prompt.RenderPayload(prompt.Overlay(s.Prompt), args.Vars())
		if err != nil {
			var missing *prompt.MissingVarsError
			if errors.As(err, &missing) {
				return Descriptor{}, &InvalidArgumentError{
					Key:    strings.Join(missing.Keys, ","),
					Reason: "missing prompt variable",
				}
			}
			return Descriptor{}, err
		}

		stepID := rc.StepID(name)
		return Descriptor{
			Kind:         KindAgent,
			ID:           stepID,
			Title:        s.Title,
			Agent:        s.Agent,
			Prompt:       payload,
			OutputSchema: s.OutputSchema,
			InputPath:    InputPath(stepID),
			OutputPath:   OutputPath(stepID),
			Labels:       append([]string(nil), s.Labels...),
		}, nil
	}
}
