// Package governance defines the product governance charter process:
// decision-rights inventory, policy drafting, and charter ratification.
//
// Required inputs: product, context, orgSummary.
package governance

import (
	"github.com/prodflowhq/prodflow/prompt"
	"github.com/prodflowhq/prodflow/schema"
	"github.com/prodflowhq/prodflow/task"
	"github.com/prodflowhq/prodflow/workflow"
)

const Name = "governance"

func init() {
	workflow.MustRegister(workflow.Builder{
		Name:        Name,
		Description: "Governance charter: decision rights, policies, ratification.",
		Definition:  Definition,
	})
}

var inventoryDecisions = task.StepSpec{
	Name:  "inventory-decisions",
	Title: "Inventory decision rights",
	Agent: "org-analyst",
	Prompt: prompt.Spec{
		Name:    "governance.inventory-decisions",
		Role:    "You map decision rights in product organizations.",
		Task:    "Inventory the product decisions for {{product}} and who owns them today, given this org summary: {{orgSummary}}",
		Context: "{{context}}",
		Instructions: []string{
			"List every recurring decision with its current owner and cadence.",
			"Flag decisions with unclear or contested ownership.",
		},
		OutputFormat: "JSON matching the declared schema.",
	},
	OutputSchema: schema.Object(map[string]schema.Schema{
		"decisions": schema.ArrayMin(schema.Object(map[string]schema.Schema{
			"decision":  schema.String(),
			"owner":     schema.String(),
			"cadence":   schema.Enum("ad-hoc", "weekly", "monthly", "quarterly"),
			"contested": schema.Boolean(),
		}, "decision", "owner", "cadence"), 3),
	}, "decisions"),
	Labels: []string{"governance", "inventory"},
}

var draftPolicies = task.StepSpec{
	Name:  "draft-policies",
	Title: "Draft governance policies",
	Agent: "policy-writer",
	Prompt: prompt.Spec{
		Name: "governance.draft-policies",
		Role: "You draft lightweight governance policies.",
		Task: "Draft governance policies for {{product}} covering the contested decisions.",
		Instructions: []string{
			"One policy per contested decision, naming the decider and the consulted parties.",
			"Score how complete the policy coverage is from 0 to 100.",
		},
		OutputFormat: "JSON matching the declared schema.",
	},
	OutputSchema: schema.Object(map[string]schema.Schema{
		"policies": schema.ArrayMin(schema.Object(map[string]schema.Schema{
			"decision":  schema.String(),
			"decider":   schema.String(),
			"consulted": schema.Array(schema.String()),
			"policy":    schema.String(),
		}, "decision", "decider", "policy"), 1),
		"coverage": schema.Object(map[string]schema.Schema{
			"value": schema.NumberBetween(0, 100),
			"gaps":  schema.Array(schema.String()),
		}, "value"),
	}, "policies", "coverage"),
	Labels: []string{"governance", "policy"},
}

var ratifyCharter = task.StepSpec{
	Name:  "ratify-charter",
	Title: "Assemble the charter for ratification",
	Agent: "doc-writer",
	Prompt: prompt.Spec{
		Name: "governance.ratify-charter",
		Role: "You assemble governance charters.",
		Task: "Assemble the governance charter for {{product}} from the decision inventory and policies.",
		Instructions: []string{
			"Write the charter to docs/governance.md and declare it as an artifact.",
		},
		OutputFormat: "JSON matching the declared schema.",
	},
	OutputSchema: schema.Object(map[string]schema.Schema{
		"summary": schema.String(),
		"artifacts": schema.ArrayMin(schema.Object(map[string]schema.Schema{
			"path":   schema.String(),
			"format": schema.String(),
			"label":  schema.String(),
		}, "path"), 1),
	}, "summary", "artifacts"),
	Labels: []string{"governance", "charter"},
}

// Definition builds the governance workflow. Ratification is the one
// mandatory human step: a charter nobody approved governs nothing.
func Definition() (workflow.Definition, error) {
	return workflow.Definition{
		Name:        Name,
		Description: "Draft and ratify a product governance charter.",
		Entries: []workflow.Entry{
			// Step 1: Decision inventory.
			workflow.Step(inventoryDecisions, nil),
			// Step 2: Policies with a fatal coverage gate.
			workflow.Step(draftPolicies, nil, workflow.Gate{
				Name:      "policy-coverage",
				Path:      "coverage.value",
				Threshold: 50,
				Fatal:     true,
				Reason:    "Policies cover less than half of the contested decisions",
			}),
			// Ratification pause.
			workflow.Breakpoint("charter-ratification", "Ratify the charter",
				"Policies are drafted. Ratify the charter and publish?",
				func(run *workflow.Run) map[string]any {
					coverage, _ := run.Number("draft-policies", "coverage.value")
					return map[string]any{"policyCoverage": coverage}
				}),
			// Step 3: Assemble and publish.
			workflow.Step(ratifyCharter, nil),
		},
	}, nil
}
