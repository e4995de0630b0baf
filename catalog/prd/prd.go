// Package prd defines the PRD creation process: problem analysis, user
// stories, acceptance criteria, a human review, and final assembly.
//
// Required inputs: product, context.
package prd

import (
	"github.com/prodflowhq/prodflow/prompt"
	"github.com/prodflowhq/prodflow/schema"
	"github.com/prodflowhq/prodflow/task"
	"github.com/prodflowhq/prodflow/workflow"
)

const Name = "prd"

func init() {
	workflow.MustRegister(workflow.Builder{
		Name:        Name,
		Description: "PRD creation: problem analysis, user stories, acceptance criteria, review, assembly.",
		Definition:  Definition,
	})
}

var analyzeProblem = task.StepSpec{
	Name:  "analyze-problem",
	Title: "Analyze the problem space",
	Agent: "product-analyst",
	Prompt: prompt.Spec{
		Name:    "prd.analyze-problem",
		Role:    "You are a senior product analyst.",
		Task:    "Analyze the problem space for {{product}}.",
		Context: "{{context}}",
		Instructions: []string{
			"State the core problem in one paragraph.",
			"Identify the affected personas and their pains.",
			"Score how well-defined the problem is from 0 to 100.",
		},
		OutputFormat: "JSON matching the declared schema.",
	},
	OutputSchema: schema.Object(map[string]schema.Schema{
		"problemStatement": schema.String().Describe("One-paragraph problem statement."),
		"personas": schema.ArrayMin(schema.Object(map[string]schema.Schema{
			"name":  schema.String(),
			"pains": schema.ArrayMin(schema.String(), 1),
		}, "name", "pains"), 1),
		"clarity": schema.Object(map[string]schema.Schema{
			"value":     schema.NumberBetween(0, 100),
			"rationale": schema.String(),
		}, "value"),
	}, "problemStatement", "personas", "clarity"),
	Labels: []string{"prd", "analysis"},
}

var generateStories = task.StepSpec{
	Name:  "generate-stories",
	Title: "Generate user stories",
	Agent: "story-writer",
	Prompt: prompt.Spec{
		Name:    "prd.generate-stories",
		Role:    "You write user stories for agile product teams.",
		Task:    "Generate user stories for {{product}} from this problem statement: {{problemStatement}}",
		Context: "{{context}}",
		Instructions: []string{
			"Write each story as: as a <persona>, I want <capability>, so that <outcome>.",
			"Assign each story a priority.",
		},
		OutputFormat: "JSON matching the declared schema.",
	},
	OutputSchema: schema.Object(map[string]schema.Schema{
		"stories": schema.ArrayMin(schema.Object(map[string]schema.Schema{
			"id":       schema.String(),
			"persona":  schema.String(),
			"story":    schema.String(),
			"priority": schema.Enum("must", "should", "could", "wont"),
		}, "id", "story", "priority"), 3),
	}, "stories"),
	Labels: []string{"prd", "stories"},
}

var defineAcceptance = task.StepSpec{
	Name:  "define-acceptance",
	Title: "Define acceptance criteria",
	Agent: "qa-analyst",
	Prompt: prompt.Spec{
		Name: "prd.define-acceptance",
		Role: "You define testable acceptance criteria.",
		Task: "Define acceptance criteria for the user stories of {{product}}.",
		Instructions: []string{
			"Cover every story id from the previous step.",
			"Each criterion must be observable and binary.",
			"Score overall PRD readiness from 0 to 100.",
		},
		OutputFormat: "JSON matching the declared schema.",
	},
	OutputSchema: schema.Object(map[string]schema.Schema{
		"criteria": schema.Map(schema.ArrayMin(schema.String(), 1)).
			Describe("Story id to its acceptance criteria."),
		"readiness": schema.Object(map[string]schema.Schema{
			"value": schema.NumberBetween(0, 100),
			"gaps":  schema.Array(schema.String()),
		}, "value"),
	}, "criteria", "readiness"),
	Labels: []string{"prd", "acceptance"},
}

var assemblePRD = task.StepSpec{
	Name:  "assemble-prd",
	Title: "Assemble the PRD document",
	Agent: "doc-writer",
	Prompt: prompt.Spec{
		Name: "prd.assemble-prd",
		Role: "You assemble product requirement documents.",
		Task: "Assemble the full PRD for {{product}} from the problem analysis, stories, and acceptance criteria.",
		Instructions: []string{
			"Write the document to docs/prd.md and declare it as an artifact.",
			"Summarize open concerns, if any.",
		},
		OutputFormat: "JSON matching the declared schema.",
	},
	OutputSchema: schema.Object(map[string]schema.Schema{
		"summary":  schema.String(),
		"concerns": schema.Array(schema.String()),
		"artifacts": schema.ArrayMin(schema.Object(map[string]schema.Schema{
			"path":   schema.String(),
			"format": schema.String(),
			"label":  schema.String(),
		}, "path"), 1),
	}, "summary", "artifacts"),
	Labels: []string{"prd", "assembly"},
}

// Definition builds the PRD workflow. The readiness gate is fatal: an
// unready PRD is not worth a reviewer's time.
func Definition() (workflow.Definition, error) {
	return workflow.Definition{
		Name:        Name,
		Description: "Create a product requirements document.",
		Entries: []workflow.Entry{
			// Step 1: Analyze and establish the problem statement.
			workflow.Step(analyzeProblem, nil, workflow.Gate{
				Name:      "problem-clarity",
				Path:      "clarity.value",
				Threshold: 30,
				Fatal:     true,
				Reason:    "Problem statement too vague to proceed",
			}),
			// Step 2: Stories, threading the problem statement forward.
			workflow.Step(generateStories, func(run *workflow.Run) (task.Args, error) {
				statement, _ := run.StringValue("analyze-problem", "problemStatement")
				return task.Args{"problemStatement": statement}, nil
			}),
			// Step 3: Acceptance criteria with a fatal readiness gate.
			workflow.Step(defineAcceptance, nil, workflow.Gate{
				Name:      "prd-readiness",
				Path:      "readiness.value",
				Threshold: 40,
				Fatal:     true,
				Reason:    "Quality gate failed",
			}),
			// A human signs off before the document is assembled.
			workflow.Breakpoint("prd-review", "Review PRD inputs",
				"Problem analysis, stories, and acceptance criteria are ready. Assemble the PRD?",
				func(run *workflow.Run) map[string]any {
					statement, _ := run.StringValue("analyze-problem", "problemStatement")
					readiness, _ := run.Number("define-acceptance", "readiness.value")
					return map[string]any{
						"problemStatement": statement,
						"readiness":        readiness,
					}
				}),
			// Step 4: Assemble the final document.
			workflow.Step(assemblePRD, nil),
		},
	}, nil
}
