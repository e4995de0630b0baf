// Package retention defines the retention analysis process: cohort
// breakdown, churn-driver diagnosis, and an intervention plan.
//
// Required inputs: product, context, metricsSummary.
package retention

import (
	"github.com/prodflowhq/prodflow/prompt"
	"github.com/prodflowhq/prodflow/schema"
	"github.com/prodflowhq/prodflow/task"
	"github.com/prodflowhq/prodflow/workflow"
)

const Name = "retention"

func init() {
	workflow.MustRegister(workflow.Builder{
		Name:        Name,
		Description: "Retention analysis: cohorts, churn drivers, intervention plan.",
		Definition:  Definition,
	})
}

var analyzeCohorts = task.StepSpec{
	Name:  "analyze-cohorts",
	Title: "Analyze retention cohorts",
	Agent: "data-analyst",
	Prompt: prompt.Spec{
		Name:    "retention.analyze-cohorts",
		Role:    "You are a product data analyst.",
		Task:    "Analyze retention cohorts for {{product}} from this metrics summary: {{metricsSummary}}",
		Context: "{{context}}",
		Instructions: []string{
			"Break retention down by acquisition cohort.",
			"Flag the cohort with the steepest drop-off.",
			"Score data sufficiency from 0 to 100.",
		},
		OutputFormat: "JSON matching the declared schema.",
	},
	OutputSchema: schema.Object(map[string]schema.Schema{
		"cohorts": schema.ArrayMin(schema.Object(map[string]schema.Schema{
			"name":        schema.String(),
			"day30":       schema.NumberBetween(0, 100),
			"day90":       schema.NumberBetween(0, 100),
			"observation": schema.String(),
		}, "name", "day30", "day90"), 1),
		"steepestDrop": schema.String(),
		"sufficiency": schema.Object(map[string]schema.Schema{
			"value":   schema.NumberBetween(0, 100),
			"missing": schema.Array(schema.String()),
		}, "value"),
	}, "cohorts", "steepestDrop", "sufficiency"),
	Labels: []string{"retention", "analysis"},
}

var diagnoseChurn = task.StepSpec{
	Name:  "diagnose-churn",
	Title: "Diagnose churn drivers",
	Agent: "product-analyst",
	Prompt: prompt.Spec{
		Name: "retention.diagnose-churn",
		Role: "You diagnose why users churn.",
		Task: "Diagnose churn drivers for {{product}}, focusing on the {{steepestDrop}} cohort.",
		Instructions: []string{
			"Rank drivers by estimated contribution.",
			"Separate confirmed drivers from hypotheses.",
		},
		OutputFormat: "JSON matching the declared schema.",
	},
	OutputSchema: schema.Object(map[string]schema.Schema{
		"drivers": schema.ArrayMin(schema.Object(map[string]schema.Schema{
			"driver":       schema.String(),
			"contribution": schema.NumberBetween(0, 100),
			"status":       schema.Enum("confirmed", "hypothesis"),
		}, "driver", "contribution", "status"), 1),
	}, "drivers"),
	Labels: []string{"retention", "diagnosis"},
}

var planInterventions = task.StepSpec{
	Name:  "plan-interventions",
	Title: "Plan retention interventions",
	Agent: "planner",
	Prompt: prompt.Spec{
		Name: "retention.plan-interventions",
		Role: "You design retention interventions.",
		Task: "Plan interventions against the diagnosed churn drivers for {{product}}.",
		Instructions: []string{
			"Pair every confirmed driver with at least one intervention.",
			"Write the analysis to docs/retention.md and declare it as an artifact.",
		},
		OutputFormat: "JSON matching the declared schema.",
	},
	OutputSchema: schema.Object(map[string]schema.Schema{
		"interventions": schema.ArrayMin(schema.Object(map[string]schema.Schema{
			"driver":  schema.String(),
			"action":  schema.String(),
			"horizon": schema.Enum("now", "next", "later"),
		}, "driver", "action", "horizon"), 1),
		"artifacts": schema.ArrayMin(schema.Object(map[string]schema.Schema{
			"path":   schema.String(),
			"format": schema.String(),
			"label":  schema.String(),
		}, "path"), 1),
	}, "interventions", "artifacts"),
	Labels: []string{"retention", "planning"},
}

// Definition builds the retention workflow. The sufficiency gate is fatal:
// analysis built on missing data misleads more than it informs.
func Definition() (workflow.Definition, error) {
	return workflow.Definition{
		Name:        Name,
		Description: "Analyze retention and plan interventions.",
		Entries: []workflow.Entry{
			// Step 1: Cohort analysis with a fatal data-sufficiency gate.
			workflow.Step(analyzeCohorts, nil, workflow.Gate{
				Name:      "data-sufficiency",
				Path:      "sufficiency.value",
				Threshold: 40,
				Fatal:     true,
				Reason:    "Insufficient metrics data for a reliable analysis",
			}),
			// Step 2: Diagnose, threading the worst cohort forward.
			workflow.Step(diagnoseChurn, func(run *workflow.Run) (task.Args, error) {
				steepest, _ := run.StringValue("analyze-cohorts", "steepestDrop")
				return task.Args{"steepestDrop": steepest}, nil
			}),
			// A human checks the diagnosis before interventions are planned.
			workflow.Breakpoint("diagnosis-review", "Review churn diagnosis",
				"Churn drivers are diagnosed. Plan interventions?",
				func(run *workflow.Run) map[string]any {
					steepest, _ := run.StringValue("analyze-cohorts", "steepestDrop")
					return map[string]any{"steepestDrop": steepest}
				}),
			// Step 3: Plan interventions and publish the analysis.
			workflow.Step(planInterventions, nil),
		},
	}, nil
}
