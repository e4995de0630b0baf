// Package pmf defines the product-market-fit assessment process: survey
// signal analysis, segment scoring, and a verdict with next bets.
//
// Required inputs: product, context, surveySummary.
package pmf

import (
	"github.com/prodflowhq/prodflow/prompt"
	"github.com/prodflowhq/prodflow/schema"
	"github.com/prodflowhq/prodflow/task"
	"github.com/prodflowhq/prodflow/workflow"
)

const Name = "pmf"

func init() {
	workflow.MustRegister(workflow.Builder{
		Name:        Name,
		Description: "PMF assessment: survey signals, segment scoring, verdict.",
		Definition:  Definition,
	})
}

var analyzeSignals = task.StepSpec{
	Name:  "analyze-signals",
	Title: "Analyze survey signals",
	Agent: "data-analyst",
	Prompt: prompt.Spec{
		Name:    "pmf.analyze-signals",
		Role:    "You analyze product-market-fit survey data.",
		Task:    "Analyze fit signals for {{product}} from this survey summary: {{surveySummary}}",
		Context: "{{context}}",
		Instructions: []string{
			"Report the very-disappointed share and its trend.",
			"Quote the strongest positive and negative verbatims.",
		},
		OutputFormat: "JSON matching the declared schema.",
	},
	OutputSchema: schema.Object(map[string]schema.Schema{
		"veryDisappointed": schema.Object(map[string]schema.Schema{
			"share": schema.NumberBetween(0, 100),
			"trend": schema.Enum("rising", "flat", "falling"),
		}, "share", "trend"),
		"verbatims": schema.Object(map[string]schema.Schema{
			"positive": schema.ArrayMin(schema.String(), 1),
			"negative": schema.ArrayMin(schema.String(), 1),
		}, "positive", "negative"),
	}, "veryDisappointed", "verbatims"),
	Labels: []string{"pmf", "signals"},
}

var scoreSegments = task.StepSpec{
	Name:  "score-segments",
	Title: "Score fit by segment",
	Agent: "product-analyst",
	Prompt: prompt.Spec{
		Name: "pmf.score-segments",
		Role: "You segment users and score product-market fit per segment.",
		Task: "Score fit by segment for {{product}}.",
		Instructions: []string{
			"Score each segment from 0 to 100 with the evidence behind it.",
			"Name the best-fit segment.",
		},
		OutputFormat: "JSON matching the declared schema.",
	},
	OutputSchema: schema.Object(map[string]schema.Schema{
		"segments": schema.ArrayMin(schema.Object(map[string]schema.Schema{
			"name":     schema.String(),
			"fit":      schema.NumberBetween(0, 100),
			"evidence": schema.ArrayMin(schema.String(), 1),
		}, "name", "fit"), 2),
		"bestFit": schema.Object(map[string]schema.Schema{
			"segment": schema.String(),
			"value":   schema.NumberBetween(0, 100),
		}, "segment", "value"),
	}, "segments", "bestFit"),
	Labels: []string{"pmf", "segments"},
}

var renderVerdict = task.StepSpec{
	Name:  "render-verdict",
	Title: "Render the fit verdict",
	Agent: "doc-writer",
	Prompt: prompt.Spec{
		Name: "pmf.render-verdict",
		Role: "You write product-market-fit assessments.",
		Task: "Render the fit verdict for {{product}}, anchored on the {{bestSegment}} segment.",
		Instructions: []string{
			"State the verdict and the next three bets.",
			"Write the assessment to docs/pmf.md and declare it as an artifact.",
		},
		OutputFormat: "JSON matching the declared schema.",
	},
	OutputSchema: schema.Object(map[string]schema.Schema{
		"verdict":  schema.Enum("strong-fit", "emerging-fit", "no-fit"),
		"nextBets": schema.ArrayMin(schema.String(), 3),
		"artifacts": schema.ArrayMin(schema.Object(map[string]schema.Schema{
			"path":   schema.String(),
			"format": schema.String(),
			"label":  schema.String(),
		}, "path"), 1),
	}, "verdict", "nextBets", "artifacts"),
	Labels: []string{"pmf", "verdict"},
}

// Definition builds the PMF workflow. The best-fit gate is advisory: a
// weak overall score can still hide one strong segment worth a verdict.
func Definition() (workflow.Definition, error) {
	return workflow.Definition{
		Name:        Name,
		Description: "Assess product-market fit and recommend next bets.",
		Entries: []workflow.Entry{
			// Step 1: Survey signals.
			workflow.Step(analyzeSignals, nil),
			// Step 2: Segment scoring with an advisory fit gate.
			workflow.Step(scoreSegments, nil, workflow.Gate{
				Name:      "best-fit",
				Path:      "bestFit.value",
				Threshold: 40,
				Reason:    "No segment scores above 40 for fit",
			}),
			// A human confirms the segment anchor before the verdict.
			workflow.Breakpoint("segment-review", "Review segment scoring",
				"Segment scores are in. Render the verdict?",
				func(run *workflow.Run) map[string]any {
					segment, _ := run.StringValue("score-segments", "bestFit.segment")
					value, _ := run.Number("score-segments", "bestFit.value")
					return map[string]any{"bestSegment": segment, "bestFitScore": value}
				}),
			// Step 3: Verdict, anchored on the winning segment.
			workflow.Step(renderVerdict, func(run *workflow.Run) (task.Args, error) {
				segment, _ := run.StringValue("score-segments", "bestFit.segment")
				return task.Args{"bestSegment": segment}, nil
			}),
		},
	}, nil
}
