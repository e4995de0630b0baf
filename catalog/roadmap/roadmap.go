// Package roadmap defines the quarterly roadmap process: theme discovery,
// RICE-style scoring, sequencing, and publication.
//
// Required inputs: product, context, quarter.
package roadmap

import (
	"github.com/prodflowhq/prodflow/prompt"
	"github.com/prodflowhq/prodflow/schema"
	"github.com/prodflowhq/prodflow/task"
	"github.com/prodflowhq/prodflow/workflow"
)

const Name = "roadmap"

func init() {
	workflow.MustRegister(workflow.Builder{
		Name:        Name,
		Description: "Quarterly roadmap: themes, scoring, sequencing, publication.",
		Definition:  Definition,
	})
}

var discoverThemes = task.StepSpec{
	Name:  "discover-themes",
	Title: "Discover candidate themes",
	Agent: "product-analyst",
	Prompt: prompt.Spec{
		Name:    "roadmap.discover-themes",
		Role:    "You are a product strategist.",
		Task:    "Discover candidate roadmap themes for {{product}} in {{quarter}}.",
		Context: "{{context}}",
		Instructions: []string{
			"Derive themes from customer signals and strategy, not feature wishlists.",
			"Name each theme and state the evidence behind it.",
		},
		OutputFormat: "JSON matching the declared schema.",
	},
	OutputSchema: schema.Object(map[string]schema.Schema{
		"themes": schema.ArrayMin(schema.Object(map[string]schema.Schema{
			"name":     schema.String(),
			"evidence": schema.ArrayMin(schema.String(), 1),
		}, "name", "evidence"), 2),
	}, "themes"),
	Labels: []string{"roadmap", "discovery"},
}

var scoreThemes = task.StepSpec{
	Name:  "score-themes",
	Title: "Score themes",
	Agent: "prioritization-analyst",
	Prompt: prompt.Spec{
		Name: "roadmap.score-themes",
		Role: "You prioritize roadmap work with reach/impact/confidence/effort scoring.",
		Task: "Score every discovered theme for {{product}}.",
		Instructions: []string{
			"Score each theme on reach, impact, confidence, and effort.",
			"Report the average confidence across themes from 0 to 100.",
		},
		OutputFormat: "JSON matching the declared schema.",
	},
	OutputSchema: schema.Object(map[string]schema.Schema{
		"scores": schema.ArrayMin(schema.Object(map[string]schema.Schema{
			"theme":      schema.String(),
			"reach":      schema.NumberBetween(0, 10),
			"impact":     schema.NumberBetween(0, 10),
			"confidence": schema.NumberBetween(0, 100),
			"effort":     schema.NumberBetween(0.5, 10),
		}, "theme", "reach", "impact", "confidence", "effort"), 2),
		"confidence": schema.Object(map[string]schema.Schema{
			"value": schema.NumberBetween(0, 100),
		}, "value"),
	}, "scores", "confidence"),
	Labels: []string{"roadmap", "scoring"},
}

var sequenceRoadmap = task.StepSpec{
	Name:  "sequence-roadmap",
	Title: "Sequence the roadmap",
	Agent: "planner",
	Prompt: prompt.Spec{
		Name: "roadmap.sequence-roadmap",
		Role: "You sequence roadmap themes across a quarter.",
		Task: "Sequence the scored themes for {{product}} across {{quarter}}.",
		Instructions: []string{
			"Order by score, then break ties by dependency and risk.",
			"Assign each theme to a month bucket.",
		},
		OutputFormat: "JSON matching the declared schema.",
	},
	OutputSchema: schema.Object(map[string]schema.Schema{
		"sequence": schema.ArrayMin(schema.Object(map[string]schema.Schema{
			"theme": schema.String(),
			"month": schema.IntegerBetween(1, 3),
			"why":   schema.String(),
		}, "theme", "month"), 2),
	}, "sequence"),
	Labels: []string{"roadmap", "sequencing"},
}

var publishRoadmap = task.StepSpec{
	Name:  "publish-roadmap",
	Title: "Publish the roadmap document",
	Agent: "doc-writer",
	Prompt: prompt.Spec{
		Name: "roadmap.publish-roadmap",
		Role: "You write roadmap documents for stakeholders.",
		Task: "Publish the {{quarter}} roadmap for {{product}}.",
		Instructions: []string{
			"Write the document to docs/roadmap.md and declare it as an artifact.",
		},
		OutputFormat: "JSON matching the declared schema.",
	},
	OutputSchema: mustReflect(roadmapDocument{}),
	Labels:       []string{"roadmap", "publication"},
}

// roadmapDocument is the typed shape of the publication step's output. Its
// schema is reflected from the struct rather than hand-built, so the two
// cannot drift apart.
type roadmapDocument struct {
	Summary   string            `json:"summary"`
	Artifacts []roadmapArtifact `json:"artifacts" jsonschema:"minItems=1"`
}

type roadmapArtifact struct {
	Path   string `json:"path"`
	Format string `json:"format,omitempty"`
	Label  string `json:"label,omitempty"`
}

func mustReflect(v any) schema.Schema {
	s, err := schema.FromValue(v)
	if err != nil {
		panic(err)
	}
	return s
}

// Definition builds the roadmap workflow. The confidence gate is advisory:
// a low-confidence plan may still be worth publishing, but a human decides.
func Definition() (workflow.Definition, error) {
	return workflow.Definition{
		Name:        Name,
		Description: "Produce a quarterly product roadmap.",
		Entries: []workflow.Entry{
			// Step 1: Discover themes.
			workflow.Step(discoverThemes, nil),
			// Step 2: Score, with an advisory confidence gate.
			workflow.Step(scoreThemes, nil, workflow.Gate{
				Name:      "scoring-confidence",
				Path:      "confidence.value",
				Threshold: 50,
				Reason:    "Scoring confidence below 50",
			}),
			// Step 3: Sequence.
			workflow.Step(sequenceRoadmap, nil),
			// Stakeholders approve the sequence before publication.
			workflow.Breakpoint("roadmap-review", "Review roadmap sequence",
				"The sequenced roadmap is ready. Publish it?",
				func(run *workflow.Run) map[string]any {
					confidence, _ := run.Number("score-themes", "confidence.value")
					return map[string]any{"scoringConfidence": confidence}
				}),
			// Step 4: Publish.
			workflow.Step(publishRoadmap, nil),
		},
	}, nil
}
