// Package storymap defines the user story mapping process: journey
// backbone, story slicing, and release walking-skeleton selection.
//
// Required inputs: product, context.
package storymap

import (
	"github.com/prodflowhq/prodflow/prompt"
	"github.com/prodflowhq/prodflow/schema"
	"github.com/prodflowhq/prodflow/task"
	"github.com/prodflowhq/prodflow/workflow"
)

const Name = "storymap"

func init() {
	workflow.MustRegister(workflow.Builder{
		Name:        Name,
		Description: "Story mapping: journey backbone, story slicing, release selection.",
		Definition:  Definition,
	})
}

var mapJourney = task.StepSpec{
	Name:  "map-journey",
	Title: "Map the user journey backbone",
	Agent: "ux-researcher",
	Prompt: prompt.Spec{
		Name:    "storymap.map-journey",
		Role:    "You map user journeys for story mapping sessions.",
		Task:    "Map the end-to-end user journey backbone for {{product}}.",
		Context: "{{context}}",
		Instructions: []string{
			"List activities in journey order, each with its user goal.",
		},
		OutputFormat: "JSON matching the declared schema.",
	},
	OutputSchema: schema.Object(map[string]schema.Schema{
		"activities": schema.ArrayMin(schema.Object(map[string]schema.Schema{
			"name": schema.String(),
			"goal": schema.String(),
		}, "name", "goal"), 3),
	}, "activities"),
	Labels: []string{"storymap", "journey"},
}

var sliceStories = task.StepSpec{
	Name:  "slice-stories",
	Title: "Slice stories under each activity",
	Agent: "story-writer",
	Prompt: prompt.Spec{
		Name: "storymap.slice-stories",
		Role: "You slice activities into small vertical stories.",
		Task: "Slice stories under each journey activity for {{product}}.",
		Instructions: []string{
			"Every story belongs to exactly one activity.",
			"Score backbone coverage from 0 to 100.",
		},
		OutputFormat: "JSON matching the declared schema.",
	},
	OutputSchema: schema.Object(map[string]schema.Schema{
		"stories": schema.ArrayMin(schema.Object(map[string]schema.Schema{
			"activity": schema.String(),
			"story":    schema.String(),
			"size":     schema.Enum("xs", "s", "m", "l"),
		}, "activity", "story", "size"), 5),
		"coverage": schema.Object(map[string]schema.Schema{
			"value": schema.NumberBetween(0, 100),
		}, "value"),
	}, "stories", "coverage"),
	Labels: []string{"storymap", "slicing"},
}

var selectSkeleton = task.StepSpec{
	Name:  "select-skeleton",
	Title: "Select the walking skeleton",
	Agent: "planner",
	Prompt: prompt.Spec{
		Name: "storymap.select-skeleton",
		Role: "You select minimal end-to-end release slices.",
		Task: "Select the walking-skeleton release slice for {{product}}.",
		Instructions: []string{
			"Pick the thinnest story set that still spans the whole journey.",
			"Write the map to docs/storymap.md and declare it as an artifact.",
		},
		OutputFormat: "JSON matching the declared schema.",
	},
	OutputSchema: schema.Object(map[string]schema.Schema{
		"skeleton":  schema.ArrayMin(schema.String(), 3),
		"rationale": schema.String(),
		"artifacts": schema.ArrayMin(schema.Object(map[string]schema.Schema{
			"path":   schema.String(),
			"format": schema.String(),
			"label":  schema.String(),
		}, "path"), 1),
	}, "skeleton", "artifacts"),
	Labels: []string{"storymap", "release"},
}

// Definition builds the story mapping workflow. Coverage below threshold is
// advisory: a reviewer may accept a partial backbone for an early product.
func Definition() (workflow.Definition, error) {
	return workflow.Definition{
		Name:        Name,
		Description: "Build a user story map with a walking-skeleton release.",
		Entries: []workflow.Entry{
			// Step 1: Journey backbone.
			workflow.Step(mapJourney, nil),
			// Step 2: Slice stories, advisory coverage gate.
			workflow.Step(sliceStories, nil, workflow.Gate{
				Name:      "backbone-coverage",
				Path:      "coverage.value",
				Threshold: 60,
				Reason:    "Story coverage below 60 percent of the backbone",
			}),
			// Step 3: Walking skeleton.
			workflow.Step(selectSkeleton, nil),
		},
	}, nil
}
