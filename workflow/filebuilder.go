package workflow

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/prodflowhq/prodflow/prompt"
	"github.com/prodflowhq/prodflow/schema"
	"github.com/prodflowhq/prodflow/task"
)

// fileSpec is the YAML shape of a workflow file. Steps and breakpoints
// share one entry list so file order is execution order.
type fileSpec struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Entries     []fileEntry `yaml:"entries"`
}

type fileEntry struct {
	Step       *fileStep       `yaml:"step"`
	Breakpoint *fileBreakpoint `yaml:"breakpoint"`
}

type fileStep struct {
	Name   string         `yaml:"name"`
	Title  string         `yaml:"title"`
	Agent  string         `yaml:"agent"`
	Prompt filePrompt     `yaml:"prompt"`
	Output map[string]any `yaml:"output"`
	Labels []string       `yaml:"labels"`
	Gates  []fileGate     `yaml:"gates"`
}

type filePrompt struct {
	Role         string   `yaml:"role"`
	Task         string   `yaml:"task"`
	Context      string   `yaml:"context"`
	Instructions []string `yaml:"instructions"`
	OutputFormat string   `yaml:"outputFormat"`
}

type fileGate struct {
	Name      string  `yaml:"name"`
	Step      string  `yaml:"step"`
	Path      string  `yaml:"path"`
	Threshold float64 `yaml:"threshold"`
	Fatal     bool    `yaml:"fatal"`
	Reason    string  `yaml:"reason"`
}

type fileBreakpoint struct {
	Name     string `yaml:"name"`
	Title    string `yaml:"title"`
	Question string `yaml:"question"`
}

// LoadFile parses a YAML workflow file into a validated definition. The
// output schema of each step is a JSON Schema document embedded in the
// YAML.
func LoadFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read workflow file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile builds a definition from YAML bytes. See LoadFile.
func ParseFile(data []byte) (Definition, error) {
	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return Definition{}, fmt.Errorf("parse workflow file: %w", err)
	}

	def := Definition{Name: spec.Name, Description: spec.Description}
	for i, entry := range spec.Entries {
		switch {
		case entry.Step != nil && entry.Breakpoint != nil:
			return Definition{}, fmt.Errorf("workflow %q entry %d is both step and breakpoint", spec.Name, i)
		case entry.Step != nil:
			built, err := buildFileStep(*entry.Step)
			if err != nil {
				return Definition{}, fmt.Errorf("workflow %q step %q: %w", spec.Name, entry.Step.Name, err)
			}
			def.Entries = append(def.Entries, built)
		case entry.Breakpoint != nil:
			bp := entry.Breakpoint
			def.Entries = append(def.Entries, Breakpoint(bp.Name, bp.Title, bp.Question, nil))
		default:
			return Definition{}, fmt.Errorf("workflow %q entry %d is empty", spec.Name, i)
		}
	}

	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

func buildFileStep(fs fileStep) (Entry, error) {
	if len(fs.Output) == 0 {
		return Entry{}, fmt.Errorf("no output schema")
	}
	out, err := schema.FromDocument(fs.Output)
	if err != nil {
		return Entry{}, fmt.Errorf("output schema: %w", err)
	}
	spec := task.StepSpec{
		Name:  fs.Name,
		Title: fs.Title,
		Agent: fs.Agent,
		Prompt: prompt.Spec{
			Name:         fs.Name,
			Role:         fs.Prompt.Role,
			Task:         fs.Prompt.Task,
			Context:      fs.Prompt.Context,
			Instructions: fs.Prompt.Instructions,
			OutputFormat: fs.Prompt.OutputFormat,
		},
		OutputSchema: out,
		Labels:       fs.Labels,
	}
	gates := make([]Gate, 0, len(fs.Gates))
	for _, g := range fs.Gates {
		gates = append(gates, Gate{
			Name:      g.Name,
			Step:      g.Step,
			Path:      g.Path,
			Threshold: g.Threshold,
			Fatal:     g.Fatal,
			Reason:    g.Reason,
		})
	}
	return Step(spec, nil, gates...), nil
}
