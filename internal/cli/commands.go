package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/prodflowhq/prodflow/internal/config"
	"github.com/prodflowhq/prodflow/state"
	"github.com/prodflowhq/prodflow/types"
	"github.com/prodflowhq/prodflow/workflow"
)

func runWorkflow(ctx context.Context, settings config.Settings, args []string) {
	opts, positional := parseArgs(args)
	def, err := resolveDefinition(opts)
	if err != nil {
		log.Fatalf("run: %v", err)
	}

	rt, err := buildRuntime(ctx, settings, opts.detach)
	if err != nil {
		log.Fatalf("run: %v", err)
	}
	defer rt.close()

	result, err := rt.runner.Execute(ctx, def, parseInputs(positional))
	if err != nil {
		printResult(result)
		log.Fatalf("run: %v", err)
	}
	printResult(result)
	if result.Status == types.RunStatusPaused {
		fmt.Fprintf(os.Stderr, "\nrun is paused; continue with: prodflow resume --workflow=%s %s\n", def.Name, result.Metadata.ProcessID)
	}
}

func resumeRun(ctx context.Context, settings config.Settings, args []string) {
	opts, positional := parseArgs(args)
	if len(positional) != 1 {
		log.Fatal("resume: exactly one run id is required")
	}
	def, err := resolveDefinition(opts)
	if err != nil {
		log.Fatalf("resume: %v", err)
	}

	rt, err := buildRuntime(ctx, settings, opts.detach)
	if err != nil {
		log.Fatalf("resume: %v", err)
	}
	defer rt.close()

	result, err := rt.runner.Resume(ctx, def, positional[0], opts.note)
	if err != nil {
		log.Fatalf("resume: %v", err)
	}
	printResult(result)
}

func abortRun(ctx context.Context, settings config.Settings, args []string) {
	opts, positional := parseArgs(args)
	if len(positional) != 1 {
		log.Fatal("abort: exactly one run id is required")
	}

	store, err := openStore(settings)
	if err != nil {
		log.Fatalf("abort: %v", err)
	}
	defer store.Close()

	if _, err := workflow.AbortRun(ctx, store, positional[0], opts.note); err != nil {
		log.Fatalf("abort: %v", err)
	}
	fmt.Printf("run %s aborted\n", positional[0])
}

func listRuns(ctx context.Context, settings config.Settings, args []string) {
	opts, _ := parseArgs(args)

	store, err := openStore(settings)
	if err != nil {
		log.Fatalf("runs: %v", err)
	}
	defer store.Close()

	query := state.ListRunsQuery{
		Workflow: opts.workflow,
		Status:   opts.status,
		Limit:    opts.limit,
	}
	records, err := store.ListRuns(ctx, query)
	if err != nil {
		log.Fatalf("runs: %v", err)
	}
	if len(records) == 0 {
		fmt.Println("no runs found")
		return
	}
	for _, record := range records {
		updated := ""
		if record.UpdatedAt != nil {
			updated = record.UpdatedAt.Format("2006-01-02 15:04:05")
		}
		line := fmt.Sprintf("%s  %-10s  %-10s  %s", record.RunID, record.Workflow, record.Status, updated)
		if record.Reason != "" {
			line += "  " + record.Reason
		}
		fmt.Println(line)
	}
}

func listWorkflows() {
	for _, name := range workflow.Names() {
		builder, err := workflow.Get(name)
		if err != nil {
			continue
		}
		fmt.Printf("%-12s %s\n", name, builder.Description)
	}
}

// resolveDefinition picks a workflow from the registry or loads one from a
// YAML file.
func resolveDefinition(opts cliOptions) (workflow.Definition, error) {
	switch {
	case opts.file != "":
		return workflow.LoadFile(opts.file)
	case opts.workflow != "":
		builder, err := workflow.Get(opts.workflow)
		if err != nil {
			return workflow.Definition{}, fmt.Errorf("%w (available: %s)", err, strings.Join(workflow.Names(), ", "))
		}
		return builder.Definition()
	default:
		return workflow.Definition{}, fmt.Errorf("--workflow or --file is required")
	}
}

func printResult(result types.RunResult) {
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Printf("encode result: %v", err)
		return
	}
	fmt.Println(string(encoded))
}
