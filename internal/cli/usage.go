package cli

import (
	"fmt"
	"strings"

	"github.com/prodflowhq/prodflow/workflow"
)

func printUsage() {
	fmt.Println("prodflow - product process runner")
	fmt.Println("Usage:")
	fmt.Println("  prodflow run --workflow=NAME [--detach] key=value ...")
	fmt.Println("  prodflow run --file=workflow.yaml [--detach] key=value ...")
	fmt.Println("  prodflow resume --workflow=NAME [--note=TEXT] <run-id>")
	fmt.Println("  prodflow abort [--note=TEXT] <run-id>")
	fmt.Println("  prodflow runs [--workflow=NAME] [--status=paused] [--limit=20]")
	fmt.Println("  prodflow workflows")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --detach          Park the run at the first breakpoint instead of waiting")
	fmt.Println("  key=value         Workflow inputs (e.g. product=\"Acme Notes\")")
	fmt.Println()
	fmt.Printf("  available workflows: %s\n", strings.Join(workflow.Names(), ", "))
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  PRODFLOW_PROVIDER       gemini (default) or anthropic")
	fmt.Println("  GEMINI_API_KEY          Gemini API key")
	fmt.Println("  ANTHROPIC_API_KEY       Anthropic API key")
	fmt.Println("  PRODFLOW_MODEL          Override the provider's default model")
	fmt.Println("  PRODFLOW_STATE_DB       SQLite state database path (default prodflow.db)")
	fmt.Println("  PRODFLOW_ARTIFACT_DIR   Blob store root for step inputs/results (default artifacts)")
	fmt.Println("  PRODFLOW_PROMPT_DIR     Directory of JSON prompt overrides")
	fmt.Println("  PRODFLOW_REDIS_ADDR     Redis address for the breakpoint bus (optional)")
	fmt.Println("  PRODFLOW_REDIS_DB       Redis database number (default 0)")
	fmt.Println("  PRODFLOW_OTEL           Export spans via OpenTelemetry (default off)")
}
