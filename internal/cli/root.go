// Package cli implements the prodflow command line surface.
package cli

import (
	"context"
	"log"
	"strings"

	"github.com/prodflowhq/prodflow/internal/config"
	"github.com/prodflowhq/prodflow/prompt"
)

func Run(ctx context.Context, args []string) {
	settings := config.Load()
	if settings.PromptDir != "" {
		if _, err := prompt.LoadDir(settings.PromptDir); err != nil {
			log.Fatalf("prompt overrides: %v", err)
		}
	}

	if len(args) < 1 {
		printUsage()
		return
	}

	switch strings.TrimSpace(args[0]) {
	case "run":
		runWorkflow(ctx, settings, args[1:])
	case "resume":
		resumeRun(ctx, settings, args[1:])
	case "abort":
		abortRun(ctx, settings, args[1:])
	case "runs":
		listRuns(ctx, settings, args[1:])
	case "workflows":
		listWorkflows()
	case "help", "-h", "--help":
		printUsage()
	default:
		printUsage()
	}
}
