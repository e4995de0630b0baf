package cli

import (
	"strconv"
	"strings"

	"github.com/prodflowhq/prodflow/task"
)

type cliOptions struct {
	workflow string
	file     string
	note     string
	status   string
	limit    int
	detach   bool
}

// parseArgs splits --flag= options from positional arguments. Positional
// key=value pairs become workflow inputs.
func parseArgs(args []string) (cliOptions, []string) {
	opts := cliOptions{limit: 20}
	positional := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--workflow="):
			opts.workflow = strings.TrimSpace(strings.TrimPrefix(arg, "--workflow="))
		case strings.HasPrefix(arg, "--file="):
			opts.file = strings.TrimSpace(strings.TrimPrefix(arg, "--file="))
		case strings.HasPrefix(arg, "--note="):
			opts.note = strings.TrimSpace(strings.TrimPrefix(arg, "--note="))
		case strings.HasPrefix(arg, "--status="):
			opts.status = strings.TrimSpace(strings.TrimPrefix(arg, "--status="))
		case strings.HasPrefix(arg, "--limit="):
			if n, err := strconv.Atoi(strings.TrimPrefix(arg, "--limit=")); err == nil && n > 0 {
				opts.limit = n
			}
		case arg == "--detach":
			opts.detach = true
		default:
			positional = append(positional, arg)
		}
	}
	return opts, positional
}

// parseInputs turns positional key=value pairs into workflow inputs.
func parseInputs(positional []string) task.Args {
	inputs := task.Args{}
	for _, arg := range positional {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		inputs[key] = strings.TrimSpace(value)
	}
	return inputs
}
