package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/prodflowhq/prodflow/breakpoint"
)

// consoleController resolves breakpoints interactively on the terminal.
type consoleController struct {
	in  *bufio.Reader
	out *os.File
}

func newConsoleController() *consoleController {
	return &consoleController{in: bufio.NewReader(os.Stdin), out: os.Stderr}
}

func (c *consoleController) Pause(ctx context.Context, req breakpoint.Request) (breakpoint.Resolution, error) {
	fmt.Fprintf(c.out, "\n== %s ==\n", req.Title)
	fmt.Fprintf(c.out, "%s\n", req.Question)
	for key, value := range req.Context.Summary {
		fmt.Fprintf(c.out, "  %s: %v\n", key, value)
	}
	if len(req.Context.Artifacts) > 0 {
		fmt.Fprintln(c.out, "  artifacts:")
		for _, artifact := range req.Context.Artifacts {
			fmt.Fprintf(c.out, "    %s (%s)\n", artifact.Path, artifact.Format)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return breakpoint.Resolution{}, err
		}
		fmt.Fprint(c.out, "resume [y], abort [n], or note text: ")
		line, err := c.in.ReadString('\n')
		if err != nil {
			return breakpoint.Resolution{}, fmt.Errorf("read resolution: %w", err)
		}
		switch answer := strings.TrimSpace(line); strings.ToLower(answer) {
		case "y", "yes", "resume":
			return breakpoint.Resolution{Kind: breakpoint.KindResume}, nil
		case "n", "no", "abort":
			return breakpoint.Resolution{Kind: breakpoint.KindAbort}, nil
		case "":
			continue
		default:
			return breakpoint.Resolution{Kind: breakpoint.KindResume, Note: answer}, nil
		}
	}
}
