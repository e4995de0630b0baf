// Package blob defines the path-addressed JSON store the step executor
// persists request/response pairs into. Paths are forward-slash relative,
// namespaced by run id (`<runID>/tasks/<stepID>/input.json`), and the area
// is append-only per run: no step ever deletes another step's output.
package blob

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("blob: not found")

type Store interface {
	// Write persists a JSON-serializable value at the given path,
	// creating intermediate directories as needed. Rewriting the same
	// path is allowed so a crashed step can be re-run safely.
	Write(ctx context.Context, path string, value any) error

	// Read decodes the value at the given path into out.
	Read(ctx context.Context, path string, out any) error

	// List returns every stored path under the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
