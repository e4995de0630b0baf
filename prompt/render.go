package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.-]+)\s*\}\}`)

// MissingVarsError reports template tokens with no matching variable.
type MissingVarsError struct {
	Keys []string
}

func (e *MissingVarsError) Error() string {
	return fmt.Sprintf("missing prompt variables: %s", strings.Join(e.Keys, ", "))
}

// Render substitutes {{token}} placeholders in a template. Every token must
// have a variable; unresolved tokens fail the render rather than leaking
// into an agent prompt.
func Render(template string, vars map[string]string) (string, error) {
	template = strings.TrimSpace(template)
	if template == "" {
		return "", nil
	}
	missing := []string{}
	out := tokenPattern.ReplaceAllStringFunc(template, func(match string) string {
		parts := tokenPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		key := strings.TrimSpace(parts[1])
		value, ok := vars[key]
		if !ok {
			missing = append(missing, key)
			return ""
		}
		return value
	})
	if len(missing) > 0 {
		return "", &MissingVarsError{Keys: missing}
	}
	return out, nil
}
