package prompt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadDir registers every *.json prompt override found in a directory. A
// missing directory is not an error; there is simply nothing to override.
func LoadDir(path string) (int, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".json") {
			continue
		}
		spec, err := loadFile(filepath.Join(path, entry.Name()))
		if err != nil {
			return loaded, err
		}
		if err := Register(spec); err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}

func loadFile(path string) (Spec, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("read prompt file %q: %w", path, err)
	}
	var spec Spec
	if err := json.Unmarshal(content, &spec); err != nil {
		return Spec{}, fmt.Errorf("decode prompt file %q: %w", path, err)
	}
	if strings.TrimSpace(spec.Name) == "" {
		base := filepath.Base(path)
		spec.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return spec, nil
}
