// Package memory implements blob.Store in process memory, for tests and
// throwaway runs.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/prodflowhq/prodflow/blob"
)

type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func New() *Store {
	return &Store{blobs: map[string][]byte{}}
}

func (s *Store) Write(ctx context.Context, path string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode blob %q: %w", path, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[normalize(path)] = raw
	return nil
}

func (s *Store) Read(ctx context.Context, path string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	raw, ok := s.blobs[normalize(path)]
	s.mu.RUnlock()
	if !ok {
		return blob.ErrNotFound
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode blob %q: %w", path, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix = normalize(prefix)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []string{}
	for path := range s.blobs {
		if prefix == "" || path == prefix || strings.HasPrefix(path, prefix+"/") {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Len reports the number of stored blobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

func normalize(path string) string {
	return strings.Trim(strings.TrimSpace(path), "/")
}
