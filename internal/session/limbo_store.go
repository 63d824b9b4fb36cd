package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fakeyudi/limitedwip/internal/limbo"
)

// LimboStore persists the limbo run count for one working copy.
type LimboStore struct {
	path string
}

// NewLimboStore returns the store for the working copy rooted at workDir.
// Path: $XDG_DATA_HOME/limitedwip/limbo/<sha256(workDir)[:8] hex>.json
func NewLimboStore(workDir string) (*LimboStore, error) {
	path, err := repoFile("limbo", workDir)
	if err != nil {
		return nil, err
	}
	return &LimboStore{path: path}, nil
}

// Load returns the saved state, or the zero State if none was saved.
func (s *LimboStore) Load() (limbo.State, error) {
	var st limbo.State
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return st, nil
		}
		return st, fmt.Errorf("failed to read limbo state: %w", err)
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return limbo.State{}, fmt.Errorf("failed to parse limbo state: %w", err)
	}
	return st, nil
}

// Save writes st atomically.
func (s *LimboStore) Save(st limbo.State) error {
	if err := writeJSON(s.path, st); err != nil {
		return fmt.Errorf("failed to persist limbo state: %w", err)
	}
	return nil
}
