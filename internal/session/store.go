package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fakeyudi/limitedwip/internal/logging"
)

// ErrNoSession is returned by Load when no session file exists on disk.
var ErrNoSession = errors.New("no active session")

// ErrSessionActive is returned when another watcher already owns the working copy.
var ErrSessionActive = errors.New("session already in progress")

// SessionStore persists the Session for one working copy.
type SessionStore interface {
	Save(s *Session) error
	Load() (*Session, error) // returns ErrNoSession if none exists
	Delete() error
}

// diskStore writes one JSON file per working copy under the XDG data directory.
type diskStore struct {
	path string
}

// NewSessionStore returns the store for the working copy rooted at workDir.
// Path: $XDG_DATA_HOME/limitedwip/sessions/<sha256(workDir)[:8] hex>.json
func NewSessionStore(workDir string) (SessionStore, error) {
	path, err := repoFile("sessions", workDir)
	if err != nil {
		return nil, err
	}
	return &diskStore{path: path}, nil
}

// repoFile returns the per-working-copy JSON file under the data directory,
// creating its parent.
func repoFile(kind, workDir string) (string, error) {
	base, err := logging.DataDir()
	if err != nil {
		return "", fmt.Errorf("resolving data directory: %w", err)
	}
	dir := filepath.Join(base, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	sum := sha256.Sum256([]byte(filepath.Clean(workDir)))
	return filepath.Join(dir, hex.EncodeToString(sum[:8])+".json"), nil
}

// Save marshals s to JSON and writes it atomically.
func (d *diskStore) Save(s *Session) error {
	if err := writeJSON(d.path, s); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// writeJSON writes v to path via a temp file and os.Rename.
func writeJSON(path string, v any) (err error) {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Load reads the session file. Returns ErrNoSession if it does not exist.
func (d *diskStore) Load() (*Session, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	return &s, nil
}

// Delete removes the session file from disk.
func (d *diskStore) Delete() error {
	if err := os.Remove(d.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
