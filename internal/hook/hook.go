// Package hook installs the git pre-commit hook that enforces the change-size gate.
package hook

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Name is the git hook file name.
const Name = "pre-commit"

var (
	// ErrForeignHook is returned when a pre-commit hook not written by
	// limitedwip is already present.
	ErrForeignHook = errors.New("a pre-commit hook not managed by limitedwip already exists")
	// ErrNotInstalled is returned by Uninstall when there is nothing to remove.
	ErrNotInstalled = errors.New("limitedwip pre-commit hook is not installed")
)

// Path returns the hook file inside hooksDir.
func Path(hooksDir string) string {
	return filepath.Join(hooksDir, Name)
}

// Install writes the pre-commit hook into hooksDir. An existing hook written
// by someone else is only replaced when force is set.
func Install(hooksDir string, force bool) (string, error) {
	path := Path(hooksDir)
	if existing, err := os.ReadFile(path); err == nil {
		if !Managed(existing) && !force {
			return path, fmt.Errorf("%w: %s (use --force to overwrite)", ErrForeignHook, path)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return path, err
	}

	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return path, err
	}
	if err := os.WriteFile(path, []byte(PreCommitScript), 0o755); err != nil {
		return path, fmt.Errorf("writing hook: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o755); err != nil {
		return path, err
	}
	return path, nil
}

// Uninstall removes the hook if limitedwip wrote it.
func Uninstall(hooksDir string) (string, error) {
	path := Path(hooksDir)
	existing, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return path, ErrNotInstalled
	}
	if err != nil {
		return path, err
	}
	if !Managed(existing) {
		return path, fmt.Errorf("%w: %s", ErrForeignHook, path)
	}
	return path, os.Remove(path)
}

// IsInstalled reports whether hooksDir holds a limitedwip hook.
func IsInstalled(hooksDir string) bool {
	data, err := os.ReadFile(Path(hooksDir))
	return err == nil && Managed(data)
}

// Managed reports whether script carries the limitedwip marker line.
func Managed(script []byte) bool {
	for _, line := range bytes.Split(script, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimSpace(line), []byte(Marker)) {
			return true
		}
	}
	return false
}
