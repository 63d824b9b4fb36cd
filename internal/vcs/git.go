// Package vcs measures and discards uncommitted changes in a git working copy.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNotRepository is returned when the working directory is not inside a git repository.
	ErrNotRepository = errors.New("not a git repository")
	// ErrRepositoryBusy is returned when another git process holds the index lock.
	ErrRepositoryBusy = errors.New("repository busy: index.lock exists")
	// ErrNoCommits is returned when reverting in a repository without a HEAD commit.
	ErrNoCommits = errors.New("cannot revert before the first commit")
)

// Runner executes a git command in workDir and returns its stdout.
// Tests substitute a fake.
type Runner func(ctx context.Context, workDir string, args ...string) (string, error)

// RevertMode selects how uncommitted changes are discarded.
type RevertMode string

const (
	// RevertStash moves changes to a stash entry so they can be recovered.
	RevertStash RevertMode = "stash"
	// RevertDiscard resets tracked files and deletes untracked ones.
	RevertDiscard RevertMode = "discard"
)

// Repo is a git working copy.
type Repo struct {
	WorkDir    string
	Exclusions []string // glob patterns left out of the change size
	Runner     Runner   // if nil, runs the real git binary
}

func defaultRunner(ctx context.Context, workDir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = workDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return string(out), &CommandError{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return string(out), err
}

// CommandError carries git's stderr alongside the exit error.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	return "git " + strings.Join(e.Args, " ") + ": " + e.Stderr
}

func (e *CommandError) Unwrap() error { return e.Err }

func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	runner := r.Runner
	if runner == nil {
		runner = defaultRunner
	}
	out, err := runner(ctx, r.WorkDir, args...)
	if err != nil && isExitCode(err, 128) {
		return out, fmt.Errorf("%w: %v", ErrNotRepository, err)
	}
	return out, err
}

// Root returns the top-level directory of the working copy.
func (r *Repo) Root(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Head returns the current commit hash, or "" on a branch with no commits yet.
func (r *Repo) Head(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--verify", "-q", "HEAD")
	if err != nil {
		if isExitCode(err, 1) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ChangeSize returns the number of added plus deleted lines in all
// uncommitted changes, including untracked files.
func (r *Repo) ChangeSize(ctx context.Context) (int, error) {
	head, err := r.Head(ctx)
	if err != nil {
		return 0, err
	}

	var diffs [][]string
	if head == "" {
		diffs = [][]string{
			{"diff", "--numstat", "--no-renames", "--cached"},
			{"diff", "--numstat", "--no-renames"},
		}
	} else {
		diffs = [][]string{{"diff", "--numstat", "--no-renames", "HEAD"}}
	}

	total := 0
	for _, args := range diffs {
		out, err := r.run(ctx, args...)
		if err != nil {
			return 0, err
		}
		total += r.sumNumstat(out)
	}

	untracked, err := r.untrackedLines(ctx)
	if err != nil {
		return 0, err
	}
	return total + untracked, nil
}

// StagedChangeSize returns the size of what `git commit` would record now.
func (r *Repo) StagedChangeSize(ctx context.Context) (int, error) {
	out, err := r.run(ctx, "diff", "--numstat", "--no-renames", "--cached")
	if err != nil {
		return 0, err
	}
	return r.sumNumstat(out), nil
}

// sumNumstat adds up `git diff --numstat` output. Binary files report "-"
// and count as zero.
func (r *Repo) sumNumstat(out string) int {
	total := 0
	for _, line := range strings.Split(out, "\n") {
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 || r.excluded(fields[2]) {
			continue
		}
		added, _ := strconv.Atoi(fields[0])
		deleted, _ := strconv.Atoi(fields[1])
		total += added + deleted
	}
	return total
}

func (r *Repo) untrackedLines(ctx context.Context) (int, error) {
	out, err := r.run(ctx, "ls-files", "--others", "--exclude-standard", "-z")
	if err != nil {
		return 0, err
	}
	total := 0
	for _, name := range strings.Split(out, "\x00") {
		if name == "" || r.excluded(name) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.WorkDir, name))
		if err != nil {
			continue // removed since listing
		}
		total += countLines(data)
	}
	return total, nil
}

// countLines counts text lines; binary content counts as zero.
func countLines(data []byte) int {
	if len(data) == 0 || bytes.IndexByte(data, 0) >= 0 {
		return 0
	}
	n := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}

func (r *Repo) excluded(path string) bool {
	return Excluded(path, r.Exclusions)
}

// Excluded reports whether path matches any glob pattern, tried against the
// base name and the full relative path.
func Excluded(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}
		if strings.HasSuffix(pattern, "/") && strings.HasPrefix(path, pattern) {
			return true
		}
	}
	return false
}

// GitPath resolves a path inside the git directory, e.g. "hooks" or "index.lock".
func (r *Repo) GitPath(ctx context.Context, name string) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--git-path", name)
	if err != nil {
		return "", err
	}
	p := strings.TrimSpace(out)
	if !filepath.IsAbs(p) {
		p = filepath.Join(r.WorkDir, p)
	}
	return p, nil
}

// RevertAll discards every uncommitted change using mode.
func (r *Repo) RevertAll(ctx context.Context, mode RevertMode) error {
	lock, err := r.GitPath(ctx, "index.lock")
	if err != nil {
		return err
	}
	if _, err := os.Stat(lock); err == nil {
		return ErrRepositoryBusy
	}

	head, err := r.Head(ctx)
	if err != nil {
		return err
	}
	if head == "" {
		return ErrNoCommits
	}

	switch mode {
	case RevertDiscard:
		if _, err := r.run(ctx, "reset", "--hard", "-q", "HEAD"); err != nil {
			return fmt.Errorf("reset working copy: %w", err)
		}
		if _, err := r.run(ctx, "clean", "-fdq"); err != nil {
			return fmt.Errorf("clean untracked files: %w", err)
		}
	default:
		msg := "limitedwip auto-revert " + time.Now().Format(time.RFC3339)
		if _, err := r.run(ctx, "stash", "push", "--include-untracked", "-q", "-m", msg); err != nil {
			return fmt.Errorf("stash changes: %w", err)
		}
	}
	return nil
}

// isExitCode reports whether err wraps an *exec.ExitError with the given code.
func isExitCode(err error, code int) bool {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode() == code
	}
	return false
}
