package vcs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Sample is the working-copy state observed on one tick.
type Sample struct {
	ChangeSize int
	Head       string
}

// Sampler caches the change size between ticks. While Watch is active the
// sample is only recomputed after a filesystem event or after maxStale ticks.
type Sampler struct {
	repo     *Repo
	log      zerolog.Logger
	limiter  *rate.Limiter
	maxStale int

	dirty    atomic.Bool
	watching atomic.Bool

	last  Sample
	have  bool
	stale int
}

// NewSampler returns a sampler that runs git at most once per minInterval.
func NewSampler(repo *Repo, log zerolog.Logger, minInterval time.Duration) *Sampler {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	s := &Sampler{
		repo:     repo,
		log:      log,
		limiter:  rate.NewLimiter(rate.Every(minInterval), 1),
		maxStale: 30,
	}
	s.dirty.Store(true)
	return s
}

// MarkDirty forces the next Sample to recompute.
func (s *Sampler) MarkDirty() { s.dirty.Store(true) }

// Sample returns the current change size and HEAD. On error the previous
// sample is returned alongside the error. Not safe for concurrent callers.
func (s *Sampler) Sample(ctx context.Context) (Sample, error) {
	s.stale++
	if s.have && !s.needsRefresh() {
		return s.last, nil
	}
	if s.have && !s.limiter.Allow() {
		return s.last, nil
	}

	s.dirty.Store(false)
	head, err := s.repo.Head(ctx)
	if err != nil {
		s.dirty.Store(true)
		return s.last, err
	}
	size, err := s.repo.ChangeSize(ctx)
	if err != nil {
		s.dirty.Store(true)
		return s.last, err
	}

	s.last = Sample{ChangeSize: size, Head: head}
	s.have = true
	s.stale = 0
	return s.last, nil
}

func (s *Sampler) needsRefresh() bool {
	return !s.watching.Load() || s.dirty.Load() || s.stale >= s.maxStale
}

// Watch marks the sampler dirty whenever files in the working copy or the
// top level of the git directory change. It blocks until ctx is cancelled.
// If the watcher cannot be set up, Sample falls back to polling.
func (s *Sampler) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	root := s.repo.WorkDir
	gitDir := filepath.Join(root, ".git")
	if err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if !d.IsDir() {
			return nil
		}
		if path == gitDir {
			// Commits touch HEAD, index and COMMIT_EDITMSG at the top level.
			_ = watcher.Add(path)
			return filepath.SkipDir
		}
		if path != root && s.ignoredDir(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	}); err != nil {
		return err
	}

	s.watching.Store(true)
	defer s.watching.Store(false)
	s.log.Debug().Str("root", root).Msg("watching working copy")

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if strings.HasSuffix(ev.Name, ".lock") {
				continue
			}
			rel, _ := filepath.Rel(root, ev.Name)
			if filepath.Dir(ev.Name) != gitDir && s.repo.excluded(rel) {
				continue
			}
			s.MarkDirty()

			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !s.ignoredDir(ev.Name) {
					_ = watcher.Add(ev.Name)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Overflow and similar errors mean events were lost.
			s.MarkDirty()
			s.log.Warn().Err(err).Msg("file watcher error")
		}
	}
}

func (s *Sampler) ignoredDir(path string) bool {
	rel, err := filepath.Rel(s.repo.WorkDir, path)
	if err != nil {
		return false
	}
	return filepath.Base(path) == ".git" || s.repo.excluded(rel) || s.repo.excluded(rel+"/")
}
