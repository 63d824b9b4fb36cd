package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fakeyudi/limitedwip/internal/vcs"
)

// RepoExecutor reverts a git working copy on behalf of the auto-revert engine.
type RepoExecutor struct {
	Repo    *vcs.Repo
	Mode    vcs.RevertMode
	Timeout time.Duration // bounds the git invocation; defaults to 30s
	Sampler *vcs.Sampler  // marked dirty after a revert, may be nil
	Log     zerolog.Logger
}

// RevertAllChanges implements autorevert.Executor.
func (x *RepoExecutor) RevertAllChanges() error {
	timeout := x.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := x.Repo.RevertAll(ctx, x.Mode)
	if x.Sampler != nil {
		x.Sampler.MarkDirty()
	}
	if err != nil {
		return err
	}
	x.Log.Info().Str("mode", string(x.Mode)).Msg("uncommitted changes reverted")
	return nil
}
