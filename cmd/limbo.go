package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/limitedwip/internal/limbo"
	"github.com/fakeyudi/limitedwip/internal/logging"
	"github.com/fakeyudi/limitedwip/internal/session"
)

// testRunner runs the test command in dir, streaming its output. Replaced
// in tests.
var testRunner = func(ctx context.Context, dir string, args []string, stdout, stderr io.Writer) error {
	c := exec.CommandContext(ctx, args[0], args[1:]...)
	c.Dir = dir
	c.Stdin = os.Stdin
	c.Stdout = stdout
	c.Stderr = stderr
	return c.Run()
}

var testCmd = &cobra.Command{
	Use:   "test -- <command> [args...]",
	Short: "Run the tests; count a pass, revert uncommitted changes on a failure",
	Long: `Runs the given command in the repository root. When limbo is enabled a
passing run is counted towards the next commit and a failing run reverts
every uncommitted change using auto_revert.mode.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := GetConfig()
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		ctx := cmd.Context()

		runErr := testRunner(ctx, repo.WorkDir, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		if !c.Limbo.Enabled {
			return runErr
		}

		store, eng, err := openLimbo(cmd)
		if err != nil {
			return err
		}
		if runErr == nil {
			eng.OnTestSucceeded()
			return store.Save(eng.State())
		}

		revertErr := eng.OnTestFailed()
		if err := store.Save(eng.State()); err != nil {
			return err
		}
		if revertErr != nil {
			return fmt.Errorf("tests failed: %w; revert: %w", runErr, revertErr)
		}
		return fmt.Errorf("tests failed: %w", runErr)
	},
}

var allowCommitCmd = &cobra.Command{
	Use:   "allow-commit",
	Short: "Let the next commit through without a passing test run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, eng, err := openLimbo(cmd)
		if err != nil {
			return err
		}
		eng.AllowOneCommitWithoutChecks()
		return store.Save(eng.State())
	},
}

// openLimbo loads the saved limbo state for the repository, resetting it
// when HEAD has moved since it was saved.
func openLimbo(cmd *cobra.Command) (*session.LimboStore, *limbo.Engine, error) {
	c := GetConfig()
	store, err := session.NewLimboStore(repo.WorkDir)
	if err != nil {
		return nil, nil, err
	}
	state, err := store.Load()
	if err != nil {
		return nil, nil, err
	}
	head, err := repo.Head(cmd.Context())
	if err != nil {
		return nil, nil, fmt.Errorf("reading HEAD: %w", err)
	}

	log := logging.New(logging.Options{Level: c.LogLevel, Console: true, Writer: cmd.ErrOrStderr()})
	executor := &session.RepoExecutor{Repo: repo, Mode: c.AutoRevert.Mode, Log: log}
	eng := limbo.New(stderrSink(cmd), executor, c.LimboSettings(), state)
	eng.OnHead(head)
	return store, eng, nil
}

func init() {
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(allowCommitCmd)
}
