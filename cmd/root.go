package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/limitedwip/internal/config"
	"github.com/fakeyudi/limitedwip/internal/vcs"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// repo is the working copy the command operates on.
var repo *vcs.Repo

// gitRunner replaces the git binary in tests.
var gitRunner vcs.Runner

var workDir string

var rootCmd = &cobra.Command{
	Use:           "limitedwip",
	Short:         "Keep uncommitted changes small with size reminders and timed auto-revert",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadWorkspace(cmd.Context())
	},
}

// loadWorkspace resolves the repository root from -C or the working
// directory, then loads the merged config into cfg and repo.
func loadWorkspace(ctx context.Context) error {
	dir := workDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir = cwd
	}

	lookup := &vcs.Repo{WorkDir: dir, Runner: gitRunner}
	root, err := lookup.Root(ctx)
	if err != nil {
		if errors.Is(err, vcs.ErrNotRepository) {
			return fmt.Errorf("%s is not inside a git repository", dir)
		}
		return fmt.Errorf("locating repository: %w", err)
	}

	loaded, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg = loaded
	repo = &vcs.Repo{WorkDir: root, Exclusions: cfg.Exclusions, Runner: gitRunner}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", "", "run as if started in this directory")
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "limitedwip:", err)
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}
