package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/limitedwip/internal/hook"
)

var hookForce bool

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage the pre-commit hook that blocks oversized commits",
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the pre-commit hook in this repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := repo.GitPath(cmd.Context(), "hooks")
		if err != nil {
			return fmt.Errorf("locating hooks directory: %w", err)
		}
		path, err := hook.Install(dir, hookForce)
		if err != nil {
			return err
		}
		cmd.Printf("✓ pre-commit hook written to %s\n", path)
		if !GetConfig().Watchdog.DisableCommitsAboveThreshold {
			cmd.Println("  Note: watchdog.disable_commits_above_threshold is off, so commits are not blocked yet.")
		}
		return nil
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the limitedwip pre-commit hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := repo.GitPath(cmd.Context(), "hooks")
		if err != nil {
			return fmt.Errorf("locating hooks directory: %w", err)
		}
		path, err := hook.Uninstall(dir)
		if err != nil {
			return err
		}
		cmd.Printf("✓ removed %s\n", path)
		return nil
	},
}

func init() {
	hookInstallCmd.Flags().BoolVar(&hookForce, "force", false, "overwrite an existing pre-commit hook")
	hookCmd.AddCommand(hookInstallCmd, hookUninstallCmd)
	rootCmd.AddCommand(hookCmd)
}
