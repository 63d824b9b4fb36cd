package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/limitedwip/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the merged configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the merged configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := GetConfig().YAML()
		if err != nil {
			return err
		}
		cmd.Print(string(out))
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the merged configuration for out-of-range values",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := GetConfig().Validate(); err != nil {
			return err
		}
		cmd.Printf("✓ %s is valid\n", config.ProjectPath(repo.WorkDir))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the project config interactively (re-run anytime to edit)",
	RunE: func(cmd *cobra.Command, args []string) error {
		next, err := config.RunSetup(cmd.InOrStdin(), cmd.OutOrStdout(), GetConfig())
		if err != nil {
			return fmt.Errorf("setup cancelled: %w", err)
		}
		path, err := config.SaveProject(repo.WorkDir, next)
		if err != nil {
			return err
		}
		cmd.Printf("✓ Config saved to %s\n", path)
		if next.Watchdog.DisableCommitsAboveThreshold {
			cmd.Println("  Run 'limitedwip hook install' so oversized commits are blocked.")
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configValidateCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}
