package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/bnema/waycomp/internal/config"
	"github.com/bnema/waycomp/internal/ui"
	"github.com/bnema/waycomp/internal/xkb"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage waycomp configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, ui.FormatHeader("Configuration", config.GetConfigPath()))

		types := "autodetect"
		if len(cfg.Backend.Types) > 0 {
			types = strings.Join(cfg.Backend.Types, ",")
		}
		fmt.Fprintln(out, ui.SubheaderStyle.Render("[backend]"))
		fmt.Fprintf(out, "  Types:            %s\n", types)
		fmt.Fprintf(out, "  Input Dir:        %s\n", cfg.Backend.InputDir)
		fmt.Fprintf(out, "  DRM Dir:          %s\n", cfg.Backend.DRMDir)
		fmt.Fprintf(out, "  Poll Interval:    %d ms\n", cfg.Backend.PollIntervalMs)
		fmt.Fprintf(out, "  Refresh Rate:     %d mHz\n", cfg.Backend.RefreshRate)
		fmt.Fprintf(out, "  Headless Outputs: %d\n", cfg.Backend.HeadlessOutputs)

		fmt.Fprintln(out, ui.SubheaderStyle.Render("\n[keyboard]"))
		fmt.Fprintf(out, "  Rules:   %s\n", cfg.Keyboard.Rules)
		fmt.Fprintf(out, "  Model:   %s\n", cfg.Keyboard.Model)
		fmt.Fprintf(out, "  Layout:  %s\n", cfg.Keyboard.Layout)
		fmt.Fprintf(out, "  Variant: %s\n", cfg.Keyboard.Variant)
		fmt.Fprintf(out, "  Options: %s\n", cfg.Keyboard.Options)
		if env := xkb.RuleNamesFromEnv(); env != (xkb.RuleNames{}) {
			fmt.Fprintln(out, ui.InfoStyle.Render("  XKB_DEFAULT_* override: "+env.String()))
		}

		fmt.Fprintln(out, ui.SubheaderStyle.Render("\n[logging]"))
		level := cfg.Logging.LogLevel
		if level == "" {
			level = "(LOG_LEVEL)"
		}
		fmt.Fprintf(out, "  Log Level: %s\n", level)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		configPath := config.GetConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				fmt.Fprintf(out, "Configuration file already exists at: %s\n", configPath)
				fmt.Fprintln(out, "Use --force to overwrite")
				return nil
			}
		}

		if err := config.Save(); err != nil {
			return err
		}

		fmt.Fprintf(out, "Configuration initialized at: %s\n", configPath)
		fmt.Fprintln(out, "  - Edit the configuration file directly")
		fmt.Fprintln(out, "  - Use 'waycomp config show' to view current settings")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().Bool("force", false, "Force overwrite existing configuration")
	rootCmd.AddCommand(configCmd)
}
