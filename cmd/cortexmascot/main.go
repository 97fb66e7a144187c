// Package main provides the CLI entry point for CortexMascot.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/normanking/cortexmascot/internal/config"
	"github.com/normanking/cortexmascot/internal/logging"
)

var (
	// Version information (set at build time)
	version = "dev"

	configPath string
	logLevel   string

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cortexmascot",
		Short: "CortexMascot - animated assistant avatar engine",
		Long: titleStyle.Render("CortexMascot") + `

The expression and emotion engine behind the assistant's floating mascot:
• Expression state machine with talking, thinking and searching states
• Keyword emotion detection with timed emotion cycles
• Drag, shake and poke reactions
• Ambient color cycling synchronized to the host UI

` + dimStyle.Render("Use 'cortexmascot [command] --help' for more information."),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.cortexmascot/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(
		newServeCmd(),
		newAnalyzeCmd(),
		newColorCmd(),
		newPreviewCmd(),
		newStatusCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// loadConfig reads the config file, falling back to defaults on a broken file
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("Config: "+err.Error()+", using defaults"))
		cfg = config.DefaultConfig()
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg
}

func newLogger(cfg *config.Config, console bool) (*logging.Logger, error) {
	return logging.New(&logging.Config{
		LogDir:  cfg.Logging.Dir,
		Level:   logging.LogLevel(cfg.Logging.Level),
		Console: console && cfg.Logging.Console,
	})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cortexmascot %s\n", version)
		},
	}
}
