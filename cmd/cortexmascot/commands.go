package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/normanking/cortexmascot/internal/app"
	"github.com/normanking/cortexmascot/internal/color"
	"github.com/normanking/cortexmascot/internal/config"
	"github.com/normanking/cortexmascot/internal/preview"
	"github.com/normanking/cortexmascot/internal/statesync"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the mascot host",
		Long:  "Run the avatar engine with its websocket mirror, snapshot, health and metrics endpoints.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Server.Addr = addr
			}

			logs, err := newLogger(cfg, true)
			if err != nil {
				return err
			}
			defer logs.Close()

			a, err := app.New(cfg, logs, version)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.Run(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides config)")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Run the emotion detector over text and print the result as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			if force, _ := cmd.Flags().GetBool("force"); force {
				cfg.Avatar.EmotionThrottle = 1
			}
			detector, err := app.NewDetector(cfg, zerolog.Nop())
			if err != nil {
				return err
			}

			res, outcome := detector.AnalyzeWithOutcome(strings.Join(args, " "))
			out := map[string]any{"outcome": outcome}
			if res != nil {
				out["dominant"] = res.Dominant
				out["scores"] = res.Scores
				out["schedule"] = res.Schedule
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().Bool("force", false, "bypass the random throttle")
	return cmd
}

func newColorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "color",
		Short: "Print the deterministic cycle color for a moment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			palette, err := cfg.Palette()
			if err != nil {
				return err
			}

			at := time.Now()
			if s, _ := cmd.Flags().GetString("at"); s != "" {
				at, err = time.Parse(time.RFC3339, s)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
			}

			cycle := color.Cycle{Palette: palette, Hold: cfg.Color.Hold, Transition: cfg.Color.Transition}
			phase := cycle.At(at)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s\n", titleStyle.Render("body"), phase.Colors.Body.Hex())
			fmt.Fprintf(w, "%s %s\n", titleStyle.Render("face"), phase.Colors.Face.Hex())
			if phase.Transitioning() {
				fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("transition %d → %d at %.0f%%", phase.From, phase.To, phase.Progress*100)))
			} else {
				fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("holding entry %d", phase.From)))
			}
			return nil
		},
	}
	cmd.Flags().String("at", "", "RFC 3339 time (default now)")
	return cmd
}

func newPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Run the engine in a terminal preview",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			cfg.Sync.Enabled = false

			logs, err := newLogger(cfg, false)
			if err != nil {
				return err
			}
			defer logs.Close()

			a, err := app.New(cfg, logs, version)
			if err != nil {
				return err
			}
			defer a.Close()

			frames := preview.NewFrames(16)
			a.Engine.OnRender(frames.Observe)
			if err := a.Engine.Start(); err != nil {
				return err
			}

			_, err = tea.NewProgram(preview.New(a.Engine, frames), tea.WithAltScreen()).Run()
			return err
		},
	}
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check a running mascot host",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			url, _ := cmd.Flags().GetString("url")
			if url == "" {
				url = "http://" + cfg.Server.Addr
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			w := cmd.OutOrStdout()
			if err := statesync.CheckHealth(ctx, url); err != nil {
				fmt.Fprintln(w, errorStyle.Render("✗ "+url+" unreachable"))
				return err
			}
			fmt.Fprintln(w, successStyle.Render("✓ "+url+" healthy"))

			state, err := statesync.GetCurrent(ctx, url)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "  State:    %v\n", state["state"])
			fmt.Fprintf(w, "  Talking:  %v\n", state["talking"])
			fmt.Fprintf(w, "  Dragging: %v\n", state["dragging"])
			return nil
		},
	}
	cmd.Flags().String("url", "", "host base URL (default from config)")
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print or initialize configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(loadConfig(cmd))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(config.DefaultConfig(), configPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Configuration written"))
			return nil
		},
	})
	return cmd
}
