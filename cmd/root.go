package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/moodgate/internal/config"
	"github.com/andresmejia3/moodgate/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// cfg is loaded from .env and the environment, then overridden by explicit flags
	cfg *config.Config
	// zlog is the diagnostic logger shared by subcommands
	zlog *zap.Logger
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "moodgate",
	Short:   "Live webcam emotion readout gated by a blink-based liveness check",
	Version: Version, // This enables the --version flag
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
			return fmt.Errorf("invalid flags: %w", err)
		}

		zlog, err = logger.New(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if zlog != nil {
			zlog.Sync()
		}
	},
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// addOverrideFlags registers the analysis flags shared by watch and check.
// Defaults shown in --help are the built-in ones; the environment wins unless a flag is set.
func addOverrideFlags(c *cobra.Command) {
	c.Flags().Float64P(config.FlagThreshold, "t", 0.15, "Eye aspect ratio above which a face counts as live (env MOODGATE_EAR_THRESHOLD)")
	c.Flags().StringP(config.FlagBackend, "b", "opencv", "Face detector backend for the emotion model (env MOODGATE_DETECTOR_BACKEND)")
	c.Flags().Int(config.FlagWidth, 480, "Working frame width (env MOODGATE_FRAME_WIDTH)")
	c.Flags().Int(config.FlagHeight, 360, "Working frame height (env MOODGATE_FRAME_HEIGHT)")
}
