package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/andresmejia3/moodgate/internal/analysis"
	"github.com/andresmejia3/moodgate/internal/camera"
	"github.com/andresmejia3/moodgate/internal/config"
	"github.com/andresmejia3/moodgate/internal/emotion"
	"github.com/andresmejia3/moodgate/internal/liveness"
	"github.com/andresmejia3/moodgate/internal/state"
	"github.com/andresmejia3/moodgate/internal/utils"
	"github.com/andresmejia3/moodgate/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var checkCmd = &cobra.Command{
	Use:   "check <image_path>",
	Short: "Run one liveness and emotion analysis on a still image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runCheck(cmd.Context(), args[0], cfg, zlog)
	},
}

func init() {
	addOverrideFlags(checkCmd)
	rootCmd.AddCommand(checkCmd)
}

func runCheck(ctx context.Context, imagePath string, cfg *config.Config, log *zap.Logger) error {
	info, err := os.Stat(imagePath)
	if err != nil {
		if os.IsNotExist(err) {
			utils.ShowError("Input file does not exist", err, nil)
		} else {
			utils.ShowError("Unable to access input file", err, nil)
		}
		return err
	}
	if info.IsDir() {
		err := fmt.Errorf("%s is a directory", imagePath)
		utils.ShowError("Input path is a directory, expected an image file", err, nil)
		return err
	}

	frame, err := camera.LoadImage(imagePath, cfg.FrameWidth, cfg.FrameHeight)
	if err != nil {
		utils.ShowError("Failed to read image file", err, nil)
		return err
	}

	fmt.Fprintln(os.Stderr, "🚀 Starting AI Engine...")
	// We use ID 0 for this ad-hoc worker
	py, err := worker.NewPythonWorker(ctx, 0, worker.Config{Python: cfg.Python, Script: cfg.WorkerScript})
	if err != nil {
		utils.ShowError("Failed to start AI worker", err, nil)
		return err
	}
	defer py.Close()

	// Same path as watch: one frame in the cell, one cycle out
	cell := state.New()
	cell.PublishFrame(frame)
	analyzer := analysis.NewWorker(cell,
		liveness.NewEvaluator(py, cfg.EARThreshold, log.Named("liveness")),
		emotion.NewService(py, emotion.DefaultOptions(cfg.DetectorBackend), log.Named("emotion")),
		0, log.Named("analysis"))

	fmt.Fprintln(os.Stderr, "🔍 Analyzing face...")
	rep := analyzer.Cycle(ctx)

	if rep.Verdict.Reason == liveness.ReasonDetectorError {
		utils.ShowError("AI processing failed", rep.Verdict.Err, py.Cmd)
		return rep.Verdict.Err
	}
	if rep.Verdict.Reason == liveness.ReasonNoFace {
		fmt.Println("❌ No face detected in the provided image.")
	}

	return rep.WriteTable(os.Stdout)
}
