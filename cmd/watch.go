package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/andresmejia3/moodgate/internal/analysis"
	"github.com/andresmejia3/moodgate/internal/camera"
	"github.com/andresmejia3/moodgate/internal/capture"
	"github.com/andresmejia3/moodgate/internal/config"
	"github.com/andresmejia3/moodgate/internal/display"
	"github.com/andresmejia3/moodgate/internal/emotion"
	"github.com/andresmejia3/moodgate/internal/liveness"
	"github.com/andresmejia3/moodgate/internal/metrics"
	"github.com/andresmejia3/moodgate/internal/state"
	"github.com/andresmejia3/moodgate/internal/status"
	"github.com/andresmejia3/moodgate/internal/tracing"
	"github.com/andresmejia3/moodgate/internal/utils"
	"github.com/andresmejia3/moodgate/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the webcam and show the live emotion readout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runWatch(cmd.Context(), cfg, zlog)
	},
}

func init() {
	addOverrideFlags(watchCmd)
	watchCmd.Flags().IntP(config.FlagCamera, "c", 0, "Camera device index (env MOODGATE_CAMERA_INDEX)")
	watchCmd.Flags().DurationP(config.FlagInterval, "n", 2*time.Second, "Pause between analysis cycles (env MOODGATE_ANALYSIS_INTERVAL)")
	watchCmd.Flags().Int(config.FlagMetricsPort, 0, "Serve Prometheus metrics on this port, 0 disables (env MOODGATE_METRICS_PORT)")
	watchCmd.Flags().Bool(config.FlagNoWindow, false, "Run without a preview window (env MOODGATE_NO_WINDOW)")
	rootCmd.AddCommand(watchCmd)
}

// runWatch wires the pipeline: camera and window on this goroutine, analysis on its own.
func runWatch(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.MetricsPort > 0 {
		srv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log.Named("metrics"))
		defer srv.Shutdown(context.Background())
	}
	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint)
		if err != nil {
			log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		} else {
			// ctx may already be cancelled by Ctrl+C; spans still need flushing
			defer tp.Shutdown(context.Background())
		}
	}

	fmt.Fprintf(os.Stderr, "📷 Opening camera %d (%dx%d)...\n", cfg.CameraIndex, cfg.FrameWidth, cfg.FrameHeight)
	cam, err := camera.Open(cfg.CameraIndex, cfg.FrameWidth, cfg.FrameHeight)
	if err != nil {
		utils.ShowError("Cannot access webcam.", err, nil)
		return err
	}

	fmt.Fprintln(os.Stderr, "🚀 Starting AI Engine...")
	// The inference process outlives ctx so an in-flight cycle can finish during the shutdown grace
	procCtx, killProc := context.WithCancel(context.Background())
	defer killProc()
	py, err := worker.NewPythonWorker(procCtx, 0, worker.Config{Python: cfg.Python, Script: cfg.WorkerScript})
	if err != nil {
		cam.Close()
		utils.ShowError("Failed to start AI worker", err, nil)
		return err
	}

	cell := state.New()
	evaluator := liveness.NewEvaluator(py, cfg.EARThreshold, log.Named("liveness"))
	reader := emotion.NewService(py, emotion.DefaultOptions(cfg.DetectorBackend), log.Named("emotion"))
	analyzer := analysis.NewWorker(cell, evaluator, reader, cfg.AnalysisInterval, log.Named("analysis"))
	log.Info("pipeline ready",
		zap.Int("camera", cfg.CameraIndex),
		zap.Float64("ear_threshold", evaluator.Threshold()),
		zap.Duration("interval", cfg.AnalysisInterval),
		zap.String("backend", cfg.DetectorBackend),
	)

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		analyzer.Run(workerCtx)
	}()

	var surface capture.Surface = capture.Headless{}
	if !cfg.NoWindow {
		win := display.NewWindow(cfg.WindowTitle, log.Named("display"))
		defer win.Close()
		surface = win
	}

	fmt.Fprintln(os.Stderr, "👀 Watching. Press q or Esc in the window (or Ctrl+C) to stop.")
	bar := status.NewBar(os.Stderr)
	loop := capture.NewLoop(cam, cell, surface, bar, stopWorker, log.Named("capture"))
	loopErr := loop.Run(ctx)
	bar.Finish()

	shutdownWorker(py, killProc, workerDone, cfg.ShutdownGrace, log)

	if loopErr != nil {
		if errors.Is(loopErr, capture.ErrCameraUnavailable) {
			utils.ShowError("Cannot access webcam.", loopErr, nil)
		}
		return loopErr
	}

	stats := cell.Stats()
	fmt.Fprintf(os.Stderr, "✅ Stopped after %d frames, %d analysis results.\n", stats.FramesPublished, stats.StatesPublished)
	return nil
}

// shutdownWorker gives the analysis worker up to grace to finish its cycle, then closes
// the inference process, which fails any call still in flight. A process that ignores
// the closed pipes for another grace period is killed.
func shutdownWorker(py *worker.PythonWorker, kill context.CancelFunc, done <-chan struct{}, grace time.Duration, log *zap.Logger) {
	select {
	case <-done:
	case <-time.After(grace):
		log.Warn("analysis still running after shutdown grace, closing inference process", zap.Duration("grace", grace))
	}

	closed := make(chan error, 1)
	go func() { closed <- py.Close() }()

	select {
	case err := <-closed:
		if err != nil {
			log.Debug("inference process exited", zap.Error(err))
		}
	case <-time.After(grace):
		log.Warn("inference process did not exit, killing it")
		kill()
		<-closed
	}
	<-done
}
