// Package analysis runs liveness and emotion inference on the latest captured frame at a slow, fixed cadence.
package analysis

import (
	"context"
	"time"

	"github.com/andresmejia3/moodgate/internal/emotion"
	"github.com/andresmejia3/moodgate/internal/liveness"
	"github.com/andresmejia3/moodgate/internal/metrics"
	"github.com/andresmejia3/moodgate/internal/state"
	"github.com/andresmejia3/moodgate/internal/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultInterval is the sleep between analysis cycles.
const DefaultInterval = 2 * time.Second

// LivenessChecker decides whether a frame shows a live face.
type LivenessChecker interface {
	Evaluate(ctx context.Context, frame types.Frame) liveness.Verdict
}

// EmotionReader classifies the dominant emotion of a live face.
type EmotionReader interface {
	Classify(ctx context.Context, frame types.Frame) emotion.Outcome
}

// Outcome of a single cycle.
type Outcome string

const (
	OutcomeSkipped Outcome = "skipped"
	OutcomeLive    Outcome = "live"
	OutcomeSpoof   Outcome = "spoof"
)

// Report describes what one cycle did; the published state is in State.
type Report struct {
	Outcome  Outcome
	Verdict  liveness.Verdict
	Emotion  emotion.Outcome
	State    types.AnalysisState
	FrameSeq uint64
}

// Worker pulls the latest frame from the cell, analyzes it and publishes the result back.
type Worker struct {
	cell     *state.Cell
	liveness LivenessChecker
	emotion  EmotionReader
	interval time.Duration
	logger   *zap.Logger

	lastDropped uint64
}

// NewWorker wires a worker to the shared cell. A non-positive interval falls back to DefaultInterval.
func NewWorker(cell *state.Cell, lc LivenessChecker, er EmotionReader, interval time.Duration, logger *zap.Logger) *Worker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		cell:     cell,
		liveness: lc,
		emotion:  er,
		interval: interval,
		logger:   logger,
	}
}

// Run alternates between sleeping and analyzing until ctx is cancelled.
// Cancellation is observed between cycles; a cycle in progress always finishes.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("analysis worker started", zap.Duration("interval", w.interval))
	defer w.logger.Info("analysis worker stopped")

	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		w.Cycle(ctx)
		timer.Reset(w.interval)
	}
}

// Cycle runs one analysis pass. With no frame published yet it leaves the state untouched.
func (w *Worker) Cycle(ctx context.Context) Report {
	start := time.Now()
	ctx, span := otel.Tracer("analysis").Start(ctx, "analysis.cycle")
	defer span.End()

	frame, ok := w.cell.Frame()
	if !ok {
		metrics.AnalysisCyclesTotal.WithLabelValues(string(OutcomeSkipped)).Inc()
		span.SetAttributes(attribute.String("analysis.outcome", string(OutcomeSkipped)))
		return Report{Outcome: OutcomeSkipped, State: w.cell.State()}
	}
	w.recordDrops()

	log := w.logger.With(zap.Uint64("frame_seq", frame.Seq))

	lvStart := time.Now()
	verdict := w.evaluate(ctx, frame)
	metrics.AnalysisDuration.WithLabelValues("liveness").Observe(time.Since(lvStart).Seconds())

	rep := Report{Verdict: verdict, FrameSeq: frame.Seq}
	if verdict.Live {
		metrics.EyeAspectRatio.Observe(verdict.EAR)

		emStart := time.Now()
		out := w.classify(ctx, frame)
		metrics.AnalysisDuration.WithLabelValues("emotion").Observe(time.Since(emStart).Seconds())
		if !out.OK() {
			metrics.ClassifierFailuresTotal.Inc()
		}

		rep.Outcome = OutcomeLive
		rep.Emotion = out
		rep.State = types.AnalysisState{Emotion: out.Result, Live: true}
	} else {
		if verdict.Reason != liveness.ReasonNoFace && verdict.Err == nil {
			metrics.EyeAspectRatio.Observe(verdict.EAR)
		}
		metrics.LivenessRejectionsTotal.WithLabelValues(string(verdict.Reason)).Inc()

		rep.Outcome = OutcomeSpoof
		rep.State = types.FakeFaceState()
	}

	w.cell.PublishState(rep.State)

	metrics.AnalysisCyclesTotal.WithLabelValues(string(rep.Outcome)).Inc()
	metrics.AnalysisDuration.WithLabelValues("cycle").Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.String("analysis.outcome", string(rep.Outcome)),
		attribute.String("liveness.reason", string(verdict.Reason)),
		attribute.Float64("liveness.ear", verdict.EAR),
		attribute.String("emotion.label", rep.State.Emotion.Label),
	)
	log.Debug("analysis cycle complete",
		zap.String("outcome", string(rep.Outcome)),
		zap.String("reason", string(verdict.Reason)),
		zap.Float64("ear", verdict.EAR),
		zap.String("emotion", rep.State.Emotion.Label),
		zap.Float64("score", rep.State.Emotion.Score),
		zap.Duration("took", time.Since(start)),
	)
	return rep
}

func (w *Worker) evaluate(ctx context.Context, frame types.Frame) liveness.Verdict {
	ctx, span := otel.Tracer("analysis").Start(ctx, "liveness.evaluate", frameAttrs(frame))
	defer span.End()

	v := w.liveness.Evaluate(ctx, frame)
	if v.Err != nil {
		span.RecordError(v.Err)
		span.SetStatus(codes.Error, string(v.Reason))
	}
	return v
}

func (w *Worker) classify(ctx context.Context, frame types.Frame) emotion.Outcome {
	ctx, span := otel.Tracer("analysis").Start(ctx, "emotion.classify", frameAttrs(frame))
	defer span.End()

	out := w.emotion.Classify(ctx, frame)
	if out.Err != nil {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, "classifier failed")
	}
	return out
}

func frameAttrs(f types.Frame) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.Int64("frame.seq", int64(f.Seq)),
		attribute.Int("frame.width", f.Width),
		attribute.Int("frame.height", f.Height),
	)
}

// recordDrops forwards the cell's drop counter to prometheus.
func (w *Worker) recordDrops() {
	dropped := w.cell.Stats().FramesDropped
	if dropped > w.lastDropped {
		metrics.FramesDroppedTotal.Add(float64(dropped - w.lastDropped))
		w.lastDropped = dropped
	}
}
