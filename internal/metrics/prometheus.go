package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesCapturedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moodgate_frames_captured_total",
		Help: "Total number of frames read from the camera",
	})

	FramesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moodgate_frames_dropped_total",
		Help: "Frames overwritten in the shared cell before the analysis worker read them",
	})

	AnalysisCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moodgate_analysis_cycles_total",
		Help: "Analysis cycles, by outcome (live, spoof, skipped)",
	}, []string{"outcome"})

	LivenessRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moodgate_liveness_rejections_total",
		Help: "Frames the liveness check rejected, by reason",
	}, []string{"reason"})

	ClassifierFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moodgate_classifier_failures_total",
		Help: "Emotion classifier calls that fell back to Unknown",
	})

	EyeAspectRatio = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "moodgate_eye_aspect_ratio",
		Help:    "Average eye aspect ratio of analyzed faces",
		Buckets: []float64{0.05, 0.1, 0.15, 0.2, 0.25, 0.3, 0.35, 0.4},
	})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moodgate_analysis_duration_seconds",
		Help:    "Duration of analysis stages",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"stage"})
)
