package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	CameraIndex int `env:"MOODGATE_CAMERA_INDEX" envDefault:"0"   validate:"gte=0"`
	FrameWidth  int `env:"MOODGATE_FRAME_WIDTH"  envDefault:"480" validate:"gt=0,lte=7680"`
	FrameHeight int `env:"MOODGATE_FRAME_HEIGHT" envDefault:"360" validate:"gt=0,lte=4320"`

	AnalysisInterval time.Duration `env:"MOODGATE_ANALYSIS_INTERVAL" envDefault:"2s"     validate:"gt=0"`
	EARThreshold     float64       `env:"MOODGATE_EAR_THRESHOLD"     envDefault:"0.15"   validate:"gt=0,lt=1"`
	DetectorBackend  string        `env:"MOODGATE_DETECTOR_BACKEND"  envDefault:"opencv" validate:"oneof=opencv ssd dlib mtcnn retinaface mediapipe yolov8 yunet centerface skip"`

	Python       string `env:"MOODGATE_PYTHON"        envDefault:"python3"          validate:"required"`
	WorkerScript string `env:"MOODGATE_WORKER_SCRIPT" envDefault:"python/worker.py" validate:"required"`

	WindowTitle string `env:"MOODGATE_WINDOW_TITLE" envDefault:"Emotion Detection with Liveness Check"`
	NoWindow    bool   `env:"MOODGATE_NO_WINDOW"    envDefault:"false"`

	MetricsPort  int    `env:"MOODGATE_METRICS_PORT"  envDefault:"0" validate:"gte=0,lte=65535"`
	OTLPEndpoint string `env:"MOODGATE_OTLP_ENDPOINT" envDefault:""  validate:"omitempty,url"`
	LogLevel     string `env:"LOG_LEVEL"              envDefault:"info" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`

	ShutdownGrace time.Duration `env:"MOODGATE_SHUTDOWN_GRACE" envDefault:"5s" validate:"gte=0"`
}

var validate = validator.New()

// Load reads .env (if present) then the environment, and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags. Call it again after applying flag overrides.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config %s=%v (rule %s)", fe.Field(), fe.Value(), fe.Tag())
		}
		return err
	}
	return nil
}
