package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	fs.IntP(FlagCamera, "c", 0, "")
	fs.DurationP(FlagInterval, "n", 2*time.Second, "")
	fs.Float64P(FlagThreshold, "t", 0.15, "")
	fs.StringP(FlagBackend, "b", "opencv", "")
	fs.Int(FlagWidth, 480, "")
	fs.Int(FlagHeight, 360, "")
	fs.Int(FlagMetricsPort, 0, "")
	fs.Bool(FlagNoWindow, false, "")
	return fs
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		args    []string
		check   func(t *testing.T, c *Config)
		wantErr bool
	}{
		{
			name: "Unset flags keep env values",
			env:  map[string]string{"MOODGATE_CAMERA_INDEX": "3", "MOODGATE_EAR_THRESHOLD": "0.25"},
			args: nil,
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 3, c.CameraIndex)
				assert.Equal(t, 0.25, c.EARThreshold)
			},
		},
		{
			name: "Set flags win over env",
			env:  map[string]string{"MOODGATE_CAMERA_INDEX": "3"},
			args: []string{"-c", "1", "-n", "500ms", "--threshold", "0.2", "-b", "ssd", "--width", "640", "--height", "480", "--no-window"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 1, c.CameraIndex)
				assert.Equal(t, 500*time.Millisecond, c.AnalysisInterval)
				assert.Equal(t, 0.2, c.EARThreshold)
				assert.Equal(t, "ssd", c.DetectorBackend)
				assert.Equal(t, 640, c.FrameWidth)
				assert.Equal(t, 480, c.FrameHeight)
				assert.True(t, c.NoWindow)
			},
		},
		{
			name:    "Invalid override is rejected",
			args:    []string{"--threshold", "0"},
			wantErr: true,
		},
		{
			name:    "Negative metrics port is rejected",
			args:    []string{"--metrics-port=-1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			require.NoError(t, err)

			fs := newFlagSet()
			require.NoError(t, fs.Parse(tt.args))

			err = cfg.ApplyFlags(fs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
