package config

import (
	"github.com/spf13/pflag"
)

// Flag names shared by the commands that accept overrides.
const (
	FlagCamera      = "camera"
	FlagInterval    = "interval"
	FlagThreshold   = "threshold"
	FlagBackend     = "backend"
	FlagWidth       = "width"
	FlagHeight      = "height"
	FlagMetricsPort = "metrics-port"
	FlagNoWindow    = "no-window"
)

// ApplyFlags copies explicitly set flags over the environment values and re-validates.
// Flags left at their defaults never override the environment.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var err error
	set := func(e error) {
		if err == nil {
			err = e
		}
	}

	fs.Visit(func(f *pflag.Flag) {
		var e error
		switch f.Name {
		case FlagCamera:
			c.CameraIndex, e = fs.GetInt(f.Name)
		case FlagInterval:
			c.AnalysisInterval, e = fs.GetDuration(f.Name)
		case FlagThreshold:
			c.EARThreshold, e = fs.GetFloat64(f.Name)
		case FlagBackend:
			c.DetectorBackend, e = fs.GetString(f.Name)
		case FlagWidth:
			c.FrameWidth, e = fs.GetInt(f.Name)
		case FlagHeight:
			c.FrameHeight, e = fs.GetInt(f.Name)
		case FlagMetricsPort:
			c.MetricsPort, e = fs.GetInt(f.Name)
		case FlagNoWindow:
			c.NoWindow, e = fs.GetBool(f.Name)
		}
		set(e)
	})
	if err != nil {
		return err
	}
	return c.Validate()
}
