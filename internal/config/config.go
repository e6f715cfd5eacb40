// Package config holds runtime settings for abhinaya.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/ayusman/abhinaya/internal/capture"
	"github.com/ayusman/abhinaya/internal/detector"
	"github.com/ayusman/abhinaya/internal/logging"
	"github.com/ayusman/abhinaya/internal/sink"
)

// Config is the full set of runtime settings. The zero-file defaults reproduce
// a plain webcam session writing output_video.mp4 at 30 fps.
type Config struct {
	Device   int             `yaml:"device"`
	Width    int             `yaml:"width"`
	Height   int             `yaml:"height"`
	FPS      int             `yaml:"fps"`
	Output   string          `yaml:"output"`
	Codec    string          `yaml:"codec"`
	Window   string          `yaml:"window"`
	Headless bool            `yaml:"headless"`
	Journal  string          `yaml:"journal"`
	Listen   string          `yaml:"listen"`
	Detector detector.Config `yaml:"detector"`
	Log      logging.Options `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Device:   0,
		FPS:      capture.DefaultFPS,
		Output:   sink.DefaultOutput,
		Codec:    sink.DefaultCodec,
		Window:   sink.DefaultWindow,
		Detector: detector.DefaultConfig(),
		Log:      logging.Options{Level: "info"},
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// FrameDurationMs is the fixed timestamp step per frame.
func (c Config) FrameDurationMs() int64 {
	if c.FPS <= 0 {
		return 0
	}
	return int64(1000 / c.FPS)
}

// Validate checks the settings for values the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.Device < 0 {
		errs = append(errs, fmt.Errorf("device must be >= 0, got %d", c.Device))
	}
	if c.FPS <= 0 || c.FPS > 1000 {
		errs = append(errs, fmt.Errorf("fps must be between 1 and 1000, got %d", c.FPS))
	}
	if c.Output == "" {
		errs = append(errs, errors.New("output path is required"))
	}
	if len(c.Codec) != 4 {
		errs = append(errs, fmt.Errorf("codec must be four characters, got %q", c.Codec))
	}
	if (c.Width == 0) != (c.Height == 0) || c.Width < 0 || c.Height < 0 {
		errs = append(errs, fmt.Errorf("width and height must both be set or both be zero, got %dx%d", c.Width, c.Height))
	}
	if c.Detector.ModelPath == "" {
		errs = append(errs, errors.New("detector model path is required"))
	}
	if c.Detector.MaxFaces < 1 {
		errs = append(errs, fmt.Errorf("detector max_faces must be >= 1, got %d", c.Detector.MaxFaces))
	}

	return errors.Join(errs...)
}
