// Package config loads the service configuration from a YAML file.
//
// Every field has a default, so a missing file or a partial file is valid:
//
//	server:
//	  addr: ":8080"
//	gesture:
//	  pinch_threshold: 0.05
//	  inference_interval_ms: 66
//	scene:
//	  particle_count: 4000
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`
	Gesture  GestureConfig  `yaml:"gesture"`
	Scene    SceneConfig    `yaml:"scene"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP control surface.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// StoreConfig configures the session store. ":memory:" keeps photos and
// settings for the life of the process only.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// CameraConfig configures the capture device.
type CameraConfig struct {
	Device int `yaml:"device"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DetectorConfig configures the landmark detector subprocess.
type DetectorConfig struct {
	MaxHands        int     `yaml:"max_hands"`
	MinConfidence   float64 `yaml:"min_confidence"`
	MinTrackingConf float64 `yaml:"min_tracking_confidence"`
	ScriptPath      string  `yaml:"script_path"`
	PythonPath      string  `yaml:"python_path"`
	TimeoutMS       int     `yaml:"timeout_ms"`
}

// Timeout returns the per-request detection timeout.
func (c DetectorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// GestureConfig holds the classifier thresholds and the inference throttle.
type GestureConfig struct {
	PinchThreshold      float64 `yaml:"pinch_threshold"`
	FastMoveSpeed       float64 `yaml:"fast_move_speed"`
	InferenceIntervalMS int     `yaml:"inference_interval_ms"`
	EnabledOnStart      bool    `yaml:"enabled_on_start"`

	// MotionThreshold is the percentage of changed pixels that wakes the
	// detector while no hand is in view. Zero sends every frame.
	MotionThreshold float64 `yaml:"motion_threshold"`
}

// InferenceInterval returns the minimum spacing between detector requests.
func (c GestureConfig) InferenceInterval() time.Duration {
	return time.Duration(c.InferenceIntervalMS) * time.Millisecond
}

// SceneConfig configures the particle layout and the frame loop.
type SceneConfig struct {
	ParticleCount int    `yaml:"particle_count"`
	Seed          uint64 `yaml:"seed"`
	FrameRate     int    `yaml:"frame_rate"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Particle count limits accepted from config and the control surface.
const (
	MinParticles = 100
	MaxParticles = 20000
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      ":8080",
			StaticDir: "web",
		},
		Store: StoreConfig{
			Path: ":memory:",
		},
		Camera: CameraConfig{
			Device: 0,
			Width:  640,
			Height: 480,
		},
		Detector: DetectorConfig{
			MaxHands:        1,
			MinConfidence:   0.7,
			MinTrackingConf: 0.5,
			TimeoutMS:       500,
		},
		Gesture: GestureConfig{
			PinchThreshold:      0.05,
			FastMoveSpeed:       1.0,
			InferenceIntervalMS: 66,
			MotionThreshold:     0.5,
		},
		Scene: SceneConfig{
			ParticleCount: 4000,
			Seed:          20241224,
			FrameRate:     60,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path on top of the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		errs = append(errs, fmt.Errorf("camera size %dx%d must be positive", c.Camera.Width, c.Camera.Height))
	}
	if c.Detector.MaxHands < 1 {
		errs = append(errs, fmt.Errorf("detector.max_hands %d must be at least 1", c.Detector.MaxHands))
	}
	if !inUnit(c.Detector.MinConfidence) || !inUnit(c.Detector.MinTrackingConf) {
		errs = append(errs, errors.New("detector confidences must be within [0, 1]"))
	}
	if c.Detector.TimeoutMS <= 0 {
		errs = append(errs, fmt.Errorf("detector.timeout_ms %d must be positive", c.Detector.TimeoutMS))
	}
	if c.Gesture.PinchThreshold <= 0 {
		errs = append(errs, fmt.Errorf("gesture.pinch_threshold %v must be positive", c.Gesture.PinchThreshold))
	}
	if c.Gesture.FastMoveSpeed <= 0 {
		errs = append(errs, fmt.Errorf("gesture.fast_move_speed %v must be positive", c.Gesture.FastMoveSpeed))
	}
	if c.Gesture.InferenceIntervalMS <= 0 {
		errs = append(errs, fmt.Errorf("gesture.inference_interval_ms %d must be positive", c.Gesture.InferenceIntervalMS))
	}
	if c.Gesture.MotionThreshold < 0 || c.Gesture.MotionThreshold > 100 {
		errs = append(errs, fmt.Errorf("gesture.motion_threshold %v must be within [0, 100]", c.Gesture.MotionThreshold))
	}
	if err := ValidateParticleCount(c.Scene.ParticleCount); err != nil {
		errs = append(errs, fmt.Errorf("scene.particle_count: %w", err))
	}
	if c.Scene.FrameRate < 1 || c.Scene.FrameRate > 240 {
		errs = append(errs, fmt.Errorf("scene.frame_rate %d must be within [1, 240]", c.Scene.FrameRate))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}

	return errors.Join(errs...)
}

// ValidateParticleCount checks n against MinParticles and MaxParticles.
func ValidateParticleCount(n int) error {
	if n < MinParticles || n > MaxParticles {
		return fmt.Errorf("%d outside [%d, %d]", n, MinParticles, MaxParticles)
	}
	return nil
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
