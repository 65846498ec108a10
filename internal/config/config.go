// Package config loads the service configuration from an optional YAML file
// and GESTURETREE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/gesturetree/internal/detector"
	"github.com/ayusman/gesturetree/internal/gesture"
	"github.com/ayusman/gesturetree/internal/particle"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "GESTURETREE_"

// Config is the full service configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr" env:"ADDR"`
	// DataDir holds the photo database.
	DataDir string `yaml:"dataDir" env:"DATA_DIR"`
	// WebDir overrides the lookup of the renderer's static files.
	WebDir string `yaml:"webDir" env:"WEB_DIR"`
	// FPS is the frame loop rate.
	FPS int `yaml:"fps" env:"FPS"`
	// Tray shows the system tray icon.
	Tray bool `yaml:"tray" env:"TRAY"`

	Camera   CameraConfig    `yaml:"camera" envPrefix:"CAMERA_"`
	Detector detector.Config `yaml:"detector" envPrefix:"DETECTOR_"`
	Hooks    HooksConfig     `yaml:"hooks" envPrefix:"HOOKS_"`

	Gesture gesture.Thresholds `yaml:"gesture"`
	Scene   particle.Config    `yaml:"scene"`
}

// CameraConfig controls webcam acquisition and motion gating.
type CameraConfig struct {
	// Enabled starts hand tracking with the service.
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	ID      int  `yaml:"id" env:"ID"`
	// MotionThreshold is the percentage of changed pixels that counts as motion.
	MotionThreshold float64 `yaml:"motionThreshold" env:"MOTION_THRESHOLD"`
	IdleFPS         int     `yaml:"idleFps" env:"IDLE_FPS"`
	ActiveFPS       int     `yaml:"activeFps" env:"ACTIVE_FPS"`
	// IdleTimeout is how long without motion before dropping to IdleFPS.
	IdleTimeout time.Duration `yaml:"idleTimeout" env:"IDLE_TIMEOUT"`
}

// HooksConfig locates the transition hooks.
type HooksConfig struct {
	// Dir holds one directory per hook. Empty means DataDir/hooks.
	Dir     string        `yaml:"dir" env:"DIR"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Addr:    ":8080",
		DataDir: defaultDataDir(),
		FPS:     60,
		Tray:    true,
		Camera: CameraConfig{
			Enabled:         true,
			MotionThreshold: 1.0,
			IdleFPS:         5,
			ActiveFPS:       15,
			IdleTimeout:     2 * time.Second,
		},
		Detector: detector.DefaultConfig(),
		Hooks:    HooksConfig{Timeout: 5 * time.Second},
		Gesture:  gesture.DefaultThresholds(),
		Scene:    particle.DefaultConfig(),
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gesturetree"
	}
	return filepath.Join(home, ".gesturetree")
}

// DefaultPath returns the config file looked for when none is given.
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.yaml")
}

// Load builds the configuration: defaults, then the YAML file at path if
// path is not empty, then environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration can be used.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.DataDir == "" {
		return errors.New("dataDir must not be empty")
	}
	if c.FPS < 1 || c.FPS > 240 {
		return fmt.Errorf("fps %d out of range 1-240", c.FPS)
	}

	if c.Camera.IdleFPS < 1 || c.Camera.ActiveFPS < c.Camera.IdleFPS {
		return fmt.Errorf("camera fps invalid: idle %d, active %d", c.Camera.IdleFPS, c.Camera.ActiveFPS)
	}
	if c.Camera.MotionThreshold < 0 {
		return errors.New("camera motionThreshold must not be negative")
	}
	if c.Camera.IdleTimeout <= 0 {
		return errors.New("camera idleTimeout must be positive")
	}

	if c.Detector.MaxHands < 1 {
		return errors.New("detector maxHands must be at least 1")
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("detector minConfidence %.2f out of range 0-1", c.Detector.MinConfidence)
	}

	if c.Hooks.Timeout <= 0 {
		return errors.New("hooks timeout must be positive")
	}

	g := c.Gesture
	if g.FistRatio <= 0 || g.OpenRatio <= g.FistRatio {
		return fmt.Errorf("gesture ratios invalid: fist %.2f must be positive and below open %.2f", g.FistRatio, g.OpenRatio)
	}
	if g.PinchDistance <= 0 {
		return errors.New("gesture pinchDistance must be positive")
	}

	if err := c.Scene.Validate(); err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	return nil
}

// DBPath returns the photo database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "gesturetree.db")
}

// HooksDir returns the directory scanned for transition hooks.
func (c *Config) HooksDir() string {
	if c.Hooks.Dir != "" {
		return c.Hooks.Dir
	}
	return filepath.Join(c.DataDir, "hooks")
}
