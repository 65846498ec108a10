package particle

import (
	"errors"
	"fmt"

	"github.com/ayusman/gesturetree/internal/photo"
)

// Shape is the tuning of one population: how many objects, the cone they
// form in FORMED, the sphere they scatter into in CHAOS, and how fast they
// move between the two.
type Shape struct {
	Count       int     `yaml:"count"`
	Height      float32 `yaml:"height"`
	Radius      float32 `yaml:"radius"`
	YOffset     float32 `yaml:"yOffset"`
	ChaosRadius float32 `yaml:"chaosRadius"`
	// LerpRate is the fraction of the remaining distance covered per second.
	LerpRate float32 `yaml:"lerpRate"`
	// IdleSpin is the group yaw rate in radians per second outside chaos.
	IdleSpin float32 `yaml:"idleSpin"`
}

// StarConfig places the tree-top star.
type StarConfig struct {
	FormedY  float32 `yaml:"formedY"`
	ChaosY   float32 `yaml:"chaosY"`
	Spin     float32 `yaml:"spin"`
	LerpRate float32 `yaml:"lerpRate"`
}

// Config is the scene tuning consumed by New.
type Config struct {
	// Seed fixes the random layout. Zero picks a fresh layout each run.
	Seed uint64 `yaml:"seed"`

	Foliage Shape      `yaml:"foliage"`
	Boxes   Shape      `yaml:"boxes"`
	Baubles Shape      `yaml:"baubles"`
	Photos  Shape      `yaml:"photos"`
	Star    StarConfig `yaml:"star"`

	// Palette is the ornament colours as #rrggbb. Boxes use the first three.
	Palette []string `yaml:"palette"`

	Zoom   photo.Zoom   `yaml:"zoom"`
	Camera photo.Camera `yaml:"camera"`
}

// DefaultConfig returns the stock scene.
func DefaultConfig() Config {
	return Config{
		Foliage: Shape{Count: 3500, Height: 12, Radius: 5, YOffset: -5, ChaosRadius: 15, LerpRate: 2.5, IdleSpin: 0.1},
		Boxes:   Shape{Count: 80, Height: 11, Radius: 4.5, YOffset: -5, ChaosRadius: 12, LerpRate: 2, IdleSpin: 0.05},
		Baubles: Shape{Count: 120, Height: 12, Radius: 5.2, YOffset: -5, ChaosRadius: 14, LerpRate: 2.4, IdleSpin: 0.05},
		Photos:  Shape{Height: 10, Radius: 5, YOffset: -5, ChaosRadius: 8, LerpRate: 3},
		Star:    StarConfig{FormedY: 7.5, ChaosY: 10, Spin: 1.5, LerpRate: 2},
		Palette: []string{"#D4AF37", "#8a0303", "#022D36", "#FFFFFF", "#C0C0C0"},
		Zoom:    photo.DefaultZoom(),
		Camera:  photo.DefaultCamera(),
	}
}

// Validate checks the tuning for values the engine cannot work with.
func (c Config) Validate() error {
	shapes := map[string]Shape{
		"foliage": c.Foliage,
		"boxes":   c.Boxes,
		"baubles": c.Baubles,
		"photos":  c.Photos,
	}
	for name, s := range shapes {
		if s.Count < 0 {
			return fmt.Errorf("%s: count must not be negative", name)
		}
		if s.Height <= 0 || s.Radius < 0 || s.ChaosRadius < 0 {
			return fmt.Errorf("%s: cone height must be positive and radii non-negative", name)
		}
		if s.LerpRate <= 0 {
			return fmt.Errorf("%s: lerp rate must be positive", name)
		}
	}
	if c.Star.LerpRate <= 0 {
		return errors.New("star: lerp rate must be positive")
	}
	if len(c.Palette) < 3 {
		return errors.New("palette needs at least three colours")
	}
	for _, hex := range c.Palette {
		if _, err := ParseColor(hex); err != nil {
			return err
		}
	}
	if c.Zoom.Smoothing <= 0 || c.Zoom.Smoothing > 1 {
		return errors.New("zoom smoothing must be in (0, 1]")
	}
	if c.Zoom.Scale <= 0 {
		return errors.New("zoom scale must be positive")
	}
	return nil
}
