package particle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
)

// Color is a linear RGB triple in [0, 1].
type Color struct {
	R, G, B float32
}

// ParseColor parses #rrggbb.
func ParseColor(hex string) (Color, error) {
	s := strings.TrimPrefix(hex, "#")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("invalid colour %q", hex)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	return Color{
		R: float32(v>>16&0xff) / 255,
		G: float32(v>>8&0xff) / 255,
		B: float32(v&0xff) / 255,
	}, nil
}

// Hex formats c as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float32) uint8 {
	return uint8(math32.Round(clamp01(v) * 255))
}

// HSL builds a colour from hue, saturation and lightness, all in [0, 1].
func HSL(h, s, l float32) Color {
	if s == 0 {
		return Color{l, l, l}
	}
	var q float32
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return Color{
		R: hueToRGB(p, q, h+1.0/3),
		G: hueToRGB(p, q, h),
		B: hueToRGB(p, q, h-1.0/3),
	}
}

func hueToRGB(p, q, t float32) float32 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
