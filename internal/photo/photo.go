// Package photo holds the photo resource type, the policy that picks which
// photo to zoom on, and the camera contract the zoom transform is computed
// against.
package photo

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/chewxy/math32"

	"github.com/ayusman/gesturetree/internal/geom"
)

// Resource is an uploaded photo as the scene sees it. The image itself is
// loaded by the renderer from URL.
type Resource struct {
	ID          string  `json:"id"`
	URL         string  `json:"url"`
	AspectRatio float32 `json:"aspectRatio"`
}

// Picker chooses one of n photos.
type Picker interface {
	// Pick returns an index in [0, n). n is always > 0.
	Pick(n int) int
}

// RandomPicker picks uniformly with no weighting and no repeat avoidance.
type RandomPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomPicker creates a picker drawing from rng. A nil rng uses an
// unseeded source.
func NewRandomPicker(rng *rand.Rand) *RandomPicker {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RandomPicker{rng: rng}
}

// Pick implements Picker.
func (p *RandomPicker) Pick(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}

// Select applies picker to resources and returns the chosen id. ok is false
// when there is nothing to choose from.
func Select(picker Picker, resources []Resource) (id string, ok bool) {
	if len(resources) == 0 {
		return "", false
	}
	i := picker.Pick(len(resources))
	if i < 0 || i >= len(resources) {
		i = 0
	}
	return resources[i].ID, true
}

// Camera is the renderer's viewpoint, in the same space as the particle
// targets. The renderer reports it so the zoomed photo lands in front of
// whatever camera is actually in use.
type Camera struct {
	Position geom.Vec3 `json:"position" yaml:"position"`
	LookAt   geom.Vec3 `json:"lookAt" yaml:"lookAt"`
	FOV      float32   `json:"fov" yaml:"fov"`
}

// DefaultCamera matches the stock renderer: at (0,4,20) looking down -Z.
func DefaultCamera() Camera {
	return Camera{
		Position: geom.V3(0, 4, 20),
		LookAt:   geom.V3(0, 4, 0),
		FOV:      50,
	}
}

// ErrInvalidCamera is returned by Validate.
var ErrInvalidCamera = errors.New("invalid camera")

// Validate rejects cameras without a view direction or with a field of view
// outside (0, 180) degrees.
func (c Camera) Validate() error {
	if c.FOV <= 0 || c.FOV >= 180 {
		return fmt.Errorf("%w: fov %.1f out of range", ErrInvalidCamera, c.FOV)
	}
	if c.LookAt.Sub(c.Position).Len() == 0 {
		return fmt.Errorf("%w: position equals lookAt", ErrInvalidCamera)
	}
	return nil
}

// Forward returns the unit view direction. A degenerate camera looks down -Z.
func (c Camera) Forward() geom.Vec3 {
	f := c.LookAt.Sub(c.Position)
	if f.Len() == 0 {
		return geom.V3(0, 0, -1)
	}
	return f.Normalize()
}

// Zoom describes where the active photo goes.
type Zoom struct {
	// Distance from the camera along its view direction.
	Distance float32 `yaml:"distance"`
	// Scale of the zoomed card.
	Scale float32 `yaml:"scale"`
	// Smoothing is the fixed per-frame interpolation factor used while
	// zoomed, independent of frame time, to damp hand jitter.
	Smoothing float32 `yaml:"smoothing"`
}

// DefaultZoom places the card six units in front of the camera at 2.2x.
func DefaultZoom() Zoom {
	return Zoom{Distance: 6, Scale: 2.2, Smoothing: 0.08}
}

// Target returns the zoomed card's position and a rotation that turns the
// card's +Z face toward the camera.
func (z Zoom) Target(c Camera) (geom.Vec3, geom.Quat) {
	f := c.Forward()
	pos := c.Position.Add(f.Scale(z.Distance))

	n := f.Scale(-1)
	yaw := math32.Atan2(n.X, n.Z)
	pitch := -math32.Asin(clamp(n.Y, -1, 1))
	return pos, geom.QuatFromYawPitch(yaw, pitch)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
