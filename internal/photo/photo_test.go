package photo

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/gesturetree/internal/geom"
)

type fixedPicker int

func (f fixedPicker) Pick(n int) int { return int(f) }

func TestSelect(t *testing.T) {
	photos := []Resource{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	t.Run("empty list", func(t *testing.T) {
		_, ok := Select(fixedPicker(0), nil)
		assert.False(t, ok)
	})

	t.Run("picked index", func(t *testing.T) {
		id, ok := Select(fixedPicker(2), photos)
		require.True(t, ok)
		assert.Equal(t, "c", id)
	})

	t.Run("out of range pick falls back to first", func(t *testing.T) {
		id, ok := Select(fixedPicker(9), photos)
		require.True(t, ok)
		assert.Equal(t, "a", id)
	})
}

func TestRandomPicker_Uniform(t *testing.T) {
	p := NewRandomPicker(rand.New(rand.NewPCG(1, 2)))

	const n, draws = 4, 8000
	counts := make([]int, n)
	for i := 0; i < draws; i++ {
		k := p.Pick(n)
		require.GreaterOrEqual(t, k, 0)
		require.Less(t, k, n)
		counts[k]++
	}
	for i, c := range counts {
		assert.InDelta(t, draws/n, c, draws/n*0.1, "bucket %d", i)
	}
}

func TestZoom_DefaultCamera(t *testing.T) {
	pos, rot := DefaultZoom().Target(DefaultCamera())

	assert.InDelta(t, 0, pos.X, 1e-5)
	assert.InDelta(t, 4, pos.Y, 1e-5)
	assert.InDelta(t, 14, pos.Z, 1e-5)
	assert.InDelta(t, 0, rot.Angle(geom.Identity()), 1e-3)
}

func TestZoom_FollowsCamera(t *testing.T) {
	cam := Camera{Position: geom.V3(10, 0, 0), LookAt: geom.V3(0, 0, 0)}
	z := Zoom{Distance: 4, Scale: 2}

	pos, rot := z.Target(cam)
	assert.InDelta(t, 6, pos.X, 1e-5)
	assert.InDelta(t, 0, pos.Z, 1e-5)

	// +Z face should now point back at the camera, i.e. along +X.
	conj := geom.Quat{X: -rot.X, Y: -rot.Y, Z: -rot.Z, W: rot.W}
	n := rot.Mul(geom.Quat{Z: 1}).Mul(conj)
	assert.InDelta(t, 1, n.X, 1e-4)
	assert.InDelta(t, 0, n.Y, 1e-4)
	assert.InDelta(t, 0, n.Z, 1e-4)
}

func TestCamera_DegenerateForward(t *testing.T) {
	c := Camera{Position: geom.V3(1, 1, 1), LookAt: geom.V3(1, 1, 1)}
	assert.Equal(t, geom.V3(0, 0, -1), c.Forward())
}

func TestCamera_Validate(t *testing.T) {
	assert.NoError(t, DefaultCamera().Validate())

	c := DefaultCamera()
	c.FOV = 0
	assert.ErrorIs(t, c.Validate(), ErrInvalidCamera)

	c = DefaultCamera()
	c.FOV = 180
	assert.ErrorIs(t, c.Validate(), ErrInvalidCamera)

	c = DefaultCamera()
	c.LookAt = c.Position
	assert.ErrorIs(t, c.Validate(), ErrInvalidCamera)
}
