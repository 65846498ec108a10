// Package particle animates every object in the scene between its tree and
// chaos placements and encodes the result for the renderer.
package particle

import (
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/chewxy/math32"

	"github.com/ayusman/gesturetree/internal/geom"
	"github.com/ayusman/gesturetree/internal/photo"
	"github.com/ayusman/gesturetree/internal/scene"
)

// Population names as they appear in frames and layouts.
const (
	Foliage = "foliage"
	Boxes   = "boxes"
	Baubles = "baubles"
	Star    = "star"
	Photos  = "photos"
)

// Engine owns all per-object state. Update and Encode must be called from a
// single goroutine, the frame loop. AddPhoto, RemovePhoto, SetCamera and
// Layout are safe from any goroutine.
type Engine struct {
	cfg   Config
	state *scene.State
	rng   *rand.Rand

	pops   []*Population
	photos *Population

	camera atomic.Pointer[photo.Camera]
	layout atomic.Pointer[Layout]

	inboxMu sync.Mutex
	inbox   []photoOp

	// last frame, for Encode
	mode    scene.Mode
	gesture uint8
	elapsed float32
	version uint64
}

type photoOp struct {
	add    bool
	res    photo.Resource
	remove string
}

// New builds every population from cfg. Targets are sampled once here and
// never change.
func New(cfg Config, state *scene.State) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scene config: %w", err)
	}

	palette := make([]Color, len(cfg.Palette))
	for i, hex := range cfg.Palette {
		palette[i], _ = ParseColor(hex)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	e := &Engine{cfg: cfg, state: state, rng: rng}
	cam := cfg.Camera
	e.camera.Store(&cam)

	foliage := newPopulation(&kind{
		name: Foliage, rate: cfg.Foliage.LerpRate, spin: cfg.Foliage.IdleSpin,
		trackHand: true, resolve: resolveFoliage, breath: breatheFoliage,
	}, cfg.Foliage.Count)
	for range cfg.Foliage.Count {
		c := HSL(0.35+rng.Float32()*0.1, 0.8, 0.1+rng.Float32()*0.2)
		size := rng.Float32()*0.15 + 0.05
		tree := e.cone(cfg.Foliage)
		foliage.add(tree, e.sphere(cfg.Foliage), tree, geom.Euler{}, size, c, size)
	}

	boxes := newPopulation(&kind{
		name: Boxes, rate: cfg.Boxes.LerpRate, spin: cfg.Boxes.IdleSpin,
		trackHand: true, resolve: resolveBox,
	}, cfg.Boxes.Count)
	for range cfg.Boxes.Count {
		rot := geom.Euler{X: rng.Float32() * math32.Pi, Y: rng.Float32() * math32.Pi, Z: rng.Float32() * math32.Pi}
		scale := rng.Float32()*0.4 + 0.3
		tree := e.cone(cfg.Boxes)
		boxes.add(tree, e.sphere(cfg.Boxes), tree, rot, scale, palette[rng.IntN(3)], scale)
	}

	baubles := newPopulation(&kind{
		name: Baubles, rate: cfg.Baubles.LerpRate, spin: cfg.Baubles.IdleSpin,
		trackHand: true, resolve: resolveBauble,
	}, cfg.Baubles.Count)
	for range cfg.Baubles.Count {
		scale := rng.Float32()*0.25 + 0.15
		tree := e.cone(cfg.Baubles)
		baubles.add(tree, e.sphere(cfg.Baubles), tree, geom.Euler{}, scale, palette[rng.IntN(len(palette))], scale)
	}

	star := newPopulation(&kind{name: Star, rate: cfg.Star.LerpRate, resolve: resolveStar}, 1)
	star.selfSpin = cfg.Star.Spin
	top := geom.V3(0, cfg.Star.FormedY, 0)
	star.add(top, geom.V3(0, cfg.Star.ChaosY, 0), top, geom.Euler{}, 1, palette[0], 1)

	e.photos = newPopulation(&kind{
		name: Photos, rate: cfg.Photos.LerpRate, resolve: resolvePhoto, breath: bobPhoto,
	}, 0)

	e.pops = []*Population{foliage, boxes, baubles, star, e.photos}
	e.publishLayout()
	return e, nil
}

func (e *Engine) cone(s Shape) geom.Vec3 {
	return geom.ConePoint(e.rng, s.Height, s.Radius, s.YOffset)
}

func (e *Engine) sphere(s Shape) geom.Vec3 {
	return geom.SpherePoint(e.rng, s.ChaosRadius)
}

// Populations returns the populations in frame order.
func (e *Engine) Populations() []*Population { return e.pops }

// Population returns the population called name, or nil.
func (e *Engine) Population(name string) *Population {
	for _, p := range e.pops {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// Camera returns the camera the zoom target is computed against.
func (e *Engine) Camera() photo.Camera { return *e.camera.Load() }

// SetCamera updates the renderer's camera.
func (e *Engine) SetCamera(c photo.Camera) { e.camera.Store(&c) }

// AddPhoto queues a photo card. It appears on the next Update.
func (e *Engine) AddPhoto(r photo.Resource) {
	e.inboxMu.Lock()
	e.inbox = append(e.inbox, photoOp{add: true, res: r})
	e.inboxMu.Unlock()
}

// RemovePhoto queues removal of a photo card.
func (e *Engine) RemovePhoto(id string) {
	e.inboxMu.Lock()
	e.inbox = append(e.inbox, photoOp{remove: id})
	e.inboxMu.Unlock()
}

func (e *Engine) drain() {
	e.inboxMu.Lock()
	ops := e.inbox
	e.inbox = nil
	e.inboxMu.Unlock()

	if len(ops) == 0 {
		return
	}
	for _, op := range ops {
		if op.add {
			e.photos.addPhoto(op.res, e.rng, e.cfg.Photos)
			continue
		}
		if !e.photos.removePhoto(op.remove) {
			log.Printf("Scene: photo %s not in scene", op.remove)
		}
	}
	e.publishLayout()
}

// Update advances every population by delta seconds. elapsed is the time
// since the scene started and drives the idle motion. A non-positive delta
// leaves everything in place.
func (e *Engine) Update(delta, elapsed float32) {
	e.drain()
	if delta <= 0 {
		return
	}

	mode := e.state.Mode()
	f := frame{
		mode:    mode,
		hand:    float32(e.state.HandRotation()),
		delta:   delta,
		elapsed: elapsed,
	}
	if mode == scene.ModePhotoZoom {
		f.active = e.state.ActivePhotoID()
		f.zoomPos, f.zoomRot = e.cfg.Zoom.Target(e.Camera())
		f.zoomScale = e.cfg.Zoom.Scale
		f.zoomAlpha = e.cfg.Zoom.Smoothing
	}

	for _, p := range e.pops {
		p.update(&f)
	}

	e.mode = mode
	e.gesture = uint8(e.state.Gesture())
	e.elapsed = elapsed
}

// Layout describes the static side of the scene: which populations exist,
// how many objects each has and what they look like.
type Layout struct {
	Version     uint64             `json:"version"`
	Populations []PopulationLayout `json:"populations"`
}

// PopulationLayout is one population's entry in a Layout.
type PopulationLayout struct {
	Name   string           `json:"name"`
	Count  int              `json:"count"`
	Colors []string         `json:"colors,omitempty"`
	Scales []float32        `json:"scales,omitempty"`
	Photos []photo.Resource `json:"photos,omitempty"`
}

// Layout returns the latest layout. It changes whenever photos are added or
// removed.
func (e *Engine) Layout() *Layout { return e.layout.Load() }

func (e *Engine) publishLayout() {
	e.version++
	l := &Layout{Version: e.version, Populations: make([]PopulationLayout, len(e.pops))}
	for i, p := range e.pops {
		pl := PopulationLayout{Name: p.Name(), Count: p.Len()}
		if p == e.photos {
			pl.Photos = append([]photo.Resource(nil), p.photos...)
		} else {
			pl.Colors = make([]string, len(p.color))
			for j, c := range p.color {
				pl.Colors[j] = c.Hex()
			}
			pl.Scales = append([]float32(nil), p.base...)
		}
		l.Populations[i] = pl
	}
	e.layout.Store(l)
}
