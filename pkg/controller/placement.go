package controller

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/ritzau/flow-editor/pkg/model"
)

// DefaultViewport is used until the rendering surface reports its size
var DefaultViewport = Viewport{Width: 1280, Height: 720}

const (
	placementAttempts = 8
	placementNudge    = 20.0
)

// Viewport is the visible canvas size of the rendering surface
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Validate rejects empty, negative and non-finite viewports
func (v Viewport) Validate() error {
	if !(v.Width > 0 && v.Height > 0) || math.IsInf(v.Width, 0) || math.IsInf(v.Height, 0) {
		return fmt.Errorf("invalid viewport %gx%g", v.Width, v.Height)
	}
	return nil
}

// Placer picks on-screen positions for new nodes
type Placer struct {
	rng      *rand.Rand
	viewport Viewport
}

// NewPlacer creates a placer drawing from rng
func NewPlacer(rng *rand.Rand, viewport Viewport) *Placer {
	return &Placer{rng: rng, viewport: viewport}
}

// SetViewport changes the area new nodes are placed in
func (p *Placer) SetViewport(v Viewport) {
	p.viewport = v
}

// Viewport returns the current placement area
func (p *Placer) Viewport() Viewport {
	return p.viewport
}

// Place returns a whole-pixel point inside the viewport that no existing node occupies
func (p *Placer) Place(existing []model.Node) model.Position {
	taken := make(map[model.Position]bool, len(existing))
	for _, n := range existing {
		taken[n.Position] = true
	}

	var pos model.Position
	for range placementAttempts {
		pos = model.Position{
			X: math.Floor(p.rng.Float64() * p.viewport.Width),
			Y: math.Floor(p.rng.Float64() * p.viewport.Height),
		}
		if !taken[pos] {
			return pos
		}
	}

	// Crowded canvas: walk diagonally from the last candidate until free
	for taken[pos] {
		pos = pos.Add(model.Position{X: placementNudge, Y: placementNudge})
	}
	return pos
}
