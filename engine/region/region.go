// Package region tracks world regions and derives their focus-relative local
// coordinates.
//
// Global positions are float64 and authoritative. Local positions are float32
// and exist only so geometry near the focus keeps full single precision.
package region

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// NoWater marks a region without a water plane.
const NoWater float32 = -1

// MaxTerrainSide bounds each heightmap dimension.
const MaxTerrainSide = 4096

// Terrain is a heightmap sampled on a width × length grid, row-major by x.
type Terrain struct {
	Width    int
	Length   int
	Heights  []float32
	Revision uint64
}

// Valid reports whether both sides are within 1..MaxTerrainSide and Heights
// holds exactly Width*Length samples.
func (t Terrain) Valid() bool {
	if t.Width <= 0 || t.Length <= 0 || t.Width > MaxTerrainSide || t.Length > MaxTerrainSide {
		return false
	}
	return len(t.Heights) == t.Width*t.Length
}

// At returns the height at grid cell (x, y). Out-of-range cells read as 0.
func (t Terrain) At(x, y int) float32 {
	if x < 0 || y < 0 || x >= t.Width || y >= t.Length || y >= len(t.Heights)/t.Width {
		return 0
	}
	return t.Heights[y*t.Width+x]
}

// Region is a named, independently positioned piece of the world.
type Region struct {
	name        string
	global      mgl64.Vec3
	sizeX       float32
	sizeY       float32
	waterHeight float32

	mu      sync.RWMutex
	local   mgl32.Vec3
	terrain Terrain
}

func newRegion(name string, global mgl64.Vec3, sizeX, sizeY, waterHeight float32) *Region {
	return &Region{
		name:        name,
		global:      global,
		sizeX:       sizeX,
		sizeY:       sizeY,
		waterHeight: waterHeight,
	}
}

func (r *Region) Name() string         { return r.name }
func (r *Region) Global() mgl64.Vec3   { return r.global }
func (r *Region) SizeX() float32       { return r.sizeX }
func (r *Region) SizeY() float32       { return r.sizeY }
func (r *Region) WaterHeight() float32 { return r.waterHeight }
func (r *Region) HasWater() bool       { return r.waterHeight != NoWater }

// Local returns the position of the region relative to the current focus.
func (r *Region) Local() mgl32.Vec3 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.local
}

// Terrain returns the current heightmap. The Heights slice must not be modified.
func (r *Region) Terrain() Terrain {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.terrain
}

// recalculate stores global − focus. The subtraction happens in float64 and
// only the result is narrowed.
func (r *Region) recalculate(focus mgl64.Vec3) {
	d := r.global.Sub(focus)
	local := mgl32.Vec3{float32(d[0]), float32(d[1]), float32(d[2])}

	r.mu.Lock()
	r.local = local
	r.mu.Unlock()
}

func (r *Region) updateTerrain(width, length int, heights []float32) uint64 {
	hm := make([]float32, len(heights))
	copy(hm, heights)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.terrain = Terrain{
		Width:    width,
		Length:   length,
		Heights:  hm,
		Revision: r.terrain.Revision + 1,
	}
	return r.terrain.Revision
}
