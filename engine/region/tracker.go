package region

import (
	"io"
	"log/slog"
	"sort"
	"sync/atomic"
	"worldview/kernel"

	"github.com/go-gl/mathgl/mgl64"
)

// Tracker is the registry of known regions and the current focus.
//
// All methods are safe for concurrent use. The region map and the focus are
// guarded by one lock; region local coordinates are rewritten under that
// same lock so a recompute pass is never interleaved with another.
type Tracker struct {
	lock    *kernel.Lock
	regions map[string]*Region
	focus   *Region
	gen     atomic.Uint64
	log     *slog.Logger
}

// NewTracker returns an empty tracker. A nil logger discards diagnostics.
func NewTracker(log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Tracker{
		lock:    kernel.NewLock("RegionTracker"),
		regions: make(map[string]*Region),
		log:     log,
	}
}

// AddRegion registers a region. Adding a name that is already known is a
// no-op. A new region triggers a recompute of every region's local position.
func (t *Tracker) AddRegion(name string, gx, gy, gz float64, sizeX, sizeY, waterHeight float32) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if _, ok := t.regions[name]; ok {
		return
	}
	r := newRegion(name, mgl64.Vec3{gx, gy, gz}, sizeX, sizeY, waterHeight)
	t.regions[name] = r
	t.log.Debug("region: added", "name", name, "x", gx, "y", gy, "z", gz)
	t.recalculateLocked()
}

// FindRegion looks up a region by name.
func (t *Tracker) FindRegion(name string) (*Region, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	r, ok := t.regions[name]
	return r, ok
}

// UpdateTerrain replaces the heightmap of the named region. It reports whether
// the update was applied.
func (t *Tracker) UpdateTerrain(name string, width, length int, heights []float32) bool {
	r, ok := t.FindRegion(name)
	if !ok {
		t.log.Warn("region: terrain update for unknown region", "name", name)
		return false
	}
	if !(Terrain{Width: width, Length: length, Heights: heights}).Valid() {
		t.log.Warn("region: terrain size mismatch",
			"name", name, "width", width, "length", length, "samples", len(heights))
		return false
	}
	rev := r.updateTerrain(width, length, heights)
	t.log.Debug("region: terrain updated", "name", name, "revision", rev)
	return true
}

// SetFocusRegion makes the named region the focus and recomputes all local
// positions against it. An unknown name leaves the focus unchanged.
func (t *Tracker) SetFocusRegion(name string) bool {
	t.lock.Lock()
	defer t.lock.Unlock()

	r, ok := t.regions[name]
	if !ok {
		t.log.Warn("region: focus on unknown region", "name", name)
		return false
	}
	t.focus = r
	t.log.Info("region: focus set", "name", name)
	t.recalculateLocked()
	return true
}

// FocusRegion returns the current focus, if any.
func (t *Tracker) FocusRegion() (*Region, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.focus, t.focus != nil
}

// RecalculateLocalCoordinates recomputes every region against the focus.
// Without a focus it does nothing.
func (t *Tracker) RecalculateLocalCoordinates() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.recalculateLocked()
}

func (t *Tracker) recalculateLocked() {
	if t.focus == nil {
		return
	}
	origin := t.focus.global
	for _, r := range t.regions {
		r.recalculate(origin)
	}
	t.gen.Add(1)
}

// Regions returns a snapshot of all regions sorted by name.
func (t *Tracker) Regions() []*Region {
	t.lock.Lock()
	out := make([]*Region, 0, len(t.regions))
	for _, r := range t.regions {
		out = append(out, r)
	}
	t.lock.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Len returns the number of known regions.
func (t *Tracker) Len() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.regions)
}

// Generation increases after every recompute pass. Readers compare it with a
// previously seen value to know whether local positions moved.
func (t *Tracker) Generation() uint64 { return t.gen.Load() }
