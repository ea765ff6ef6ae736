// Package scene keeps a drawable mesh set in step with the region tracker and
// renders it once per frame.
//
// Scene construction happens in betweenframe work items and drawing happens in
// RenderOneFrame. Both run on the render goroutine, so the mesh set itself is
// not locked; MapRegion and UpdateTerrain may be called from anywhere.
package scene

import (
	"io"
	"log/slog"
	"worldview/engine/betweenframe"
	"worldview/engine/overlay"
	"worldview/engine/region"
	"worldview/engine/render"
	"worldview/engine/stats"
	"worldview/hal"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Stat names written by the scene.
const (
	StatRegionsMapped  = "scene.regions_mapped"
	StatMeshes         = "scene.meshes"
	StatTriangles      = "scene.triangles"
	StatTerrainUpdates = "scene.terrain_updates"
	StatTerrainDropped = "scene.terrain_dropped"
	StatSceneFull      = "scene.full"
)

// Config holds scene tuning. Zero fields take defaults.
type Config struct {
	Magnification     float32
	MeshResolution    int // max grid cells per terrain side
	MaxMeshes         int
	MapRegionCost     int
	UpdateTerrainCost int
	MaxTerrainRetries int

	Mode       render.Mode
	Ambient    mgl32.Vec3
	ClearColor render.Color
	Ground     render.Color
	Water      render.Color
	TerrainLow render.Color
	TerrainHi  render.Color
}

// DefaultConfig returns the defaults applied to zero Config fields.
func DefaultConfig() Config {
	return Config{
		Magnification:     1,
		MeshResolution:    16,
		MaxMeshes:         256,
		MapRegionCost:     50,
		UpdateTerrainCost: 50,
		MaxTerrainRetries: 100,
		Mode:              render.SolidVertexColor,
		Ambient:           mgl32.Vec3{0.4, 0.4, 0.4},
		ClearColor:        render.RGB(0x10, 0x18, 0x28),
		Ground:            render.RGB(0x55, 0x77, 0x44),
		Water:             render.RGB(0x22, 0x55, 0xAA),
		TerrainLow:        render.RGB(0x33, 0x66, 0x22),
		TerrainHi:         render.RGB(0xDD, 0xDD, 0xCC),
	}
}

func (c *Config) setDefaults() {
	d := DefaultConfig()
	if c.Magnification <= 0 {
		c.Magnification = d.Magnification
	}
	if c.MeshResolution <= 0 {
		c.MeshResolution = d.MeshResolution
	}
	c.MeshResolution = min(max(c.MeshResolution, 1), 128)
	if c.MaxMeshes <= 0 {
		c.MaxMeshes = d.MaxMeshes
	}
	if c.MapRegionCost <= 0 {
		c.MapRegionCost = d.MapRegionCost
	}
	if c.UpdateTerrainCost <= 0 {
		c.UpdateTerrainCost = d.UpdateTerrainCost
	}
	if c.MaxTerrainRetries <= 0 {
		c.MaxTerrainRetries = d.MaxTerrainRetries
	}
	if c.Ambient == (mgl32.Vec3{}) {
		c.Ambient = d.Ambient
	}
	zero := render.Color{}
	if c.ClearColor == zero {
		c.ClearColor = d.ClearColor
	}
	if c.Ground == zero {
		c.Ground = d.Ground
	}
	if c.Water == zero {
		c.Water = d.Water
	}
	if c.TerrainLow == zero {
		c.TerrainLow = d.TerrainLow
	}
	if c.TerrainHi == zero {
		c.TerrainHi = d.TerrainHi
	}
}

// node is the scene-side state of one mapped region. Mesh ids are -1 when
// absent.
type node struct {
	region     *region.Region
	ground     int
	water      int
	terrain    int
	terrainRev uint64
}

func (n *node) meshes() []int {
	out := make([]int, 0, 3)
	for _, id := range []int{n.ground, n.water, n.terrain} {
		if id >= 0 {
			out = append(out, id)
		}
	}
	return out
}

// Scene is the frame.Renderer for the region world.
type Scene struct {
	cfg     Config
	tracker *region.Tracker
	queue   *betweenframe.Queue
	display hal.Display
	kbd     hal.Keyboard
	stats   stats.Sink
	log     *slog.Logger

	scene    *render.Scene
	renderer *render.Renderer
	orbit    render.OrbitController
	nodes    map[string]*node
	seenGen  uint64
	focus    string
	frames   uint64

	hud     *overlay.HUD
	console *overlay.Console
}

// New returns a scene drawing into disp. kbd may be nil.
func New(tr *region.Tracker, q *betweenframe.Queue, disp hal.Display, kbd hal.Keyboard, cfg Config, sink stats.Sink, log *slog.Logger) *Scene {
	cfg.setDefaults()
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	rs := render.NewScene(cfg.MaxMeshes)
	rs.Light.Ambient = cfg.Ambient
	r := render.NewRenderer(true)
	r.Mode = cfg.Mode
	r.ClearColor = cfg.ClearColor

	s := &Scene{
		cfg:      cfg,
		tracker:  tr,
		queue:    q,
		display:  disp,
		kbd:      kbd,
		stats:    stats.OrDiscard(sink),
		log:      log,
		scene:    rs,
		renderer: r,
		nodes:    make(map[string]*node),
	}
	s.resetOrbit(256, 256)
	return s
}

// SetHUD attaches a HUD drawn after the scene.
func (s *Scene) SetHUD(h *overlay.HUD) { s.hud = h }

// SetConsole attaches a console drawn after the HUD.
func (s *Scene) SetConsole(c *overlay.Console) { s.console = c }

// Mode returns the current rasterization mode.
func (s *Scene) Mode() render.Mode { return s.renderer.Mode }

// Frames returns the number of frames presented.
func (s *Scene) Frames() uint64 { return s.frames }

// Meshes returns the number of live meshes.
func (s *Scene) Meshes() int { return s.scene.Len() }

// Triangles returns the triangle count of the last frame.
func (s *Scene) Triangles() int { return s.renderer.Triangles() }

// Mapped returns the number of regions with a scene node.
func (s *Scene) Mapped() int { return len(s.nodes) }

// Camera returns the current camera.
func (s *Scene) Camera() render.Camera { return s.scene.Camera }

// MapRegion schedules creation of the named region's scene node.
func (s *Scene) MapRegion(name string) {
	s.queue.SubmitFunc(betweenframe.KindMapRegion, s.cfg.MapRegionCost, func() {
		s.mapRegion(name)
	})
}

// UpdateTerrain schedules a rebuild of the named region's terrain mesh.
func (s *Scene) UpdateTerrain(name string) {
	s.submitTerrain(name, 0)
}

func (s *Scene) submitTerrain(name string, attempt int) {
	s.queue.SubmitFunc(betweenframe.KindUpdateTerrain, s.cfg.UpdateTerrainCost, func() {
		s.updateTerrain(name, attempt)
	})
}

func (s *Scene) mapRegion(name string) {
	if _, ok := s.nodes[name]; ok {
		return
	}
	r, ok := s.tracker.FindRegion(name)
	if !ok {
		s.log.Warn("scene: map of unknown region", "name", name)
		return
	}

	n := &node{region: r, ground: -1, water: -1, terrain: -1}
	verts, idx := planeMesh(r.SizeX(), r.SizeY(), 0, s.cfg.Ground)
	n.ground = s.addMesh(render.Mesh{
		Name:     meshName("RegionGround", name),
		Vertices: verts,
		Indices:  idx,
		Material: render.Material{Base: s.cfg.Ground},
	})
	if r.HasWater() {
		verts, idx := planeMesh(r.SizeX(), r.SizeY(), r.WaterHeight(), s.cfg.Water)
		n.water = s.addMesh(render.Mesh{
			Name:     meshName("Water", name),
			Vertices: verts,
			Indices:  idx,
			Material: render.Material{Base: s.cfg.Water},
		})
	}
	s.nodes[name] = n
	s.place(n)
	s.stats.SetStat(StatRegionsMapped, int64(len(s.nodes)))
	s.log.Debug("scene: region mapped", "name", name, "water", r.HasWater())

	// Terrain may have arrived before the node existed.
	if r.Terrain().Revision > 0 {
		s.UpdateTerrain(name)
	}
}

func (s *Scene) updateTerrain(name string, attempt int) {
	n, ok := s.nodes[name]
	if !ok {
		if attempt >= s.cfg.MaxTerrainRetries {
			s.stats.IncStat(StatTerrainDropped)
			s.log.Warn("scene: terrain dropped, region never mapped", "name", name, "attempts", attempt)
			return
		}
		s.log.Debug("scene: waiting for region root", "name", name)
		s.submitTerrain(name, attempt+1)
		return
	}

	t := n.region.Terrain()
	if t.Revision == 0 || (n.terrain >= 0 && t.Revision == n.terrainRev) {
		return
	}
	verts, idx := terrainMesh(t, n.region.SizeX(), n.region.SizeY(), s.cfg.MeshResolution, s.cfg.TerrainLow, s.cfg.TerrainHi)
	if len(verts) == 0 {
		s.log.Warn("scene: terrain cannot be meshed", "name", name, "width", t.Width, "length", t.Length)
		return
	}

	if n.terrain >= 0 {
		s.scene.SetGeometry(n.terrain, verts, idx)
	} else {
		n.terrain = s.addMesh(render.Mesh{
			Name:     meshName("RegionTerrain", name),
			Vertices: verts,
			Indices:  idx,
			Material: render.Material{Base: s.cfg.TerrainLow.Lerp(s.cfg.TerrainHi, 0.5)},
		})
		if n.terrain < 0 {
			return
		}
		s.place(n)
	}
	n.terrainRev = t.Revision
	s.scene.SetMeshEnabled(n.ground, false)
	s.stats.IncStat(StatTerrainUpdates)
	s.log.Debug("scene: terrain built", "name", name, "revision", t.Revision, "vertices", len(verts))
}

func (s *Scene) addMesh(m render.Mesh) int {
	id := s.scene.AddMesh(m)
	if id < 0 {
		s.stats.IncStat(StatSceneFull)
		s.log.Warn("scene: mesh capacity reached", "mesh", m.Name, "capacity", s.scene.Cap())
		return -1
	}
	s.stats.SetStat(StatMeshes, int64(s.scene.Len()))
	return id
}

func meshName(kind, region string) string {
	return kind + "/" + region + "/" + uuid.NewString()
}

// place sets the transform of every mesh of n from its region's local position.
func (s *Scene) place(n *node) {
	mag := s.cfg.Magnification
	pos := toRender(n.region.Local()).Mul(mag)
	m := mgl32.Translate3D(pos[0], pos[1], pos[2]).Mul4(mgl32.Scale3D(mag, mag, mag))
	for _, id := range n.meshes() {
		s.scene.SetTransform(id, m)
	}
}

// sync re-places every node when the tracker has recomputed local
// positions since the last frame, and re-targets the camera on a new focus.
func (s *Scene) sync() {
	gen := s.tracker.Generation()
	if gen == s.seenGen {
		return
	}
	s.seenGen = gen
	for _, n := range s.nodes {
		s.place(n)
	}

	f, ok := s.tracker.FocusRegion()
	if !ok {
		return
	}
	mag := s.cfg.Magnification
	centre := f.Local().Add(mgl32.Vec3{f.SizeX() / 2, f.SizeY() / 2, 0})
	s.orbit.Target = toRender(centre).Mul(mag)
	if f.Name() != s.focus {
		s.focus = f.Name()
		s.resetOrbitRadius(f.SizeX(), f.SizeY())
	}
}

func (s *Scene) resetOrbit(sizeX, sizeY float32) {
	s.orbit.Yaw = 0
	s.orbit.Pitch = 0.6
	s.resetOrbitRadius(sizeX, sizeY)
}

func (s *Scene) resetOrbitRadius(sizeX, sizeY float32) {
	extent := max(sizeX, sizeY, 1) * s.cfg.Magnification
	s.orbit.Radius = extent * 1.5
	s.orbit.MinRadius = extent * 0.1
	s.orbit.MaxRadius = extent * 8
}

// RenderOneFrame draws one frame. It returns false once the display is gone
// or closed.
func (s *Scene) RenderOneFrame() bool {
	if s.display == nil || s.display.Closed() {
		return false
	}
	fb := s.display.Framebuffer()
	if fb == nil || fb.Format() != hal.PixelFormatRGB565 {
		s.log.Error("scene: no RGB565 framebuffer")
		return false
	}

	s.pollInput()
	s.sync()
	s.orbit.Apply(&s.scene.Camera)

	target := render.RGB565Target{Buf: fb.Buffer(), Stride: fb.StrideBytes(), W: fb.Width(), H: fb.Height()}
	s.renderer.Render(&target, s.scene)
	s.hud.Draw(fb)
	if s.console != nil {
		s.console.Draw(fb)
	}
	if err := fb.Present(); err != nil {
		s.log.Error("scene: present failed", "err", err)
		return false
	}

	s.frames++
	s.stats.SetStat(StatTriangles, int64(s.renderer.Triangles()))
	return true
}
