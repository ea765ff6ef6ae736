package render

import "github.com/go-gl/mathgl/mgl32"

// Material is a minimal surface description.
type Material struct {
	Base Color
}

// Light is an ambient term plus one directional light.
type Light struct {
	Ambient   mgl32.Vec3 // per-channel 0..1
	Dir       mgl32.Vec3 // direction the light travels
	DirAmount float32    // 0..1
	Enabled   bool
}

// Projection selects the camera projection.
type Projection uint8

const (
	Perspective Projection = iota
	Orthographic
)

// Camera describes the viewing transform.
type Camera struct {
	Projection Projection

	Eye    mgl32.Vec3
	Target mgl32.Vec3
	Up     mgl32.Vec3

	FovY      float32 // radians, perspective only
	OrthoSize float32 // half-height, orthographic only

	Near float32
	Far  float32
}

// View returns the camera view matrix.
func (c Camera) View() mgl32.Mat4 {
	up := c.Up
	if up == (mgl32.Vec3{}) {
		up = mgl32.Vec3{0, 1, 0}
	}
	return mgl32.LookAtV(c.Eye, c.Target, up)
}

// ProjectionMatrix returns the projection for a target aspect ratio.
func (c Camera) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	if aspect == 0 {
		aspect = 1
	}
	switch c.Projection {
	case Orthographic:
		size := c.OrthoSize
		if size == 0 {
			size = 1
		}
		return mgl32.Ortho(-size*aspect, size*aspect, -size, size, c.Near, c.Far)
	default:
		fov := c.FovY
		if fov == 0 {
			fov = 1
		}
		return mgl32.Perspective(fov, aspect, c.Near, c.Far)
	}
}

// Vertex is a mesh vertex.
type Vertex struct {
	Pos   mgl32.Vec3
	Color Color
}

// Mesh is an indexed triangle list with an object transform.
type Mesh struct {
	Name    string
	Enabled bool

	Vertices []Vertex
	Indices  []uint16

	Transform mgl32.Mat4
	Material  Material
}

// Scene is a fixed-capacity set of meshes plus camera and light.
type Scene struct {
	Camera Camera
	Light  Light

	meshes []Mesh
	alive  []bool
	count  int
}

// NewScene allocates a scene holding at most maxMeshes meshes.
func NewScene(maxMeshes int) *Scene {
	if maxMeshes < 0 {
		maxMeshes = 0
	}
	return &Scene{
		Camera: Camera{
			Projection: Perspective,
			Eye:        mgl32.Vec3{0, 0, 3},
			Up:         mgl32.Vec3{0, 1, 0},
			FovY:       mgl32.DegToRad(60),
			OrthoSize:  1,
			Near:       0.5,
			Far:        4000,
		},
		Light: Light{
			Ambient:   mgl32.Vec3{0.4, 0.4, 0.4},
			Dir:       mgl32.Vec3{-1, -1, -1}.Normalize(),
			DirAmount: 0.6,
			Enabled:   true,
		},
		meshes: make([]Mesh, maxMeshes),
		alive:  make([]bool, maxMeshes),
	}
}

// AddMesh stores m and returns its id, or -1 when the scene is full.
func (s *Scene) AddMesh(m Mesh) int {
	if s == nil {
		return -1
	}
	for i := range s.meshes {
		if s.alive[i] {
			continue
		}
		if m.Transform == (mgl32.Mat4{}) {
			m.Transform = mgl32.Ident4()
		}
		if m.Material.Base == (Color{}) {
			m.Material.Base = RGB(0xCC, 0xCC, 0xCC)
		}
		m.Enabled = true
		s.meshes[i] = m
		s.alive[i] = true
		s.count++
		return i
	}
	return -1
}

// RemoveMesh frees a mesh slot.
func (s *Scene) RemoveMesh(id int) {
	if !s.valid(id) {
		return
	}
	s.alive[id] = false
	s.meshes[id] = Mesh{}
	s.count--
}

// SetMeshEnabled toggles drawing of a mesh.
func (s *Scene) SetMeshEnabled(id int, enabled bool) {
	if !s.valid(id) {
		return
	}
	s.meshes[id].Enabled = enabled
}

// SetTransform replaces a mesh's object transform.
func (s *Scene) SetTransform(id int, m mgl32.Mat4) {
	if !s.valid(id) {
		return
	}
	s.meshes[id].Transform = m
}

// SetGeometry replaces a mesh's vertices and indices in place.
func (s *Scene) SetGeometry(id int, vertices []Vertex, indices []uint16) {
	if !s.valid(id) {
		return
	}
	s.meshes[id].Vertices = vertices
	s.meshes[id].Indices = indices
}

// Mesh returns a copy of a mesh.
func (s *Scene) Mesh(id int) (Mesh, bool) {
	if !s.valid(id) {
		return Mesh{}, false
	}
	return s.meshes[id], true
}

// Len returns the number of live meshes.
func (s *Scene) Len() int { return s.count }

// Cap returns the mesh capacity.
func (s *Scene) Cap() int { return len(s.meshes) }

func (s *Scene) valid(id int) bool {
	return s != nil && id >= 0 && id < len(s.meshes) && s.alive[id]
}

func (s *Scene) eachMesh(fn func(m *Mesh)) {
	for i := range s.meshes {
		if s.alive[i] {
			fn(&s.meshes[i])
		}
	}
}
