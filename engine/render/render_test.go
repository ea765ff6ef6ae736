package render

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTarget(w, h int) *RGB565Target {
	return &RGB565Target{Buf: make([]byte, w*h*2), Stride: w * 2, W: w, H: h}
}

func TestColorRGB565(t *testing.T) {
	assert.Equal(t, uint16(0xFFFF), RGB(255, 255, 255).RGB565())
	assert.Equal(t, uint16(0xF800), RGB(255, 0, 0).RGB565())
	assert.Equal(t, uint16(0x07E0), RGB(0, 255, 0).RGB565())
	assert.Equal(t, uint16(0x001F), RGB(0, 0, 255).RGB565())
}

func TestColorModulateAndLerp(t *testing.T) {
	c := RGB(200, 100, 50).Modulate(mgl32.Vec3{0.5, 1, 2})
	assert.Equal(t, RGB(100, 100, 50), c)

	assert.Equal(t, RGB(100, 0, 0), RGB(0, 0, 0).Lerp(RGB(200, 0, 0), 0.5))
	assert.Equal(t, RGB(255, 255, 255), ColorFromVec3(mgl32.Vec3{1, 1, 1}))
}

func TestTargetClearAndSetPixel(t *testing.T) {
	tg := newTarget(4, 3)
	tg.Clear(RGB(0, 0, 255))
	assert.Equal(t, uint16(0x001F), tg.Pixel(3, 2))

	tg.SetPixel(1, 1, RGB(255, 0, 0))
	assert.Equal(t, uint16(0xF800), tg.Pixel(1, 1))

	// Out of bounds writes are ignored.
	tg.SetPixel(-1, 0, RGB(255, 0, 0))
	tg.SetPixel(4, 0, RGB(255, 0, 0))
	assert.Equal(t, uint16(0), tg.Pixel(9, 9))
}

func TestSceneMeshLifecycle(t *testing.T) {
	s := NewScene(2)
	a := s.AddMesh(Mesh{Name: "a"})
	b := s.AddMesh(Mesh{Name: "b"})
	require.Equal(t, 0, a)
	require.Equal(t, 1, b)
	assert.Equal(t, -1, s.AddMesh(Mesh{Name: "c"}))
	assert.Equal(t, 2, s.Len())

	m, ok := s.Mesh(a)
	require.True(t, ok)
	assert.Equal(t, mgl32.Ident4(), m.Transform)
	assert.True(t, m.Enabled)

	s.SetTransform(a, mgl32.Translate3D(1, 2, 3))
	m, _ = s.Mesh(a)
	assert.Equal(t, mgl32.Translate3D(1, 2, 3), m.Transform)

	s.RemoveMesh(a)
	_, ok = s.Mesh(a)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 0, s.AddMesh(Mesh{Name: "c"}))
}

func quad(size float32, c Color) Mesh {
	return Mesh{
		Vertices: []Vertex{
			{Pos: mgl32.Vec3{-size, -size, 0}, Color: c},
			{Pos: mgl32.Vec3{size, -size, 0}, Color: c},
			{Pos: mgl32.Vec3{size, size, 0}, Color: c},
			{Pos: mgl32.Vec3{-size, size, 0}, Color: c},
		},
		Indices:  []uint16{0, 1, 2, 0, 2, 3},
		Material: Material{Base: c},
	}
}

func TestRenderDrawsQuadInCenter(t *testing.T) {
	tg := newTarget(32, 32)
	s := NewScene(4)
	s.Light.Enabled = false
	s.Camera.Eye = mgl32.Vec3{0, 0, 3}
	s.Camera.Target = mgl32.Vec3{}
	s.AddMesh(quad(0.5, RGB(255, 0, 0)))

	r := NewRenderer(true)
	r.Render(tg, s)

	assert.Equal(t, 2, r.Triangles())
	assert.Equal(t, uint16(0xF800), tg.Pixel(16, 16))
	assert.Equal(t, uint16(0), tg.Pixel(0, 0))
}

func TestRenderDepthKeepsNearest(t *testing.T) {
	tg := newTarget(32, 32)
	s := NewScene(4)
	s.Light.Enabled = false

	near := quad(0.5, RGB(0, 255, 0))
	near.Transform = mgl32.Translate3D(0, 0, 1)
	far := quad(0.5, RGB(255, 0, 0))
	s.AddMesh(near)
	s.AddMesh(far)

	NewRenderer(true).Render(tg, s)
	assert.Equal(t, uint16(0x07E0), tg.Pixel(16, 16))
}

func TestRenderDropsGeometryBehindCamera(t *testing.T) {
	tg := newTarget(16, 16)
	s := NewScene(1)
	m := quad(0.5, RGB(255, 0, 0))
	m.Transform = mgl32.Translate3D(0, 0, 10)
	s.AddMesh(m)

	r := NewRenderer(true)
	r.Render(tg, s)
	assert.Equal(t, 0, r.Triangles())
}

func TestRenderWireframeAndVertexColor(t *testing.T) {
	tg := newTarget(32, 32)
	s := NewScene(1)
	s.Light.Enabled = false
	s.AddMesh(quad(0.5, RGB(0, 0, 255)))

	r := NewRenderer(false)
	r.Mode = Wireframe
	r.Render(tg, s)
	assert.Equal(t, uint16(0), tg.Pixel(16, 16), "wireframe leaves the interior empty")

	r.Mode = SolidVertexColor
	r.Render(tg, s)
	assert.Equal(t, uint16(0x001F), tg.Pixel(16, 16))
}

func TestOrbitControllerDistance(t *testing.T) {
	c := OrbitController{Target: mgl32.Vec3{1, 2, 3}, Radius: 10, MinRadius: 2, MaxRadius: 50}
	var cam Camera

	c.Apply(&cam)
	assert.InDelta(t, 10, cam.Eye.Sub(c.Target).Len(), 1e-4)
	assert.InDelta(t, 13, cam.Eye[2], 1e-4, "yaw 0 sits on +Z")
	assert.Equal(t, c.Target, cam.Target)

	c.Rotate(0.5, 0.7)
	c.Zoom(100)
	c.Apply(&cam)
	assert.Equal(t, float32(50), c.Radius)
	assert.InDelta(t, 50, cam.Eye.Sub(c.Target).Len(), 1e-3)
	assert.Greater(t, cam.Eye[1], c.Target[1])

	c.Zoom(-1000)
	assert.Equal(t, float32(2), c.Radius)
}
