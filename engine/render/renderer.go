package render

import "github.com/go-gl/mathgl/mgl32"

// Renderer rasterizes a Scene. Create it once and reuse it.
type Renderer struct {
	Mode       Mode
	Depth      bool
	ClearColor Color

	depthBuf  []float32
	triangles int
}

// NewRenderer returns a renderer with an optional depth buffer.
func NewRenderer(depth bool) *Renderer {
	return &Renderer{
		Mode:       SolidFlat,
		Depth:      depth,
		ClearColor: RGB(0, 0, 0),
	}
}

// Triangles returns how many triangles reached rasterization in the last
// Render call.
func (r *Renderer) Triangles() int { return r.triangles }

func (r *Renderer) sizeDepth(w, h int) {
	if !r.Depth {
		r.depthBuf = nil
		return
	}
	if cap(r.depthBuf) < w*h {
		r.depthBuf = make([]float32, w*h)
	}
	r.depthBuf = r.depthBuf[:w*h]
	for i := range r.depthBuf {
		r.depthBuf[i] = 1
	}
}

// Render clears t and draws every enabled mesh of s.
func (r *Renderer) Render(t Target, s *Scene) {
	if r == nil {
		return
	}
	r.triangles = 0
	if t == nil || s == nil {
		return
	}
	w, h := t.Size()
	if w <= 0 || h <= 0 {
		return
	}
	t.Clear(r.ClearColor)
	r.sizeDepth(w, h)

	vp := s.Camera.ProjectionMatrix(float32(w) / float32(h)).Mul4(s.Camera.View())
	s.eachMesh(func(m *Mesh) {
		if m.Enabled {
			r.renderMesh(t, w, h, vp, m, s.Light)
		}
	})
}

func (r *Renderer) renderMesh(t Target, w, h int, vp mgl32.Mat4, m *Mesh, light Light) {
	if len(m.Vertices) == 0 || len(m.Indices) < 3 {
		return
	}
	mvp := vp.Mul4(m.Transform)

	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0, i1, i2 := int(m.Indices[i]), int(m.Indices[i+1]), int(m.Indices[i+2])
		if i0 >= len(m.Vertices) || i1 >= len(m.Vertices) || i2 >= len(m.Vertices) {
			continue
		}
		v0, v1, v2 := m.Vertices[i0], m.Vertices[i1], m.Vertices[i2]

		// Triangles touching the camera plane are dropped rather than clipped.
		p0, ok0 := project(mvp, v0.Pos, w, h)
		p1, ok1 := project(mvp, v1.Pos, w, h)
		p2, ok2 := project(mvp, v2.Pos, w, h)
		if !ok0 || !ok1 || !ok2 {
			continue
		}
		r.triangles++

		base := m.Material.Base
		c0, c1, c2 := v0.Color, v1.Color, v2.Color
		if light.Enabled {
			k := shade(light, triangleNormal(m.Transform, v0.Pos, v1.Pos, v2.Pos))
			base = base.Modulate(k)
			c0, c1, c2 = c0.Modulate(k), c1.Modulate(k), c2.Modulate(k)
		}

		switch r.Mode {
		case Wireframe:
			drawLine(t, p0.x, p0.y, p1.x, p1.y, base)
			drawLine(t, p1.x, p1.y, p2.x, p2.y, base)
			drawLine(t, p2.x, p2.y, p0.x, p0.y, base)
		case SolidVertexColor:
			r.fill(t, w, h, [3]screenPoint{p0, p1, p2}, [3]Color{c0, c1, c2}, true)
		default:
			r.fill(t, w, h, [3]screenPoint{p0, p1, p2}, [3]Color{base, base, base}, false)
		}
	}
}

type screenPoint struct {
	x, y int
	z    float32 // depth in 0..1
}

func project(mvp mgl32.Mat4, p mgl32.Vec3, w, h int) (screenPoint, bool) {
	c := mvp.Mul4x1(p.Vec4(1))
	if c[3] <= 1e-6 {
		return screenPoint{}, false
	}
	ndc := c.Vec3().Mul(1 / c[3])
	if ndc[2] < -1 || ndc[2] > 1 {
		return screenPoint{}, false
	}
	sx := (ndc[0]*0.5 + 0.5) * float32(w-1)
	sy := (1 - (ndc[1]*0.5 + 0.5)) * float32(h-1)
	return screenPoint{
		x: int(sx + 0.5),
		y: int(sy + 0.5),
		z: ndc[2]*0.5 + 0.5,
	}, true
}

func triangleNormal(model mgl32.Mat4, a, b, c mgl32.Vec3) mgl32.Vec3 {
	wa := mgl32.TransformCoordinate(a, model)
	wb := mgl32.TransformCoordinate(b, model)
	wc := mgl32.TransformCoordinate(c, model)
	n := wb.Sub(wa).Cross(wc.Sub(wa))
	if n.Len() == 0 {
		return n
	}
	return n.Normalize()
}

func shade(l Light, n mgl32.Vec3) mgl32.Vec3 {
	if n == (mgl32.Vec3{}) || l.Dir == (mgl32.Vec3{}) {
		return l.Ambient
	}
	d := n.Dot(l.Dir.Normalize().Mul(-1))
	if d < 0 {
		d = -d
	}
	k := d * mgl32.Clamp(l.DirAmount, 0, 1)
	return mgl32.Vec3{l.Ambient[0] + k, l.Ambient[1] + k, l.Ambient[2] + k}
}

func (r *Renderer) depthTest(w, x, y int, z float32) bool {
	if r.depthBuf == nil {
		return true
	}
	idx := y*w + x
	if idx < 0 || idx >= len(r.depthBuf) || z >= r.depthBuf[idx] {
		return false
	}
	r.depthBuf[idx] = z
	return true
}

func drawLine(t Target, x0, y0, x1, y1 int, c Color) {
	dx := absInt(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -absInt(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		t.SetPixel(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// fill rasterizes a triangle with barycentric depth and, when interp is set,
// barycentric color.
func (r *Renderer) fill(t Target, w, h int, p [3]screenPoint, c [3]Color, interp bool) {
	minX := max(min(p[0].x, p[1].x, p[2].x), 0)
	maxX := min(max(p[0].x, p[1].x, p[2].x), w-1)
	minY := max(min(p[0].y, p[1].y, p[2].y), 0)
	maxY := min(max(p[0].y, p[1].y, p[2].y), h-1)
	if minX > maxX || minY > maxY {
		return
	}

	area := edge(p[0], p[1], p[2].x, p[2].y)
	if area == 0 {
		return
	}
	// Accept both windings.
	sign := 1
	if area < 0 {
		sign = -1
	}
	inv := 1 / float32(area)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			w0 := edge(p[1], p[2], x, y)
			w1 := edge(p[2], p[0], x, y)
			w2 := edge(p[0], p[1], x, y)
			if w0*sign < 0 || w1*sign < 0 || w2*sign < 0 {
				continue
			}
			a0, a1, a2 := float32(w0)*inv, float32(w1)*inv, float32(w2)*inv
			if !r.depthTest(w, x, y, a0*p[0].z+a1*p[1].z+a2*p[2].z) {
				continue
			}
			if !interp {
				t.SetPixel(x, y, c[0])
				continue
			}
			t.SetPixel(x, y, Color{
				R: mix3(c[0].R, c[1].R, c[2].R, a0, a1, a2),
				G: mix3(c[0].G, c[1].G, c[2].G, a0, a1, a2),
				B: mix3(c[0].B, c[1].B, c[2].B, a0, a1, a2),
				A: 0xFF,
			})
		}
	}
}

func edge(a, b screenPoint, x, y int) int {
	return (x-a.x)*(b.y-a.y) - (y-a.y)*(b.x-a.x)
}

func mix3(c0, c1, c2 uint8, a0, a1, a2 float32) uint8 {
	return uint8(mgl32.Clamp(a0*float32(c0)+a1*float32(c1)+a2*float32(c2), 0, 255))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
