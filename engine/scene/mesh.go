package scene

import (
	"worldview/engine/region"
	"worldview/engine/render"

	"github.com/go-gl/mathgl/mgl32"
)

// toRender maps world axes (Z up) to render axes (Y up).
func toRender(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{v[0], v[2], -v[1]}
}

// planeMesh returns a flat sizeX × sizeY rectangle at height z with its
// corner at the region origin.
func planeMesh(sizeX, sizeY, z float32, c render.Color) ([]render.Vertex, []uint16) {
	corners := [4]mgl32.Vec3{
		{0, 0, z},
		{sizeX, 0, z},
		{0, sizeY, z},
		{sizeX, sizeY, z},
	}
	verts := make([]render.Vertex, len(corners))
	for i, p := range corners {
		verts[i] = render.Vertex{Pos: toRender(p), Color: c}
	}
	return verts, []uint16{0, 2, 1, 1, 2, 3}
}

// gridSamples returns the heightmap indices kept when n samples are reduced
// with the given step. The last sample is always kept so the mesh reaches
// the region edge.
func gridSamples(n, step int) []int {
	out := make([]int, 0, n/step+2)
	for i := 0; i < n; i += step {
		out = append(out, i)
	}
	if out[len(out)-1] != n-1 {
		out = append(out, n-1)
	}
	return out
}

// terrainMesh builds a height-colored grid for t spanning sizeX × sizeY.
// At most resolution+1 samples are used along each side.
func terrainMesh(t region.Terrain, sizeX, sizeY float32, resolution int, low, high render.Color) ([]render.Vertex, []uint16) {
	if t.Width < 2 || t.Length < 2 || !t.Valid() {
		return nil, nil
	}
	// Smallest step with (n-1)/step <= resolution on both sides.
	resolution = max(resolution, 1)
	step := (max(t.Width, t.Length)-1)/(resolution+1) + 1
	xs := gridSamples(t.Width, step)
	ys := gridSamples(t.Length, step)

	minH, maxH := t.Heights[0], t.Heights[0]
	for _, h := range t.Heights {
		minH = min(minH, h)
		maxH = max(maxH, h)
	}
	span := maxH - minH

	dx := sizeX / float32(t.Width-1)
	dy := sizeY / float32(t.Length-1)
	verts := make([]render.Vertex, 0, len(xs)*len(ys))
	for _, y := range ys {
		for _, x := range xs {
			h := t.At(x, y)
			var k float32
			if span > 0 {
				k = (h - minH) / span
			}
			verts = append(verts, render.Vertex{
				Pos:   toRender(mgl32.Vec3{float32(x) * dx, float32(y) * dy, h}),
				Color: low.Lerp(high, k),
			})
		}
	}

	cols := len(xs)
	idx := make([]uint16, 0, (len(xs)-1)*(len(ys)-1)*6)
	for j := 0; j < len(ys)-1; j++ {
		for i := 0; i < cols-1; i++ {
			a := uint16(j*cols + i)
			b := a + 1
			c := uint16((j+1)*cols + i)
			d := c + 1
			idx = append(idx, a, c, b, b, c, d)
		}
	}
	return verts, idx
}
