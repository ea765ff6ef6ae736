package render

import "github.com/go-gl/mathgl/mgl32"

// Color is an RGBA color in 8-bit channels.
type Color struct {
	R, G, B, A uint8
}

func RGB(r, g, b uint8) Color { return Color{R: r, G: g, B: b, A: 0xFF} }

// ColorFromVec3 converts 0..1 components to a Color.
func ColorFromVec3(v mgl32.Vec3) Color {
	return Color{R: unit8(v[0]), G: unit8(v[1]), B: unit8(v[2]), A: 0xFF}
}

// Modulate scales each channel by the matching component of k (0..1).
func (c Color) Modulate(k mgl32.Vec3) Color {
	return Color{
		R: uint8(float32(c.R) * mgl32.Clamp(k[0], 0, 1)),
		G: uint8(float32(c.G) * mgl32.Clamp(k[1], 0, 1)),
		B: uint8(float32(c.B) * mgl32.Clamp(k[2], 0, 1)),
		A: c.A,
	}
}

// Lerp blends c towards o by t in 0..1.
func (c Color) Lerp(o Color, t float32) Color {
	t = mgl32.Clamp(t, 0, 1)
	mix := func(a, b uint8) uint8 { return uint8(float32(a) + (float32(b)-float32(a))*t) }
	return Color{R: mix(c.R, o.R), G: mix(c.G, o.G), B: mix(c.B, o.B), A: mix(c.A, o.A)}
}

// RGB565 packs the color as rrrrrggggggbbbbb.
func (c Color) RGB565() uint16 {
	return uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
}

func unit8(f float32) uint8 {
	return uint8(mgl32.Clamp(f, 0, 1)*255 + 0.5)
}
