// Package overlay draws 2D text on top of the rendered frame: a statistics
// HUD and a scrolling log console.
package overlay

import (
	"image/color"
	"worldview/hal"

	"tinygo.org/x/drivers"
)

// FBDisplay adapts an RGB565 hal.Framebuffer to drivers.Displayer.
type FBDisplay struct {
	fb hal.Framebuffer
}

func NewFBDisplay(fb hal.Framebuffer) *FBDisplay {
	return &FBDisplay{fb: fb}
}

func (d *FBDisplay) Size() (x, y int16) {
	if d.fb == nil {
		return 0, 0
	}
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d *FBDisplay) SetPixel(x, y int16, c color.RGBA) {
	buf, off, ok := d.offset(int(x), int(y))
	if !ok {
		return
	}
	hal.PutRGB565(buf, off, rgb565(c))
}

// Display is a no-op: the frame is presented once per frame by the caller.
func (d *FBDisplay) Display() error { return nil }

func (d *FBDisplay) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	if d.fb == nil || d.fb.Format() != hal.PixelFormatRGB565 {
		return nil
	}
	w, h := d.fb.Width(), d.fb.Height()
	x0 := clampInt(int(x), 0, w)
	y0 := clampInt(int(y), 0, h)
	x1 := clampInt(int(x)+int(width), 0, w)
	y1 := clampInt(int(y)+int(height), 0, h)
	if x0 >= x1 || y0 >= y1 {
		return nil
	}

	p := rgb565(c)
	buf := d.fb.Buffer()
	stride := d.fb.StrideBytes()
	for py := y0; py < y1; py++ {
		row := buf[py*stride:]
		for px := x0; px < x1; px++ {
			hal.PutRGB565(row, px*2, p)
		}
	}
	return nil
}

// ShadeRectangle darkens a rectangle by halving each channel.
func (d *FBDisplay) ShadeRectangle(x, y, width, height int) {
	if d.fb == nil || d.fb.Format() != hal.PixelFormatRGB565 {
		return
	}
	w, h := d.fb.Width(), d.fb.Height()
	x0, y0 := clampInt(x, 0, w), clampInt(y, 0, h)
	x1, y1 := clampInt(x+width, 0, w), clampInt(y+height, 0, h)
	buf := d.fb.Buffer()
	stride := d.fb.StrideBytes()
	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			off := py*stride + px*2
			p := uint16(buf[off]) | uint16(buf[off+1])<<8
			p = (p >> 1) & 0x7BEF
			buf[off] = byte(p)
			buf[off+1] = byte(p >> 8)
		}
	}
}

func (d *FBDisplay) SetScroll(line int16) {}

func (d *FBDisplay) SetRotation(rotation drivers.Rotation) error {
	_ = rotation
	return nil
}

func (d *FBDisplay) offset(x, y int) ([]byte, int, bool) {
	if d.fb == nil || d.fb.Format() != hal.PixelFormatRGB565 {
		return nil, 0, false
	}
	if x < 0 || y < 0 || x >= d.fb.Width() || y >= d.fb.Height() {
		return nil, 0, false
	}
	buf := d.fb.Buffer()
	off := y*d.fb.StrideBytes() + x*2
	if off+1 >= len(buf) {
		return nil, 0, false
	}
	return buf, off, true
}

func rgb565(c color.RGBA) uint16 { return hal.PackRGB565(c.R, c.G, c.B) }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
