package overlay

import (
	"image/color"
	"worldview/hal"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

var (
	hudText   = color.RGBA{R: 0xE0, G: 0xF0, B: 0xFF, A: 0xFF}
	hudAccent = color.RGBA{R: 0xFF, G: 0xDD, B: 0x66, A: 0xFF}
)

// HUD prints a few status lines in the top-left corner over a shaded box.
// The first line is drawn in the accent color.
type HUD struct {
	Lines   func() []string
	Visible bool

	glyphW int
}

func NewHUD(lines func() []string) *HUD {
	_, w := tinyfont.LineWidth(&proggy.TinySZ8pt7b, "0")
	return &HUD{Lines: lines, Visible: true, glyphW: int(w)}
}

// Draw renders the HUD onto fb.
func (h *HUD) Draw(fb hal.Framebuffer) {
	if h == nil || !h.Visible || h.Lines == nil || fb == nil {
		return
	}
	lines := h.Lines()
	if len(lines) == 0 {
		return
	}

	widest := 0
	for _, l := range lines {
		widest = max(widest, len(l))
	}
	d := NewFBDisplay(fb)
	d.ShadeRectangle(0, 0, widest*h.glyphW+6, len(lines)*consoleFontHeight+4)

	for i, l := range lines {
		c := hudText
		if i == 0 {
			c = hudAccent
		}
		y := int16(2 + i*consoleFontHeight + consoleFontOffset)
		tinyfont.WriteLine(d, &proggy.TinySZ8pt7b, 3, y, l, c)
	}
}
