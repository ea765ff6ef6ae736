package overlay

import (
	"image/color"
	"strings"
	"sync"
	"worldview/hal"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

// Font metrics for proggy.TinySZ8pt7b.
const (
	consoleFontHeight = 10
	consoleFontOffset = 7
)

// surface is an off-screen RGB565 display with hardware-style scrolling:
// row 0 on screen shows memory row scroll.
type surface struct {
	w, h   int16
	pix    []uint16
	scroll int16
}

func newSurface(w, h int16) *surface {
	return &surface{w: w, h: h, pix: make([]uint16, int(w)*int(h))}
}

func (s *surface) Size() (x, y int16) { return s.w, s.h }

func (s *surface) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || x >= s.w || y >= s.h {
		return
	}
	s.pix[int(y)*int(s.w)+int(x)] = rgb565(c)
}

func (s *surface) Display() error { return nil }

func (s *surface) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	p := rgb565(c)
	x0, y0 := clampInt(int(x), 0, int(s.w)), clampInt(int(y), 0, int(s.h))
	x1, y1 := clampInt(int(x)+int(width), 0, int(s.w)), clampInt(int(y)+int(height), 0, int(s.h))
	for py := y0; py < y1; py++ {
		row := s.pix[py*int(s.w):]
		for px := x0; px < x1; px++ {
			row[px] = p
		}
	}
	return nil
}

func (s *surface) SetScroll(line int16) {
	if s.h > 0 {
		s.scroll = ((line % s.h) + s.h) % s.h
	}
}

func (s *surface) SetRotation(rotation drivers.Rotation) error {
	_ = rotation
	return nil
}

// row returns the memory row shown at screen row y.
func (s *surface) row(y int) []uint16 {
	my := (y + int(s.scroll)) % int(s.h)
	return s.pix[my*int(s.w) : (my+1)*int(s.w)]
}

// Console is a scrolling text strip fed from any goroutine and drawn on the
// render goroutine.
type Console struct {
	mu      sync.Mutex
	pending []string
	dropped int

	surf    *surface
	term    *tinyterm.Terminal
	columns int
	visible bool
}

// NewConsole allocates a console width pixels wide holding lines text rows.
func NewConsole(width, lines int) *Console {
	if lines < 1 {
		lines = 1
	}
	surf := newSurface(int16(width), int16(lines*consoleFontHeight))
	t := tinyterm.NewTerminal(surf)
	t.Configure(&tinyterm.Config{
		Font:       &proggy.TinySZ8pt7b,
		FontHeight: consoleFontHeight,
		FontOffset: consoleFontOffset,
	})

	_, glyph := tinyfont.LineWidth(&proggy.TinySZ8pt7b, "0")
	columns := width
	if glyph > 0 {
		columns = width / int(glyph)
	}
	return &Console{surf: surf, term: t, columns: columns, visible: true}
}

// Println queues a line. Lines beyond the console's backlog are dropped.
func (c *Console) Println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) >= 256 {
		c.dropped++
		return
	}
	c.pending = append(c.pending, line)
}

// SetVisible shows or hides the console.
func (c *Console) SetVisible(v bool) {
	c.mu.Lock()
	c.visible = v
	c.mu.Unlock()
}

// Toggle flips visibility.
func (c *Console) Toggle() {
	c.mu.Lock()
	c.visible = !c.visible
	c.mu.Unlock()
}

// Height returns the console height in pixels.
func (c *Console) Height() int { return int(c.surf.h) }

// Flush writes queued lines into the terminal.
func (c *Console) Flush() {
	c.mu.Lock()
	lines := c.pending
	c.pending = nil
	dropped := c.dropped
	c.dropped = 0
	c.mu.Unlock()

	if dropped > 0 {
		lines = append(lines, "... dropped log lines")
	}
	for _, l := range lines {
		c.term.Write([]byte(c.fit(l) + "\n"))
	}
}

func (c *Console) fit(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7E {
			return ' '
		}
		return r
	}, s)
	if c.columns > 0 && len(s) > c.columns {
		s = s[:c.columns]
	}
	return s
}

// Draw flushes pending lines and copies the console to the bottom of fb.
func (c *Console) Draw(fb hal.Framebuffer) {
	c.Flush()

	c.mu.Lock()
	visible := c.visible
	c.mu.Unlock()
	if !visible || fb == nil || fb.Format() != hal.PixelFormatRGB565 {
		return
	}

	h := min(int(c.surf.h), fb.Height())
	w := min(int(c.surf.w), fb.Width())
	top := fb.Height() - h
	buf := fb.Buffer()
	stride := fb.StrideBytes()
	for y := 0; y < h; y++ {
		src := c.surf.row(y)
		dst := buf[(top+y)*stride:]
		for x := 0; x < w; x++ {
			dst[x*2] = byte(src[x])
			dst[x*2+1] = byte(src[x] >> 8)
		}
	}
}
