//go:build cgo

package hal

import (
	"fmt"
	"image"
	"os"
	"time"
	"worldview/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// WindowConfig controls the desktop window.
type WindowConfig struct {
	Width  int
	Height int
	Scale  int
	// TPS is the engine step rate. Each step gets a 1/TPS budget.
	TPS int
	// Debug prints ebiten's measured FPS/TPS in the corner.
	Debug bool
}

// RunWindow opens a desktop window that shows the framebuffer and forwards
// keyboard input. ebiten owns frame timing: every tick calls Engine.Step with
// a 1/TPS budget. It blocks until the window closes or the engine stops.
func RunWindow(newEngine func(HAL) (Engine, error), cfg WindowConfig) error {
	if cfg.TPS <= 0 {
		cfg.TPS = 30
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 2
	}
	h := newHost(cfg.Width, cfg.Height, os.Stdout)
	e, err := newEngine(h)
	if err != nil {
		return fmt.Errorf("window: %w", err)
	}

	g := &hostGame{h: h, e: e, budget: time.Second / time.Duration(cfg.TPS), debug: cfg.Debug}
	ebiten.SetWindowTitle("worldview (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(h.fb.width*cfg.Scale, h.fb.height*cfg.Scale)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetTPS(cfg.TPS)
	return ebiten.RunGame(g)
}

type hostGame struct {
	h      *hostHAL
	e      Engine
	budget time.Duration
	debug  bool

	img   *image.RGBA
	fbImg *ebiten.Image
	seen  uint64
}

func (g *hostGame) Update() error {
	if ebiten.IsWindowBeingClosed() {
		g.h.Close()
	}
	g.h.kbd.poll()
	if !g.e.Step(g.budget) {
		return ebiten.Termination
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.img == nil {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}

	if n := fb.snapshotRGBA(g.img.Pix, g.seen); n != g.seen {
		g.seen = n
		g.fbImg.WritePixels(g.img.Pix)
	}
	screen.DrawImage(g.fbImg, nil)

	if g.debug {
		ebitenutil.DebugPrintAt(screen,
			fmt.Sprintf("ebiten fps %.1f tps %.1f", ebiten.ActualFPS(), ebiten.ActualTPS()),
			4, fb.height-16)
	}
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}
