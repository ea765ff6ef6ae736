package hal

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestRGB565RoundTrip(t *testing.T) {
	cases := []struct {
		r, g, b uint8
		want    uint16
	}{
		{0, 0, 0, 0x0000},
		{255, 255, 255, 0xFFFF},
		{255, 0, 0, 0xF800},
		{0, 255, 0, 0x07E0},
		{0, 0, 255, 0x001F},
		{0x84, 0x82, 0x84, 0x8410},
	}
	for _, c := range cases {
		got := PackRGB565(c.r, c.g, c.b)
		if got != c.want {
			t.Fatalf("PackRGB565(%d,%d,%d) = %#04x, want %#04x", c.r, c.g, c.b, got, c.want)
		}
		r, g, b := UnpackRGB565(got)
		if r != c.r || g != c.g || b != c.b {
			t.Fatalf("UnpackRGB565(%#04x) = %d,%d,%d, want %d,%d,%d", got, r, g, b, c.r, c.g, c.b)
		}
	}
}

func TestFramebufferPresentPublishesFrame(t *testing.T) {
	fb := newHostFramebuffer(2, 1)
	dst := make([]byte, 2*1*4)

	if n := fb.snapshotRGBA(dst, 0); n != 0 {
		t.Fatalf("snapshotRGBA() before Present = %d, want 0", n)
	}

	fb.ClearRGB(255, 0, 0)
	if dst[0] != 0 {
		t.Fatalf("ClearRGB leaked to front buffer before Present")
	}
	if err := fb.Present(); err != nil {
		t.Fatalf("Present() = %v, want nil", err)
	}
	if n := fb.snapshotRGBA(dst, 0); n != 1 {
		t.Fatalf("snapshotRGBA() = %d, want 1", n)
	}
	if dst[0] != 255 || dst[1] != 0 || dst[2] != 0 || dst[3] != 255 {
		t.Fatalf("snapshot pixel = %v, want red", dst[:4])
	}
}

func TestLogHandlerFormatsAndTees(t *testing.T) {
	var buf bytes.Buffer
	h := newHost(4, 4, &buf)
	lh := NewLogHandler(h.Logger(), slog.LevelInfo)

	var teed []string
	lh.Tee(func(line string) { teed = append(teed, line) })

	log := slog.New(lh).With("component", "scene")
	log.Debug("hidden")
	log.Warn("region: focus on unknown region", "name", "Z 9")
	log.WithGroup("frame").Info("tick", "ms", 16)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written at info level: %q", out)
	}
	if !strings.Contains(out, `WRN region: focus on unknown region component=scene name="Z 9"`) {
		t.Fatalf("warn line = %q", out)
	}
	if !strings.Contains(out, "INF tick component=scene frame.ms=16") {
		t.Fatalf("group line = %q", out)
	}
	if len(teed) != 2 {
		t.Fatalf("teed %d lines, want 2", len(teed))
	}
}

type fakeEngine struct {
	h      HAL
	frames int
}

func (e *fakeEngine) Run(ctx context.Context) error {
	fb := e.h.Display().Framebuffer()
	for !e.h.Display().Closed() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fb.ClearRGB(0, 0, 255)
		fb.Present()
		e.frames++
	}
	return nil
}

func (e *fakeEngine) Step(time.Duration) bool { return false }

func TestRunHeadlessClosesAfterFrames(t *testing.T) {
	var e *fakeEngine
	h := newHost(8, 8, &bytes.Buffer{})
	err := runHeadless(context.Background(), h, func(h HAL) (Engine, error) {
		e = &fakeEngine{h: h}
		return e, nil
	}, HeadlessConfig{Frames: 5})
	if err != nil {
		t.Fatalf("runHeadless() = %v, want nil", err)
	}
	if e.frames != 5 {
		t.Fatalf("frames = %d, want 5", e.frames)
	}
	if !h.Display().Closed() {
		t.Fatalf("Closed() = false, want true")
	}
}

func TestRunHeadlessEngineError(t *testing.T) {
	boom := errors.New("boom")
	err := runHeadless(context.Background(), newHost(8, 8, &bytes.Buffer{}), func(HAL) (Engine, error) {
		return nil, boom
	}, HeadlessConfig{})
	if !errors.Is(err, boom) {
		t.Fatalf("runHeadless() = %v, want %v", err, boom)
	}
}
