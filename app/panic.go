package app

import (
	"fmt"
	"image/color"
	"log/slog"
	"strings"
	"unicode/utf8"
	"worldview/engine/overlay"
	"worldview/kernel"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

const (
	panicFontHeight = 10
	panicFontOffset = 7
)

// installPanicHandler logs every panic recovered by kernel.Guard. Work items
// that panic are dropped and the frame loop continues.
func installPanicHandler(log *slog.Logger) {
	kernel.SetPanicHandler(func(info kernel.PanicInfo) {
		log.Error("app: panic recovered", "source", info.Source, "panic", fmt.Sprint(info.Value))
		for _, line := range strings.Split(string(info.Stack), "\n") {
			if line != "" {
				log.Debug(line)
			}
		}
	})
}

// showPanic paints a panic report over the framebuffer and presents it. It
// is used when the render loop itself panicked.
func (s *System) showPanic(info kernel.PanicInfo) {
	if s.display == nil {
		return
	}
	fb := s.display.Framebuffer()
	if fb == nil {
		return
	}
	fb.ClearRGB(255, 255, 255)

	_, outboxWidth := tinyfont.LineWidth(&proggy.TinySZ8pt7b, "0")
	fontWidth := int(outboxWidth)
	if fontWidth <= 0 {
		_ = fb.Present()
		return
	}
	cols := max(fb.Width()/fontWidth, 1)

	lines := []string{
		"worldview panic:",
		"source: " + info.Source,
		fmt.Sprintf("panic: %v", info.Value),
	}
	if len(info.Stack) > 0 {
		lines = append(lines, "stack:")
		for _, line := range strings.Split(string(info.Stack), "\n") {
			if line != "" {
				lines = append(lines, strings.ReplaceAll(line, "\t", "  "))
			}
		}
	} else {
		lines = append(lines, "stack: unavailable")
	}

	d := overlay.NewFBDisplay(fb)
	fg := color.RGBA{A: 255}
	y := 0
	for _, line := range lines {
		for len(line) > 0 {
			if y+panicFontHeight > fb.Height() {
				_ = fb.Present()
				return
			}
			chunk, rest := takeRunes(line, cols)
			tinyfont.WriteLine(d, &proggy.TinySZ8pt7b, 0, int16(y+panicFontOffset), chunk, fg)
			y += panicFontHeight
			line = strings.TrimLeft(rest, " ")
		}
	}
	_ = fb.Present()
}

// takeRunes splits s after at most n runes.
func takeRunes(s string, n int) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if len(s) <= n {
		return s, ""
	}
	i, count := 0, 0
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		count++
	}
	return s[:i], s[i:]
}
