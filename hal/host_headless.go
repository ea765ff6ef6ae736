package hal

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Engine is what the host runners drive.
type Engine interface {
	// Run owns frame timing until the engine stops or ctx is cancelled.
	Run(ctx context.Context) error
	// Step renders one frame within an externally supplied budget and
	// reports whether the engine is still running.
	Step(budget time.Duration) bool
}

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Width  int
	Height int
	// Frames closes the display after N presented frames (0 = run until ctx
	// is cancelled).
	Frames uint64
}

// RunHeadless runs the engine without opening a window. The engine owns
// frame timing.
func RunHeadless(ctx context.Context, newEngine func(HAL) (Engine, error), cfg HeadlessConfig) error {
	return runHeadless(ctx, newHost(cfg.Width, cfg.Height, os.Stdout), newEngine, cfg)
}

func runHeadless(ctx context.Context, h *hostHAL, newEngine func(HAL) (Engine, error), cfg HeadlessConfig) error {
	e, err := newEngine(h)
	if err != nil {
		return fmt.Errorf("headless: %w", err)
	}
	if cfg.Frames > 0 {
		h.fb.onPresent = func(n uint64) {
			if n >= cfg.Frames {
				h.Close()
			}
		}
	}
	return e.Run(ctx)
}
