// Package frame drives the render loop: one frame, then between-frame work
// while the frame budget allows.
package frame

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"worldview/engine/stats"
	"worldview/kernel"
)

// Renderer draws exactly one frame. It returns false when no more frames can
// be produced (surface closed, unrecoverable failure).
type Renderer interface {
	RenderOneFrame() bool
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func() bool

func (f RendererFunc) RenderOneFrame() bool { return f() }

// Queue is the consumer side of the between-frame work queue.
type Queue interface {
	HasWorkItems() bool
	ProcessWorkItems(maxCount int) int
}

// Clock abstracts time for the driver.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { kernel.Sleep(d) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// State is the driver's lifecycle state.
type State int32

const (
	Rendering State = iota
	BudgetSurplus
	Stopped
)

func (s State) String() string {
	switch s {
	case Rendering:
		return "rendering"
	case BudgetSurplus:
		return "budget-surplus"
	case Stopped:
		return "stopped"
	default:
		return "invalid"
	}
}

// Defaults.
const (
	DefaultFPS           = 20
	MinFPS               = 2
	MaxFPS               = 100
	DefaultIdleThreshold = 10 * time.Millisecond
	DefaultLoopBatch     = 3
	DefaultStepBatch     = 20
	DefaultBetweenEvery  = 10
)

// Stat names written by the driver.
const (
	StatLastFrameMs     = "frame.last_frame_ms"
	StatFramesPerSecond = "frame.frames_per_second"
	StatTotalFrames     = "frame.total_frames"
)

// TargetFromFPS returns the frame period for fps. Values outside [MinFPS,
// MaxFPS] fall back to DefaultFPS.
func TargetFromFPS(fps int) time.Duration {
	if fps < MinFPS || fps > MaxFPS {
		fps = DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

// Config tunes a Driver. Zero fields take defaults.
type Config struct {
	// TargetFrame is the frame period used by Run.
	TargetFrame time.Duration
	// IdleThreshold is the slack below which no more work is attempted.
	IdleThreshold time.Duration
	// LoopBatch bounds each drain in Run.
	LoopBatch int
	// StepBatch bounds each drain in Step.
	StepBatch int

	// KeepRunning is checked before every frame. Nil means always.
	KeepRunning func() bool
	// BetweenFrames is called every BetweenFramesEvery frames. Returning
	// false stops the driver.
	BetweenFrames      func() bool
	BetweenFramesEvery int

	Clock  Clock
	Stats  stats.Sink
	Logger *slog.Logger
}

func (c *Config) setDefaults() {
	if c.TargetFrame <= 0 {
		c.TargetFrame = TargetFromFPS(DefaultFPS)
	}
	if c.IdleThreshold <= 0 {
		c.IdleThreshold = DefaultIdleThreshold
	}
	if c.LoopBatch <= 0 {
		c.LoopBatch = DefaultLoopBatch
	}
	if c.StepBatch <= 0 {
		c.StepBatch = DefaultStepBatch
	}
	if c.BetweenFramesEvery <= 0 {
		c.BetweenFramesEvery = DefaultBetweenEvery
	}
	if c.Clock == nil {
		c.Clock = SystemClock
	}
	c.Stats = stats.OrDiscard(c.Stats)
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Stats is a snapshot of the driver's frame statistics.
type Stats struct {
	LastFrame       time.Duration
	FramesPerSecond float64
	TotalFrames     uint64
	WorkDrained     uint64
}

// Driver alternates between rendering a frame and draining queued work.
//
// Run and Step must be called from a single goroutine.
type Driver struct {
	r   Renderer
	q   Queue
	cfg Config

	state atomic.Int32

	mu    sync.Mutex
	stats Stats
}

// New returns a driver in the Rendering state.
func New(r Renderer, q Queue, cfg Config) *Driver {
	cfg.setDefaults()
	return &Driver{r: r, q: q, cfg: cfg}
}

// State returns the current state.
func (d *Driver) State() State { return State(d.state.Load()) }

// Stats returns a copy of the frame statistics.
func (d *Driver) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Stop moves the driver to Stopped. The current frame, if any, completes.
func (d *Driver) Stop() {
	if State(d.state.Swap(int32(Stopped))) != Stopped {
		d.cfg.Logger.Info("frame: stopped")
	}
}

// Run owns frame timing: it renders, drains small batches while budget
// remains and sleeps through the rest of the period when the queue is empty.
// It returns nil when rendering ends and ctx.Err() when cancelled.
func (d *Driver) Run(ctx context.Context) error {
	d.cfg.Logger.Info("frame: loop started",
		"target_ms", d.cfg.TargetFrame.Milliseconds(), "batch", d.cfg.LoopBatch)
	for {
		if err := ctx.Err(); err != nil {
			d.Stop()
			return err
		}
		if !d.frame(d.cfg.TargetFrame, d.cfg.LoopBatch, true) {
			return nil
		}
	}
}

// Step renders one frame under an externally supplied budget and drains up
// to StepBatch items per pass while budget remains. It never sleeps. It
// reports whether the driver is still running.
func (d *Driver) Step(budget time.Duration) bool {
	return d.frame(budget, d.cfg.StepBatch, false)
}

func (d *Driver) frame(budget time.Duration, batch int, standalone bool) bool {
	if d.State() == Stopped {
		return false
	}
	if d.cfg.KeepRunning != nil && !d.cfg.KeepRunning() {
		d.Stop()
		return false
	}

	clock := d.cfg.Clock
	start := clock.Now()
	d.state.CompareAndSwap(int32(BudgetSurplus), int32(Rendering))
	if !d.r.RenderOneFrame() {
		d.Stop()
		return false
	}

	var drained uint64
	remaining := budget - clock.Now().Sub(start)
	for remaining > d.cfg.IdleThreshold {
		d.state.CompareAndSwap(int32(Rendering), int32(BudgetSurplus))
		if d.q != nil && d.q.HasWorkItems() {
			drained += uint64(d.q.ProcessWorkItems(batch))
		} else if standalone {
			clock.Sleep(remaining)
		} else {
			break
		}
		remaining = budget - clock.Now().Sub(start)
	}

	return d.frameEnded(clock.Now().Sub(start), drained)
}

func (d *Driver) frameEnded(elapsed time.Duration, drained uint64) bool {
	ms := elapsed.Milliseconds()
	if ms <= 0 {
		ms = 1
	}

	d.mu.Lock()
	d.stats.LastFrame = elapsed
	d.stats.FramesPerSecond = 1000 / float64(ms)
	d.stats.TotalFrames++
	d.stats.WorkDrained += drained
	total := d.stats.TotalFrames
	d.mu.Unlock()

	d.cfg.Stats.SetStat(StatLastFrameMs, ms)
	d.cfg.Stats.SetStat(StatFramesPerSecond, 1000/ms)
	d.cfg.Stats.IncStat(StatTotalFrames)

	if d.cfg.BetweenFrames != nil && total%uint64(d.cfg.BetweenFramesEvery) == 0 {
		if !d.cfg.BetweenFrames() {
			d.Stop()
			return false
		}
	}
	if d.State() == Stopped {
		return false
	}
	d.state.CompareAndSwap(int32(BudgetSurplus), int32(Rendering))
	return true
}
