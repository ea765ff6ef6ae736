// Package app wires the engine packages into a runnable system for a hal.HAL.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"worldview/engine/betweenframe"
	"worldview/engine/feed"
	"worldview/engine/frame"
	"worldview/engine/overlay"
	"worldview/engine/params"
	"worldview/engine/region"
	"worldview/engine/render"
	"worldview/engine/scene"
	"worldview/engine/stats"
	"worldview/hal"
	"worldview/internal/buildinfo"
	"worldview/kernel"

	"golang.org/x/sync/errgroup"
)

// ErrStopped is returned by Run on a system that has already been closed.
var ErrStopped = errors.New("system stopped")

// Config selects the parameter sources. Set entries override the file.
type Config struct {
	ParamsFile string
	Set        map[string]string
	LogLevel   slog.Leveler
}

// System owns every engine component. It replaces a process-wide registry:
// everything reaches the tracker, queue and scene through it.
type System struct {
	params  *params.Set
	log     *slog.Logger
	stats   *stats.Stats
	tracker *region.Tracker
	queue   *betweenframe.Queue
	scene   *scene.Scene
	driver  *frame.Driver
	console *overlay.Console
	display hal.Display

	svcCtx    context.Context
	svcCancel context.CancelFunc
	group     *errgroup.Group

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// New builds a system drawing through h and starts its background services
// under ctx.
func New(ctx context.Context, h hal.HAL, cfg Config) (*System, error) {
	handler := hal.NewLogHandler(h.Logger(), cfg.LogLevel)
	log := slog.New(handler)
	installPanicHandler(log)

	p := params.New(log)
	if cfg.ParamsFile != "" {
		if err := p.LoadFile(cfg.ParamsFile); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}
	for k, v := range cfg.Set {
		p.Set(k, v)
	}
	registerDefaults(p)

	mode, err := parseMode(p.String("Renderer.Mode"))
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	s := &System{
		params:  p,
		log:     log,
		stats:   stats.New(),
		tracker: region.NewTracker(log),
		display: h.Display(),
	}
	s.queue = betweenframe.New(s.stats, log)

	var kbd hal.Keyboard
	if in := h.Input(); in != nil {
		kbd = in.Keyboard()
	}
	s.scene = scene.New(s.tracker, s.queue, s.display, kbd, scene.Config{
		Magnification:     float32(p.Float("Renderer.SceneMagnification")),
		MeshResolution:    p.Int("Renderer.MeshResolution"),
		MaxMeshes:         p.Int("Renderer.MaxMeshes"),
		MapRegionCost:     p.Int("Renderer.BetweenFrame.Costs.MapRegion"),
		UpdateTerrainCost: p.Int("Renderer.BetweenFrame.Costs.UpdateTerrain"),
		MaxTerrainRetries: p.Int("Renderer.BetweenFrame.TerrainRetries"),
		Mode:              mode,
		Ambient:           p.Color("Renderer.Ambient"),
	}, s.stats, log)

	if p.Bool("Renderer.HUD.Enabled") {
		s.scene.SetHUD(overlay.NewHUD(s.hudLines))
	}
	if p.Bool("Renderer.Console.Enabled") {
		if s.display != nil && s.display.Framebuffer() != nil {
			fb := s.display.Framebuffer()
			s.console = overlay.NewConsole(fb.Width(), p.Int("Renderer.Console.Lines"))
			handler.Tee(s.console.Println)
			s.scene.SetConsole(s.console)
		}
	}

	s.svcCtx, s.svcCancel = context.WithCancel(ctx)
	s.group, s.svcCtx = errgroup.WithContext(s.svcCtx)

	s.driver = frame.New(s.scene, s.queue, frame.Config{
		TargetFrame:   frame.TargetFromFPS(p.Int("Renderer.FramePerSecMax")),
		IdleThreshold: time.Duration(p.Int("Renderer.BetweenFrame.IdleMs")) * time.Millisecond,
		LoopBatch:     p.Int("Renderer.BetweenFrame.WorkItems"),
		StepBatch:     p.Int("Renderer.BetweenFrame.StepWorkItems"),
		KeepRunning:   func() bool { return s.svcCtx.Err() == nil },
		BetweenFrames: s.betweenFrames,
		Stats:         s.stats,
		Logger:        log,
	})

	s.startServices()
	log.Info("app: started", "version", buildinfo.Short(), "commit", buildinfo.Commit)
	return s, nil
}

func parseMode(v string) (render.Mode, error) {
	switch v {
	case "wireframe":
		return render.Wireframe, nil
	case "flat":
		return render.SolidFlat, nil
	case "vertex-color", "":
		return render.SolidVertexColor, nil
	}
	return 0, fmt.Errorf("unknown render mode %q", v)
}

func (s *System) startServices() {
	p := s.params
	if addr := p.String("Stats.Addr"); addr != "" {
		srv := stats.NewServer(s.stats, s.log, time.Duration(p.Int("Stats.PushMs"))*time.Millisecond)
		s.group.Go(func() error {
			if err := srv.ListenAndServe(s.svcCtx, addr); err != nil {
				return fmt.Errorf("stats server: %w", err)
			}
			return nil
		})
	}
	if broker := p.String("Feed.MQTT.Broker"); broker != "" {
		prefix := p.String("Feed.MQTT.Prefix")
		sub := feed.NewSubscriber(feed.MQTTConfig{
			Broker: broker,
			Prefix: prefix,
			QoS:    s.mqttQoS(),
		}, feed.NewDispatcher(prefix, s, s.stats, s.log), s.log)
		s.group.Go(func() error { return sub.Run(s.svcCtx) })
	}
	if p.Bool("Feed.Demo.Enabled") {
		water := float32(p.Float("Feed.Demo.Water"))
		demo := feed.NewDemo(feed.DemoConfig{
			Columns:    p.Int("Feed.Demo.Columns"),
			Rows:       p.Int("Feed.Demo.Rows"),
			Samples:    p.Int("Feed.Demo.Samples"),
			Water:      &water,
			FocusEvery: time.Duration(p.Float("Feed.Demo.FocusSeconds") * float64(time.Second)),
		}, s, s.log)
		s.group.Go(func() error { return demo.Run(s.svcCtx) })
	}
}

func (s *System) mqttQoS() byte {
	v := s.params.Int("Feed.MQTT.QoS")
	qos, ok := feed.ClampQoS(v)
	if !ok {
		s.log.Warn("app: Feed.MQTT.QoS out of range", "value", v, "using", qos)
	}
	return qos
}

// Params returns the parameter set.
func (s *System) Params() *params.Set { return s.params }

// Stats returns the statistics registry.
func (s *System) Stats() *stats.Stats { return s.stats }

// Tracker returns the region registry.
func (s *System) Tracker() *region.Tracker { return s.tracker }

// Driver returns the frame driver.
func (s *System) Driver() *frame.Driver { return s.driver }

// AddRegion registers a region and schedules its scene node.
func (s *System) AddRegion(name string, gx, gy, gz float64, sizeX, sizeY, waterHeight float32) {
	s.tracker.AddRegion(name, gx, gy, gz, sizeX, sizeY, waterHeight)
	s.scene.MapRegion(name)
}

// UpdateTerrain stores a heightmap and schedules the terrain mesh rebuild.
func (s *System) UpdateTerrain(name string, width, length int, heights []float32) bool {
	if !s.tracker.UpdateTerrain(name, width, length, heights) {
		return false
	}
	s.scene.UpdateTerrain(name)
	return true
}

// SetFocusRegion moves the floating origin. Meshes follow on the next frame.
func (s *System) SetFocusRegion(name string) bool {
	return s.tracker.SetFocusRegion(name)
}

// Run drives frames until the display closes, a service fails or ctx is
// cancelled, then stops the services.
func (s *System) Run(ctx context.Context) error {
	if s.closed.Load() {
		return ErrStopped
	}

	var err error
	if info := kernel.Guard("render", func() { err = s.driver.Run(ctx) }); info != nil {
		s.showPanic(*info)
		err = fmt.Errorf("app: render panic: %v", info.Value)
	}
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	return err
}

// Step drives one externally timed frame. Services stop once it reports
// false.
func (s *System) Step(budget time.Duration) bool {
	running := false
	if info := kernel.Guard("render", func() { running = s.driver.Step(budget) }); info != nil {
		s.showPanic(*info)
	}
	if !running {
		if err := s.Close(); err != nil {
			s.log.Error("app: service failed", "err", err)
		}
	}
	return running
}

// Close stops the background services and waits for them. A service that
// failed is reported here.
func (s *System) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.driver.Stop()
		s.svcCancel()
		err := s.group.Wait()
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		s.closeErr = err
		s.log.Info("app: stopped", "frames", s.driver.Stats().TotalFrames)
	})
	return s.closeErr
}

func (s *System) betweenFrames() bool {
	s.stats.SetStat("app.regions", int64(s.tracker.Len()))
	s.stats.SetStat("app.queue", int64(s.queue.Len()))
	return true
}

func (s *System) hudLines() []string {
	fs := s.driver.Stats()
	focus := "-"
	if f, ok := s.tracker.FocusRegion(); ok {
		focus = f.Name()
	}
	return []string{
		"worldview " + buildinfo.Short(),
		fmt.Sprintf("fps %.0f  frame %dms", fs.FramesPerSecond, fs.LastFrame.Milliseconds()),
		fmt.Sprintf("regions %d  mapped %d", s.tracker.Len(), s.scene.Mapped()),
		fmt.Sprintf("meshes %d  tris %d", s.scene.Meshes(), s.scene.Triangles()),
		fmt.Sprintf("queue %d  focus %s", s.queue.Len(), focus),
	}
}
