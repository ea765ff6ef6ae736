package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"worldview/app"
	"worldview/hal"
)

func main() {
	var (
		cfg      app.Config
		headless hal.HeadlessConfig
		window   hal.WindowConfig
		noWindow bool
		demo     bool
		stats    string
		broker   string
		level    string
	)
	cfg.Set = map[string]string{}

	flag.StringVar(&cfg.ParamsFile, "config", "", "Parameter file (.yaml, .yml or .toml).")
	flag.Func("set", "Override a parameter: Name=value (repeatable).", func(v string) error {
		k, val, ok := strings.Cut(v, "=")
		if !ok || k == "" {
			return fmt.Errorf("want Name=value, got %q", v)
		}
		cfg.Set[k] = val
		return nil
	})
	flag.BoolVar(&noWindow, "headless", false, "Run without a window.")
	flag.Uint64Var(&headless.Frames, "frames", 0, "Stop after N frames in headless mode (0 = run until interrupted).")
	flag.IntVar(&window.Width, "width", hal.DefaultWidth, "Framebuffer width.")
	flag.IntVar(&window.Height, "height", hal.DefaultHeight, "Framebuffer height.")
	flag.IntVar(&window.Scale, "scale", 2, "Window scale.")
	flag.IntVar(&window.TPS, "tps", 30, "Window step rate.")
	flag.BoolVar(&window.Debug, "debug", false, "Show ebiten FPS/TPS in the window.")
	flag.BoolVar(&demo, "demo", false, "Populate a simulated world.")
	flag.StringVar(&stats, "stats-addr", "", "Serve statistics on this address.")
	flag.StringVar(&broker, "mqtt", "", "Receive regions from this MQTT broker.")
	flag.StringVar(&level, "log-level", "info", "debug|info|warn|error.")
	flag.Parse()

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.LogLevel = lvl
	if demo {
		cfg.Set["Feed.Demo.Enabled"] = "true"
	}
	if stats != "" {
		cfg.Set["Stats.Addr"] = stats
	}
	if broker != "" {
		cfg.Set["Feed.MQTT.Broker"] = broker
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var sys *app.System
	newEngine := func(h hal.HAL) (hal.Engine, error) {
		s, err := app.New(ctx, h, cfg)
		sys = s
		return s, err
	}

	var err error
	if noWindow {
		headless.Width, headless.Height = window.Width, window.Height
		err = hal.RunHeadless(ctx, newEngine, headless)
	} else {
		err = hal.RunWindow(newEngine, window)
	}
	if sys != nil {
		if cerr := sys.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
