// Command regionpub publishes region messages to an MQTT broker for a running
// worldview subscriber.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"
	"worldview/engine/feed"
	"worldview/engine/region"
)

func main() {
	var (
		broker  = flag.String("broker", "localhost:1883", "MQTT broker host:port or URL.")
		prefix  = flag.String("prefix", "worldview", "Topic prefix.")
		qos     = flag.Int("qos", 1, "Publish QoS (0..2).")
		mode    = flag.String("mode", "demo", "demo|region|terrain|focus.")
		name    = flag.String("name", "", "Region name (region, terrain, focus).")
		x       = flag.Float64("x", 0, "Global X of the region corner.")
		y       = flag.Float64("y", 0, "Global Y of the region corner.")
		z       = flag.Float64("z", 0, "Global Z of the region corner.")
		size    = flag.Float64("size", 256, "Region edge length.")
		water   = flag.Float64("water", float64(region.NoWater), "Water height (-1 = none).")
		inPath  = flag.String("in", "", "Heightmap file: whitespace separated heights, row-major by x (terrain).")
		width   = flag.Int("width", 0, "Heightmap width (terrain).")
		columns = flag.Int("columns", 3, "Demo grid columns.")
		rows    = flag.Int("rows", 3, "Demo grid rows.")
		every   = flag.Duration("every", 5*time.Second, "Demo focus interval.")
		verbose = flag.Bool("v", false, "Debug logging.")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	op := strings.ToLower(*mode)
	if op != "demo" && *name == "" {
		fatalf("usage: regionpub -mode region|terrain|focus -name NAME [flags]\n       regionpub -mode demo [-columns 3 -rows 3 -every 5s]")
	}
	if *qos < 0 || *qos > 2 {
		fatalf("qos out of range: %d", *qos)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pub := feed.NewPublisher(feed.MQTTConfig{Broker: *broker, Prefix: *prefix, QoS: byte(*qos)}, log)
	if err := pub.Connect(ctx); err != nil {
		fatalf("connect: %v", err)
	}
	defer pub.Close()

	var err error
	switch op {
	case "demo":
		demo := feed.NewDemo(feed.DemoConfig{Columns: *columns, Rows: *rows, FocusEvery: *every}, pub, log)
		err = demo.Run(ctx)
	case "region":
		err = pub.Publish(feed.TopicRegionAdd, feed.RegionAdd{
			Name: *name, X: *x, Y: *y, Z: *z,
			SizeX: float32(*size), SizeY: float32(*size), WaterHeight: feed.WaterAt(float32(*water)),
		})
	case "terrain":
		var msg feed.TerrainUpdate
		msg, err = readTerrain(*inPath, *name, *width)
		if err == nil {
			err = pub.Publish(feed.TopicTerrain, msg)
		}
	case "focus":
		err = pub.Publish(feed.TopicFocus, feed.Focus{Name: *name})
	default:
		fatalf("unknown mode: %s", *mode)
	}
	if err != nil {
		fatalf("%s: %v", op, err)
	}
}

func readTerrain(path, name string, width int) (feed.TerrainUpdate, error) {
	if path == "" || width <= 0 {
		return feed.TerrainUpdate{}, fmt.Errorf("terrain needs -in and -width")
	}
	f, err := os.Open(path)
	if err != nil {
		return feed.TerrainUpdate{}, err
	}
	defer f.Close()

	var hs []float32
	sc := bufio.NewScanner(f)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		v, err := strconv.ParseFloat(sc.Text(), 32)
		if err != nil {
			return feed.TerrainUpdate{}, fmt.Errorf("height %d: %w", len(hs), err)
		}
		hs = append(hs, float32(v))
	}
	if err := sc.Err(); err != nil {
		return feed.TerrainUpdate{}, err
	}
	if len(hs) == 0 || len(hs)%width != 0 {
		return feed.TerrainUpdate{}, fmt.Errorf("%d heights do not fill rows of %d", len(hs), width)
	}
	return feed.TerrainUpdate{Name: name, Width: width, Length: len(hs) / width, Heights: hs}, nil
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}
