package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"
	"worldview/engine/region"
)

// DemoConfig shapes the simulated world. Zero fields take defaults.
type DemoConfig struct {
	Columns    int
	Rows       int
	RegionSize float32
	OriginX    float64
	OriginY    float64
	Samples    int // heightmap samples per side
	// Water is the water height on alternate cells. nil takes the default;
	// region.NoWater keeps every cell dry.
	Water      *float32
	FocusEvery time.Duration
}

func (c *DemoConfig) setDefaults() {
	if c.Columns <= 0 {
		c.Columns = 3
	}
	if c.Rows <= 0 {
		c.Rows = 3
	}
	if c.RegionSize <= 0 {
		c.RegionSize = 256
	}
	if c.OriginX == 0 && c.OriginY == 0 {
		c.OriginX, c.OriginY = 256_000_000, 256_000_000
	}
	if c.Samples < 2 {
		c.Samples = 33
	}
	if c.Water == nil {
		w := float32(18)
		c.Water = &w
	}
	if c.FocusEvery <= 0 {
		c.FocusEvery = 5 * time.Second
	}
}

// Demo populates a Sink with a grid of regions far from the world origin and
// walks the focus across them.
type Demo struct {
	cfg  DemoConfig
	sink Sink
	log  *slog.Logger
}

func NewDemo(cfg DemoConfig, sink Sink, log *slog.Logger) *Demo {
	cfg.setDefaults()
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Demo{cfg: cfg, sink: sink, log: log}
}

// RegionName names the grid cell (col, row).
func RegionName(col, row int) string {
	return fmt.Sprintf("demo-%d-%d", col, row)
}

// Populate adds every region with its terrain and focuses the first one. It
// returns the region names in focus-walk order.
func (d *Demo) Populate() []string {
	var names []string
	for row := 0; row < d.cfg.Rows; row++ {
		for i := 0; i < d.cfg.Columns; i++ {
			col := i
			if row%2 == 1 {
				col = d.cfg.Columns - 1 - i
			}
			name := RegionName(col, row)
			gx, gy := d.origin(col, row)

			water := region.NoWater
			if (col+row)%2 == 0 {
				water = *d.cfg.Water
			}
			d.sink.AddRegion(name, gx, gy, 0, d.cfg.RegionSize, d.cfg.RegionSize, water)
			d.sink.UpdateTerrain(name, d.cfg.Samples, d.cfg.Samples, d.Heights(col, row))
			names = append(names, name)
		}
	}
	if len(names) > 0 {
		d.sink.SetFocusRegion(names[0])
	}
	d.log.Info("feed: demo world populated", "regions", len(names), "origin_x", d.cfg.OriginX, "origin_y", d.cfg.OriginY)
	return names
}

func (d *Demo) origin(col, row int) (float64, float64) {
	size := float64(d.cfg.RegionSize)
	return d.cfg.OriginX + float64(col)*size, d.cfg.OriginY + float64(row)*size
}

// Heights returns the heightmap for cell (col, row). Heights are a function
// of global position, so shared edges of neighbouring cells match.
func (d *Demo) Heights(col, row int) []float32 {
	n := d.cfg.Samples
	gx0, gy0 := d.origin(col, row)
	step := float64(d.cfg.RegionSize) / float64(n-1)

	hs := make([]float32, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			// Relative to the grid origin so float64 keeps the fraction.
			gx := gx0 - d.cfg.OriginX + float64(x)*step
			gy := gy0 - d.cfg.OriginY + float64(y)*step
			h := 20 + 12*math.Sin(gx/41)*math.Cos(gy/57) + 5*math.Sin((gx+gy)/23)
			hs[y*n+x] = float32(h)
		}
	}
	return hs
}

// Run populates the world and then moves the focus every FocusEvery until
// ctx is done.
func (d *Demo) Run(ctx context.Context) error {
	names := d.Populate()
	if len(names) < 2 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(d.cfg.FocusEvery)
	defer ticker.Stop()
	next := 1
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			name := names[next%len(names)]
			next++
			d.log.Debug("feed: demo focus", "name", name)
			d.sink.SetFocusRegion(name)
		}
	}
}
