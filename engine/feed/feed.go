// Package feed brings regions into the tracker from outside the renderer: an
// MQTT subscriber decoding msgpack messages, and a demo producer that
// simulates a streaming world.
package feed

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"worldview/engine/region"
	"worldview/engine/stats"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrUnknownTopic is returned for messages outside the feed's topic set.
var ErrUnknownTopic = errors.New("unknown topic")

// Topic suffixes below the configured prefix.
const (
	TopicRegionAdd = "region/add"
	TopicTerrain   = "region/terrain"
	TopicFocus     = "focus"
)

// Stat names written by the dispatcher.
const (
	StatMessages = "feed.messages"
	StatErrors   = "feed.errors"
)

// RegionAdd announces a region. A missing water_height means no water; 0 is
// a water plane at height 0.
type RegionAdd struct {
	Name        string   `msgpack:"name"`
	X           float64  `msgpack:"x"`
	Y           float64  `msgpack:"y"`
	Z           float64  `msgpack:"z"`
	SizeX       float32  `msgpack:"size_x"`
	SizeY       float32  `msgpack:"size_y"`
	WaterHeight *float32 `msgpack:"water_height,omitempty"`
}

// WaterAt returns the wire form of a water height: nil for region.NoWater.
func WaterAt(h float32) *float32 {
	if h == region.NoWater {
		return nil
	}
	return &h
}

// Water returns the water height, region.NoWater when none was sent.
func (m RegionAdd) Water() float32 {
	if m.WaterHeight == nil {
		return region.NoWater
	}
	return *m.WaterHeight
}

// TerrainUpdate carries a width × length heightmap, row-major by x.
type TerrainUpdate struct {
	Name    string    `msgpack:"name"`
	Width   int       `msgpack:"width"`
	Length  int       `msgpack:"length"`
	Heights []float32 `msgpack:"heights"`
}

// Focus moves the floating origin to a region.
type Focus struct {
	Name string `msgpack:"name"`
}

// Sink receives decoded region mutations. *region.Tracker and app.System
// both satisfy it.
type Sink interface {
	AddRegion(name string, gx, gy, gz float64, sizeX, sizeY, waterHeight float32)
	UpdateTerrain(name string, width, length int, heights []float32) bool
	SetFocusRegion(name string) bool
}

// Topic joins prefix and suffix.
func Topic(prefix, suffix string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return suffix
	}
	return prefix + "/" + suffix
}

// Dispatcher decodes feed messages and applies them to a Sink.
type Dispatcher struct {
	prefix string
	sink   Sink
	stats  stats.Sink
	log    *slog.Logger
}

// NewDispatcher returns a dispatcher for topics under prefix.
func NewDispatcher(prefix string, sink Sink, st stats.Sink, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{
		prefix: strings.TrimSuffix(prefix, "/"),
		sink:   sink,
		stats:  stats.OrDiscard(st),
		log:    log,
	}
}

// Topics returns the full topic names the dispatcher understands.
func (d *Dispatcher) Topics() []string {
	return []string{
		Topic(d.prefix, TopicRegionAdd),
		Topic(d.prefix, TopicTerrain),
		Topic(d.prefix, TopicFocus),
	}
}

// HandleMessage decodes payload according to topic and applies it.
func (d *Dispatcher) HandleMessage(topic string, payload []byte) error {
	err := d.handle(topic, payload)
	if err != nil {
		d.stats.IncStat(StatErrors)
		return err
	}
	d.stats.IncStat(StatMessages)
	return nil
}

func (d *Dispatcher) handle(topic string, payload []byte) error {
	suffix := topic
	if d.prefix != "" {
		var ok bool
		suffix, ok = strings.CutPrefix(topic, d.prefix+"/")
		if !ok {
			return fmt.Errorf("feed: %q: %w", topic, ErrUnknownTopic)
		}
	}

	switch suffix {
	case TopicRegionAdd:
		var m RegionAdd
		if err := msgpack.Unmarshal(payload, &m); err != nil {
			return fmt.Errorf("feed: decode %s: %w", topic, err)
		}
		if m.Name == "" {
			return fmt.Errorf("feed: %s: empty region name", topic)
		}
		d.sink.AddRegion(m.Name, m.X, m.Y, m.Z, m.SizeX, m.SizeY, m.Water())
	case TopicTerrain:
		var m TerrainUpdate
		if err := msgpack.Unmarshal(payload, &m); err != nil {
			return fmt.Errorf("feed: decode %s: %w", topic, err)
		}
		if !d.sink.UpdateTerrain(m.Name, m.Width, m.Length, m.Heights) {
			d.log.Debug("feed: terrain not applied", "name", m.Name)
		}
	case TopicFocus:
		var m Focus
		if err := msgpack.Unmarshal(payload, &m); err != nil {
			return fmt.Errorf("feed: decode %s: %w", topic, err)
		}
		d.sink.SetFocusRegion(m.Name)
	default:
		return fmt.Errorf("feed: %q: %w", topic, ErrUnknownTopic)
	}
	return nil
}
