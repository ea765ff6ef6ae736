package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"worldview/engine/region"
	"worldview/engine/stats"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type recordingSink struct {
	mu    sync.Mutex
	calls []string
	focus []string
}

func (r *recordingSink) AddRegion(name string, gx, gy, gz float64, sizeX, sizeY, waterHeight float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "add:"+name)
}

func (r *recordingSink) UpdateTerrain(name string, width, length int, heights []float32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "terrain:"+name)
	return true
}

func (r *recordingSink) SetFocusRegion(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "focus:"+name)
	r.focus = append(r.focus, name)
	return true
}

func (r *recordingSink) focusCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.focus)
}

func encode(t *testing.T, v any) []byte {
	t.Helper()
	b, err := msgpack.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "world/focus", Topic("world/", TopicFocus))
	assert.Equal(t, "focus", Topic("", TopicFocus))
}

func TestDispatcherAppliesToTracker(t *testing.T) {
	tr := region.NewTracker(nil)
	st := stats.New()
	d := NewDispatcher("world", tr, st, nil)

	require.NoError(t, d.HandleMessage("world/region/add", encode(t, RegionAdd{
		Name: "a", X: 1_000_000, Y: 2_000_000, SizeX: 256, SizeY: 256, WaterHeight: WaterAt(20),
	})))
	require.NoError(t, d.HandleMessage("world/region/add", encode(t, RegionAdd{
		Name: "b", X: 1_000_256, Y: 2_000_000, SizeX: 256, SizeY: 256, WaterHeight: WaterAt(region.NoWater),
	})))
	require.NoError(t, d.HandleMessage("world/region/terrain", encode(t, TerrainUpdate{
		Name: "a", Width: 2, Length: 2, Heights: []float32{1, 2, 3, 4},
	})))
	require.NoError(t, d.HandleMessage("world/focus", encode(t, Focus{Name: "a"})))

	a, ok := tr.FindRegion("a")
	require.True(t, ok)
	assert.Equal(t, float32(20), a.WaterHeight())
	assert.Equal(t, uint64(1), a.Terrain().Revision)

	b, _ := tr.FindRegion("b")
	assert.False(t, b.HasWater())
	assert.Equal(t, float32(256), b.Local().X())

	n, _ := st.Get(StatMessages)
	assert.Equal(t, int64(4), n)
}

func TestRegionAddWaterHeightOnTheWire(t *testing.T) {
	tr := region.NewTracker(nil)
	d := NewDispatcher("world", tr, nil, nil)

	require.NoError(t, d.HandleMessage("world/region/add", encode(t, map[string]any{
		"name": "dry", "size_x": float32(16), "size_y": float32(16),
	})))
	require.NoError(t, d.HandleMessage("world/region/add", encode(t, RegionAdd{
		Name: "sea", SizeX: 16, SizeY: 16, WaterHeight: WaterAt(0),
	})))

	dry, _ := tr.FindRegion("dry")
	assert.False(t, dry.HasWater())
	sea, _ := tr.FindRegion("sea")
	assert.True(t, sea.HasWater())
	assert.Equal(t, float32(0), sea.WaterHeight())

	assert.Nil(t, WaterAt(region.NoWater))
	assert.Equal(t, region.NoWater, RegionAdd{}.Water())
}

func TestDispatcherRejects(t *testing.T) {
	st := stats.New()
	d := NewDispatcher("world", &recordingSink{}, st, nil)

	err := d.HandleMessage("other/focus", encode(t, Focus{Name: "a"}))
	assert.True(t, errors.Is(err, ErrUnknownTopic))

	err = d.HandleMessage("world/weather", nil)
	assert.ErrorIs(t, err, ErrUnknownTopic)

	err = d.HandleMessage("world/focus", []byte{0xc1})
	assert.Error(t, err)

	err = d.HandleMessage("world/region/add", encode(t, RegionAdd{}))
	assert.Error(t, err)

	n, _ := st.Get(StatErrors)
	assert.Equal(t, int64(4), n)
}

func TestDispatcherTopics(t *testing.T) {
	d := NewDispatcher("world/", &recordingSink{}, nil, nil)
	assert.Equal(t, []string{"world/region/add", "world/region/terrain", "world/focus"}, d.Topics())
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

var _ mqtt.Message = fakeMessage{}

func TestSubscriberMessageHandler(t *testing.T) {
	sink := &recordingSink{}
	s := NewSubscriber(MQTTConfig{Broker: "localhost:1883", Prefix: "w"}, NewDispatcher("w", sink, nil, nil), nil)

	s.messageHandler(nil, fakeMessage{topic: "w/focus", payload: encode(t, Focus{Name: "x"})})
	s.messageHandler(nil, fakeMessage{topic: "w/nope", payload: nil})

	assert.Equal(t, []string{"focus:x"}, sink.calls)
}

func TestMQTTConfig(t *testing.T) {
	assert.Equal(t, "tcp://localhost:1883", MQTTConfig{Broker: "localhost:1883"}.brokerURL())
	assert.Equal(t, "ws://broker:9001", MQTTConfig{Broker: "ws://broker:9001"}.brokerURL())
	assert.Equal(t, "fixed", MQTTConfig{ClientID: "fixed"}.clientID("sub"))
	assert.Contains(t, MQTTConfig{}.clientID("sub"), "worldview-sub-")
}

func TestClampQoS(t *testing.T) {
	for in, want := range map[int]struct {
		qos byte
		ok  bool
	}{
		-1:  {0, false},
		0:   {0, true},
		2:   {2, true},
		3:   {2, false},
		256: {2, false},
	} {
		qos, ok := ClampQoS(in)
		assert.Equal(t, want.qos, qos, "qos(%d)", in)
		assert.Equal(t, want.ok, ok, "ok(%d)", in)
	}
}

func TestPublisherRequiresConnect(t *testing.T) {
	p := NewPublisher(MQTTConfig{Broker: "localhost:1883"}, nil)
	assert.Error(t, p.Publish(TopicFocus, Focus{Name: "a"}))
	assert.False(t, p.SetFocusRegion("a"))
}

func TestDemoPopulatesTracker(t *testing.T) {
	tr := region.NewTracker(nil)
	d := NewDemo(DemoConfig{Columns: 2, Rows: 2, Samples: 5}, tr, nil)

	names := d.Populate()
	require.Equal(t, []string{"demo-0-0", "demo-1-0", "demo-1-1", "demo-0-1"}, names)
	assert.Equal(t, 4, tr.Len())

	f, ok := tr.FocusRegion()
	require.True(t, ok)
	assert.Equal(t, "demo-0-0", f.Name())

	r, _ := tr.FindRegion("demo-1-1")
	assert.Equal(t, float32(256), r.Local().X())
	assert.Equal(t, float32(256), r.Local().Y())
	assert.Equal(t, 5, r.Terrain().Width)

	w00, _ := tr.FindRegion("demo-0-0")
	w10, _ := tr.FindRegion("demo-1-0")
	assert.True(t, w00.HasWater())
	assert.False(t, w10.HasWater())
}

func TestDemoWaterHeight(t *testing.T) {
	for _, c := range []struct {
		water *float32
		want  float32
	}{
		{nil, 18},
		{WaterAt(0), 0},
		{WaterAt(region.NoWater), region.NoWater},
	} {
		tr := region.NewTracker(nil)
		NewDemo(DemoConfig{Columns: 1, Rows: 1, Samples: 3, Water: c.water}, tr, nil).Populate()
		r, ok := tr.FindRegion("demo-0-0")
		require.True(t, ok)
		assert.Equal(t, c.want, r.WaterHeight())
	}
}

func TestDemoHeightsMatchAtSeams(t *testing.T) {
	d := NewDemo(DemoConfig{Samples: 9}, &recordingSink{}, nil)
	left := d.Heights(0, 0)
	right := d.Heights(1, 0)
	for y := 0; y < 9; y++ {
		assert.InDelta(t, left[y*9+8], right[y*9], 1e-3, "row %d", y)
	}
}

func TestDemoRunWalksFocus(t *testing.T) {
	sink := &recordingSink{}
	d := NewDemo(DemoConfig{Columns: 2, Rows: 1, FocusEvery: time.Millisecond}, sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return sink.focusCount() >= 3 }, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, []string{"demo-0-0", "demo-1-0", "demo-0-0"}, sink.focus[:3])
}
