package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// MQTTConfig selects the broker and topic prefix.
type MQTTConfig struct {
	Broker   string // host:port or a full URL
	ClientID string // random when empty
	Prefix   string
	QoS      byte
}

// ClampQoS limits q to the MQTT levels 0..2. ok is false when q was clamped.
func ClampQoS(q int) (qos byte, ok bool) {
	switch {
	case q < 0:
		return 0, false
	case q > 2:
		return 2, false
	}
	return byte(q), true
}

func (c MQTTConfig) brokerURL() string {
	if strings.Contains(c.Broker, "://") {
		return c.Broker
	}
	return "tcp://" + c.Broker
}

func (c MQTTConfig) clientID(role string) string {
	if c.ClientID != "" {
		return c.ClientID
	}
	return "worldview-" + role + "-" + uuid.NewString()[:8]
}

func (c MQTTConfig) options(role string, log *slog.Logger) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.brokerURL())
	opts.SetClientID(c.clientID(role))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn("feed: mqtt connection lost, will auto-reconnect", "broker", c.Broker, "err", err)
	}
	return opts
}

func wait(t mqtt.Token, d time.Duration, what string) error {
	if !t.WaitTimeout(d) {
		return fmt.Errorf("feed: mqtt %s timeout", what)
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("feed: mqtt %s: %w", what, err)
	}
	return nil
}

// Subscriber feeds MQTT messages into a Dispatcher.
type Subscriber struct {
	cfg  MQTTConfig
	disp *Dispatcher
	log  *slog.Logger
}

func NewSubscriber(cfg MQTTConfig, d *Dispatcher, log *slog.Logger) *Subscriber {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Subscriber{cfg: cfg, disp: d, log: log}
}

// Run connects, subscribes on every (re)connect and blocks until ctx is done.
func (s *Subscriber) Run(ctx context.Context) error {
	opts := s.cfg.options("sub", s.log)
	opts.OnConnect = func(c mqtt.Client) {
		s.log.Info("feed: mqtt connected", "broker", s.cfg.Broker)
		filters := make(map[string]byte)
		for _, t := range s.disp.Topics() {
			filters[t] = s.cfg.QoS
		}
		if err := wait(c.SubscribeMultiple(filters, s.messageHandler), 5*time.Second, "subscribe"); err != nil {
			s.log.Error("feed: subscribe failed", "err", err)
			return
		}
		s.log.Info("feed: subscribed", "topics", strings.Join(s.disp.Topics(), ","))
	}

	client := mqtt.NewClient(opts)
	s.log.Info("feed: connecting to mqtt broker", "broker", s.cfg.Broker)
	t := client.Connect()
	if !t.WaitTimeout(5 * time.Second) {
		// ConnectRetry keeps dialing in the background.
		s.log.Warn("feed: mqtt broker not reachable yet", "broker", s.cfg.Broker)
	} else if err := t.Error(); err != nil {
		return fmt.Errorf("feed: mqtt connect: %w", err)
	}
	defer client.Disconnect(250)

	<-ctx.Done()
	return nil
}

func (s *Subscriber) messageHandler(_ mqtt.Client, msg mqtt.Message) {
	if err := s.disp.HandleMessage(msg.Topic(), msg.Payload()); err != nil {
		s.log.Warn("feed: message rejected", "topic", msg.Topic(), "err", err)
	}
}

// Publisher encodes region messages and publishes them. It also satisfies
// Sink so a Demo can drive a broker directly.
type Publisher struct {
	cfg    MQTTConfig
	client mqtt.Client
	log    *slog.Logger
}

func NewPublisher(cfg MQTTConfig, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Publisher{cfg: cfg, log: log}
}

// Connect dials the broker.
func (p *Publisher) Connect(ctx context.Context) error {
	p.client = mqtt.NewClient(p.cfg.options("pub", p.log))
	t := p.client.Connect()
	select {
	case <-t.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("feed: mqtt connect timeout")
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("feed: mqtt connect: %w", err)
	}
	p.log.Info("feed: publisher connected", "broker", p.cfg.Broker)
	return nil
}

// Close disconnects.
func (p *Publisher) Close() {
	if p.client != nil {
		p.client.Disconnect(250)
	}
}

// Publish encodes v with msgpack and publishes it under prefix/suffix.
func (p *Publisher) Publish(suffix string, v any) error {
	if p.client == nil {
		return fmt.Errorf("feed: publisher not connected")
	}
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("feed: encode %s: %w", suffix, err)
	}
	topic := Topic(p.cfg.Prefix, suffix)
	if err := wait(p.client.Publish(topic, p.cfg.QoS, false, payload), 2*time.Second, "publish"); err != nil {
		return err
	}
	p.log.Debug("feed: published", "topic", topic, "size", len(payload))
	return nil
}

func (p *Publisher) AddRegion(name string, gx, gy, gz float64, sizeX, sizeY, waterHeight float32) {
	err := p.Publish(TopicRegionAdd, RegionAdd{
		Name: name, X: gx, Y: gy, Z: gz,
		SizeX: sizeX, SizeY: sizeY, WaterHeight: WaterAt(waterHeight),
	})
	if err != nil {
		p.log.Error("feed: publish region failed", "name", name, "err", err)
	}
}

func (p *Publisher) UpdateTerrain(name string, width, length int, heights []float32) bool {
	err := p.Publish(TopicTerrain, TerrainUpdate{Name: name, Width: width, Length: length, Heights: heights})
	if err != nil {
		p.log.Error("feed: publish terrain failed", "name", name, "err", err)
		return false
	}
	return true
}

func (p *Publisher) SetFocusRegion(name string) bool {
	if err := p.Publish(TopicFocus, Focus{Name: name}); err != nil {
		p.log.Error("feed: publish focus failed", "name", name, "err", err)
		return false
	}
	return true
}
