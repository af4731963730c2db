package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/bdrydyk/homebridge-securitysystem/internal/accessory"
	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/engine"
	"github.com/bdrydyk/homebridge-securitysystem/internal/logger"
)

// Payloads understood by Home Assistant.
const (
	payloadOn      = "ON"
	payloadOff     = "OFF"
	payloadOnline  = "online"
	payloadOffline = "offline"

	commandArmHome  = "ARM_HOME"
	commandArmAway  = "ARM_AWAY"
	commandArmNight = "ARM_NIGHT"
	commandDisarm   = "DISARM"

	stateArming    = "arming"
	stateTriggered = "triggered"

	setSuffix = "/set"
)

const (
	qos               = 1
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 250
	outboundBuffer    = 64
	retryInterval     = 5 * time.Second
)

// ErrConnectTimeout is returned when the broker does not answer in time.
var ErrConnectTimeout = errors.New("mqtt connect timeout")

// Config holds MQTT bridge configuration.
type Config struct {
	Broker          string
	Username        string
	Password        string
	TopicPrefix     string
	DiscoveryPrefix string
	// Name is the display name used in discovery.
	Name string
}

// Engine is the part of the state engine the bridge drives.
type Engine interface {
	accessory.Engine
	Snapshot() security.Snapshot
	EnabledTargets() []security.Mode
	RequestTargetMode(ctx context.Context, mode security.Mode, opts ...engine.RequestOption) error
	SetDelayArming(ctx context.Context, enabled bool) error
}

// client is the part of the paho client the bridge uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload any) pahomqtt.Token
	Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token
	Disconnect(quiesce uint)
}

// topics holds every topic below the prefix.
type topics struct {
	availability string
	state        string
	command      string
	target       string
	siren        string
	sirenPulse   string
	arming       string
	delayArming  string
	sensor       string
}

func newTopics(prefix string) topics {
	return topics{
		availability: prefix + "/availability",
		state:        prefix + "/state",
		command:      prefix + setSuffix,
		target:       prefix + "/target",
		siren:        prefix + "/siren",
		sirenPulse:   prefix + "/siren/motion",
		arming:       prefix + "/arming",
		delayArming:  prefix + "/delay_arming",
		sensor:       prefix + "/sensor",
	}
}

// outbound is a queued publication.
type outbound struct {
	topic    string
	payload  []byte
	retained bool
}

// Bridge connects the security system to MQTT with HA discovery.
type Bridge struct {
	ctx    context.Context
	cfg    Config
	topics topics
	client client
	engine Engine

	siren  *accessory.SirenSwitch
	motion *accessory.MotionSensor
	sensor *accessory.Sensor
	unsub  func()

	// Mirrors of engine state, updated from events under the engine lock.
	mu      sync.Mutex
	current security.Mode
	arming  bool

	queue    chan outbound
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewBridge creates and connects an MQTT bridge.
func NewBridge(ctx context.Context, eng Engine, cfg Config) (*Bridge, error) {
	var b *Bridge

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("securitysystem-" + uuid.NewString()).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval).
		SetWill(newTopics(cfg.TopicPrefix).availability, payloadOffline, qos, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			logger.Info(b.ctx, "MQTT connected")
			b.announce()
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			logger.WarnKV(b.ctx, "MQTT connection lost", "error", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	c := pahomqtt.NewClient(opts)
	b = newBridge(ctx, eng, cfg, c)

	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		c.Disconnect(0)
		b.release()

		return nil, ErrConnectTimeout
	}

	if err := token.Error(); err != nil {
		b.release()

		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	return b, nil
}

func newBridge(ctx context.Context, eng Engine, cfg Config, c client) *Bridge {
	b := &Bridge{
		ctx:    logger.WithName(ctx, "mqtt"),
		cfg:    cfg,
		topics: newTopics(cfg.TopicPrefix),
		client: c,
		engine: eng,
		queue:  make(chan outbound, outboundBuffer),
		done:   make(chan struct{}),
	}

	// Accessories exist before the first connection so command handlers
	// always find them.
	b.siren = accessory.NewSirenSwitch(eng)
	b.siren.OnChange(func(on bool) { b.publish(b.topics.siren, onOff(on), true) })

	b.motion = accessory.NewMotionSensor(eng)
	b.motion.OnChange(func(on bool) { b.publish(b.topics.sirenPulse, onOff(on), true) })

	b.sensor = accessory.NewSensor("mqtt", eng)
	b.sensor.OnChange(func(on bool) { b.publish(b.topics.sensor, onOff(on), true) })

	b.wg.Add(1)

	go b.publishLoop()

	return b
}

// Start subscribes to engine events and publishes the initial state.
func (b *Bridge) Start() {
	snap := b.engine.Snapshot()

	b.mu.Lock()
	b.current = snap.CurrentMode
	b.arming = snap.Arming
	b.mu.Unlock()

	b.unsub = b.engine.Subscribe(b.handleEvent)

	b.publishState()
	b.publish(b.topics.target, []byte(snap.TargetMode.String()), true)
	b.publish(b.topics.siren, onOff(snap.SirenActive), true)
	b.publish(b.topics.sirenPulse, onOff(false), true)
	b.publish(b.topics.arming, onOff(snap.Arming), true)
	b.publish(b.topics.delayArming, onOff(snap.DelayArming), true)

	logger.InfoKV(b.ctx, "MQTT bridge started", "prefix", b.cfg.TopicPrefix)
}

// Stop publishes the offline state, detaches from the engine and disconnects.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.release()

		token := b.client.Publish(b.topics.availability, qos, true, payloadOffline)
		token.WaitTimeout(publishTimeout)
		b.client.Disconnect(disconnectQuiesce)

		logger.Info(b.ctx, "MQTT bridge stopped")
	})
}

// release detaches from the engine and stops the publish loop.
func (b *Bridge) release() {
	if b.unsub != nil {
		b.unsub()
	}

	b.siren.Close()
	b.motion.Close()

	close(b.done)
	b.wg.Wait()
}

// announce publishes discovery and availability and subscribes to commands.
// It runs on every (re)connection.
func (b *Bridge) announce() {
	for _, msg := range buildDiscovery(b.cfg, b.engine.EnabledTargets()) {
		b.publish(msg.Topic, msg.Payload, true)
	}

	b.publish(b.topics.availability, []byte(payloadOnline), true)

	b.subscribe(b.topics.command, b.handleCommand)
	b.subscribe(b.topics.siren+setSuffix, b.handleSiren)
	b.subscribe(b.topics.delayArming+setSuffix, b.handleDelayArming)
	b.subscribe(b.topics.sensor+setSuffix, b.handleSensor)
}

func (b *Bridge) subscribe(topic string, handle func([]byte)) {
	b.client.Subscribe(topic, qos, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		handle(msg.Payload())
	})
}

// handleEvent runs under the engine lock.
func (b *Bridge) handleEvent(e engine.Event) {
	switch e.Type { //nolint:exhaustive // Siren events reach MQTT through the accessories.
	case engine.EventCurrentState:
		b.mu.Lock()
		b.current = e.Mode
		b.mu.Unlock()
		b.publishState()
	case engine.EventTargetState:
		b.publish(b.topics.target, []byte(e.Mode.String()), true)
	case engine.EventArming:
		b.mu.Lock()
		b.arming = e.Value
		b.mu.Unlock()
		b.publish(b.topics.arming, onOff(e.Value), true)
		b.publishState()
	case engine.EventDelayArming:
		b.publish(b.topics.delayArming, onOff(e.Value), true)
	}
}

func (b *Bridge) handleCommand(payload []byte) {
	cmd := strings.ToUpper(strings.TrimSpace(string(payload)))

	mode, ok := commandModes[cmd]
	if !ok {
		logger.WarnKV(b.ctx, "Unknown alarm command", "command", cmd)

		return
	}

	if err := b.engine.RequestTargetMode(b.ctx, mode); err != nil {
		logger.WarnKV(b.ctx, "Alarm command rejected", "command", cmd, "error", err)
		// Re-publish so Home Assistant drops the optimistic state.
		b.publishState()
	}
}

func (b *Bridge) handleSiren(payload []byte) {
	on, ok := parseOnOff(payload)
	if !ok {
		return
	}

	if err := b.siren.Set(b.ctx, on); err != nil {
		logger.WarnKV(b.ctx, "Siren command rejected", "error", err)
		b.publish(b.topics.siren, onOff(b.siren.Value()), true)
	}
}

func (b *Bridge) handleDelayArming(payload []byte) {
	on, ok := parseOnOff(payload)
	if !ok {
		return
	}

	if err := b.engine.SetDelayArming(b.ctx, on); err != nil {
		logger.WarnKV(b.ctx, "Delay arming command rejected", "error", err)
	}
}

func (b *Bridge) handleSensor(payload []byte) {
	on, ok := parseOnOff(payload)
	if !ok {
		return
	}

	if err := b.sensor.Set(b.ctx, on); err != nil {
		logger.DebugKV(b.ctx, "Sensor report ignored", "error", err)
		b.publish(b.topics.sensor, onOff(b.sensor.Value()), true)
	}
}

// publishState publishes the alarm control panel state.
func (b *Bridge) publishState() {
	b.mu.Lock()
	state := panelState(b.current, b.arming)
	b.mu.Unlock()

	b.publish(b.topics.state, []byte(state), true)
}

// publish queues a publication. It never blocks; it may run under the
// engine lock.
func (b *Bridge) publish(topic string, payload []byte, retained bool) {
	select {
	case <-b.done:
		return
	default:
	}

	select {
	case b.queue <- outbound{topic: topic, payload: payload, retained: retained}:
	default:
		logger.WarnKV(b.ctx, "MQTT outbound queue full, dropping message", "topic", topic)
	}
}

func (b *Bridge) publishLoop() {
	defer b.wg.Done()

	for {
		select {
		case <-b.done:
			return
		case msg := <-b.queue:
			token := b.client.Publish(msg.topic, qos, msg.retained, msg.payload)
			if !token.WaitTimeout(publishTimeout) {
				logger.WarnKV(b.ctx, "MQTT publish timeout", "topic", msg.topic)
			} else if err := token.Error(); err != nil {
				logger.WarnKV(b.ctx, "MQTT publish error", "topic", msg.topic, "error", err)
			}
		}
	}
}

//nolint:gochecknoglobals // Read-only lookup table.
var commandModes = map[string]security.Mode{
	commandArmHome:  security.ModeHome,
	commandArmAway:  security.ModeAway,
	commandArmNight: security.ModeNight,
	commandDisarm:   security.ModeOff,
}

//nolint:gochecknoglobals // Read-only lookup table.
var panelStates = map[security.Mode]string{
	security.ModeHome:      "armed_home",
	security.ModeAway:      "armed_away",
	security.ModeNight:     "armed_night",
	security.ModeOff:       "disarmed",
	security.ModeTriggered: stateTriggered,
}

// panelState maps the current mode to an HA alarm_control_panel state.
func panelState(current security.Mode, arming bool) string {
	if arming && current != security.ModeTriggered {
		return stateArming
	}

	return panelStates[current]
}

func onOff(v bool) []byte {
	if v {
		return []byte(payloadOn)
	}

	return []byte(payloadOff)
}

func parseOnOff(payload []byte) (bool, bool) {
	switch strings.ToUpper(strings.TrimSpace(string(payload))) {
	case payloadOn:
		return true, true
	case payloadOff:
		return false, true
	default:
		return false, false
	}
}
