package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/e7canasta/pxpaint/internal/pipeline"
)

// MQTTConfig configures the stats publisher.
type MQTTConfig struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Topic    string
	QoS      byte
	Interval time.Duration
}

// tokenPublisher is the part of mqtt.Client used to publish.
type tokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher periodically publishes msgpack-encoded snapshots.
type MQTTPublisher struct {
	cfg      MQTTConfig
	provider SnapshotProvider

	client mqtt.Client
	pub    tokenPublisher

	mu        sync.RWMutex
	connected bool
	published uint64
	errors    uint64
}

// MQTTStats contains publisher statistics
type MQTTStats struct {
	Connected bool
	Published uint64
	Errors    uint64
}

// NewMQTTPublisher creates a publisher. Nothing is connected until Connect.
func NewMQTTPublisher(cfg MQTTConfig, provider SnapshotProvider) *MQTTPublisher {
	return &MQTTPublisher{
		cfg:      cfg,
		provider: provider,
	}
}

// Connect establishes the broker connection with automatic reconnect.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.cfg.Broker)
	opts.SetClientID(p.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		p.setConnected(true)
		slog.Info("telemetry: mqtt connected",
			"broker", p.cfg.Broker,
			"client_id", p.cfg.ClientID,
		)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		p.setConnected(false)
		slog.Warn("telemetry: mqtt connection lost, will auto-reconnect",
			"broker", p.cfg.Broker,
			"error", err,
		)
	}

	client := mqtt.NewClient(opts)
	p.client = client
	p.pub = client

	slog.Info("telemetry: connecting to mqtt broker", "broker", p.cfg.Broker)

	token := client.Connect()
	select {
	case <-token.Done():
	case <-time.After(5 * time.Second):
		return fmt.Errorf("telemetry: mqtt connection timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("telemetry: mqtt connection failed: %w", err)
	}

	p.setConnected(true)
	return nil
}

// Run publishes a snapshot every interval until ctx is cancelled.
func (p *MQTTPublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.PublishOnce(); err != nil {
				slog.Debug("telemetry: stats publish failed", "error", err)
			}
		}
	}
}

// PublishOnce publishes the current snapshot.
func (p *MQTTPublisher) PublishOnce() error {
	if p.pub == nil || !p.IsConnected() {
		p.countError()
		return fmt.Errorf("telemetry: mqtt not connected")
	}

	payload, err := EncodeSnapshot(p.provider.Snapshot())
	if err != nil {
		p.countError()
		return err
	}

	token := p.pub.Publish(p.cfg.Topic, p.cfg.QoS, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		p.countError()
		return fmt.Errorf("telemetry: publish timeout")
	}
	if err := token.Error(); err != nil {
		p.countError()
		return fmt.Errorf("telemetry: publish failed: %w", err)
	}

	p.mu.Lock()
	p.published++
	p.mu.Unlock()

	slog.Debug("telemetry: stats published", "topic", p.cfg.Topic, "size", len(payload))
	return nil
}

// Disconnect closes the broker connection.
func (p *MQTTPublisher) Disconnect() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
		slog.Info("telemetry: mqtt disconnected")
	}
	p.setConnected(false)
}

// IsConnected reports the last known connection state.
func (p *MQTTPublisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

// Stats returns publisher statistics
func (p *MQTTPublisher) Stats() MQTTStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return MQTTStats{
		Connected: p.connected,
		Published: p.published,
		Errors:    p.errors,
	}
}

func (p *MQTTPublisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

func (p *MQTTPublisher) countError() {
	p.mu.Lock()
	p.errors++
	p.mu.Unlock()
}

// EncodeSnapshot encodes s as msgpack.
func EncodeSnapshot(s pipeline.Snapshot) ([]byte, error) {
	data, err := msgpack.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("telemetry: encode snapshot: %w", err)
	}
	return data, nil
}
