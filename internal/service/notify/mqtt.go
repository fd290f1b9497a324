package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"itemcam/internal/logger"
)

// MQTTPublisher publishes events to <topic>/<event type>.
type MQTTPublisher struct {
	broker   string
	clientID string
	topic    string
	logger   *logger.Logger

	Client mqtt.Client

	mu        sync.RWMutex
	connected bool
	published uint64
	errors    uint64
}

func NewMQTTPublisher(broker, clientID, topic string, logger *logger.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		broker:   broker,
		clientID: clientID,
		topic:    topic,
		logger:   logger,
	}
}

// Connect establishes the broker connection. Reconnects are automatic afterwards.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", p.broker))
	opts.SetClientID(p.clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		p.setConnected(true)
		p.logger.Info("📡 MQTT connected to %s as %s", p.broker, p.clientID)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		p.setConnected(false)
		p.logger.Warning("MQTT connection lost, reconnecting: %v", err)
	}

	p.Client = mqtt.NewClient(opts)

	token := p.Client.Connect()
	select {
	case <-token.Done():
	case <-time.After(5 * time.Second):
		return fmt.Errorf("mqtt connection timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	p.setConnected(true)
	return nil
}

// Publish sends ev without waiting for the broker acknowledgement.
func (p *MQTTPublisher) Publish(ev Event) {
	if !p.isConnected() {
		p.countError()
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		p.countError()
		return
	}

	token := p.Client.Publish(p.topic+"/"+ev.Type, 0, false, payload)
	go func() {
		if !token.WaitTimeout(2 * time.Second) {
			p.countError()
			p.logger.Warning("MQTT publish timeout for %s event", ev.Type)
			return
		}
		if err := token.Error(); err != nil {
			p.countError()
			p.logger.Warning("MQTT publish failed: %v", err)
			return
		}
		p.mu.Lock()
		p.published++
		p.mu.Unlock()
	}()
}

// Disconnect closes the broker connection.
func (p *MQTTPublisher) Disconnect() {
	if p.Client != nil && p.Client.IsConnected() {
		p.Client.Disconnect(250)
		p.logger.Info("MQTT disconnected")
	}
	p.setConnected(false)
}

// MQTTStats is the broker state reported on /health.
type MQTTStats struct {
	Broker    string `json:"broker"`
	Connected bool   `json:"connected"`
	Published uint64 `json:"published"`
	Errors    uint64 `json:"errors"`
}

// Stats returns the connection state and delivered and failed publish counts.
func (p *MQTTPublisher) Stats() MQTTStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return MQTTStats{
		Broker:    p.broker,
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

func (p *MQTTPublisher) isConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

func (p *MQTTPublisher) countError() {
	p.mu.Lock()
	p.errors++
	p.mu.Unlock()
}
