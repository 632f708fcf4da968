package downlink

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/okian/parakeet/internal/domain/model"
	"github.com/okian/parakeet/pkg/metrics"
)

const (
	transportMQTT         = "mqtt"
	defaultPublishTimeout = 2 * time.Second
	disconnectQuiesceMs   = 250
)

// mqttClient is the subset of mqtt.Client the publisher uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTOption applies a configuration option to the MQTTPublisher.
type MQTTOption func(*MQTTPublisher)

// WithPublishTimeout bounds how long Publish waits for the broker.
func WithPublishTimeout(d time.Duration) MQTTOption {
	return func(p *MQTTPublisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// MQTTPublisher sends each event to one topic with QoS 0.
type MQTTPublisher struct {
	client  mqttClient
	topic   string
	timeout time.Duration
}

// DialMQTT connects to broker (e.g. "tcp://ground:1883") with auto reconnect.
func DialMQTT(broker, clientID, topic string, opts ...MQTTOption) (*MQTTPublisher, error) {
	o := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second).
		SetOrderMatters(false)
	c := mqtt.NewClient(o)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, broker, token.Error())
	}
	return NewMQTT(c, topic, opts...), nil
}

// NewMQTT wraps an already connected client.
func NewMQTT(c mqttClient, topic string, opts ...MQTTOption) *MQTTPublisher {
	p := &MQTTPublisher{client: c, topic: topic, timeout: defaultPublishTimeout}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *MQTTPublisher) Publish(ctx context.Context, e model.Event) error {
	payload, err := Encode(e)
	if err != nil {
		metrics.RecordDownlinkError(transportMQTT)
		return err
	}

	token := p.client.Publish(p.topic, 0, false, payload)
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-timer.C:
		metrics.RecordDownlinkError(transportMQTT)
		return fmt.Errorf("%w: %s", ErrPublishTimeout, p.topic)
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		metrics.RecordDownlinkError(transportMQTT)
		return fmt.Errorf("mqtt publish %s: %w", p.topic, err)
	}
	metrics.RecordDownlinkSent(transportMQTT)
	return nil
}

// Name identifies the transport in logs.
func (p *MQTTPublisher) Name() string { return transportMQTT }

// Close disconnects after giving in-flight messages a moment to leave.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(disconnectQuiesceMs)
	return nil
}
