package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/okian/sprinkler/internal/domain/actuation"
)

// DefaultTopic receives the full sprinkler state set.
const DefaultTopic = "irrigation/sprinklers/state"

// publishClient is the part of paho.Client the publisher needs.
type publishClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	IsConnected() bool
}

// PublisherConfig selects where and how commands are published.
type PublisherConfig struct {
	Topic string
	QoS   byte
	// Retained lets a controller that reconnects pick up the last state.
	Retained bool
}

// Publisher implements actuation.Publisher over MQTT.
type Publisher struct {
	client publishClient
	config PublisherConfig
}

var _ actuation.Publisher = (*Publisher)(nil)

// NewPublisher creates a publisher on an established connection.
func NewPublisher(client publishClient, cfg PublisherConfig) *Publisher {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	return &Publisher{client: client, config: cfg}
}

// Publish sends cmd as JSON and waits for the broker acknowledgement
// required by the configured QoS.
func (p *Publisher) Publish(ctx context.Context, cmd actuation.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal actuation command: %w", err)
	}
	token := p.client.Publish(p.config.Topic, p.config.QoS, p.config.Retained, payload)
	if err := wait(ctx, token); err != nil {
		return fmt.Errorf("publish to %s: %w", p.config.Topic, err)
	}
	return nil
}

// Connected reports whether the broker session is up. paho reconnects on
// its own, so this may flip back to true without any action.
func (p *Publisher) Connected() bool { return p.client.IsConnected() }

// Topic returns the destination topic.
func (p *Publisher) Topic() string { return p.config.Topic }
