// Package mqtt delivers actuation commands to field controllers over MQTT.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/okian/sprinkler/pkg/logger"
)

const (
	keepAlive         = 60 * time.Second
	pingTimeout       = 10 * time.Second
	connectTimeout    = 10 * time.Second
	disconnectQuiesce = 250 // milliseconds
)

// ErrConnect is returned when the broker cannot be reached.
var ErrConnect = errors.New("mqtt connect failed")

// ClientConfig holds MQTT connection settings.
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Client owns the broker connection.
type Client struct {
	client paho.Client
	config ClientConfig
	logger logger.Logger
}

// Connect dials the broker and waits for the session, bounded by ctx.
func Connect(ctx context.Context, cfg ClientConfig, log logger.Logger) (*Client, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(keepAlive)
	opts.SetPingTimeout(pingTimeout)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetOnConnectHandler(func(paho.Client) {
		log.Info(context.Background(), "mqtt connection established", logger.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn(context.Background(), "mqtt connection lost", logger.Error(err))
	})

	client := paho.NewClient(opts)
	if err := wait(ctx, client.Connect()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, cfg.Broker, err)
	}
	return &Client{client: client, config: cfg, logger: log}, nil
}

// Native returns the underlying paho client.
func (c *Client) Native() paho.Client { return c.client }

// Close disconnects from the broker.
func (c *Client) Close() {
	c.client.Disconnect(disconnectQuiesce)
	c.logger.Info(context.Background(), "mqtt disconnected", logger.String("broker", c.config.Broker))
}

// wait blocks until the token completes or ctx is done.
func wait(ctx context.Context, token paho.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
