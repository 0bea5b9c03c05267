package publish

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Client is the subset of an MQTT connection the publisher needs.
type Client interface {
	Connect(ctx context.Context) error
	Publish(ctx context.Context, topic string, retained bool, payload []byte) error
	Disconnect()
}

// Config holds broker connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	ClientID string
	// Timeout bounds connect and each publish acknowledgement.
	Timeout time.Duration
}

// BrokerURL returns the tcp:// URL for the broker.
func (c Config) BrokerURL() string {
	port := c.Port
	if port == 0 {
		port = 1883
	}
	return fmt.Sprintf("tcp://%s:%d", c.Host, port)
}

type pahoClient struct {
	c       mqtt.Client
	timeout time.Duration
}

// NewPahoClient returns a Client backed by the Eclipse Paho library.
// Credentials are only sent when both username and password are set.
func NewPahoClient(cfg Config) Client {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL()).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(false).
		SetConnectRetry(false)
	if cfg.Username != "" && cfg.Password != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts.SetConnectTimeout(timeout)
	return &pahoClient{c: mqtt.NewClient(opts), timeout: timeout}
}

func (p *pahoClient) Connect(ctx context.Context) error {
	return p.wait(ctx, p.c.Connect(), "connect")
}

func (p *pahoClient) Publish(ctx context.Context, topic string, retained bool, payload []byte) error {
	return p.wait(ctx, p.c.Publish(topic, 1, retained, payload), "publish "+topic)
}

func (p *pahoClient) Disconnect() {
	p.c.Disconnect(250)
}

func (p *pahoClient) wait(ctx context.Context, tok mqtt.Token, op string) error {
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return fmt.Errorf("mqtt %s: %w", op, err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("mqtt %s: timed out after %s", op, p.timeout)
	case <-ctx.Done():
		return fmt.Errorf("mqtt %s: %w", op, ctx.Err())
	}
}
