package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/bher20/avfallsor-mqtt/internal/calendar"
	"github.com/bher20/avfallsor-mqtt/internal/metrics"
)

// Options controls topic layout and pacing.
type Options struct {
	DiscoveryPrefix string
	// Delay is paused after every message; some brokers drop bursts of
	// retained messages from a fresh connection.
	Delay time.Duration
}

// Publisher sends a schedule to MQTT as Home Assistant date sensors.
type Publisher struct {
	client   Client
	provider calendar.ProviderDescriptor
	opts     Options
}

func NewPublisher(c Client, p calendar.ProviderDescriptor, opts Options) *Publisher {
	if opts.DiscoveryPrefix == "" {
		opts.DiscoveryPrefix = "homeassistant"
	}
	return &Publisher{client: c, provider: p, opts: opts}
}

// Publish connects, sends a retained discovery config and a retained state for
// every waste type in s, and disconnects.
func (p *Publisher) Publish(ctx context.Context, s calendar.Schedule) error {
	if err := p.client.Connect(ctx); err != nil {
		return err
	}
	defer p.client.Disconnect()

	metrics.ResetNextPickups(p.provider.Key)
	for _, wasteType := range s.Types() {
		date := s[wasteType]
		topics := TopicsFor(p.opts.DiscoveryPrefix, p.provider.Key, wasteType)

		cfg := NewSensorConfig(p.provider.Key, p.provider.Name, wasteType, topics.State)
		payload, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encode discovery for %s: %w", wasteType, err)
		}

		if err := p.send(ctx, topics.Config, payload); err != nil {
			return err
		}
		if err := p.send(ctx, topics.State, []byte(date.String())); err != nil {
			return err
		}

		metrics.NextPickupTimestamp.WithLabelValues(p.provider.Key, wasteType).Set(float64(date.Time(time.Local).Unix()))
		log.Printf("publish: %s next pickup %s", wasteType, date)
	}
	return nil
}

func (p *Publisher) send(ctx context.Context, topic string, payload []byte) error {
	if err := p.client.Publish(ctx, topic, true, payload); err != nil {
		metrics.PublishErrorsTotal.WithLabelValues(p.provider.Key).Inc()
		return err
	}
	metrics.MessagesPublishedTotal.WithLabelValues(p.provider.Key).Inc()
	return sleep(ctx, p.opts.Delay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
