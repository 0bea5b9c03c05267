package main

import (
	"context"
	"time"

	"github.com/bher20/avfallsor-mqtt/internal/alerting"
	"github.com/bher20/avfallsor-mqtt/internal/calendar"
	"github.com/bher20/avfallsor-mqtt/internal/config"
	"github.com/bher20/avfallsor-mqtt/internal/cron"
	"github.com/bher20/avfallsor-mqtt/internal/publish"
	"github.com/bher20/avfallsor-mqtt/internal/storage"
)

func newPipeline(cfg config.Config) (calendar.ProviderDescriptor, *calendar.Pipeline, error) {
	provider, err := cfg.Provider()
	if err != nil {
		return provider, nil, err
	}
	fetcher := calendar.NewHTTPFetcher(calendar.NewHTTPClient(cfg.HTTPTimeout, false))
	p, err := calendar.NewPipeline(provider, fetcher)
	return provider, p, err
}

func newJob(cfg config.Config, provider calendar.ProviderDescriptor, p *calendar.Pipeline, st storage.Storage) *cron.Job {
	client := publish.NewPahoClient(cfg.MQTT)
	pub := publish.NewPublisher(client, provider, publish.Options{
		DiscoveryPrefix: cfg.DiscoveryPrefix,
		Delay:           cfg.PublishDelay,
	})
	return &cron.Job{
		Provider:      provider,
		Address:       cfg.Address,
		Source:        p,
		Publisher:     pub,
		Store:         st,
		Alerter:       alerting.NewAlerter(alerting.DefaultAlertConfig()),
		FetchAttempts: 3,
		RetryBase:     2 * time.Second,
	}
}

func openStorage(ctx context.Context, cfg config.Config) (storage.Storage, error) {
	return storage.Open(ctx, cfg.Storage)
}
