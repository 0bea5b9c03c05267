package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bher20/avfallsor-mqtt/internal/api"
	"github.com/bher20/avfallsor-mqtt/internal/config"
	"github.com/bher20/avfallsor-mqtt/internal/cron"
	"github.com/bher20/avfallsor-mqtt/internal/migrate"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve health, metrics and schedule endpoints and publish on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, config.Load())
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(false); err != nil {
		return err
	}

	// Optional auto-migration: run `goose up` on startup when enabled.
	if cfg.AutoMigrate && cfg.Storage.Driver != "memory" {
		if err := migrate.Up(ctx, cfg.Storage.Driver, cfg.Storage.DSN); err != nil {
			log.Printf("auto-migration failed: %v", err)
		}
	}

	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	provider, p, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	deps := api.Deps{
		Provider: provider,
		Address:  cfg.Address,
		Source:   p,
		Store:    st,
	}
	if cfg.MQTT.Host != "" {
		job := newJob(cfg, provider, p, st)
		deps.Job = job
		go func() {
			if err := cron.Run(ctx, job, cfg.RefreshInterval); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("cron worker stopped: %v", err)
			}
		}()
	} else {
		log.Printf("MQTT_HOST not set; scheduled publishing disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewMux(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("avfallsor listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Printf("shutting down")
	return srv.Shutdown(shutdownCtx)
}
