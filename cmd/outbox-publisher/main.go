package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/threadloom/storefront-backend/internal/bootstrap"
	"github.com/threadloom/storefront-backend/pkg/metrics"
	"github.com/threadloom/storefront-backend/pkg/outbox"
	"github.com/threadloom/storefront-backend/pkg/outbox/registry"
	"github.com/threadloom/storefront-backend/pkg/pubsub"
)

const serviceName = "outbox-publisher"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.Start(ctx, bootstrap.Options{Name: serviceName})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
	if err := run(ctx, svc); err != nil {
		svc.Logger.Error(ctx, "outbox publisher stopped unexpectedly", err)
		_ = svc.Close()
		os.Exit(1)
	}
	if err := svc.Close(); err != nil {
		svc.Logger.Error(ctx, "error releasing resources", err)
	}
}

func run(ctx context.Context, svc *bootstrap.Service) error {
	cfg, logg := svc.Config, svc.Logger

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	svc.OnClose("pubsub", pubsubClient.Close)

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("build event registry: %w", err)
	}
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            svc.DB,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(svc.DB.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(svc.DB.DB()),
		Metrics:       metrics.NewOutboxMetrics(svc.Registry),
	})
	if err != nil {
		return fmt.Errorf("create outbox publisher: %w", err)
	}

	ctx = svc.Context(ctx, map[string]any{"events": eventRegistry.EventTypes()})
	stopMetrics := svc.ServeMetrics(ctx, ":"+cfg.App.Port)
	defer stopMetrics()

	logg.Info(ctx, "starting outbox publisher")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
	return nil
}
