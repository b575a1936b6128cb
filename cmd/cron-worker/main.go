package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/threadloom/storefront-backend/internal/bootstrap"
	"github.com/threadloom/storefront-backend/internal/checkout"
	"github.com/threadloom/storefront-backend/internal/cron"
	"github.com/threadloom/storefront-backend/pkg/metrics"
	"github.com/threadloom/storefront-backend/pkg/outbox"
)

const (
	serviceName = "cron-worker"
	lockName    = "cron-worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.Start(ctx, bootstrap.Options{Name: serviceName, Redis: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
	if err := run(ctx, svc); err != nil {
		svc.Logger.Error(ctx, "cron worker stopped unexpectedly", err)
		_ = svc.Close()
		os.Exit(1)
	}
	if err := svc.Close(); err != nil {
		svc.Logger.Error(ctx, "error releasing resources", err)
	}
}

func run(ctx context.Context, svc *bootstrap.Service) error {
	cfg, logg, dbClient := svc.Config, svc.Logger, svc.DB

	lock, err := cron.NewRedisLock(svc.Redis, svc.Redis.LockKey(lockName), cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("create cron lock: %w", err)
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	expiryJob, err := cron.NewCheckoutExpiryJob(cron.CheckoutExpiryJobParams{
		Logger:       logg,
		DB:           dbClient,
		Sessions:     checkout.NewRepository(dbClient.DB()),
		Outbox:       outbox.NewService(outboxRepo, logg),
		PendingGrace: cfg.Checkout.PendingGrace,
	})
	if err != nil {
		return fmt.Errorf("create checkout expiry job: %w", err)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
		Retention:  cfg.Outbox.RetentionDays,
	})
	if err != nil {
		return fmt.Errorf("create outbox retention job: %w", err)
	}

	jobs, err := cron.NewRegistry(expiryJob, retentionJob)
	if err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   jobs,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(svc.Registry),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		return fmt.Errorf("create cron service: %w", err)
	}

	ctx = svc.Context(ctx, map[string]any{
		"interval": cfg.Cron.Interval.String(),
		"jobs":     jobs.Names(),
	})
	stopMetrics := svc.ServeMetrics(ctx, ":"+cfg.App.Port)
	defer stopMetrics()

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
	return nil
}
