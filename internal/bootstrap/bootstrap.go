// Package bootstrap holds the start-up sequence shared by the storefront
// binaries: environment, config, logger, database, Redis and the Prometheus
// registry, plus orderly teardown.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/threadloom/storefront-backend/pkg/config"
	"github.com/threadloom/storefront-backend/pkg/db"
	"github.com/threadloom/storefront-backend/pkg/instance"
	"github.com/threadloom/storefront-backend/pkg/logger"
	"github.com/threadloom/storefront-backend/pkg/migrate"
	"github.com/threadloom/storefront-backend/pkg/redis"
)

// Options selects which shared resources a binary needs.
type Options struct {
	Name string
	// Redis connects the shared Redis client.
	Redis bool
	// RuntimeMetrics registers the Go and process collectors.
	RuntimeMetrics bool
}

// Service is a booted binary. Close releases resources in reverse order.
type Service struct {
	Name     string
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Redis    *redis.Client
	Registry *prometheus.Registry

	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// LoadConfig reads .env when present and builds the config and logger.
func LoadConfig(name string) (*config.Config, *logger.Logger, error) {
	logg := logger.New(logger.Options{ServiceName: name})
	if err := godotenv.Load(); err != nil {
		logg.Debug(context.Background(), ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, logg, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = name
	logg = logger.New(logger.Options{
		ServiceName: name,
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})
	return cfg, logg, nil
}

// Start boots the shared resources. On error everything opened so far is
// closed again.
func Start(ctx context.Context, opts Options) (svc *Service, err error) {
	cfg, logg, err := LoadConfig(opts.Name)
	if err != nil {
		return nil, err
	}
	svc = &Service{
		Name:     opts.Name,
		Config:   cfg,
		Logger:   logg,
		Registry: prometheus.NewRegistry(),
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, svc.Close())
			svc = nil
		}
	}()

	if opts.RuntimeMetrics {
		svc.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	svc.DB, err = db.New(ctx, cfg.DB, logg)
	if err != nil {
		return svc, fmt.Errorf("bootstrap database: %w", err)
	}
	svc.onClose("database", svc.DB.Close)

	if err = migrate.MaybeRunDev(ctx, cfg, logg, svc.DB); err != nil {
		return svc, fmt.Errorf("dev migrations: %w", err)
	}

	if opts.Redis {
		svc.Redis, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return svc, fmt.Errorf("bootstrap redis: %w", err)
		}
		svc.onClose("redis", svc.Redis.Close)
	}
	return svc, nil
}

func (s *Service) onClose(name string, fn func() error) {
	s.closers = append(s.closers, namedCloser{name: name, close: fn})
}

// OnClose registers an extra resource released by Close before the shared ones.
func (s *Service) OnClose(name string, fn func() error) {
	s.onClose(name, fn)
}

// Close releases resources last-opened first and returns every failure.
func (s *Service) Close() error {
	var errs error
	for i := len(s.closers) - 1; i >= 0; i-- {
		c := s.closers[i]
		if err := c.close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	s.closers = nil
	return errs
}

// Context returns ctx tagged with the fields every log line of the binary carries.
func (s *Service) Context(ctx context.Context, extra map[string]any) context.Context {
	fields := map[string]any{
		"env":         s.Config.App.Env,
		"serviceKind": s.Config.Service.Kind,
		"instance":    instance.GetID(),
	}
	for k, v := range extra {
		fields[k] = v
	}
	return s.Logger.WithFields(ctx, fields)
}
