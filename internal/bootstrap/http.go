package bootstrap

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/threadloom/storefront-backend/pkg/logger"
)

const readHeaderTimeout = 10 * time.Second

// Serve runs srv until ctx is cancelled, then shuts it down within timeout.
// A listener failure is returned; a clean shutdown returns nil.
func Serve(ctx context.Context, logg *logger.Logger, srv *http.Server, timeout time.Duration) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	return serveListener(ctx, logg, srv, ln, timeout)
}

func serveListener(ctx context.Context, logg *logger.Logger, srv *http.Server, ln net.Listener, timeout time.Duration) error {
	if srv.ReadHeaderTimeout == 0 {
		srv.ReadHeaderTimeout = readHeaderTimeout
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		if logg != nil {
			logg.Info(ctx, "shutdown signal received")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ServeMetrics exposes the registry on addr in the background for worker
// binaries. The returned func stops the listener.
func (s *Service) ServeMetrics(ctx context.Context, addr string) func() {
	srv := &http.Server{
		Addr:    addr,
		Handler: MetricsHandler(s.Registry),
	}
	metricsCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := Serve(metricsCtx, nil, srv, 5*time.Second); err != nil {
			s.Logger.Error(ctx, "metrics listener stopped", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// MetricsHandler serves the registry in the Prometheus exposition format.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
