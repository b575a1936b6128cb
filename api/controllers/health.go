package controllers

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/threadloom/storefront-backend/api/responses"
	"github.com/threadloom/storefront-backend/pkg/config"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
	"github.com/threadloom/storefront-backend/pkg/logger"
)

const (
	envHeader    = "X-Storefront-Env"
	readyTimeout = 2 * time.Second
)

// Pinger is satisfied by the database and Redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

type dependencyCheck struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	err       error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency in parallel. Any failure turns the
// response into a 503 naming the unavailable dependencies.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := pingAll(r.Context(), deps)
		var failed []string
		for name, check := range checks {
			if check.err != nil {
				failed = append(failed, name)
			}
		}
		if len(failed) > 0 {
			sort.Strings(failed)
			err := pkgerrors.Wrap(pkgerrors.CodeDependency, checks[failed[0]].err, strings.Join(failed, ", ")+" unavailable").
				WithDetails(map[string]any{"checks": checks})
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}

func pingAll(ctx context.Context, deps map[string]Pinger) map[string]dependencyCheck {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		checks = make(map[string]dependencyCheck, len(deps))
	)
	var g errgroup.Group
	for name, dep := range deps {
		if dep == nil {
			continue
		}
		g.Go(func() error {
			start := time.Now()
			err := dep.Ping(ctx)
			check := dependencyCheck{Status: "ok", LatencyMS: time.Since(start).Milliseconds(), err: err}
			if err != nil {
				check.Status = "unavailable"
			}
			mu.Lock()
			checks[name] = check
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return checks
}
