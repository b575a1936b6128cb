package maintenance

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/threadloom/storefront-backend/internal/identity"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
	"github.com/threadloom/storefront-backend/pkg/logger"
)

const defaultCacheTTL = 2 * time.Second

type snapshot struct {
	on        bool
	fetchedAt time.Time
}

// Service reads and toggles the site-wide maintenance flag. Reads are served
// from an in-process cache that is refreshed after ttl; a Set is visible to the
// same process immediately and to other replicas within ttl.
type Service struct {
	store Store
	ttl   time.Duration
	logg  *logger.Logger
	now   func() time.Time

	state atomic.Pointer[snapshot]
	group singleflight.Group
}

// NewService builds the gate on top of store.
func NewService(store Store, ttl time.Duration, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("maintenance store required")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Service{store: store, ttl: ttl, logg: logg, now: time.Now}, nil
}

// Get reports whether maintenance mode is on. Store failures fall back to the
// last known value, which starts as off.
func (s *Service) Get(ctx context.Context) bool {
	current := s.state.Load()
	if current != nil && s.now().Sub(current.fetchedAt) < s.ttl {
		return current.on
	}

	value, _, _ := s.group.Do(SettingName, func() (any, error) {
		on, err := s.store.Load(ctx)
		if err != nil {
			last := false
			if prev := s.state.Load(); prev != nil {
				last = prev.on
			}
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "maintenance flag read failed; using last known value")
			}
			s.state.Store(&snapshot{on: last, fetchedAt: s.now()})
			return last, nil
		}
		s.state.Store(&snapshot{on: on, fetchedAt: s.now()})
		return on, nil
	})
	on, _ := value.(bool)
	return on
}

// Set persists the flag and updates the local cache.
func (s *Service) Set(ctx context.Context, on bool) error {
	if err := s.store.Save(ctx, on); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save maintenance flag")
	}
	s.state.Store(&snapshot{on: on, fetchedAt: s.now()})
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "maintenance_mode", on), "maintenance mode updated")
	}
	return nil
}

// Guard returns MAINTENANCE_MODE when the flag is on and caller is not an admin.
func (s *Service) Guard(ctx context.Context, caller identity.Caller) error {
	if caller.IsAdmin {
		return nil
	}
	if s.Get(ctx) {
		return pkgerrors.Maintenance()
	}
	return nil
}
