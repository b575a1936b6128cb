package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/threadloom/storefront-backend/internal/identity"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
	"github.com/threadloom/storefront-backend/pkg/redis"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestService(t *testing.T, store Store) (*Service, *fakeClock) {
	t.Helper()
	svc, err := NewService(store, 2*time.Second, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc.now = clock.Now
	return svc, clock
}

func TestServiceReadYourWrites(t *testing.T) {
	svc, _ := newTestService(t, NewMemoryStore(false))
	ctx := context.Background()

	if svc.Get(ctx) {
		t.Fatalf("expected maintenance off by default")
	}
	if err := svc.Set(ctx, true); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !svc.Get(ctx) {
		t.Fatalf("expected set to be visible immediately")
	}
}

func TestServiceCachesWithinTTL(t *testing.T) {
	store := NewMemoryStore(false)
	svc, clock := newTestService(t, store)
	ctx := context.Background()

	svc.Get(ctx)
	svc.Get(ctx)
	if store.Loads() != 1 {
		t.Fatalf("expected one store read within ttl, got %d", store.Loads())
	}

	// another replica flips the flag
	_ = store.Save(ctx, true)
	if svc.Get(ctx) {
		t.Fatalf("expected cached value before ttl elapses")
	}
	clock.now = clock.now.Add(3 * time.Second)
	if !svc.Get(ctx) {
		t.Fatalf("expected flag to converge after ttl")
	}
}

func TestServiceFallsBackToLastKnownValue(t *testing.T) {
	store := NewMemoryStore(true)
	svc, clock := newTestService(t, store)
	ctx := context.Background()

	if !svc.Get(ctx) {
		t.Fatalf("expected maintenance on")
	}
	store.FailLoads(errors.New("redis down"))
	clock.now = clock.now.Add(3 * time.Second)
	if !svc.Get(ctx) {
		t.Fatalf("expected last known value on read failure")
	}
}

func TestServiceDefaultsOffWhenFirstReadFails(t *testing.T) {
	store := NewMemoryStore(true)
	store.FailLoads(errors.New("redis down"))
	svc, _ := newTestService(t, store)
	if svc.Get(context.Background()) {
		t.Fatalf("expected default off when nothing is known")
	}
}

func TestGuardAdmitsAdmins(t *testing.T) {
	svc, _ := newTestService(t, NewMemoryStore(true))
	ctx := context.Background()

	err := svc.Guard(ctx, identity.GuestCaller("sess-1"))
	if !pkgerrors.IsCode(err, pkgerrors.CodeMaintenance) {
		t.Fatalf("expected maintenance error, got %v", err)
	}
	if err := svc.Guard(ctx, identity.UserCaller(uuid.New(), "ops@example.com", true)); err != nil {
		t.Fatalf("expected admin to pass, got %v", err)
	}
}

type stubSettings struct {
	values map[string]string
	getErr error
}

func (s *stubSettings) Get(_ context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	v, ok := s.values[key]
	if !ok {
		return "", redis.ErrNil
	}
	return v, nil
}

func (s *stubSettings) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.values[key] = value.(string)
	return nil
}

func (s *stubSettings) SettingKey(name string) string {
	return "sf:settings:" + name
}

func TestRedisStoreRoundTrip(t *testing.T) {
	client := &stubSettings{values: map[string]string{}}
	store, err := NewRedisStore(client)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	on, err := store.Load(ctx)
	if err != nil || on {
		t.Fatalf("expected missing key to read as off, got %v %v", on, err)
	}
	if err := store.Save(ctx, true); err != nil {
		t.Fatalf("save: %v", err)
	}
	if client.values["sf:settings:site_maintenance_mode"] != "1" {
		t.Fatalf("unexpected stored value %q", client.values["sf:settings:site_maintenance_mode"])
	}
	on, err = store.Load(ctx)
	if err != nil || !on {
		t.Fatalf("expected on, got %v %v", on, err)
	}
}

func TestRedisStorePropagatesErrors(t *testing.T) {
	store, _ := NewRedisStore(&stubSettings{values: map[string]string{}, getErr: errors.New("boom")})
	if _, err := store.Load(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
