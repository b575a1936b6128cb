package maintenance

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/threadloom/storefront-backend/pkg/redis"
)

// SettingName is the site setting holding the maintenance flag.
const SettingName = "site_maintenance_mode"

// Store persists the maintenance flag.
type Store interface {
	Load(ctx context.Context) (bool, error)
	Save(ctx context.Context, on bool) error
}

type settingsClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SettingKey(name string) string
}

// RedisStore keeps the flag under sf:settings:site_maintenance_mode.
type RedisStore struct {
	client settingsClient
	key    string
}

// NewRedisStore builds a store on the shared redis client.
func NewRedisStore(client settingsClient) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return &RedisStore{client: client, key: client.SettingKey(SettingName)}, nil
}

func (s *RedisStore) Load(ctx context.Context) (bool, error) {
	raw, err := s.client.Get(ctx, s.key)
	if err != nil {
		if redis.IsNil(err) {
			return false, nil
		}
		return false, err
	}
	return parseFlag(raw), nil
}

func (s *RedisStore) Save(ctx context.Context, on bool) error {
	value := "0"
	if on {
		value = "1"
	}
	return s.client.Set(ctx, s.key, value, 0)
}

func parseFlag(raw string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return parsed
}

// MemoryStore is a process-local store for development and tests.
type MemoryStore struct {
	on      atomic.Bool
	loadErr atomic.Pointer[error]
	loads   atomic.Int64
}

func NewMemoryStore(initial bool) *MemoryStore {
	s := &MemoryStore{}
	s.on.Store(initial)
	return s
}

func (s *MemoryStore) Load(context.Context) (bool, error) {
	s.loads.Add(1)
	if errPtr := s.loadErr.Load(); errPtr != nil && *errPtr != nil {
		return false, *errPtr
	}
	return s.on.Load(), nil
}

func (s *MemoryStore) Save(_ context.Context, on bool) error {
	s.on.Store(on)
	return nil
}

// FailLoads makes Load return err until called again with nil.
func (s *MemoryStore) FailLoads(err error) {
	s.loadErr.Store(&err)
}

// Loads reports how many times Load was called.
func (s *MemoryStore) Loads() int64 {
	return s.loads.Load()
}
