package notify

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// Recorder remembers which keys were shown recently. Mark records key for
// ttl and reports true only when the key was not already recorded.
type Recorder interface {
	Mark(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// MemoryRecorder keeps expiry times in process memory.
type MemoryRecorder struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// MemoryOption configures a MemoryRecorder.
type MemoryOption func(*MemoryRecorder)

// WithClock sets the time source used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryRecorder) {
		m.now = now
	}
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder(opts ...MemoryOption) *MemoryRecorder {
	m := &MemoryRecorder{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Mark implements Recorder.
func (m *MemoryRecorder) Mark(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.evict(now)
	if _, ok := m.expires[key]; ok {
		return false, nil
	}
	m.expires[key] = now.Add(ttl)
	return true, nil
}

// Len returns the number of unexpired keys.
func (m *MemoryRecorder) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evict(m.now())
	return len(m.expires)
}

func (m *MemoryRecorder) evict(now time.Time) {
	for k, exp := range m.expires {
		if !now.Before(exp) {
			delete(m.expires, k)
		}
	}
}

// RedisRecorder shares recently-shown keys between instances using
// SET NX with an expiry.
type RedisRecorder struct {
	client redis.Cmdable
	prefix string
}

// NewRedisRecorder creates a recorder storing keys under prefix.
func NewRedisRecorder(client redis.Cmdable, prefix string) *RedisRecorder {
	return &RedisRecorder{client: client, prefix: prefix}
}

// Mark implements Recorder.
func (r *RedisRecorder) Mark(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.prefix+key, 1, ttl).Result()
	if err != nil {
		return false, eris.Wrapf(err, "notify: mark %s", key)
	}
	return ok, nil
}
