// internal/status/effects.go
package status

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// EffectGate grants one-shot permission for side effects that must not
// repeat across page loads, like the payment-status recheck. Keys live in
// Redis so refreshes within the TTL stay suppressed.
type EffectGate struct {
	client *redis.Client
	ttl    time.Duration
}

func NewEffectGate(client *redis.Client, ttl time.Duration) *EffectGate {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &EffectGate{client: client, ttl: ttl}
}

// FireOnce returns true only the first time the effect key fires within the
// TTL window.
func (g *EffectGate) FireOnce(ctx context.Context, sessionID, key string) (bool, error) {
	redisKey := fmt.Sprintf("effect:%s:%s", sessionID, key)
	return g.client.SetNX(ctx, redisKey, "1", g.ttl).Result()
}

// ToastDeduper suppresses repeated identical notifications within a session.
// Keys are status plus application id. In-memory only, resets with the
// process, mirroring per-session toast behavior.
type ToastDeduper struct {
	mu   sync.Mutex
	seen map[string]map[string]bool
}

func NewToastDeduper() *ToastDeduper {
	return &ToastDeduper{seen: make(map[string]map[string]bool)}
}

// ShouldShow returns true the first time the key appears for the session and
// false on every repeat.
func (d *ToastDeduper) ShouldShow(sessionID, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys, ok := d.seen[sessionID]
	if !ok {
		keys = make(map[string]bool)
		d.seen[sessionID] = keys
	}
	if keys[key] {
		return false
	}
	keys[key] = true
	return true
}

// Forget drops the session's seen set.
func (d *ToastDeduper) Forget(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, sessionID)
}
