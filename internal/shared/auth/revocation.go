package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker records tokens that must be rejected before they expire.
type Revoker interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// revokerSweepInterval bounds how often Revoke scans for expired entries.
const revokerSweepInterval = time.Minute

// MemoryRevoker keeps revoked tokens in process memory. Expired entries are
// dropped on lookup and by a periodic sweep in Revoke.
type MemoryRevoker struct {
	mu        sync.Mutex
	entries   map[string]time.Time
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryRevoker returns an empty in-memory revocation list.
func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{entries: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryRevoker) Revoke(_ context.Context, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if now.Sub(m.lastSweep) >= revokerSweepInterval {
		m.sweep(now)
		m.lastSweep = now
	}
	if ttl <= 0 {
		return nil
	}
	m.entries[tokenKey(token)] = now.Add(ttl)
	return nil
}

func (m *MemoryRevoker) sweep(now time.Time) {
	for key, exp := range m.entries {
		if now.After(exp) {
			delete(m.entries, key)
		}
	}
}

func (m *MemoryRevoker) IsRevoked(_ context.Context, token string) (bool, error) {
	key := tokenKey(token)
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	if m.now().After(exp) {
		delete(m.entries, key)
		return false, nil
	}
	return true, nil
}

// RedisRevoker stores revoked token digests in Redis with a TTL.
type RedisRevoker struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisRevoker wraps an existing Redis client.
func NewRedisRevoker(client redis.UniversalClient) *RedisRevoker {
	return &RedisRevoker{client: client, prefix: "jwt:revoked:"}
}

func (r *RedisRevoker) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.prefix+tokenKey(token), "1", ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+tokenKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
