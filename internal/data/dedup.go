package data

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/repo"
)

const dedupKeyPrefix = "sourcing:seen:"

// memoryDedupRepo remembers event ids in process memory for ttl
type memoryDedupRepo struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryDedupRepo creates an in-process de-duplication repository
func NewMemoryDedupRepo(ttl time.Duration) repo.DedupRepo {
	return &memoryDedupRepo{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// MarkSeen records id; expired records are swept on every call
func (r *memoryDedupRepo) MarkSeen(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.ttl)
	for k, ts := range r.seen {
		if ts.Before(cutoff) {
			delete(r.seen, k)
		}
	}

	if _, ok := r.seen[id]; ok {
		return true, nil
	}
	r.seen[id] = now
	return false, nil
}

// setNXer is the part of *redis.Client used for de-duplication
type setNXer interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

// redisDedupRepo shares seen ids across restarts and replicas
type redisDedupRepo struct {
	client setNXer
	ttl    time.Duration
}

// NewRedisDedupRepo creates a Redis-backed de-duplication repository
func NewRedisDedupRepo(client *redis.Client, ttl time.Duration) repo.DedupRepo {
	return &redisDedupRepo{client: client, ttl: ttl}
}

// MarkSeen sets the id key only if absent; an existing key means seen
func (r *redisDedupRepo) MarkSeen(ctx context.Context, id string) (bool, error) {
	created, err := r.client.SetNX(ctx, dedupKeyPrefix+id, 1, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return !created, nil
}
