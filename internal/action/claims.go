package action

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Claims is the atomic first-responder marker for action tokens: under a
// race exactly one caller observes first=true. Claims expire after a TTL
// because tokens encode only (kind, device) and must become claimable
// again for the next call event on the same door.
type Claims interface {
	Claim(ctx context.Context, token string) (first bool, err error)
}

const defaultTTL = 2 * time.Minute

// ---- Redis ----

type RedisOpts struct {
	Addr        string        // "127.0.0.1:6379"
	Password    string        // optional
	DB          int           // default 0
	DialTimeout time.Duration // default 5s
}

// DialRedis connects and pings the claim store backend.
func DialRedis(opts RedisOpts) (*redis.Client, error) {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return rdb, nil
}

// RedisClaims uses SETNX with expiry; safe across gateway replicas.
type RedisClaims struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisClaims(rdb *redis.Client, ttl time.Duration, prefix string) *RedisClaims {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &RedisClaims{rdb: rdb, ttl: ttl, prefix: prefix}
}

func (c *RedisClaims) Claim(ctx context.Context, token string) (bool, error) {
	return c.rdb.SetNX(ctx, c.prefix+token, 1, c.ttl).Result()
}

// ---- In-memory ----

// MemoryClaims is the single-instance equivalent: a mutex-guarded map
// with the same TTL semantics. Used in tests and deployments without
// Redis.
type MemoryClaims struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryClaims(ttl time.Duration) *MemoryClaims {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &MemoryClaims{
		ttl:  ttl,
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (c *MemoryClaims) Claim(_ context.Context, token string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if at, ok := c.seen[token]; ok && now.Sub(at) < c.ttl {
		return false, nil
	}

	// Opportunistic purge keeps the map bounded by recent activity.
	for k, at := range c.seen {
		if now.Sub(at) >= c.ttl {
			delete(c.seen, k)
		}
	}

	c.seen[token] = now

	return true, nil
}
