package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"feedlog/internal/namespace/models"
	"feedlog/pkg/platform/circuit"
)

const namespaceKeyPrefix = "feedlog:ns:"

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "feedlog_namespace_cache_lookups_total",
	Help: "Namespace cache lookups by result (hit, miss, bypass)",
}, []string{"result"})

// setIfNotOlder stores ARGV[1] unless the cached entry carries a higher
// version than ARGV[2]. ARGV[3] is the TTL in milliseconds.
var setIfNotOlder = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
	local ok, stored = pcall(cjson.decode, cur)
	if ok and type(stored) == 'table' and tonumber(stored.version) and tonumber(stored.version) > tonumber(ARGV[2]) then
		return 0
	end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// Backing is the authoritative namespace store behind the cache.
type Backing interface {
	Upsert(ctx context.Context, ns *models.Namespace, pre *models.Precondition) (bool, error)
	FindByIssuer(ctx context.Context, issuer string) (*models.Namespace, error)
}

// RedisCache is a read-through cache for the read-mostly namespace registry.
// Writes go to the backing store first and are then written through to Redis.
// Entries carry the store-assigned Version and a write never replaces a
// newer entry, so a read-through racing an update cannot re-cache the old
// record. Redis failures never fail a request: the breaker routes reads to
// the backing store until Redis recovers, and writes that could not reach
// Redis are remembered and invalidated once it answers again.
type RedisCache struct {
	backing Backing
	client  *redis.Client
	ttl     time.Duration
	breaker *circuit.Breaker
	logger  *slog.Logger

	mu      sync.Mutex
	gen     uint64
	pending map[string]uint64 // issuer -> generation of the missed write
}

type CacheOption func(*RedisCache)

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *RedisCache) {
		c.logger = logger
	}
}

func WithBreaker(b *circuit.Breaker) CacheOption {
	return func(c *RedisCache) {
		c.breaker = b
	}
}

func NewRedisCache(backing Backing, client *redis.Client, ttl time.Duration, opts ...CacheOption) *RedisCache {
	c := &RedisCache{
		backing: backing,
		client:  client,
		ttl:     ttl,
		breaker: circuit.New("namespace-cache"),
		logger:  slog.Default(),
		pending: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type cachedNamespace struct {
	Issuer     string    `json:"issuer"`
	Policy     string    `json:"policy"`
	OwnerHash  string    `json:"owner_hash"`
	WriterHash string    `json:"writer_hash"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Version    int64     `json:"version"`
}

// Upsert writes through to Redis even while the breaker is open. A write
// that does not reach Redis leaves the issuer pending invalidation.
func (c *RedisCache) Upsert(ctx context.Context, ns *models.Namespace, pre *models.Precondition) (bool, error) {
	created, err := c.backing.Upsert(ctx, ns, pre)
	if err != nil {
		return false, err
	}
	if err := c.put(ctx, ns); err != nil {
		c.markPending(ns.Issuer)
		c.recordFailure(ctx, "write-through", err)
		return created, nil
	}
	c.breaker.RecordSuccess()
	return created, nil
}

func (c *RedisCache) FindByIssuer(ctx context.Context, issuer string) (*models.Namespace, error) {
	if c.breaker.IsOpen() {
		cacheLookups.WithLabelValues("bypass").Inc()
		ns, err := c.backing.FindByIssuer(ctx, issuer)
		c.tryRecover(ctx)
		return ns, err
	}
	if !c.flushPending(ctx) {
		cacheLookups.WithLabelValues("bypass").Inc()
		return c.backing.FindByIssuer(ctx, issuer)
	}

	raw, err := c.client.Get(ctx, namespaceKeyPrefix+issuer).Bytes()
	switch {
	case err == nil:
		var cached cachedNamespace
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			c.breaker.RecordSuccess()
			cacheLookups.WithLabelValues("hit").Inc()
			return cached.toModel(), nil
		}
	case errors.Is(err, redis.Nil):
		c.breaker.RecordSuccess()
	default:
		c.recordFailure(ctx, "get", err)
	}

	cacheLookups.WithLabelValues("miss").Inc()
	ns, err := c.backing.FindByIssuer(ctx, issuer)
	if err != nil {
		return nil, err
	}
	if !c.breaker.IsOpen() {
		if err := c.put(ctx, ns); err != nil {
			c.recordFailure(ctx, "set", err)
		}
	}
	return ns, nil
}

func (c *RedisCache) put(ctx context.Context, ns *models.Namespace) error {
	payload, err := json.Marshal(fromModel(ns))
	if err != nil {
		return err
	}
	return setIfNotOlder.Run(ctx, c.client, []string{namespaceKeyPrefix + ns.Issuer},
		payload, ns.Version, c.ttl.Milliseconds()).Err()
}

func (c *RedisCache) markPending(issuer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.pending[issuer] = c.gen
}

// flushPending deletes the entries of writes that missed Redis. It reports
// false when Redis could not be reached, in which case the cache must not be
// read.
func (c *RedisCache) flushPending(ctx context.Context) bool {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return true
	}
	snapshot := make(map[string]uint64, len(c.pending))
	keys := make([]string, 0, len(c.pending))
	for issuer, gen := range c.pending {
		snapshot[issuer] = gen
		keys = append(keys, namespaceKeyPrefix+issuer)
	}
	c.mu.Unlock()

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.recordFailure(ctx, "invalidate", err)
		return false
	}

	c.mu.Lock()
	for issuer, gen := range snapshot {
		// a write that missed Redis after the snapshot stays pending
		if c.pending[issuer] == gen {
			delete(c.pending, issuer)
		}
	}
	c.mu.Unlock()
	c.logger.InfoContext(ctx, "namespace cache invalidations replayed", "count", len(keys))
	return true
}

func (c *RedisCache) pendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// tryRecover sends a cheap PING while the breaker is open so it can close
// again, replaying missed invalidations as soon as Redis answers.
func (c *RedisCache) tryRecover(ctx context.Context) {
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.breaker.RecordFailure()
		return
	}
	if !c.flushPending(ctx) {
		return
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "namespace cache recovered")
	}
}

func (c *RedisCache) recordFailure(ctx context.Context, op string, err error) {
	_, change := c.breaker.RecordFailure()
	c.logger.WarnContext(ctx, "namespace cache error",
		"op", op,
		"error", err,
		"breaker_opened", change.Opened,
	)
}

func fromModel(ns *models.Namespace) cachedNamespace {
	return cachedNamespace{
		Issuer:     ns.Issuer,
		Policy:     string(ns.TrustPolicy),
		OwnerHash:  ns.Permissions.OwnerHash,
		WriterHash: ns.Permissions.WriterHash,
		CreatedAt:  ns.CreatedAt,
		UpdatedAt:  ns.UpdatedAt,
		Version:    ns.Version,
	}
}

func (c cachedNamespace) toModel() *models.Namespace {
	return &models.Namespace{
		Issuer:      c.Issuer,
		TrustPolicy: models.PolicyKind(c.Policy),
		Permissions: models.Permissions{OwnerHash: c.OwnerHash, WriterHash: c.WriterHash},
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		Version:     c.Version,
	}
}
