package service

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	dErrors "feedlog/pkg/domain-errors"
)

// FeedStoreTx is the atomic boundary around seqno allocation and item
// persistence for one feed. Implementations may wrap a database transaction
// or, in memory, a per-feed lock.
type FeedStoreTx interface {
	RunInTx(ctx context.Context, feed string, fn func(ctx context.Context, store Store) error) error
}

// numFeedShards spreads feeds over independent locks so unrelated feeds do
// not serialize behind each other.
const numFeedShards = 128

// DefaultTxTimeout bounds a feed transaction when the caller set no deadline.
const DefaultTxTimeout = 5 * time.Second

// ShardedTx serializes transactions per feed with sharded mutexes.
type ShardedTx struct {
	shards  [numFeedShards]sync.Mutex
	store   Store
	timeout time.Duration
}

// NewShardedTx wraps store. A zero timeout selects DefaultTxTimeout.
func NewShardedTx(store Store, timeout time.Duration) *ShardedTx {
	return &ShardedTx{store: store, timeout: timeout}
}

func (t *ShardedTx) RunInTx(ctx context.Context, feed string, fn func(ctx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = DefaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := &t.shards[shardFor(feed)]
	shard.Lock()
	defer shard.Unlock()

	// the wait for the lock may have used up the deadline
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.store)
}

func shardFor(feed string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(feed))
	return h.Sum32() % numFeedShards
}
