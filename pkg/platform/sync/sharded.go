package sync

import (
	"hash/fnv"
	"sync"
)

const shardCount = 64

// ShardedMutex spreads per-key locking over a fixed set of mutexes. Two keys
// that share a shard serialize; the same key always does.
type ShardedMutex struct {
	shards [shardCount]sync.Mutex
}

func NewShardedMutex() *ShardedMutex {
	return &ShardedMutex{}
}

// Lock acquires the shard for key. The empty key maps to shard 0.
func (m *ShardedMutex) Lock(key string) {
	m.shards[shardFor(key)].Lock()
}

// Unlock releases the shard for key.
func (m *ShardedMutex) Unlock(key string) {
	m.shards[shardFor(key)].Unlock()
}

// TryLock acquires the shard for key without blocking.
func (m *ShardedMutex) TryLock(key string) bool {
	return m.shards[shardFor(key)].TryLock()
}

func shardFor(key string) int {
	if key == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % shardCount)
}
