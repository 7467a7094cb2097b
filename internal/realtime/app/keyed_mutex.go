package app

import (
	"hash/fnv"
	"sync"
)

const keyedMutexShards = 64

// KeyedMutex serializes work per key. Keys hash onto a fixed set of
// locks, so two different keys may occasionally share one; the only
// guarantee is that the same key is always serialized.
type KeyedMutex struct {
	locks [keyedMutexShards]sync.Mutex
}

// NewKeyedMutex create a KeyedMutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

// Lock acquires the lock shard owning key.
func (k *KeyedMutex) Lock(key string) {
	k.locks[shardIndex(key, keyedMutexShards)].Lock()
}

// Unlock releases the lock shard owning key.
func (k *KeyedMutex) Unlock(key string) {
	k.locks[shardIndex(key, keyedMutexShards)].Unlock()
}

func shardIndex(key string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}
