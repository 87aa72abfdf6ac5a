package utils

import (
	"sync"

	"github.com/zeebo/xxh3"
)

const defaultStripes = 64

// KeyedLock serializes work per string key using a fixed set of mutex
// stripes selected by hash. Two different keys may share a stripe; the same
// key always maps to the same stripe.
type KeyedLock struct {
	stripes []sync.Mutex
}

func NewKeyedLock() *KeyedLock {
	return &KeyedLock{
		stripes: make([]sync.Mutex, defaultStripes),
	}
}

func (l *KeyedLock) stripe(key string) *sync.Mutex {
	return &l.stripes[xxh3.HashString(key)%uint64(len(l.stripes))]
}

func (l *KeyedLock) Lock(key string) {
	l.stripe(key).Lock()
}

func (l *KeyedLock) Unlock(key string) {
	l.stripe(key).Unlock()
}
