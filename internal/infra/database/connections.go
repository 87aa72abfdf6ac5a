package database

import (
	"github.com/bradfitz/gomemcache/memcache"
	"github.com/redis/go-redis/v9"
)

// NewRedis connects the client backing the OTP session and proof stores and
// the issuance event channel.
func NewRedis(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
}

// NewMemcached connects the cache fronting the public certificate lookup.
func NewMemcached(server string) *memcache.Client {
	return memcache.New(server)
}
