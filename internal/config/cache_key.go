package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionKey returns the cache key holding the owner of a session token (by JTI).
func (r *CacheKeyStruct) SessionKey(jti string) string {
	return fmt.Sprintf("session:%s", jti)
}

// ModerationChannel returns the Redis PubSub channel admins listen on for queue changes.
func (r *CacheKeyStruct) ModerationChannel() string {
	return "moderation:events"
}

var CacheKey = NewCacheKeyStruct()
