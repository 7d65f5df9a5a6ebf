package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix      = "user:%d"
	PostsListKeyPrefix = "posts:list:%d:%d"
	postsListPattern   = "posts:list:*"
	StatsKey           = "admin:stats"
	BlacklistKeyPrefix = "blacklist:%s"
)

const (
	UserTTL  = 5 * time.Minute
	ListTTL  = 30 * time.Second
	StatsTTL = time.Minute
)

// UserKey caches a user row by id.
func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// PostsListKey caches one page of the public board.
func PostsListKey(page, limit int) string {
	return fmt.Sprintf(PostsListKeyPrefix, page, limit)
}

// BlacklistKey marks a revoked session token id.
func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}

// Invalidate deletes key. It is a no-op without Redis.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateUser drops the cached user row.
func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidatePostsList drops every cached board page and the admin totals.
func InvalidatePostsList(ctx context.Context) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, postsListPattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		client.Del(ctx, keys...)
	}
	Invalidate(ctx, StatsKey)
}
