package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix         = "user:%s"
	GroupKeyPrefix        = "group:%s"
	RevokedTokenKeyPrefix = "blacklist:%s"
)

const (
	UserTTL  = 5 * time.Minute
	GroupTTL = 10 * time.Minute
)

// UserKey caches a user looked up by username.
func UserKey(username string) string {
	return fmt.Sprintf(UserKeyPrefix, username)
}

// GroupKey caches a group looked up by slug.
func GroupKey(slug string) string {
	return fmt.Sprintf(GroupKeyPrefix, slug)
}

// RevokedTokenKey marks a logged-out token id until the token would have expired.
func RevokedTokenKey(jti string) string {
	return fmt.Sprintf(RevokedTokenKeyPrefix, jti)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, username string) {
	Invalidate(ctx, UserKey(username))
}

func InvalidateGroup(ctx context.Context, slug string) {
	Invalidate(ctx, GroupKey(slug))
}
