package redis

import (
	"context"
	"fmt"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

// UserCache caches user lookups by Telegram chat id. It backs the bot's
// authentication middleware, sparing a database round trip per update.
// Entries expire after TTLUserCache; the UserCacheInvalidator drops them
// early when an accepted invitation or a role change mutates the user.
type UserCache struct {
	cache *Cache
}

// NewUserCache creates a new UserCache.
func NewUserCache(cache *Cache) *UserCache {
	return &UserCache{cache: cache}
}

// chatKey generates the cache key for a chat-id lookup.
func chatKey(chatID user.ChatID) string {
	return fmt.Sprintf("%s%d", PrefixUserChat, int64(chatID))
}

// GetByChatID returns the cached user for a chat id, or ErrCacheMiss.
func (c *UserCache) GetByChatID(ctx context.Context, chatID user.ChatID) (*user.User, error) {
	var u user.User
	if err := c.cache.Get(ctx, chatKey(chatID), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Put stores a user under their chat id.
func (c *UserCache) Put(ctx context.Context, u *user.User) error {
	return c.cache.Set(ctx, chatKey(u.ChatID), u, TTLUserCache)
}

// Invalidate drops the cached entry for a chat id.
func (c *UserCache) Invalidate(ctx context.Context, chatID user.ChatID) error {
	return c.cache.Delete(ctx, chatKey(chatID))
}

// CachingUserLookup resolves a user by chat id, consulting the cache first
// and falling back to the repository. Repository misses are not cached.
type CachingUserLookup struct {
	repo  user.Repository
	cache *UserCache
}

// NewCachingUserLookup creates a lookup over the given repository and cache.
func NewCachingUserLookup(repo user.Repository, cache *UserCache) *CachingUserLookup {
	return &CachingUserLookup{repo: repo, cache: cache}
}

// GetByChatID returns the user for a chat id, caching the result.
func (l *CachingUserLookup) GetByChatID(ctx context.Context, chatID user.ChatID) (*user.User, error) {
	// A cache error, miss or otherwise, falls through to the repository
	// so Redis trouble never takes the bot down.
	if u, err := l.cache.GetByChatID(ctx, chatID); err == nil {
		return u, nil
	}

	u, err := l.repo.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	_ = l.cache.Put(ctx, u)
	return u, nil
}
