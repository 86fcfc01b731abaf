package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

// ChatCacheInvalidator drops a cached chat-id entry. *UserCache satisfies
// it; tests use a fake.
type ChatCacheInvalidator interface {
	Invalidate(ctx context.Context, chatID user.ChatID) error
}

// UserSource loads users by ID.
type UserSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// UserCacheInvalidator drops the chat-id cache entry of a user whose
// stored state changed, so the bot's next lookup sees the new edges or
// role instead of a stale entry aging out over the cache TTL. It
// subscribes to the accepted-invitation and role-changed events.
type UserCacheInvalidator struct {
	cache ChatCacheInvalidator
	users UserSource
}

// NewUserCacheInvalidator creates a new UserCacheInvalidator.
func NewUserCacheInvalidator(cache ChatCacheInvalidator, users UserSource) *UserCacheInvalidator {
	return &UserCacheInvalidator{cache: cache, users: users}
}

// Name returns the handler name for logging.
func (i *UserCacheInvalidator) Name() string {
	return "redis.user_cache_invalidator"
}

// Handle invalidates the cache entry of the mutated user.
func (i *UserCacheInvalidator) Handle(ctx context.Context, event shared.Event) error {
	var userID string
	switch e := event.(type) {
	case *shared.InvitationAcceptedEvent:
		userID = e.AcceptedByID
	case *shared.UserRoleChangedEvent:
		userID = e.UserID
	default:
		return fmt.Errorf("cache_invalidator: unexpected event type %s", event.EventType())
	}

	id, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("cache_invalidator: parse user id: %w", err)
	}

	u, err := i.users.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("cache_invalidator: load user: %w", err)
	}

	if err := i.cache.Invalidate(ctx, u.ChatID); err != nil {
		return fmt.Errorf("cache_invalidator: invalidate chat %d: %w", int64(u.ChatID), err)
	}
	return nil
}
