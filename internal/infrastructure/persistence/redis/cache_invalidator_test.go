package redis

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

type fakeChatCache struct {
	invalidated []user.ChatID
}

func (c *fakeChatCache) Invalidate(_ context.Context, chatID user.ChatID) error {
	c.invalidated = append(c.invalidated, chatID)
	return nil
}

type fakeUserSource map[uuid.UUID]*user.User

func (s fakeUserSource) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := s[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return u, nil
}

func cacheTestUser(t *testing.T, chatID int64) *user.User {
	t.Helper()
	u, err := user.NewUser(user.NewUserParams{
		ID:     uuid.New(),
		ChatID: user.ChatID(chatID),
		Name:   "Cached User",
		Role:   user.RoleParent,
	})
	require.NoError(t, err)
	return u
}

func TestUserCacheInvalidatorOnInvitationAccepted(t *testing.T) {
	accepter := cacheTestUser(t, 7001)
	cache := &fakeChatCache{}
	inv := NewUserCacheInvalidator(cache, fakeUserSource{accepter.ID: accepter})

	event := shared.NewInvitationAcceptedEvent(
		uuid.NewString(), "parent_child", uuid.NewString(), accepter.ID.String())

	require.NoError(t, inv.Handle(context.Background(), event))
	assert.Equal(t, []user.ChatID{accepter.ChatID}, cache.invalidated)
}

func TestUserCacheInvalidatorOnRoleChanged(t *testing.T) {
	target := cacheTestUser(t, 7002)
	cache := &fakeChatCache{}
	inv := NewUserCacheInvalidator(cache, fakeUserSource{target.ID: target})

	event := shared.NewUserRoleChangedEvent(target.ID.String(), "parent", "homeroom_teacher")

	require.NoError(t, inv.Handle(context.Background(), event))
	assert.Equal(t, []user.ChatID{target.ChatID}, cache.invalidated)
}

func TestUserCacheInvalidatorUnknownUser(t *testing.T) {
	cache := &fakeChatCache{}
	inv := NewUserCacheInvalidator(cache, fakeUserSource{})

	event := shared.NewUserRoleChangedEvent(uuid.NewString(), "student", "parent")

	assert.Error(t, inv.Handle(context.Background(), event))
	assert.Empty(t, cache.invalidated)
}

func TestUserCacheInvalidatorUnexpectedEvent(t *testing.T) {
	cache := &fakeChatCache{}
	inv := NewUserCacheInvalidator(cache, fakeUserSource{})

	event := shared.NewGradeRecordedEvent(
		uuid.NewString(), uuid.NewString(), uuid.NewString(), 5, false)

	assert.Error(t, inv.Handle(context.Background(), event))
	assert.Empty(t, cache.invalidated)
}
