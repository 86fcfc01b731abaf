package telegram

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/policy"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

type stubResolver struct{}

func (stubResolver) ResolveUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return nil, shared.ErrUserNotFound
}

func botTestUser(t *testing.T, role user.Role) *user.User {
	t.Helper()
	u, err := user.NewUser(user.NewUserParams{
		ID:     uuid.New(),
		ChatID: user.ChatID(uuid.New().ID()),
		Name:   "Test " + role.String(),
		Role:   role,
	})
	require.NoError(t, err)
	return u
}

func TestCheckRoleAccess(t *testing.T) {
	roles := NewRoleHandler(policy.NewManager(stubResolver{}))

	principal := botTestUser(t, user.RolePrincipal)
	deputy := botTestUser(t, user.RoleDeputyPrincipal)
	teacher := botTestUser(t, user.RoleSubjectTeacher)
	parent := botTestUser(t, user.RoleParent)
	otherParent := botTestUser(t, user.RoleParent)
	student := botTestUser(t, user.RoleStudent)

	t.Run("principal manages deputy", func(t *testing.T) {
		assert.True(t, roles.CheckRoleAccess(principal, ActionManageUser, deputy))
	})

	t.Run("deputy cannot manage principal", func(t *testing.T) {
		assert.False(t, roles.CheckRoleAccess(deputy, ActionManageUser, principal))
	})

	t.Run("nobody manages themselves", func(t *testing.T) {
		assert.False(t, roles.CheckRoleAccess(principal, ActionManageUser, principal))
	})

	t.Run("everyone views their own profile", func(t *testing.T) {
		assert.True(t, roles.CheckRoleAccess(student, ActionViewProfile, student))
	})

	t.Run("parent views linked child grades", func(t *testing.T) {
		_, err := parent.LinkChild(student.ID)
		require.NoError(t, err)
		assert.True(t, roles.CheckRoleAccess(parent, ActionViewGrades, student))
	})

	t.Run("unlinked parent denied child grades", func(t *testing.T) {
		assert.False(t, roles.CheckRoleAccess(otherParent, ActionViewGrades, student))
	})

	t.Run("parent invites only parents", func(t *testing.T) {
		assert.True(t, roles.CheckRoleAccess(parent, ActionInvite, otherParent))
		assert.False(t, roles.CheckRoleAccess(parent, ActionInvite, student))
	})

	t.Run("subject teacher invites only students", func(t *testing.T) {
		assert.True(t, roles.CheckRoleAccess(teacher, ActionInvite, student))
		assert.False(t, roles.CheckRoleAccess(teacher, ActionInvite, parent))
	})

	t.Run("unknown action denied for everyone", func(t *testing.T) {
		assert.False(t, roles.CheckRoleAccess(principal, "drop_tables", student))
	})

	t.Run("nil users denied", func(t *testing.T) {
		assert.False(t, roles.CheckRoleAccess(nil, ActionViewProfile, student))
		assert.False(t, roles.CheckRoleAccess(principal, ActionViewProfile, nil))
	})
}

func TestMenuFor(t *testing.T) {
	roles := NewRoleHandler(policy.NewManager(stubResolver{}))

	assert.Contains(t, roles.MenuFor(user.RoleStudent), "/grades")
	assert.Contains(t, roles.MenuFor(user.RoleParent), "/children")
	assert.NotContains(t, roles.MenuFor(user.RoleStudent), "/children")
}

func TestStartParam(t *testing.T) {
	assert.Equal(t, "", startParam("/start"))
	assert.Equal(t, "invite_abc", startParam("/start invite_abc"))
	assert.Equal(t, "x", startParam("/start x trailing"))
}

func TestParseInviteCallback(t *testing.T) {
	id := uuid.New()

	action, parsed, ok := parseInviteCallback("inv_accept:" + id.String())
	require.True(t, ok)
	assert.Equal(t, "accept", action)
	assert.Equal(t, id, parsed)

	action, parsed, ok = parseInviteCallback("inv_reject:" + id.String())
	require.True(t, ok)
	assert.Equal(t, "reject", action)
	assert.Equal(t, id, parsed)

	_, _, ok = parseInviteCallback("other:" + id.String())
	assert.False(t, ok)

	_, _, ok = parseInviteCallback("inv_accept:not-a-uuid")
	assert.False(t, ok)
}
