package telegram

import (
	"github.com/mektep-hub/mektep-school-hub/internal/domain/policy"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROLE ACCESS
// A closed action vocabulary for the bot front-end. Each action maps onto
// one policy predicate; unknown actions are denied.
// ══════════════════════════════════════════════════════════════════════════════

// Bot-level actions.
const (
	ActionViewProfile = "view_profile"
	ActionManageUser  = "manage_user"
	ActionViewGrades  = "view_grades"
	ActionInvite      = "invite"
)

// RoleHandler answers access questions for bot interactions.
type RoleHandler struct {
	policies *policy.Manager
}

// NewRoleHandler creates a new RoleHandler.
func NewRoleHandler(policies *policy.Manager) *RoleHandler {
	return &RoleHandler{policies: policies}
}

// CheckRoleAccess reports whether the actor may perform the action on the
// target user. The vocabulary is closed: anything unrecognized is denied.
func (r *RoleHandler) CheckRoleAccess(actor *user.User, action string, target *user.User) bool {
	if actor == nil || target == nil {
		return false
	}

	switch action {
	case ActionViewProfile:
		return r.policies.CanViewUser(actor, target)
	case ActionManageUser:
		return r.policies.CanManageUser(actor, target)
	case ActionViewGrades:
		return r.policies.CanViewGrades(actor, target)
	case ActionInvite:
		return policy.CanInvite(actor.Role, target.Role)
	default:
		return false
	}
}

// MenuFor renders the command menu available to a role.
func (r *RoleHandler) MenuFor(role user.Role) string {
	switch role {
	case user.RoleStudent:
		return "Доступные команды:\n" +
			"/me - Мой профиль\n" +
			"/grades - Мои оценки\n" +
			"/help - Справка"
	case user.RoleParent:
		return "Доступные команды:\n" +
			"/me - Мой профиль\n" +
			"/children - Мои дети и их оценки\n" +
			"/help - Справка"
	case user.RoleSubjectTeacher, user.RoleHomeroomTeacher:
		return "Доступные команды:\n" +
			"/me - Мой профиль\n" +
			"/help - Справка\n\n" +
			"Выставление оценок и приглашения - через веб-кабинет школы."
	case user.RoleDeputyPrincipal, user.RolePrincipal:
		return "Доступные команды:\n" +
			"/me - Мой профиль\n" +
			"/help - Справка\n\n" +
			"Управление школой - через веб-кабинет."
	default:
		return "/help - Справка"
	}
}
