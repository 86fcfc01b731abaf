// Package policy contains the authorization engine: the role hierarchy and
// the permission predicates combining it with relationship membership. The
// role type itself lives in the user package as pure data; everything that
// ranks or compares roles lives here.
package policy

import (
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

// rankOf encodes the total order over roles. Higher rank means more
// authority.
var rankOf = map[user.Role]int{
	user.RoleStudent:         0,
	user.RoleParent:          1,
	user.RoleSubjectTeacher:  2,
	user.RoleHomeroomTeacher: 3,
	user.RoleDeputyPrincipal: 4,
	user.RolePrincipal:       5,
}

// Rank returns the role's position in the total order. Unknown roles rank
// below every valid role.
func Rank(r user.Role) int {
	if rank, ok := rankOf[r]; ok {
		return rank
	}
	return -1
}

// CanManage reports whether self outranks other strictly. Equal ranks never
// manage each other, so no role can manage itself.
func CanManage(self, other user.Role) bool {
	return Rank(self) > Rank(other)
}

// CanInvite reports whether self may invite a user of the target role. Two
// roles are special-cased: parents may only invite other parents, and
// subject teachers may only invite students. Every other role falls back to
// the strict rank comparison.
func CanInvite(self, target user.Role) bool {
	switch self {
	case user.RoleParent:
		return target == user.RoleParent
	case user.RoleSubjectTeacher:
		return target == user.RoleStudent
	default:
		return Rank(self) > Rank(target)
	}
}
