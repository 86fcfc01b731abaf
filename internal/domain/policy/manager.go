package policy

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/grade"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/invitation"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/school"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

// Resolver loads entities the predicates need but the caller has not already
// loaded, such as the student owning a grade. Missing entities surface as
// not-found errors, which the predicates propagate unchanged so the caller
// can map them to 404 rather than 403.
type Resolver interface {
	ResolveUser(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Manager holds the stateless authorization predicates. All predicates deny
// by default: they return true only when an explicit rule grants access.
type Manager struct {
	resolver Resolver
}

// NewManager creates a policy manager with the given resolver.
func NewManager(resolver Resolver) *Manager {
	return &Manager{resolver: resolver}
}

// ══════════════════════════════════════════════════════════════════════════════
// USER PREDICATES
// ══════════════════════════════════════════════════════════════════════════════

// CanViewUser reports whether viewer may see the target's profile. Everyone
// sees themselves; parents see their linked children; teachers see users
// they share a class with; school administrators see everyone.
func (m *Manager) CanViewUser(viewer, target *user.User) bool {
	if viewer == nil || target == nil {
		return false
	}

	if viewer.ID == target.ID {
		return true
	}

	switch viewer.Role {
	case user.RoleParent:
		return viewer.HasChild(target.ID)
	case user.RoleSubjectTeacher, user.RoleHomeroomTeacher:
		return viewer.SharesClassWith(target)
	case user.RoleDeputyPrincipal, user.RolePrincipal:
		return true
	default:
		return false
	}
}

// CanManageUser reports whether manager outranks the target. Purely
// rank-based; equal roles never manage each other, which already covers
// self-management.
func (m *Manager) CanManageUser(manager, target *user.User) bool {
	if manager == nil || target == nil {
		return false
	}
	return CanManage(manager.Role, target.Role)
}

// ══════════════════════════════════════════════════════════════════════════════
// GRADE PREDICATES
// ══════════════════════════════════════════════════════════════════════════════

// CanViewGrade reports whether viewer may see a single grade. The grade's
// owner is resolved lazily; a missing owner propagates as a not-found error.
func (m *Manager) CanViewGrade(ctx context.Context, viewer *user.User, g *grade.Grade) (bool, error) {
	if viewer == nil || g == nil {
		return false, nil
	}

	if viewer.ID == g.StudentID {
		return true, nil
	}

	switch viewer.Role {
	case user.RoleParent:
		return viewer.HasChild(g.StudentID), nil
	case user.RoleSubjectTeacher:
		return viewer.Teaches(g.SubjectID), nil
	case user.RoleHomeroomTeacher:
		owner, err := m.resolver.ResolveUser(ctx, g.StudentID)
		if err != nil {
			return false, fmt.Errorf("resolve grade owner: %w", err)
		}
		return viewer.SharesClassWith(owner), nil
	case user.RoleDeputyPrincipal, user.RolePrincipal:
		return true, nil
	default:
		return false, nil
	}
}

// CanManageGrade reports whether manager may change a single grade. Subject
// teachers manage grades in their subjects; homeroom teachers manage grades
// of students they share a class with; administrators manage everything.
func (m *Manager) CanManageGrade(ctx context.Context, manager *user.User, g *grade.Grade) (bool, error) {
	if manager == nil || g == nil {
		return false, nil
	}

	switch manager.Role {
	case user.RoleSubjectTeacher:
		return manager.Teaches(g.SubjectID), nil
	case user.RoleHomeroomTeacher:
		owner, err := m.resolver.ResolveUser(ctx, g.StudentID)
		if err != nil {
			return false, fmt.Errorf("resolve grade owner: %w", err)
		}
		return manager.SharesClassWith(owner), nil
	case user.RoleDeputyPrincipal, user.RolePrincipal:
		return true, nil
	default:
		return false, nil
	}
}

// CanViewGrades reports whether viewer may list all of a student's grades.
func (m *Manager) CanViewGrades(viewer, student *user.User) bool {
	if viewer == nil || student == nil {
		return false
	}

	switch viewer.Role {
	case user.RoleStudent:
		return viewer.ID == student.ID
	case user.RoleParent:
		return viewer.HasChild(student.ID)
	case user.RoleSubjectTeacher, user.RoleHomeroomTeacher:
		return viewer.SharesClassWith(student)
	case user.RoleDeputyPrincipal, user.RolePrincipal:
		return true
	default:
		return false
	}
}

// CanEditGrades reports whether editor may record grades for the student in
// the subject. Only teaching and administrative roles qualify; a subject
// teacher must teach the subject, a homeroom teacher must manage a class the
// student is enrolled in.
func (m *Manager) CanEditGrades(editor, student *user.User, subject *school.Subject) bool {
	if editor == nil || student == nil || subject == nil {
		return false
	}

	switch editor.Role {
	case user.RoleSubjectTeacher:
		return editor.Teaches(subject.ID)
	case user.RoleHomeroomTeacher:
		return editor.ManagedClassID != nil && student.InClass(*editor.ManagedClassID)
	case user.RoleDeputyPrincipal, user.RolePrincipal:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// INVITATION PREDICATES
// ══════════════════════════════════════════════════════════════════════════════

// CanInviteToClass reports whether inviter may invite a user of targetRole
// into the class. The role pair must pass CanInvite; teachers additionally
// need membership in the class.
func (m *Manager) CanInviteToClass(inviter *user.User, class *school.Class, targetRole user.Role) bool {
	if inviter == nil || class == nil {
		return false
	}

	if !CanInvite(inviter.Role, targetRole) {
		return false
	}

	switch inviter.Role {
	case user.RoleSubjectTeacher, user.RoleHomeroomTeacher:
		return inviter.InClass(class.ID)
	case user.RoleDeputyPrincipal, user.RolePrincipal:
		return true
	default:
		return false
	}
}

// CanInviteToSubject reports whether inviter may invite a user of targetRole
// into the subject. A subject teacher must teach the subject themselves.
func (m *Manager) CanInviteToSubject(inviter *user.User, subject *school.Subject, targetRole user.Role) bool {
	if inviter == nil || subject == nil {
		return false
	}

	if !CanInvite(inviter.Role, targetRole) {
		return false
	}

	switch inviter.Role {
	case user.RoleSubjectTeacher:
		return inviter.Teaches(subject.ID)
	case user.RoleDeputyPrincipal, user.RolePrincipal:
		return true
	default:
		return false
	}
}

// CanInviteParentLink reports whether inviter may create a parent-child link
// invitation. Only parents create these.
func (m *Manager) CanInviteParentLink(inviter *user.User) bool {
	return inviter != nil && inviter.Role == user.RoleParent
}

// ══════════════════════════════════════════════════════════════════════════════
// INVITATION DISPATCH
// ══════════════════════════════════════════════════════════════════════════════

// InvitationRefs carries the already-loaded entities an invitation predicate
// may need. Only the field matching the invitation type is consulted.
type InvitationRefs struct {
	Class   *school.Class
	Subject *school.Subject
}

// invitePredicate decides one invitation type. All four types dispatch
// through the same table so no call site branches on type.
type invitePredicate func(m *Manager, inviter *user.User, refs InvitationRefs, targetRole user.Role) bool

var invitePredicates = map[invitation.Type]invitePredicate{
	invitation.TypeClassStudent: func(m *Manager, inviter *user.User, refs InvitationRefs, targetRole user.Role) bool {
		return m.CanInviteToClass(inviter, refs.Class, targetRole)
	},
	invitation.TypeClassTeacher: func(m *Manager, inviter *user.User, refs InvitationRefs, targetRole user.Role) bool {
		return m.CanInviteToClass(inviter, refs.Class, targetRole)
	},
	invitation.TypeSubjectTeacher: func(m *Manager, inviter *user.User, refs InvitationRefs, targetRole user.Role) bool {
		return m.CanInviteToSubject(inviter, refs.Subject, targetRole)
	},
	invitation.TypeParentChild: func(m *Manager, inviter *user.User, refs InvitationRefs, _ user.Role) bool {
		return m.CanInviteParentLink(inviter)
	},
}

// CanCreateInvitation reports whether inviter may create an invitation of
// the given type. Unknown types deny.
func (m *Manager) CanCreateInvitation(inviter *user.User, invType invitation.Type, targetRole user.Role, refs InvitationRefs) bool {
	pred, ok := invitePredicates[invType]
	if !ok {
		return false
	}
	return pred(m, inviter, refs, targetRole)
}
