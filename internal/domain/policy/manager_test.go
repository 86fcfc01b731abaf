package policy

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/grade"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/invitation"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/school"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

// stubResolver resolves users from a fixed map.
type stubResolver struct {
	users map[uuid.UUID]*user.User
}

func (r *stubResolver) ResolveUser(_ context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return u, nil
}

func newTestUser(t *testing.T, role user.Role) *user.User {
	t.Helper()
	u, err := user.NewUser(user.NewUserParams{
		ID:     uuid.New(),
		ChatID: user.ChatID(1 + int64(uuid.New().ID())),
		Name:   "Test User",
		Role:   role,
	})
	require.NoError(t, err)
	return u
}

func newManagerWith(users ...*user.User) *Manager {
	m := map[uuid.UUID]*user.User{}
	for _, u := range users {
		m[u.ID] = u
	}
	return NewManager(&stubResolver{users: m})
}

func TestCanViewUser(t *testing.T) {
	m := newManagerWith()

	t.Run("self view always permitted", func(t *testing.T) {
		for _, role := range user.AllRoles() {
			u := newTestUser(t, role)
			assert.True(t, m.CanViewUser(u, u), "role %s", role)
		}
	})

	t.Run("parent sees linked child only", func(t *testing.T) {
		parent := newTestUser(t, user.RoleParent)
		child := newTestUser(t, user.RoleStudent)
		other := newTestUser(t, user.RoleStudent)

		assert.False(t, m.CanViewUser(parent, child))

		_, err := parent.LinkChild(child.ID)
		require.NoError(t, err)

		assert.True(t, m.CanViewUser(parent, child))
		assert.False(t, m.CanViewUser(parent, other))
	})

	t.Run("teacher sees shared class members", func(t *testing.T) {
		teacher := newTestUser(t, user.RoleSubjectTeacher)
		student := newTestUser(t, user.RoleStudent)
		classID := uuid.New()

		assert.False(t, m.CanViewUser(teacher, student))

		teacher.JoinClass(classID)
		student.JoinClass(classID)
		assert.True(t, m.CanViewUser(teacher, student))
	})

	t.Run("administrators see everyone", func(t *testing.T) {
		student := newTestUser(t, user.RoleStudent)
		assert.True(t, m.CanViewUser(newTestUser(t, user.RoleDeputyPrincipal), student))
		assert.True(t, m.CanViewUser(newTestUser(t, user.RolePrincipal), student))
	})

	t.Run("student sees no one else", func(t *testing.T) {
		a := newTestUser(t, user.RoleStudent)
		b := newTestUser(t, user.RoleStudent)
		classID := uuid.New()
		a.JoinClass(classID)
		b.JoinClass(classID)
		assert.False(t, m.CanViewUser(a, b))
	})
}

func TestCanManageUser(t *testing.T) {
	m := newManagerWith()

	t.Run("follows rank strictly", func(t *testing.T) {
		for _, a := range user.AllRoles() {
			for _, b := range user.AllRoles() {
				manager := newTestUser(t, a)
				target := newTestUser(t, b)
				want := Rank(a) > Rank(b)
				assert.Equal(t, want, m.CanManageUser(manager, target),
					"%s manages %s", a, b)
			}
		}
	})

	t.Run("never self", func(t *testing.T) {
		u := newTestUser(t, user.RolePrincipal)
		assert.False(t, m.CanManageUser(u, u))
	})
}

func TestCanViewGrade(t *testing.T) {
	ctx := context.Background()
	mathID := uuid.New()

	newGrade := func(t *testing.T, studentID uuid.UUID) *grade.Grade {
		g, err := grade.NewGrade(uuid.New(), studentID, mathID, 5, "")
		require.NoError(t, err)
		return g
	}

	t.Run("owner views own grade", func(t *testing.T) {
		student := newTestUser(t, user.RoleStudent)
		m := newManagerWith(student)
		ok, err := m.CanViewGrade(ctx, student, newGrade(t, student.ID))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("parent views linked child grade", func(t *testing.T) {
		parent := newTestUser(t, user.RoleParent)
		child := newTestUser(t, user.RoleStudent)
		m := newManagerWith(child)

		ok, err := m.CanViewGrade(ctx, parent, newGrade(t, child.ID))
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = parent.LinkChild(child.ID)
		require.NoError(t, err)

		ok, err = m.CanViewGrade(ctx, parent, newGrade(t, child.ID))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("subject teacher needs the subject", func(t *testing.T) {
		teacher := newTestUser(t, user.RoleSubjectTeacher)
		student := newTestUser(t, user.RoleStudent)
		m := newManagerWith(student)

		ok, err := m.CanViewGrade(ctx, teacher, newGrade(t, student.ID))
		require.NoError(t, err)
		assert.False(t, ok)

		teacher.AddTaughtSubject(mathID)
		ok, err = m.CanViewGrade(ctx, teacher, newGrade(t, student.ID))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("homeroom teacher needs a shared class", func(t *testing.T) {
		// Homeroom teacher of C1; student enrolled only in C2. Enrolling
		// the student into C1 flips the decision.
		teacher := newTestUser(t, user.RoleHomeroomTeacher)
		student := newTestUser(t, user.RoleStudent)
		c1 := uuid.New()
		c2 := uuid.New()
		teacher.JoinClass(c1)
		student.JoinClass(c2)
		m := newManagerWith(student)

		ok, err := m.CanViewGrade(ctx, teacher, newGrade(t, student.ID))
		require.NoError(t, err)
		assert.False(t, ok)

		student.JoinClass(c1)
		ok, err = m.CanViewGrade(ctx, teacher, newGrade(t, student.ID))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("missing owner surfaces not found", func(t *testing.T) {
		teacher := newTestUser(t, user.RoleHomeroomTeacher)
		m := newManagerWith()
		_, err := m.CanViewGrade(ctx, teacher, newGrade(t, uuid.New()))
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("administrators view everything", func(t *testing.T) {
		m := newManagerWith()
		ok, err := m.CanViewGrade(ctx, newTestUser(t, user.RolePrincipal), newGrade(t, uuid.New()))
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestCanManageGrade(t *testing.T) {
	ctx := context.Background()
	mathID := uuid.New()

	t.Run("students and parents never manage", func(t *testing.T) {
		student := newTestUser(t, user.RoleStudent)
		g, err := grade.NewGrade(uuid.New(), student.ID, mathID, 4, "")
		require.NoError(t, err)
		m := newManagerWith(student)

		for _, role := range []user.Role{user.RoleStudent, user.RoleParent} {
			ok, err := m.CanManageGrade(ctx, newTestUser(t, role), g)
			require.NoError(t, err)
			assert.False(t, ok, "role %s", role)
		}

		// Not even the owner.
		ok, err := m.CanManageGrade(ctx, student, g)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("subject teacher manages own subject", func(t *testing.T) {
		teacher := newTestUser(t, user.RoleSubjectTeacher)
		teacher.AddTaughtSubject(mathID)
		student := newTestUser(t, user.RoleStudent)
		m := newManagerWith(student)

		g, err := grade.NewGrade(uuid.New(), student.ID, mathID, 4, "")
		require.NoError(t, err)
		ok, err := m.CanManageGrade(ctx, teacher, g)
		require.NoError(t, err)
		assert.True(t, ok)

		other, err := grade.NewGrade(uuid.New(), student.ID, uuid.New(), 4, "")
		require.NoError(t, err)
		ok, err = m.CanManageGrade(ctx, teacher, other)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestCanViewGrades(t *testing.T) {
	m := newManagerWith()

	t.Run("student only self regardless of shared classes", func(t *testing.T) {
		viewer := newTestUser(t, user.RoleStudent)
		target := newTestUser(t, user.RoleStudent)
		classID := uuid.New()
		viewer.JoinClass(classID)
		target.JoinClass(classID)

		assert.True(t, m.CanViewGrades(viewer, viewer))
		assert.False(t, m.CanViewGrades(viewer, target))
	})

	t.Run("parent follows the children set", func(t *testing.T) {
		parent := newTestUser(t, user.RoleParent)
		child := newTestUser(t, user.RoleStudent)

		assert.False(t, m.CanViewGrades(parent, child))

		_, err := parent.LinkChild(child.ID)
		require.NoError(t, err)
		assert.True(t, m.CanViewGrades(parent, child))

		// Removing the link flips it back.
		parent.ParentChildren = nil
		assert.False(t, m.CanViewGrades(parent, child))
	})

	t.Run("teachers need a shared class", func(t *testing.T) {
		student := newTestUser(t, user.RoleStudent)
		classID := uuid.New()
		student.JoinClass(classID)

		for _, role := range []user.Role{user.RoleSubjectTeacher, user.RoleHomeroomTeacher} {
			teacher := newTestUser(t, role)
			assert.False(t, m.CanViewGrades(teacher, student), "role %s", role)
			teacher.JoinClass(classID)
			assert.True(t, m.CanViewGrades(teacher, student), "role %s", role)
		}
	})

	t.Run("administrators always", func(t *testing.T) {
		student := newTestUser(t, user.RoleStudent)
		assert.True(t, m.CanViewGrades(newTestUser(t, user.RoleDeputyPrincipal), student))
		assert.True(t, m.CanViewGrades(newTestUser(t, user.RolePrincipal), student))
	})
}

func TestCanEditGrades(t *testing.T) {
	m := newManagerWith()
	schoolID := uuid.New()
	subject, err := school.NewSubject(uuid.New(), schoolID, "Mathematics")
	require.NoError(t, err)
	student := newTestUser(t, user.RoleStudent)

	t.Run("students and parents always denied", func(t *testing.T) {
		for _, role := range []user.Role{user.RoleStudent, user.RoleParent} {
			assert.False(t, m.CanEditGrades(newTestUser(t, role), student, subject),
				"role %s", role)
		}
	})

	t.Run("subject teacher needs the subject", func(t *testing.T) {
		teacher := newTestUser(t, user.RoleSubjectTeacher)
		assert.False(t, m.CanEditGrades(teacher, student, subject))
		teacher.AddTaughtSubject(subject.ID)
		assert.True(t, m.CanEditGrades(teacher, student, subject))
	})

	t.Run("homeroom teacher needs the student in the managed class", func(t *testing.T) {
		teacher := newTestUser(t, user.RoleHomeroomTeacher)
		classID := uuid.New()
		pupil := newTestUser(t, user.RoleStudent)

		assert.False(t, m.CanEditGrades(teacher, pupil, subject))

		teacher.AssignManagedClass(classID)
		assert.False(t, m.CanEditGrades(teacher, pupil, subject))

		pupil.JoinClass(classID)
		assert.True(t, m.CanEditGrades(teacher, pupil, subject))
	})

	t.Run("administrators always", func(t *testing.T) {
		assert.True(t, m.CanEditGrades(newTestUser(t, user.RoleDeputyPrincipal), student, subject))
		assert.True(t, m.CanEditGrades(newTestUser(t, user.RolePrincipal), student, subject))
	})
}

func TestCanInviteToClass(t *testing.T) {
	m := newManagerWith()
	class, err := school.NewClass(uuid.New(), uuid.New(), "7A")
	require.NoError(t, err)

	t.Run("principal invites anyone below", func(t *testing.T) {
		principal := newTestUser(t, user.RolePrincipal)
		assert.True(t, m.CanInviteToClass(principal, class, user.RoleStudent))
		assert.True(t, m.CanInviteToClass(principal, class, user.RoleHomeroomTeacher))
		assert.False(t, m.CanInviteToClass(principal, class, user.RolePrincipal))
	})

	t.Run("teacher must belong to the class", func(t *testing.T) {
		teacher := newTestUser(t, user.RoleHomeroomTeacher)
		assert.False(t, m.CanInviteToClass(teacher, class, user.RoleStudent))
		teacher.JoinClass(class.ID)
		assert.True(t, m.CanInviteToClass(teacher, class, user.RoleStudent))
	})

	t.Run("role pair must pass the hierarchy", func(t *testing.T) {
		teacher := newTestUser(t, user.RoleSubjectTeacher)
		teacher.JoinClass(class.ID)
		assert.True(t, m.CanInviteToClass(teacher, class, user.RoleStudent))
		assert.False(t, m.CanInviteToClass(teacher, class, user.RoleParent))
	})

	t.Run("students and parents never invite to classes", func(t *testing.T) {
		s := newTestUser(t, user.RoleStudent)
		p := newTestUser(t, user.RoleParent)
		s.JoinClass(class.ID)
		p.JoinClass(class.ID)
		assert.False(t, m.CanInviteToClass(s, class, user.RoleStudent))
		assert.False(t, m.CanInviteToClass(p, class, user.RoleParent))
	})
}

func TestCanInviteToSubject(t *testing.T) {
	m := newManagerWith()
	schoolID := uuid.New()
	math, err := school.NewSubject(uuid.New(), schoolID, "Mathematics")
	require.NoError(t, err)
	history, err := school.NewSubject(uuid.New(), schoolID, "History")
	require.NoError(t, err)

	t.Run("subject teacher limited to own subjects", func(t *testing.T) {
		// Teaching Math does not allow inviting into History even though
		// the role pair itself passes.
		teacher := newTestUser(t, user.RoleSubjectTeacher)
		teacher.AddTaughtSubject(math.ID)

		assert.True(t, CanInvite(teacher.Role, user.RoleStudent))
		assert.True(t, m.CanInviteToSubject(teacher, math, user.RoleStudent))
		assert.False(t, m.CanInviteToSubject(teacher, history, user.RoleStudent))
	})

	t.Run("administrators invite into any subject", func(t *testing.T) {
		deputy := newTestUser(t, user.RoleDeputyPrincipal)
		assert.True(t, m.CanInviteToSubject(deputy, history, user.RoleSubjectTeacher))
	})

	t.Run("homeroom teacher has no subject path", func(t *testing.T) {
		teacher := newTestUser(t, user.RoleHomeroomTeacher)
		assert.False(t, m.CanInviteToSubject(teacher, math, user.RoleStudent))
	})
}

func TestCanInviteParentLink(t *testing.T) {
	m := newManagerWith()
	assert.True(t, m.CanInviteParentLink(newTestUser(t, user.RoleParent)))
	for _, role := range []user.Role{
		user.RoleStudent, user.RoleSubjectTeacher, user.RoleHomeroomTeacher,
		user.RoleDeputyPrincipal, user.RolePrincipal,
	} {
		assert.False(t, m.CanInviteParentLink(newTestUser(t, role)), "role %s", role)
	}
}

func TestCanCreateInvitation_Dispatch(t *testing.T) {
	m := newManagerWith()
	class, err := school.NewClass(uuid.New(), uuid.New(), "7A")
	require.NoError(t, err)
	subject, err := school.NewSubject(uuid.New(), uuid.New(), "Physics")
	require.NoError(t, err)

	principal := newTestUser(t, user.RolePrincipal)
	parent := newTestUser(t, user.RoleParent)

	assert.True(t, m.CanCreateInvitation(principal, invitation.TypeClassStudent,
		user.RoleStudent, InvitationRefs{Class: class}))
	assert.True(t, m.CanCreateInvitation(principal, invitation.TypeClassTeacher,
		user.RoleHomeroomTeacher, InvitationRefs{Class: class}))
	assert.True(t, m.CanCreateInvitation(principal, invitation.TypeSubjectTeacher,
		user.RoleSubjectTeacher, InvitationRefs{Subject: subject}))

	assert.True(t, m.CanCreateInvitation(parent, invitation.TypeParentChild,
		user.RoleParent, InvitationRefs{}))
	assert.False(t, m.CanCreateInvitation(principal, invitation.TypeParentChild,
		user.RoleParent, InvitationRefs{}))

	assert.False(t, m.CanCreateInvitation(principal, invitation.Type("unknown"),
		user.RoleStudent, InvitationRefs{Class: class}))
}
