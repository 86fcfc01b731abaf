package command

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/invitation"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/policy"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/school"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY FAKES
// ══════════════════════════════════════════════════════════════════════════════

type memUserRepo struct {
	users map[uuid.UUID]*user.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[uuid.UUID]*user.User{}}
}

func (r *memUserRepo) Create(_ context.Context, u *user.User) error {
	r.users[u.ID] = u.Clone()
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (r *memUserRepo) GetByChatID(_ context.Context, chatID user.ChatID) (*user.User, error) {
	for _, u := range r.users {
		if u.ChatID == chatID {
			return u.Clone(), nil
		}
	}
	return nil, shared.ErrUserNotFound
}

func (r *memUserRepo) Update(_ context.Context, u *user.User) error {
	if _, ok := r.users[u.ID]; !ok {
		return shared.ErrUserNotFound
	}
	r.users[u.ID] = u.Clone()
	return nil
}

func (r *memUserRepo) ListByClass(_ context.Context, classID uuid.UUID, role *user.Role) ([]*user.User, error) {
	var out []*user.User
	for _, u := range r.users {
		if u.InClass(classID) && (role == nil || u.Role == *role) {
			out = append(out, u.Clone())
		}
	}
	return out, nil
}

func (r *memUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.users, id)
	return nil
}

// ResolveUser makes the fake usable as a policy resolver.
func (r *memUserRepo) ResolveUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.GetByID(ctx, id)
}

type memClassRepo struct {
	classes map[uuid.UUID]*school.Class
}

func newMemClassRepo() *memClassRepo {
	return &memClassRepo{classes: map[uuid.UUID]*school.Class{}}
}

func (r *memClassRepo) Create(_ context.Context, c *school.Class) error {
	r.classes[c.ID] = c
	return nil
}

func (r *memClassRepo) GetByID(_ context.Context, id uuid.UUID) (*school.Class, error) {
	c, ok := r.classes[id]
	if !ok {
		return nil, shared.ErrClassNotFound
	}
	return c, nil
}

func (r *memClassRepo) ListBySchool(_ context.Context, schoolID uuid.UUID) ([]*school.Class, error) {
	var out []*school.Class
	for _, c := range r.classes {
		if c.SchoolID == schoolID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memClassRepo) Update(_ context.Context, c *school.Class) error {
	r.classes[c.ID] = c
	return nil
}

func (r *memClassRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.classes, id)
	return nil
}

type memSubjectRepo struct {
	subjects map[uuid.UUID]*school.Subject
}

func newMemSubjectRepo() *memSubjectRepo {
	return &memSubjectRepo{subjects: map[uuid.UUID]*school.Subject{}}
}

func (r *memSubjectRepo) Create(_ context.Context, s *school.Subject) error {
	r.subjects[s.ID] = s
	return nil
}

func (r *memSubjectRepo) GetByID(_ context.Context, id uuid.UUID) (*school.Subject, error) {
	s, ok := r.subjects[id]
	if !ok {
		return nil, shared.ErrSubjectNotFound
	}
	return s, nil
}

func (r *memSubjectRepo) ListBySchool(_ context.Context, schoolID uuid.UUID) ([]*school.Subject, error) {
	var out []*school.Subject
	for _, s := range r.subjects {
		if s.SchoolID == schoolID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSubjectRepo) Update(_ context.Context, s *school.Subject) error {
	r.subjects[s.ID] = s
	return nil
}

func (r *memSubjectRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.subjects, id)
	return nil
}

type memInvitationRepo struct {
	invitations map[uuid.UUID]*invitation.Invitation
}

func newMemInvitationRepo() *memInvitationRepo {
	return &memInvitationRepo{invitations: map[uuid.UUID]*invitation.Invitation{}}
}

func (r *memInvitationRepo) Create(_ context.Context, inv *invitation.Invitation) error {
	cp := *inv
	r.invitations[inv.ID] = &cp
	return nil
}

func (r *memInvitationRepo) GetByID(_ context.Context, id uuid.UUID) (*invitation.Invitation, error) {
	inv, ok := r.invitations[id]
	if !ok {
		return nil, shared.ErrInvitationNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *memInvitationRepo) ListByInviter(_ context.Context, inviterID uuid.UUID) ([]*invitation.Invitation, error) {
	var out []*invitation.Invitation
	for _, inv := range r.invitations {
		if inv.InviterID == inviterID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memInvitationRepo) TryTransitionStatus(_ context.Context, id uuid.UUID, from, to invitation.Status) (bool, error) {
	inv, ok := r.invitations[id]
	if !ok {
		return false, nil
	}
	if inv.Status != from {
		return false, nil
	}
	inv.Status = to
	return true, nil
}

type noopTx struct{}

func (noopTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type recordingBus struct {
	events []shared.Event
}

func (b *recordingBus) Publish(_ context.Context, event shared.Event) error {
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) Subscribe(shared.EventType, shared.EventHandler) error { return nil }

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURE
// ══════════════════════════════════════════════════════════════════════════════

type fixture struct {
	users       *memUserRepo
	classes     *memClassRepo
	subjects    *memSubjectRepo
	invitations *memInvitationRepo
	bus         *recordingBus
	policies    *policy.Manager
	create      *CreateInvitationHandler
	accept      *AcceptInvitationHandler
	reject      *RejectInvitationHandler
}

func newFixture() *fixture {
	f := &fixture{
		users:       newMemUserRepo(),
		classes:     newMemClassRepo(),
		subjects:    newMemSubjectRepo(),
		invitations: newMemInvitationRepo(),
		bus:         &recordingBus{},
	}
	f.policies = policy.NewManager(f.users)
	f.create = NewCreateInvitationHandler(f.users, f.classes, f.subjects, f.invitations, f.policies, "mektep_hub_bot")
	f.accept = NewAcceptInvitationHandler(noopTx{}, f.users, f.classes, f.subjects, f.invitations, f.bus, zap.NewNop())
	f.reject = NewRejectInvitationHandler(f.invitations)
	return f
}

var chatSeq int64 = 5000

func (f *fixture) addUser(t *testing.T, role user.Role) *user.User {
	t.Helper()
	chatSeq++
	u, err := user.NewUser(user.NewUserParams{
		ID:     uuid.New(),
		ChatID: user.ChatID(chatSeq),
		Name:   "Test User",
		Role:   role,
	})
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) addClass(t *testing.T) *school.Class {
	t.Helper()
	c, err := school.NewClass(uuid.New(), uuid.New(), "7A")
	require.NoError(t, err)
	require.NoError(t, f.classes.Create(context.Background(), c))
	return c
}

func (f *fixture) addSubject(t *testing.T, name string) *school.Subject {
	t.Helper()
	s, err := school.NewSubject(uuid.New(), uuid.New(), name)
	require.NoError(t, err)
	require.NoError(t, f.subjects.Create(context.Background(), s))
	return s
}

// ══════════════════════════════════════════════════════════════════════════════
// CREATE
// ══════════════════════════════════════════════════════════════════════════════

func TestCreateInvitation(t *testing.T) {
	ctx := context.Background()

	t.Run("principal invites student into class", func(t *testing.T) {
		f := newFixture()
		principal := f.addUser(t, user.RolePrincipal)
		class := f.addClass(t)

		res, err := f.create.Handle(ctx, CreateInvitationCommand{
			InviterID:  principal.ID,
			Type:       invitation.TypeClassStudent,
			TargetRole: user.RoleStudent,
			ClassID:    &class.ID,
		})
		require.NoError(t, err)
		assert.Contains(t, res.DeepLink, "t.me/mektep_hub_bot?start=invite_"+res.InvitationID.String())

		inv, err := f.invitations.GetByID(ctx, res.InvitationID)
		require.NoError(t, err)
		assert.Equal(t, invitation.StatusPending, inv.Status)
	})

	t.Run("missing class ref is a validation error", func(t *testing.T) {
		f := newFixture()
		principal := f.addUser(t, user.RolePrincipal)

		_, err := f.create.Handle(ctx, CreateInvitationCommand{
			InviterID:  principal.ID,
			Type:       invitation.TypeClassStudent,
			TargetRole: user.RoleStudent,
		})
		assert.True(t, shared.IsValidation(err), "got %v", err)
	})

	t.Run("unknown class is not found", func(t *testing.T) {
		f := newFixture()
		principal := f.addUser(t, user.RolePrincipal)
		missing := uuid.New()

		_, err := f.create.Handle(ctx, CreateInvitationCommand{
			InviterID:  principal.ID,
			Type:       invitation.TypeClassStudent,
			TargetRole: user.RoleStudent,
			ClassID:    &missing,
		})
		assert.True(t, shared.IsNotFound(err), "got %v", err)
	})

	t.Run("subject teacher cannot invite into a subject they do not teach", func(t *testing.T) {
		f := newFixture()
		teacher := f.addUser(t, user.RoleSubjectTeacher)
		math := f.addSubject(t, "Mathematics")
		history := f.addSubject(t, "History")

		teacher.AddTaughtSubject(math.ID)
		require.NoError(t, f.users.Update(ctx, teacher))

		_, err := f.create.Handle(ctx, CreateInvitationCommand{
			InviterID:  teacher.ID,
			Type:       invitation.TypeSubjectTeacher,
			TargetRole: user.RoleStudent,
			SubjectID:  &history.ID,
		})
		assert.True(t, shared.IsForbidden(err), "got %v", err)

		_, err = f.create.Handle(ctx, CreateInvitationCommand{
			InviterID:  teacher.ID,
			Type:       invitation.TypeSubjectTeacher,
			TargetRole: user.RoleStudent,
			SubjectID:  &math.ID,
		})
		assert.NoError(t, err)
	})

	t.Run("student cannot create invitations", func(t *testing.T) {
		f := newFixture()
		student := f.addUser(t, user.RoleStudent)
		class := f.addClass(t)

		_, err := f.create.Handle(ctx, CreateInvitationCommand{
			InviterID:  student.ID,
			Type:       invitation.TypeClassStudent,
			TargetRole: user.RoleStudent,
			ClassID:    &class.ID,
		})
		assert.True(t, shared.IsForbidden(err))
	})

	t.Run("only parents create parent links", func(t *testing.T) {
		f := newFixture()
		parent := f.addUser(t, user.RoleParent)
		principal := f.addUser(t, user.RolePrincipal)
		child := f.addUser(t, user.RoleStudent)

		_, err := f.create.Handle(ctx, CreateInvitationCommand{
			InviterID:  parent.ID,
			Type:       invitation.TypeParentChild,
			TargetRole: user.RoleParent,
			ChildID:    &child.ID,
		})
		assert.NoError(t, err)

		_, err = f.create.Handle(ctx, CreateInvitationCommand{
			InviterID:  principal.ID,
			Type:       invitation.TypeParentChild,
			TargetRole: user.RoleParent,
			ChildID:    &child.ID,
		})
		assert.True(t, shared.IsForbidden(err))
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ACCEPT
// ══════════════════════════════════════════════════════════════════════════════

func TestAcceptInvitation_ClassJoin(t *testing.T) {
	// Principal invites a student into class C; the student accepts and is
	// enrolled; a second accept fails with an invalid-state error.
	ctx := context.Background()
	f := newFixture()
	principal := f.addUser(t, user.RolePrincipal)
	student := f.addUser(t, user.RoleStudent)
	class := f.addClass(t)

	created, err := f.create.Handle(ctx, CreateInvitationCommand{
		InviterID:  principal.ID,
		Type:       invitation.TypeClassStudent,
		TargetRole: user.RoleStudent,
		ClassID:    &class.ID,
	})
	require.NoError(t, err)

	res, err := f.accept.Handle(ctx, AcceptInvitationCommand{
		InvitationID:    created.InvitationID,
		AcceptingUserID: student.ID,
	})
	require.NoError(t, err)
	assert.True(t, res.EdgeAdded)

	reloaded, err := f.users.GetByID(ctx, student.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.InClass(class.ID))

	inv, err := f.invitations.GetByID(ctx, created.InvitationID)
	require.NoError(t, err)
	assert.Equal(t, invitation.StatusAccepted, inv.Status)

	require.Len(t, f.bus.events, 1)
	assert.Equal(t, shared.EventInvitationAccepted, f.bus.events[0].EventType())

	_, err = f.accept.Handle(ctx, AcceptInvitationCommand{
		InvitationID:    created.InvitationID,
		AcceptingUserID: student.ID,
	})
	assert.True(t, shared.IsInvalidState(err), "got %v", err)
}

func TestAcceptInvitation_ParentLink(t *testing.T) {
	// A parent with no linked children cannot view any student. After the
	// link invitation is accepted, the accepting parent sees exactly that
	// child.
	ctx := context.Background()
	f := newFixture()
	inviter := f.addUser(t, user.RoleParent)
	accepter := f.addUser(t, user.RoleParent)
	child := f.addUser(t, user.RoleStudent)
	other := f.addUser(t, user.RoleStudent)

	assert.False(t, f.policies.CanViewUser(accepter, child))

	created, err := f.create.Handle(ctx, CreateInvitationCommand{
		InviterID:  inviter.ID,
		Type:       invitation.TypeParentChild,
		TargetRole: user.RoleParent,
		ChildID:    &child.ID,
	})
	require.NoError(t, err)

	_, err = f.accept.Handle(ctx, AcceptInvitationCommand{
		InvitationID:    created.InvitationID,
		AcceptingUserID: accepter.ID,
	})
	require.NoError(t, err)

	reloaded, err := f.users.GetByID(ctx, accepter.ID)
	require.NoError(t, err)
	assert.True(t, f.policies.CanViewUser(reloaded, child))
	assert.False(t, f.policies.CanViewUser(reloaded, other))
}

func TestAcceptInvitation_SubjectTeacher(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	deputy := f.addUser(t, user.RoleDeputyPrincipal)
	teacher := f.addUser(t, user.RoleSubjectTeacher)
	math := f.addSubject(t, "Mathematics")

	created, err := f.create.Handle(ctx, CreateInvitationCommand{
		InviterID:  deputy.ID,
		Type:       invitation.TypeSubjectTeacher,
		TargetRole: user.RoleSubjectTeacher,
		SubjectID:  &math.ID,
	})
	require.NoError(t, err)

	_, err = f.accept.Handle(ctx, AcceptInvitationCommand{
		InvitationID:    created.InvitationID,
		AcceptingUserID: teacher.ID,
	})
	require.NoError(t, err)

	reloaded, err := f.users.GetByID(ctx, teacher.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Teaches(math.ID))
}

func TestAcceptInvitation_Expiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	principal := f.addUser(t, user.RolePrincipal)
	student := f.addUser(t, user.RoleStudent)
	class := f.addClass(t)

	created, err := f.create.Handle(ctx, CreateInvitationCommand{
		InviterID:  principal.ID,
		Type:       invitation.TypeClassStudent,
		TargetRole: user.RoleStudent,
		ClassID:    &class.ID,
		TTL:        time.Hour,
	})
	require.NoError(t, err)

	// Move the handler clock past the deadline.
	f.accept.now = func() time.Time { return created.ExpiresAt.Add(time.Minute) }

	_, err = f.accept.Handle(ctx, AcceptInvitationCommand{
		InvitationID:    created.InvitationID,
		AcceptingUserID: student.ID,
	})
	assert.True(t, shared.IsExpired(err), "got %v", err)

	// The failed attempt persisted the expired status.
	inv, err := f.invitations.GetByID(ctx, created.InvitationID)
	require.NoError(t, err)
	assert.Equal(t, invitation.StatusExpired, inv.Status)

	// A second attempt reports invalid state, not expired again.
	_, err = f.accept.Handle(ctx, AcceptInvitationCommand{
		InvitationID:    created.InvitationID,
		AcceptingUserID: student.ID,
	})
	assert.True(t, shared.IsInvalidState(err), "got %v", err)
	assert.False(t, shared.IsExpired(err))

	// The edge was never granted.
	reloaded, err := f.users.GetByID(ctx, student.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.InClass(class.ID))
}

func TestAcceptInvitation_DeletedClass(t *testing.T) {
	// A class removed between create and accept surfaces as not-found;
	// the invitation stays pending and the user gains no edge.
	ctx := context.Background()
	f := newFixture()
	principal := f.addUser(t, user.RolePrincipal)
	student := f.addUser(t, user.RoleStudent)
	class := f.addClass(t)

	created, err := f.create.Handle(ctx, CreateInvitationCommand{
		InviterID:  principal.ID,
		Type:       invitation.TypeClassStudent,
		TargetRole: user.RoleStudent,
		ClassID:    &class.ID,
	})
	require.NoError(t, err)

	require.NoError(t, f.classes.Delete(ctx, class.ID))

	_, err = f.accept.Handle(ctx, AcceptInvitationCommand{
		InvitationID:    created.InvitationID,
		AcceptingUserID: student.ID,
	})
	assert.True(t, shared.IsNotFound(err), "got %v", err)

	inv, err := f.invitations.GetByID(ctx, created.InvitationID)
	require.NoError(t, err)
	assert.Equal(t, invitation.StatusPending, inv.Status)

	reloaded, err := f.users.GetByID(ctx, student.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.InClass(class.ID))
}

func TestAcceptInvitation_NotFound(t *testing.T) {
	f := newFixture()
	student := f.addUser(t, user.RoleStudent)

	_, err := f.accept.Handle(context.Background(), AcceptInvitationCommand{
		InvitationID:    uuid.New(),
		AcceptingUserID: student.ID,
	})
	assert.True(t, shared.IsNotFound(err))
}

// ══════════════════════════════════════════════════════════════════════════════
// REJECT
// ══════════════════════════════════════════════════════════════════════════════

func TestRejectInvitation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	principal := f.addUser(t, user.RolePrincipal)
	student := f.addUser(t, user.RoleStudent)
	class := f.addClass(t)

	created, err := f.create.Handle(ctx, CreateInvitationCommand{
		InviterID:  principal.ID,
		Type:       invitation.TypeClassStudent,
		TargetRole: user.RoleStudent,
		ClassID:    &class.ID,
	})
	require.NoError(t, err)

	require.NoError(t, f.reject.Handle(ctx, RejectInvitationCommand{InvitationID: created.InvitationID}))

	inv, err := f.invitations.GetByID(ctx, created.InvitationID)
	require.NoError(t, err)
	assert.Equal(t, invitation.StatusRejected, inv.Status)

	// Rejected invitations cannot be accepted.
	_, err = f.accept.Handle(ctx, AcceptInvitationCommand{
		InvitationID:    created.InvitationID,
		AcceptingUserID: student.ID,
	})
	assert.True(t, shared.IsInvalidState(err))

	// Nor rejected twice.
	err = f.reject.Handle(ctx, RejectInvitationCommand{InvitationID: created.InvitationID})
	assert.True(t, shared.IsInvalidState(err))
}
