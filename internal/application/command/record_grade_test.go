package command

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/grade"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

type memGradeRepo struct {
	grades map[uuid.UUID]*grade.Grade
}

func newMemGradeRepo() *memGradeRepo {
	return &memGradeRepo{grades: map[uuid.UUID]*grade.Grade{}}
}

func (r *memGradeRepo) Create(_ context.Context, g *grade.Grade) error {
	cp := *g
	r.grades[g.ID] = &cp
	return nil
}

func (r *memGradeRepo) GetByID(_ context.Context, id uuid.UUID) (*grade.Grade, error) {
	g, ok := r.grades[id]
	if !ok {
		return nil, shared.ErrGradeNotFound
	}
	cp := *g
	return &cp, nil
}

func (r *memGradeRepo) ListByStudent(_ context.Context, studentID uuid.UUID) ([]*grade.Grade, error) {
	var out []*grade.Grade
	for _, g := range r.grades {
		if g.StudentID == studentID {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memGradeRepo) ListByStudentAndSubject(_ context.Context, studentID, subjectID uuid.UUID) ([]*grade.Grade, error) {
	var out []*grade.Grade
	for _, g := range r.grades {
		if g.StudentID == studentID && g.SubjectID == subjectID {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memGradeRepo) Update(_ context.Context, g *grade.Grade) error {
	if _, ok := r.grades[g.ID]; !ok {
		return shared.ErrGradeNotFound
	}
	cp := *g
	r.grades[g.ID] = &cp
	return nil
}

func (r *memGradeRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.grades, id)
	return nil
}

func TestRecordGrade(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, *memGradeRepo, *RecordGradeHandler) {
		f := newFixture()
		grades := newMemGradeRepo()
		h := NewRecordGradeHandler(f.users, f.subjects, grades, f.policies, f.bus, zap.NewNop())
		return f, grades, h
	}

	t.Run("subject teacher records a grade in their subject", func(t *testing.T) {
		f, grades, h := setup(t)
		teacher := f.addUser(t, user.RoleSubjectTeacher)
		student := f.addUser(t, user.RoleStudent)
		math := f.addSubject(t, "Mathematics")
		teacher.AddTaughtSubject(math.ID)
		require.NoError(t, f.users.Update(ctx, teacher))

		res, err := h.Handle(ctx, RecordGradeCommand{
			EditorID:  teacher.ID,
			StudentID: student.ID,
			SubjectID: math.ID,
			Value:     5,
		})
		require.NoError(t, err)
		assert.False(t, res.Updated)

		g, err := grades.GetByID(ctx, res.GradeID)
		require.NoError(t, err)
		assert.Equal(t, 5, g.Value)

		require.Len(t, f.bus.events, 1)
		assert.Equal(t, shared.EventGradeRecorded, f.bus.events[0].EventType())
	})

	t.Run("student cannot record grades", func(t *testing.T) {
		f, _, h := setup(t)
		student := f.addUser(t, user.RoleStudent)
		math := f.addSubject(t, "Mathematics")

		_, err := h.Handle(ctx, RecordGradeCommand{
			EditorID:  student.ID,
			StudentID: student.ID,
			SubjectID: math.ID,
			Value:     5,
		})
		assert.True(t, shared.IsForbidden(err))
	})

	t.Run("value out of range is a validation error", func(t *testing.T) {
		f, _, h := setup(t)
		teacher := f.addUser(t, user.RoleSubjectTeacher)
		student := f.addUser(t, user.RoleStudent)
		math := f.addSubject(t, "Mathematics")

		_, err := h.Handle(ctx, RecordGradeCommand{
			EditorID:  teacher.ID,
			StudentID: student.ID,
			SubjectID: math.ID,
			Value:     6,
		})
		assert.True(t, shared.IsValidation(err), "got %v", err)
	})

	t.Run("updating an existing grade", func(t *testing.T) {
		f, grades, h := setup(t)
		principal := f.addUser(t, user.RolePrincipal)
		student := f.addUser(t, user.RoleStudent)
		math := f.addSubject(t, "Mathematics")

		created, err := h.Handle(ctx, RecordGradeCommand{
			EditorID:  principal.ID,
			StudentID: student.ID,
			SubjectID: math.ID,
			Value:     3,
		})
		require.NoError(t, err)

		res, err := h.Handle(ctx, RecordGradeCommand{
			EditorID:  principal.ID,
			StudentID: student.ID,
			SubjectID: math.ID,
			Value:     4,
			GradeID:   &created.GradeID,
		})
		require.NoError(t, err)
		assert.True(t, res.Updated)

		g, err := grades.GetByID(ctx, created.GradeID)
		require.NoError(t, err)
		assert.Equal(t, 4, g.Value)
		assert.Equal(t, shared.EventGradeUpdated, f.bus.events[1].EventType())
	})
}
