package query

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/grade"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/policy"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT GRADES QUERY
// Bulk variant: lists every grade of one student, optionally narrowed to
// a subject.
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentGradesQuery requests a student's grades on behalf of a viewer.
type GetStudentGradesQuery struct {
	// ViewerID is the authenticated caller.
	ViewerID uuid.UUID

	// StudentID is the student whose grades are requested.
	StudentID uuid.UUID

	// SubjectID narrows the listing to one subject when set.
	SubjectID *uuid.UUID
}

// GetStudentGradesHandler handles the GetStudentGradesQuery.
type GetStudentGradesHandler struct {
	userRepo  user.Repository
	gradeRepo grade.Repository
	policies  *policy.Manager
}

// NewGetStudentGradesHandler creates a new GetStudentGradesHandler.
func NewGetStudentGradesHandler(userRepo user.Repository, gradeRepo grade.Repository, policies *policy.Manager) *GetStudentGradesHandler {
	return &GetStudentGradesHandler{userRepo: userRepo, gradeRepo: gradeRepo, policies: policies}
}

// Handle executes the get student grades query.
func (h *GetStudentGradesHandler) Handle(ctx context.Context, q GetStudentGradesQuery) ([]*grade.Grade, error) {
	if q.ViewerID == uuid.Nil || q.StudentID == uuid.Nil {
		return nil, shared.NewDomainError("grade", "List", shared.ErrValidation, "viewer_id and student_id are required")
	}

	viewer, err := h.userRepo.GetByID(ctx, q.ViewerID)
	if err != nil {
		return nil, fmt.Errorf("get_student_grades: load viewer: %w", err)
	}

	student, err := h.userRepo.GetByID(ctx, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get_student_grades: load student: %w", err)
	}

	if !h.policies.CanViewGrades(viewer, student) {
		return nil, shared.ErrPermissionDenied
	}

	if q.SubjectID != nil {
		grades, err := h.gradeRepo.ListByStudentAndSubject(ctx, q.StudentID, *q.SubjectID)
		if err != nil {
			return nil, fmt.Errorf("get_student_grades: list: %w", err)
		}
		return grades, nil
	}

	grades, err := h.gradeRepo.ListByStudent(ctx, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get_student_grades: list: %w", err)
	}
	return grades, nil
}
