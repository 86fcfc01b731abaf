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
// GET GRADE QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetGradeQuery requests one grade on behalf of a viewer.
type GetGradeQuery struct {
	// ViewerID is the authenticated caller.
	ViewerID uuid.UUID

	// GradeID is the requested grade.
	GradeID uuid.UUID
}

// GetGradeHandler handles the GetGradeQuery.
type GetGradeHandler struct {
	userRepo  user.Repository
	gradeRepo grade.Repository
	policies  *policy.Manager
}

// NewGetGradeHandler creates a new GetGradeHandler.
func NewGetGradeHandler(userRepo user.Repository, gradeRepo grade.Repository, policies *policy.Manager) *GetGradeHandler {
	return &GetGradeHandler{userRepo: userRepo, gradeRepo: gradeRepo, policies: policies}
}

// Handle executes the get grade query.
func (h *GetGradeHandler) Handle(ctx context.Context, q GetGradeQuery) (*grade.Grade, error) {
	if q.ViewerID == uuid.Nil || q.GradeID == uuid.Nil {
		return nil, shared.NewDomainError("grade", "Get", shared.ErrValidation, "viewer_id and grade_id are required")
	}

	viewer, err := h.userRepo.GetByID(ctx, q.ViewerID)
	if err != nil {
		return nil, fmt.Errorf("get_grade: load viewer: %w", err)
	}

	g, err := h.gradeRepo.GetByID(ctx, q.GradeID)
	if err != nil {
		return nil, fmt.Errorf("get_grade: load grade: %w", err)
	}

	ok, err := h.policies.CanViewGrade(ctx, viewer, g)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shared.ErrPermissionDenied
	}
	return g, nil
}
