// Package query contains read operations (CQRS - Queries). Every query
// runs the matching policy predicate before returning data.
package query

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/policy"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetUserQuery requests one user's profile on behalf of a viewer.
type GetUserQuery struct {
	// ViewerID is the authenticated caller.
	ViewerID uuid.UUID

	// TargetID is the requested user.
	TargetID uuid.UUID
}

// GetUserHandler handles the GetUserQuery.
type GetUserHandler struct {
	userRepo user.Repository
	policies *policy.Manager
}

// NewGetUserHandler creates a new GetUserHandler.
func NewGetUserHandler(userRepo user.Repository, policies *policy.Manager) *GetUserHandler {
	return &GetUserHandler{userRepo: userRepo, policies: policies}
}

// Handle executes the get user query.
func (h *GetUserHandler) Handle(ctx context.Context, q GetUserQuery) (*user.User, error) {
	if q.ViewerID == uuid.Nil || q.TargetID == uuid.Nil {
		return nil, shared.NewDomainError("user", "Get", shared.ErrValidation, "viewer_id and target_id are required")
	}

	viewer, err := h.userRepo.GetByID(ctx, q.ViewerID)
	if err != nil {
		return nil, fmt.Errorf("get_user: load viewer: %w", err)
	}

	target, err := h.userRepo.GetByID(ctx, q.TargetID)
	if err != nil {
		return nil, fmt.Errorf("get_user: load target: %w", err)
	}

	if !h.policies.CanViewUser(viewer, target) {
		return nil, shared.ErrPermissionDenied
	}
	return target, nil
}
