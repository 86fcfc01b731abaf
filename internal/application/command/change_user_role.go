package command

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/policy"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHANGE USER ROLE COMMAND
// The only role mutation path in the system. Invitations never change
// roles; this is an explicit administrative action.
// ══════════════════════════════════════════════════════════════════════════════

// ChangeUserRoleCommand changes a user's role.
type ChangeUserRoleCommand struct {
	// ActorID is the administrator performing the change. Nil means the
	// change comes from the operator CLI, which bypasses the policy check.
	ActorID *uuid.UUID

	// TargetID is the user whose role changes.
	TargetID uuid.UUID

	// NewRole is the role to assign.
	NewRole user.Role
}

// Validate validates the command.
func (c ChangeUserRoleCommand) Validate() error {
	if c.TargetID == uuid.Nil {
		return shared.NewDomainError("user", "ChangeRole", shared.ErrValidation, "target_id is required")
	}
	if !c.NewRole.IsValid() {
		return shared.NewDomainError("user", "ChangeRole", shared.ErrValidation,
			fmt.Sprintf("invalid role: %s", c.NewRole))
	}
	return nil
}

// ChangeUserRoleHandler handles the ChangeUserRoleCommand.
type ChangeUserRoleHandler struct {
	userRepo user.Repository
	policies *policy.Manager
	events   shared.EventBus
	logger   *zap.Logger
}

// NewChangeUserRoleHandler creates a new ChangeUserRoleHandler.
func NewChangeUserRoleHandler(
	userRepo user.Repository,
	policies *policy.Manager,
	events shared.EventBus,
	logger *zap.Logger,
) *ChangeUserRoleHandler {
	return &ChangeUserRoleHandler{
		userRepo: userRepo,
		policies: policies,
		events:   events,
		logger:   logger,
	}
}

// Handle executes the change user role command.
func (h *ChangeUserRoleHandler) Handle(ctx context.Context, cmd ChangeUserRoleCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	target, err := h.userRepo.GetByID(ctx, cmd.TargetID)
	if err != nil {
		return fmt.Errorf("change_user_role: load target: %w", err)
	}

	if cmd.ActorID != nil {
		actor, err := h.userRepo.GetByID(ctx, *cmd.ActorID)
		if err != nil {
			return fmt.Errorf("change_user_role: load actor: %w", err)
		}
		// The actor must outrank both the current and the assigned role,
		// otherwise a deputy could promote someone to principal.
		if !h.policies.CanManageUser(actor, target) || !policy.CanManage(actor.Role, cmd.NewRole) {
			return shared.ErrPermissionDenied
		}
	}

	oldRole := target.Role
	if err := target.ChangeRole(cmd.NewRole); err != nil {
		return shared.WrapError("user", "ChangeRole", shared.ErrValidation, "invalid role", err)
	}

	if err := h.userRepo.Update(ctx, target); err != nil {
		return fmt.Errorf("change_user_role: save: %w", err)
	}

	event := shared.NewUserRoleChangedEvent(target.ID.String(), oldRole.String(), cmd.NewRole.String())
	if err := h.events.Publish(ctx, event); err != nil {
		h.logger.Warn("failed to publish role changed event",
			zap.String("user_id", target.ID.String()),
			zap.Error(err))
	}
	return nil
}
