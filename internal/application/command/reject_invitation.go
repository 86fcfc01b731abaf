package command

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/invitation"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REJECT INVITATION COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RejectInvitationCommand declines a pending invitation.
type RejectInvitationCommand struct {
	// InvitationID is the invitation being declined.
	InvitationID uuid.UUID
}

// Validate validates the command.
func (c RejectInvitationCommand) Validate() error {
	if c.InvitationID == uuid.Nil {
		return shared.NewDomainError("invitation", "Reject", shared.ErrValidation, "invitation_id is required")
	}
	return nil
}

// RejectInvitationHandler handles the RejectInvitationCommand.
type RejectInvitationHandler struct {
	invitationRepo invitation.Repository
}

// NewRejectInvitationHandler creates a new RejectInvitationHandler.
func NewRejectInvitationHandler(invitationRepo invitation.Repository) *RejectInvitationHandler {
	return &RejectInvitationHandler{invitationRepo: invitationRepo}
}

// Handle executes the reject invitation command.
func (h *RejectInvitationHandler) Handle(ctx context.Context, cmd RejectInvitationCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	// Load first so a missing invitation surfaces as not found rather
	// than as a failed transition.
	if _, err := h.invitationRepo.GetByID(ctx, cmd.InvitationID); err != nil {
		return fmt.Errorf("reject_invitation: load invitation: %w", err)
	}

	ok, err := h.invitationRepo.TryTransitionStatus(ctx, cmd.InvitationID,
		invitation.StatusPending, invitation.StatusRejected)
	if err != nil {
		return fmt.Errorf("reject_invitation: transition status: %w", err)
	}
	if !ok {
		return shared.ErrInvitationNotPending
	}
	return nil
}
