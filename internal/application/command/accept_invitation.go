package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/invitation"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/school"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACCEPT INVITATION COMMAND
// Redeems a pending invitation: applies the relationship edge to the
// accepting user and moves the invitation to accepted, both in one
// transaction. The status transition is a conditional update so two
// concurrent accepts cannot both grant the edge.
// ══════════════════════════════════════════════════════════════════════════════

// AcceptInvitationCommand contains the data to accept an invitation.
type AcceptInvitationCommand struct {
	// InvitationID is the invitation being redeemed.
	InvitationID uuid.UUID

	// AcceptingUserID is the invitee.
	AcceptingUserID uuid.UUID
}

// Validate validates the command.
func (c AcceptInvitationCommand) Validate() error {
	if c.InvitationID == uuid.Nil {
		return shared.NewDomainError("invitation", "Accept", shared.ErrValidation, "invitation_id is required")
	}
	if c.AcceptingUserID == uuid.Nil {
		return shared.NewDomainError("invitation", "Accept", shared.ErrValidation, "accepting_user_id is required")
	}
	return nil
}

// AcceptInvitationResult contains the result of accepting an invitation.
type AcceptInvitationResult struct {
	// InvitationID is the ID of the accepted invitation.
	InvitationID uuid.UUID

	// Type is the invitation type that was redeemed.
	Type invitation.Type

	// EdgeAdded reports whether the relationship edge was newly added.
	// False means the user already had it; the accept still succeeds.
	EdgeAdded bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AcceptInvitationHandler handles the AcceptInvitationCommand.
type AcceptInvitationHandler struct {
	tx             TxManager
	userRepo       user.Repository
	classRepo      school.ClassRepository
	subjectRepo    school.SubjectRepository
	invitationRepo invitation.Repository
	events         shared.EventBus
	logger         *zap.Logger
	now            func() time.Time
}

// NewAcceptInvitationHandler creates a new AcceptInvitationHandler.
func NewAcceptInvitationHandler(
	tx TxManager,
	userRepo user.Repository,
	classRepo school.ClassRepository,
	subjectRepo school.SubjectRepository,
	invitationRepo invitation.Repository,
	events shared.EventBus,
	logger *zap.Logger,
) *AcceptInvitationHandler {
	return &AcceptInvitationHandler{
		tx:             tx,
		userRepo:       userRepo,
		classRepo:      classRepo,
		subjectRepo:    subjectRepo,
		invitationRepo: invitationRepo,
		events:         events,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the accept invitation command.
func (h *AcceptInvitationHandler) Handle(ctx context.Context, cmd AcceptInvitationCommand) (*AcceptInvitationResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	inv, err := h.invitationRepo.GetByID(ctx, cmd.InvitationID)
	if err != nil {
		return nil, fmt.Errorf("accept_invitation: load invitation: %w", err)
	}

	if err := inv.CheckAcceptable(h.now()); err != nil {
		switch {
		case errors.Is(err, invitation.ErrNotPending):
			return nil, shared.ErrInvitationNotPending
		case errors.Is(err, invitation.ErrExpired):
			// Persist the expired status as a side effect of the failed
			// attempt. Losing the transition race just means another
			// attempt already recorded it.
			if _, terr := h.invitationRepo.TryTransitionStatus(ctx, inv.ID,
				invitation.StatusPending, invitation.StatusExpired); terr != nil {
				h.logger.Warn("failed to persist expired invitation status",
					zap.String("invitation_id", inv.ID.String()),
					zap.Error(terr))
			}
			return nil, shared.ErrInvitationExpired
		default:
			return nil, err
		}
	}

	// The referenced class, subject, or child may have been deleted
	// since the invitation was created. Surface not-found here rather
	// than a constraint violation from the edge write.
	if err := h.resolveRef(ctx, inv); err != nil {
		return nil, err
	}

	accepting, err := h.userRepo.GetByID(ctx, cmd.AcceptingUserID)
	if err != nil {
		return nil, fmt.Errorf("accept_invitation: load accepting user: %w", err)
	}

	result := &AcceptInvitationResult{
		InvitationID: inv.ID,
		Type:         inv.Type,
	}

	err = h.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		// Claim the invitation first. Of two concurrent accepts exactly
		// one sees rows affected; the loser fails without touching the
		// user.
		ok, err := h.invitationRepo.TryTransitionStatus(txCtx, inv.ID,
			invitation.StatusPending, invitation.StatusAccepted)
		if err != nil {
			return fmt.Errorf("accept_invitation: transition status: %w", err)
		}
		if !ok {
			return shared.ErrInvitationNotPending
		}

		added, err := applyEdge(accepting, inv)
		if err != nil {
			return err
		}
		result.EdgeAdded = added

		if err := h.userRepo.Update(txCtx, accepting); err != nil {
			return fmt.Errorf("accept_invitation: update user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewInvitationAcceptedEvent(
		inv.ID.String(),
		inv.Type.String(),
		inv.InviterID.String(),
		accepting.ID.String(),
	)
	if err := h.events.Publish(ctx, event); err != nil {
		h.logger.Warn("failed to publish invitation accepted event",
			zap.String("invitation_id", inv.ID.String()),
			zap.Error(err))
	}

	return result, nil
}

// resolveRef checks that the entity the invitation references still exists.
func (h *AcceptInvitationHandler) resolveRef(ctx context.Context, inv *invitation.Invitation) error {
	switch inv.Type {
	case invitation.TypeClassStudent, invitation.TypeClassTeacher:
		if _, err := h.classRepo.GetByID(ctx, *inv.ClassID); err != nil {
			return fmt.Errorf("accept_invitation: resolve class: %w", err)
		}
	case invitation.TypeSubjectTeacher:
		if _, err := h.subjectRepo.GetByID(ctx, *inv.SubjectID); err != nil {
			return fmt.Errorf("accept_invitation: resolve subject: %w", err)
		}
	case invitation.TypeParentChild:
		if _, err := h.userRepo.GetByID(ctx, *inv.ChildID); err != nil {
			return fmt.Errorf("accept_invitation: resolve child: %w", err)
		}
	}
	return nil
}

// applyEdge mutates the accepting user with the edge the invitation grants.
func applyEdge(accepting *user.User, inv *invitation.Invitation) (bool, error) {
	switch inv.Type {
	case invitation.TypeClassStudent, invitation.TypeClassTeacher:
		return accepting.JoinClass(*inv.ClassID), nil
	case invitation.TypeSubjectTeacher:
		return accepting.AddTaughtSubject(*inv.SubjectID), nil
	case invitation.TypeParentChild:
		added, err := accepting.LinkChild(*inv.ChildID)
		if err != nil {
			return false, shared.WrapError("invitation", "Accept", shared.ErrValidation, "cannot apply parent link", err)
		}
		return added, nil
	default:
		return false, shared.NewDomainError("invitation", "Accept", shared.ErrInvalidInput,
			fmt.Sprintf("unknown invitation type: %s", inv.Type))
	}
}
