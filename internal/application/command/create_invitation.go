// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/invitation"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/policy"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/school"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

// TxManager runs a function within a storage transaction. Repositories
// called inside fn operate on the same transaction.
type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// DefaultInvitationTTL is used when a command does not set an explicit
// expiry.
const DefaultInvitationTTL = 7 * 24 * time.Hour

// ══════════════════════════════════════════════════════════════════════════════
// CREATE INVITATION COMMAND
// Creates a pending invitation after the policy check, and derives the
// shareable deep link.
// ══════════════════════════════════════════════════════════════════════════════

// CreateInvitationCommand contains the data to create an invitation.
type CreateInvitationCommand struct {
	// InviterID is the user creating the invitation.
	InviterID uuid.UUID

	// Type is the invitation type.
	Type invitation.Type

	// TargetRole is the role the invitee is expected to hold.
	TargetRole user.Role

	// ClassID is the target class (class invitations only).
	ClassID *uuid.UUID

	// SubjectID is the target subject (subject invitations only).
	SubjectID *uuid.UUID

	// ChildID is the target student (parent-child invitations only).
	ChildID *uuid.UUID

	// TTL overrides the default validity window when positive.
	TTL time.Duration
}

// Validate validates the command.
func (c CreateInvitationCommand) Validate() error {
	if c.InviterID == uuid.Nil {
		return shared.NewDomainError("invitation", "Create", shared.ErrValidation, "inviter_id is required")
	}
	if !c.Type.IsValid() {
		return shared.NewDomainError("invitation", "Create", shared.ErrValidation,
			fmt.Sprintf("invalid invitation type: %s", c.Type))
	}
	if !c.TargetRole.IsValid() {
		return shared.NewDomainError("invitation", "Create", shared.ErrValidation,
			fmt.Sprintf("invalid target role: %s", c.TargetRole))
	}
	return nil
}

// CreateInvitationResult contains the result of creating an invitation.
type CreateInvitationResult struct {
	// InvitationID is the ID of the created invitation.
	InvitationID uuid.UUID

	// DeepLink is the shareable Telegram link.
	DeepLink string

	// ExpiresAt is the invitation deadline.
	ExpiresAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CreateInvitationHandler handles the CreateInvitationCommand.
type CreateInvitationHandler struct {
	userRepo       user.Repository
	classRepo      school.ClassRepository
	subjectRepo    school.SubjectRepository
	invitationRepo invitation.Repository
	policies       *policy.Manager
	botUsername    string
	now            func() time.Time
}

// NewCreateInvitationHandler creates a new CreateInvitationHandler.
func NewCreateInvitationHandler(
	userRepo user.Repository,
	classRepo school.ClassRepository,
	subjectRepo school.SubjectRepository,
	invitationRepo invitation.Repository,
	policies *policy.Manager,
	botUsername string,
) *CreateInvitationHandler {
	return &CreateInvitationHandler{
		userRepo:       userRepo,
		classRepo:      classRepo,
		subjectRepo:    subjectRepo,
		invitationRepo: invitationRepo,
		policies:       policies,
		botUsername:    botUsername,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the create invitation command.
func (h *CreateInvitationHandler) Handle(ctx context.Context, cmd CreateInvitationCommand) (*CreateInvitationResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	inviter, err := h.userRepo.GetByID(ctx, cmd.InviterID)
	if err != nil {
		return nil, fmt.Errorf("create_invitation: load inviter: %w", err)
	}

	// Resolve the referenced entity. A missing reference is a validation
	// error; a present but unknown one propagates as not found.
	refs, err := h.resolveRefs(ctx, cmd)
	if err != nil {
		return nil, err
	}

	if !h.policies.CanCreateInvitation(inviter, cmd.Type, cmd.TargetRole, refs) {
		return nil, shared.ErrInvitationNotAllowed
	}

	ttl := cmd.TTL
	if ttl <= 0 {
		ttl = DefaultInvitationTTL
	}

	now := h.now()
	inv, err := invitation.NewInvitation(invitation.NewInvitationParams{
		ID:        uuid.New(),
		Type:      cmd.Type,
		Role:      cmd.TargetRole,
		InviterID: inviter.ID,
		ClassID:   cmd.ClassID,
		SubjectID: cmd.SubjectID,
		ChildID:   cmd.ChildID,
		ExpiresAt: now.Add(ttl),
		Now:       now,
	})
	if err != nil {
		return nil, shared.WrapError("invitation", "Create", shared.ErrValidation, "invalid invitation", err)
	}

	if err := h.invitationRepo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create_invitation: save: %w", err)
	}

	return &CreateInvitationResult{
		InvitationID: inv.ID,
		DeepLink:     inv.DeepLink(h.botUsername),
		ExpiresAt:    inv.ExpiresAt,
	}, nil
}

func (h *CreateInvitationHandler) resolveRefs(ctx context.Context, cmd CreateInvitationCommand) (policy.InvitationRefs, error) {
	var refs policy.InvitationRefs

	switch cmd.Type {
	case invitation.TypeClassStudent, invitation.TypeClassTeacher:
		if cmd.ClassID == nil || *cmd.ClassID == uuid.Nil {
			return refs, shared.ErrMissingInvitationRef
		}
		class, err := h.classRepo.GetByID(ctx, *cmd.ClassID)
		if err != nil {
			return refs, fmt.Errorf("create_invitation: load class: %w", err)
		}
		refs.Class = class

	case invitation.TypeSubjectTeacher:
		if cmd.SubjectID == nil || *cmd.SubjectID == uuid.Nil {
			return refs, shared.ErrMissingInvitationRef
		}
		subject, err := h.subjectRepo.GetByID(ctx, *cmd.SubjectID)
		if err != nil {
			return refs, fmt.Errorf("create_invitation: load subject: %w", err)
		}
		refs.Subject = subject

	case invitation.TypeParentChild:
		if cmd.ChildID == nil || *cmd.ChildID == uuid.Nil {
			return refs, shared.ErrMissingInvitationRef
		}
		if _, err := h.userRepo.GetByID(ctx, *cmd.ChildID); err != nil {
			return refs, fmt.Errorf("create_invitation: load child: %w", err)
		}
	}

	return refs, nil
}
