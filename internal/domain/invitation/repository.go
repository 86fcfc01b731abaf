package invitation

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for invitation persistence.
//
// Status transitions go through TryTransitionStatus, a conditional update
// that only succeeds when the stored status still equals from. Two
// concurrent accepts of the same invitation race on this guard; exactly one
// wins.
type Repository interface {
	// Create persists a new invitation.
	Create(ctx context.Context, inv *Invitation) error

	// GetByID retrieves an invitation by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Invitation, error)

	// ListByInviter returns invitations created by the given user, newest
	// first.
	ListByInviter(ctx context.Context, inviterID uuid.UUID) ([]*Invitation, error)

	// TryTransitionStatus atomically moves the invitation from one status to
	// another. Returns true if the transition was applied, false if the
	// stored status no longer matched from.
	TryTransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)
}
