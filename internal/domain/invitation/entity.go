// Package invitation contains the invitation entity and its state machine.
// An invitation is a time-boxed grant of one relationship edge (student↔class,
// teacher↔class, teacher↔subject, parent↔child), created by an authorized
// inviter and redeemed once by the invitee.
package invitation

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Type identifies which relationship edge the invitation grants.
type Type string

const (
	// TypeClassStudent enrolls the accepting student into a class.
	TypeClassStudent Type = "class_student"

	// TypeClassTeacher adds the accepting teacher to a class.
	TypeClassTeacher Type = "class_teacher"

	// TypeSubjectTeacher adds a subject to the accepting teacher's list.
	TypeSubjectTeacher Type = "subject_teacher"

	// TypeParentChild links the accepting parent to a student.
	TypeParentChild Type = "parent_child"
)

// AllTypes lists every invitation type.
func AllTypes() []Type {
	return []Type{TypeClassStudent, TypeClassTeacher, TypeSubjectTeacher, TypeParentChild}
}

// IsValid reports whether the type is one of the four known types.
func (t Type) IsValid() bool {
	switch t {
	case TypeClassStudent, TypeClassTeacher, TypeSubjectTeacher, TypeParentChild:
		return true
	default:
		return false
	}
}

// String returns the string representation of the type.
func (t Type) String() string {
	return string(t)
}

// Status represents the invitation lifecycle state.
type Status string

const (
	// StatusPending is the initial state; the only state accepts run from.
	StatusPending Status = "pending"

	// StatusAccepted means the invitee redeemed the invitation. Terminal.
	StatusAccepted Status = "accepted"

	// StatusRejected means the invitee declined. Terminal.
	StatusRejected Status = "rejected"

	// StatusExpired means the deadline passed before acceptance. Terminal.
	StatusExpired Status = "expired"
)

// IsValid reports whether the status is a known lifecycle state.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusExpired:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s != StatusPending
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidType - the invitation type is unknown.
	ErrInvalidType = errors.New("invalid invitation type")

	// ErrInvalidRole - the granted role is unknown.
	ErrInvalidRole = errors.New("invalid invitation role")

	// ErrMissingClassRef - class invitations require a class reference.
	ErrMissingClassRef = errors.New("class invitation requires a class reference")

	// ErrMissingSubjectRef - subject invitations require a subject reference.
	ErrMissingSubjectRef = errors.New("subject invitation requires a subject reference")

	// ErrMissingChildRef - parent-child invitations require a child reference.
	ErrMissingChildRef = errors.New("parent-child invitation requires a child reference")

	// ErrExtraRef - the invitation carries a reference its type does not use.
	ErrExtraRef = errors.New("invitation carries a reference not used by its type")

	// ErrNotPending - the invitation is in a terminal state.
	ErrNotPending = errors.New("invitation is no longer pending")

	// ErrExpired - the invitation deadline has passed.
	ErrExpired = errors.New("invitation has expired")

	// ErrExpiryInPast - new invitations cannot already be expired.
	ErrExpiryInPast = errors.New("expiry must be in the future")
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: INVITATION
// ══════════════════════════════════════════════════════════════════════════════

// Invitation grants one relationship edge to whoever accepts it. Exactly one
// of ClassID, SubjectID, ChildID is set, determined by Type.
type Invitation struct {
	// ID - internal unique identifier, also embedded in the share link.
	ID uuid.UUID

	// Type - which edge this invitation grants.
	Type Type

	// Role - role the invitee is expected to hold. Accepting never changes
	// the invitee's role; this records what the inviter was authorized to
	// invite.
	Role user.Role

	// Status - lifecycle state. Transitions only via TryTransition guards
	// in storage; this field reflects the last loaded value.
	Status Status

	// InviterID - the user who created the invitation.
	InviterID uuid.UUID

	// ClassID - target class, class_student and class_teacher types only.
	ClassID *uuid.UUID

	// SubjectID - target subject, subject_teacher type only.
	SubjectID *uuid.UUID

	// ChildID - target student, parent_child type only.
	ChildID *uuid.UUID

	// ExpiresAt - deadline after which the invitation can no longer be
	// accepted. Checked lazily at accept time.
	ExpiresAt time.Time

	// CreatedAt - record creation time.
	CreatedAt time.Time

	// UpdatedAt - last update time.
	UpdatedAt time.Time
}

// NewInvitationParams contains parameters for creating a new invitation.
type NewInvitationParams struct {
	ID        uuid.UUID
	Type      Type
	Role      user.Role
	InviterID uuid.UUID
	ClassID   *uuid.UUID
	SubjectID *uuid.UUID
	ChildID   *uuid.UUID
	ExpiresAt time.Time
	Now       time.Time
}

// NewInvitation creates a pending invitation, validating that the reference
// fields match the type: class types carry exactly a class id, the subject
// type exactly a subject id, the parent-child type exactly a child id.
func NewInvitation(params NewInvitationParams) (*Invitation, error) {
	if params.ID == uuid.Nil {
		return nil, errors.New("invitation id is required")
	}

	if !params.Type.IsValid() {
		return nil, ErrInvalidType
	}

	if !params.Role.IsValid() {
		return nil, ErrInvalidRole
	}

	if params.InviterID == uuid.Nil {
		return nil, errors.New("inviter id is required")
	}

	if err := validateRefs(params.Type, params.ClassID, params.SubjectID, params.ChildID); err != nil {
		return nil, err
	}

	now := params.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if !params.ExpiresAt.After(now) {
		return nil, ErrExpiryInPast
	}

	return &Invitation{
		ID:        params.ID,
		Type:      params.Type,
		Role:      params.Role,
		Status:    StatusPending,
		InviterID: params.InviterID,
		ClassID:   params.ClassID,
		SubjectID: params.SubjectID,
		ChildID:   params.ChildID,
		ExpiresAt: params.ExpiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func validateRefs(t Type, classID, subjectID, childID *uuid.UUID) error {
	switch t {
	case TypeClassStudent, TypeClassTeacher:
		if classID == nil || *classID == uuid.Nil {
			return ErrMissingClassRef
		}
		if subjectID != nil || childID != nil {
			return ErrExtraRef
		}
	case TypeSubjectTeacher:
		if subjectID == nil || *subjectID == uuid.Nil {
			return ErrMissingSubjectRef
		}
		if classID != nil || childID != nil {
			return ErrExtraRef
		}
	case TypeParentChild:
		if childID == nil || *childID == uuid.Nil {
			return ErrMissingChildRef
		}
		if classID != nil || subjectID != nil {
			return ErrExtraRef
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STATE MACHINE
// ══════════════════════════════════════════════════════════════════════════════

// IsPending reports whether the invitation can still be acted on.
func (i *Invitation) IsPending() bool {
	return i.Status == StatusPending
}

// IsExpiredAt reports whether the deadline has passed at the given instant.
func (i *Invitation) IsExpiredAt(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// CheckAcceptable verifies that the invitation can be accepted at the given
// instant. Returns ErrNotPending for terminal states and ErrExpired when the
// deadline has passed; the caller persists the expired transition.
func (i *Invitation) CheckAcceptable(now time.Time) error {
	if !i.IsPending() {
		return ErrNotPending
	}
	if i.IsExpiredAt(now) {
		return ErrExpired
	}
	return nil
}

// DeepLink returns the shareable Telegram deep link for this invitation,
// of the form https://t.me/<bot>?start=invite_<uuid>.
func (i *Invitation) DeepLink(botUsername string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, DeepLinkParam(i.ID))
}

// DeepLinkParam returns the start parameter embedding the invitation id.
func DeepLinkParam(id uuid.UUID) string {
	return "invite_" + id.String()
}

// ParseDeepLinkParam extracts an invitation id from a /start parameter.
func ParseDeepLinkParam(param string) (uuid.UUID, bool) {
	const prefix = "invite_"
	if len(param) <= len(prefix) || param[:len(prefix)] != prefix {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(param[len(prefix):])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// String returns a string representation for logging.
func (i *Invitation) String() string {
	return fmt.Sprintf("Invitation{ID: %s, Type: %s, Status: %s}", i.ID, i.Type, i.Status)
}
