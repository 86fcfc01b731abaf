package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/invitation"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

// InvitationRepository implements invitation.Repository backed by
// PostgreSQL.
type InvitationRepository struct {
	conn *Connection
}

// NewInvitationRepository creates a new InvitationRepository.
func NewInvitationRepository(conn *Connection) *InvitationRepository {
	return &InvitationRepository{conn: conn}
}

// Create persists a new invitation.
func (r *InvitationRepository) Create(ctx context.Context, inv *invitation.Invitation) error {
	query := `
		INSERT INTO invitations (id, type, role, status, inviter_id, class_id, subject_id, child_id, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if _, err := r.conn.Exec(ctx, query,
		inv.ID, inv.Type.String(), inv.Role.String(), inv.Status.String(),
		inv.InviterID, inv.ClassID, inv.SubjectID, inv.ChildID,
		inv.ExpiresAt, inv.CreatedAt, inv.UpdatedAt); err != nil {
		return fmt.Errorf("create invitation: %w", err)
	}
	return nil
}

// GetByID retrieves an invitation by ID.
func (r *InvitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*invitation.Invitation, error) {
	query := `
		SELECT id, type, role, status, inviter_id, class_id, subject_id, child_id, expires_at, created_at, updated_at
		FROM invitations
		WHERE id = $1
	`

	inv, err := r.scanOne(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

// ListByInviter returns invitations created by the given user, newest first.
func (r *InvitationRepository) ListByInviter(ctx context.Context, inviterID uuid.UUID) ([]*invitation.Invitation, error) {
	query := `
		SELECT id, type, role, status, inviter_id, class_id, subject_id, child_id, expires_at, created_at, updated_at
		FROM invitations
		WHERE inviter_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.conn.Query(ctx, query, inviterID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	var out []*invitation.Invitation
	for rows.Next() {
		inv, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// TryTransitionStatus atomically moves the invitation between statuses.
// The WHERE clause guards on the expected current status; a zero affected
// row count means another transition won the race.
func (r *InvitationRepository) TryTransitionStatus(ctx context.Context, id uuid.UUID, from, to invitation.Status) (bool, error) {
	query := `
		UPDATE invitations
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`

	tag, err := r.conn.Exec(ctx, query, id, from.String(), to.String(), time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("transition invitation status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *InvitationRepository) scanOne(row rowScanner) (*invitation.Invitation, error) {
	var (
		inv    invitation.Invitation
		typ    string
		role   string
		status string
	)

	err := row.Scan(&inv.ID, &typ, &role, &status, &inv.InviterID,
		&inv.ClassID, &inv.SubjectID, &inv.ChildID,
		&inv.ExpiresAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}

	inv.Type = invitation.Type(typ)
	inv.Role = user.Role(role)
	inv.Status = invitation.Status(status)
	return &inv, nil
}
