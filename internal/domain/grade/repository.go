package grade

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for grade persistence.
type Repository interface {
	// Create persists a new grade.
	Create(ctx context.Context, g *Grade) error

	// GetByID retrieves a grade by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Grade, error)

	// ListByStudent returns all grades of a student, newest first.
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*Grade, error)

	// ListByStudentAndSubject returns a student's grades for one subject.
	ListByStudentAndSubject(ctx context.Context, studentID, subjectID uuid.UUID) ([]*Grade, error)

	// Update persists changes to an existing grade.
	Update(ctx context.Context, g *Grade) error

	// Delete removes a grade by ID.
	Delete(ctx context.Context, id uuid.UUID) error
}
