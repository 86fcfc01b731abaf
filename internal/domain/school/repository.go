package school

import (
	"context"

	"github.com/google/uuid"
)

// SchoolRepository defines the interface for school persistence.
type SchoolRepository interface {
	Create(ctx context.Context, s *School) error
	GetByID(ctx context.Context, id uuid.UUID) (*School, error)
	List(ctx context.Context) ([]*School, error)
	Update(ctx context.Context, s *School) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ClassRepository defines the interface for class persistence.
type ClassRepository interface {
	Create(ctx context.Context, c *Class) error
	GetByID(ctx context.Context, id uuid.UUID) (*Class, error)
	ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]*Class, error)
	Update(ctx context.Context, c *Class) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SubjectRepository defines the interface for subject persistence.
type SubjectRepository interface {
	Create(ctx context.Context, s *Subject) error
	GetByID(ctx context.Context, id uuid.UUID) (*Subject, error)
	ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]*Subject, error)
	Update(ctx context.Context, s *Subject) error
	Delete(ctx context.Context, id uuid.UUID) error
}
