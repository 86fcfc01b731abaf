package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for user persistence.
type Repository interface {
	// Create persists a new user.
	Create(ctx context.Context, u *User) error

	// GetByID retrieves a user by internal ID.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByChatID retrieves a user by Telegram chat ID.
	GetByChatID(ctx context.Context, chatID ChatID) (*User, error)

	// Update persists changes to an existing user, including the
	// relationship sets.
	Update(ctx context.Context, u *User) error

	// ListByClass returns users belonging to the given class, optionally
	// filtered by role. A nil role returns all members.
	ListByClass(ctx context.Context, classID uuid.UUID, role *Role) ([]*User, error)

	// Delete removes a user by ID.
	Delete(ctx context.Context, id uuid.UUID) error
}
