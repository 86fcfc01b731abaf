package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

// UserRepository implements user.Repository backed by PostgreSQL. The three
// relationship sets live in join tables (user_classes, user_subjects,
// parent_children) and are loaded with the user.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

// Create persists a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, chat_id, name, role, password_hash, managed_class_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn.Exec(ctx, query,
		u.ID, int64(u.ChatID), u.Name, u.Role.String(), u.PasswordHash,
		u.ManagedClassID, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrUserAlreadyExists
		}
		return fmt.Errorf("create user: %w", err)
	}

	return r.syncEdges(ctx, u)
}

// GetByID retrieves a user with their relationship sets.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query := `
		SELECT id, chat_id, name, role, password_hash, managed_class_id, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	return r.getOne(ctx, query, id)
}

// GetByChatID retrieves a user by Telegram chat ID.
func (r *UserRepository) GetByChatID(ctx context.Context, chatID user.ChatID) (*user.User, error) {
	query := `
		SELECT id, chat_id, name, role, password_hash, managed_class_id, created_at, updated_at
		FROM users
		WHERE chat_id = $1
	`
	return r.getOne(ctx, query, int64(chatID))
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg interface{}) (*user.User, error) {
	var (
		u      user.User
		chatID int64
		role   string
	)

	err := r.conn.QueryRow(ctx, query, arg).Scan(
		&u.ID, &chatID, &u.Name, &role, &u.PasswordHash,
		&u.ManagedClassID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	u.ChatID = user.ChatID(chatID)
	u.Role = user.Role(role)

	if err := r.loadEdges(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Update persists the user row and synchronizes the relationship sets.
// Row update and edge sync run in one transaction unless an outer one is
// already open.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	return r.conn.WithinTransaction(ctx, func(txCtx context.Context) error {
		query := `
			UPDATE users
			SET name = $2, role = $3, password_hash = $4, managed_class_id = $5, updated_at = $6
			WHERE id = $1
		`

		tag, err := r.conn.Exec(txCtx, query,
			u.ID, u.Name, u.Role.String(), u.PasswordHash, u.ManagedClassID, u.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrUserNotFound
		}

		return r.syncEdges(txCtx, u)
	})
}

// ListByClass returns users belonging to a class, optionally filtered by
// role.
func (r *UserRepository) ListByClass(ctx context.Context, classID uuid.UUID, role *user.Role) ([]*user.User, error) {
	query := `
		SELECT u.id
		FROM users u
		JOIN user_classes uc ON uc.user_id = u.id
		WHERE uc.class_id = $1
	`
	args := []interface{}{classID}
	if role != nil {
		query += " AND u.role = $2"
		args = append(args, role.String())
	}
	query += " ORDER BY u.name"

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users by class: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	users := make([]*user.User, 0, len(ids))
	for _, id := range ids {
		u, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// Delete removes a user; join-table rows cascade.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}
	return nil
}

// ResolveUser implements policy.Resolver.
func (r *UserRepository) ResolveUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.GetByID(ctx, id)
}

func (r *UserRepository) loadEdges(ctx context.Context, u *user.User) error {
	var err error
	if u.Classes, err = r.loadIDSet(ctx,
		"SELECT class_id FROM user_classes WHERE user_id = $1", u.ID); err != nil {
		return fmt.Errorf("load classes: %w", err)
	}
	if u.TeacherSubjects, err = r.loadIDSet(ctx,
		"SELECT subject_id FROM user_subjects WHERE user_id = $1", u.ID); err != nil {
		return fmt.Errorf("load subjects: %w", err)
	}
	if u.ParentChildren, err = r.loadIDSet(ctx,
		"SELECT child_id FROM parent_children WHERE parent_id = $1", u.ID); err != nil {
		return fmt.Errorf("load children: %w", err)
	}
	return nil
}

func (r *UserRepository) loadIDSet(ctx context.Context, query string, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// syncEdges brings the join tables in line with the in-memory sets. Inserts
// are idempotent; edges are append-only in normal flow so rows are never
// removed here.
func (r *UserRepository) syncEdges(ctx context.Context, u *user.User) error {
	for _, classID := range u.Classes {
		_, err := r.conn.Exec(ctx, `
			INSERT INTO user_classes (user_id, class_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, u.ID, classID)
		if err != nil {
			return fmt.Errorf("sync classes: %w", err)
		}
	}
	for _, subjectID := range u.TeacherSubjects {
		_, err := r.conn.Exec(ctx, `
			INSERT INTO user_subjects (user_id, subject_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, u.ID, subjectID)
		if err != nil {
			return fmt.Errorf("sync subjects: %w", err)
		}
	}
	for _, childID := range u.ParentChildren {
		_, err := r.conn.Exec(ctx, `
			INSERT INTO parent_children (parent_id, child_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, u.ID, childID)
		if err != nil {
			return fmt.Errorf("sync children: %w", err)
		}
	}
	return nil
}
