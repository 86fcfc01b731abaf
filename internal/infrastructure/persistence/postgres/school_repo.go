package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/school"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHOOL REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// SchoolRepository implements school.SchoolRepository backed by PostgreSQL.
type SchoolRepository struct {
	conn *Connection
}

// NewSchoolRepository creates a new SchoolRepository.
func NewSchoolRepository(conn *Connection) *SchoolRepository {
	return &SchoolRepository{conn: conn}
}

// Create persists a new school.
func (r *SchoolRepository) Create(ctx context.Context, s *school.School) error {
	query := `
		INSERT INTO schools (id, name, address, phone, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.conn.Exec(ctx, query,
		s.ID, s.Name, s.Address, s.Phone, s.Email, s.CreatedAt, s.UpdatedAt); err != nil {
		return fmt.Errorf("create school: %w", err)
	}
	return nil
}

// GetByID retrieves a school by ID.
func (r *SchoolRepository) GetByID(ctx context.Context, id uuid.UUID) (*school.School, error) {
	query := `
		SELECT id, name, address, phone, email, created_at, updated_at
		FROM schools
		WHERE id = $1
	`

	var s school.School
	err := r.conn.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.Address, &s.Phone, &s.Email, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrSchoolNotFound
		}
		return nil, fmt.Errorf("get school: %w", err)
	}
	return &s, nil
}

// List returns all schools ordered by name.
func (r *SchoolRepository) List(ctx context.Context) ([]*school.School, error) {
	query := `
		SELECT id, name, address, phone, email, created_at, updated_at
		FROM schools
		ORDER BY name
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	defer rows.Close()

	var out []*school.School
	for rows.Next() {
		var s school.School
		if err := rows.Scan(&s.ID, &s.Name, &s.Address, &s.Phone, &s.Email,
			&s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan school: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// Update persists changes to a school.
func (r *SchoolRepository) Update(ctx context.Context, s *school.School) error {
	query := `
		UPDATE schools
		SET name = $2, address = $3, phone = $4, email = $5, updated_at = $6
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query, s.ID, s.Name, s.Address, s.Phone, s.Email, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update school: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrSchoolNotFound
	}
	return nil
}

// Delete removes a school.
func (r *SchoolRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn.Exec(ctx, "DELETE FROM schools WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete school: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrSchoolNotFound
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CLASS REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ClassRepository implements school.ClassRepository backed by PostgreSQL.
type ClassRepository struct {
	conn *Connection
}

// NewClassRepository creates a new ClassRepository.
func NewClassRepository(conn *Connection) *ClassRepository {
	return &ClassRepository{conn: conn}
}

// Create persists a new class.
func (r *ClassRepository) Create(ctx context.Context, c *school.Class) error {
	query := `
		INSERT INTO classes (id, school_id, name, homeroom_teacher_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.conn.Exec(ctx, query,
		c.ID, c.SchoolID, c.Name, c.HomeroomTeacherID, c.CreatedAt, c.UpdatedAt); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// GetByID retrieves a class by ID.
func (r *ClassRepository) GetByID(ctx context.Context, id uuid.UUID) (*school.Class, error) {
	query := `
		SELECT id, school_id, name, homeroom_teacher_id, created_at, updated_at
		FROM classes
		WHERE id = $1
	`

	var c school.Class
	err := r.conn.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.SchoolID, &c.Name, &c.HomeroomTeacherID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrClassNotFound
		}
		return nil, fmt.Errorf("get class: %w", err)
	}
	return &c, nil
}

// ListBySchool returns all classes of a school ordered by name.
func (r *ClassRepository) ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]*school.Class, error) {
	query := `
		SELECT id, school_id, name, homeroom_teacher_id, created_at, updated_at
		FROM classes
		WHERE school_id = $1
		ORDER BY name
	`

	rows, err := r.conn.Query(ctx, query, schoolID)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	defer rows.Close()

	var out []*school.Class
	for rows.Next() {
		var c school.Class
		if err := rows.Scan(&c.ID, &c.SchoolID, &c.Name, &c.HomeroomTeacherID,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Update persists changes to a class.
func (r *ClassRepository) Update(ctx context.Context, c *school.Class) error {
	query := `
		UPDATE classes
		SET name = $2, homeroom_teacher_id = $3, updated_at = $4
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query, c.ID, c.Name, c.HomeroomTeacherID, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrClassNotFound
	}
	return nil
}

// Delete removes a class.
func (r *ClassRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn.Exec(ctx, "DELETE FROM classes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrClassNotFound
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBJECT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// SubjectRepository implements school.SubjectRepository backed by PostgreSQL.
type SubjectRepository struct {
	conn *Connection
}

// NewSubjectRepository creates a new SubjectRepository.
func NewSubjectRepository(conn *Connection) *SubjectRepository {
	return &SubjectRepository{conn: conn}
}

// Create persists a new subject.
func (r *SubjectRepository) Create(ctx context.Context, s *school.Subject) error {
	query := `
		INSERT INTO subjects (id, school_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.conn.Exec(ctx, query,
		s.ID, s.SchoolID, s.Name, s.CreatedAt, s.UpdatedAt); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// GetByID retrieves a subject by ID.
func (r *SubjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*school.Subject, error) {
	query := `
		SELECT id, school_id, name, created_at, updated_at
		FROM subjects
		WHERE id = $1
	`

	var s school.Subject
	err := r.conn.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.SchoolID, &s.Name, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrSubjectNotFound
		}
		return nil, fmt.Errorf("get subject: %w", err)
	}
	return &s, nil
}

// ListBySchool returns all subjects of a school ordered by name.
func (r *SubjectRepository) ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]*school.Subject, error) {
	query := `
		SELECT id, school_id, name, created_at, updated_at
		FROM subjects
		WHERE school_id = $1
		ORDER BY name
	`

	rows, err := r.conn.Query(ctx, query, schoolID)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var out []*school.Subject
	for rows.Next() {
		var s school.Subject
		if err := rows.Scan(&s.ID, &s.SchoolID, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// Update persists changes to a subject.
func (r *SubjectRepository) Update(ctx context.Context, s *school.Subject) error {
	query := `
		UPDATE subjects
		SET name = $2, updated_at = $3
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query, s.ID, s.Name, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrSubjectNotFound
	}
	return nil
}

// Delete removes a subject.
func (r *SubjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn.Exec(ctx, "DELETE FROM subjects WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrSubjectNotFound
	}
	return nil
}
