package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/grade"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
)

// GradeRepository implements grade.Repository backed by PostgreSQL.
type GradeRepository struct {
	conn *Connection
}

// NewGradeRepository creates a new GradeRepository.
func NewGradeRepository(conn *Connection) *GradeRepository {
	return &GradeRepository{conn: conn}
}

// Create persists a new grade.
func (r *GradeRepository) Create(ctx context.Context, g *grade.Grade) error {
	query := `
		INSERT INTO grades (id, student_id, subject_id, value, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.conn.Exec(ctx, query,
		g.ID, g.StudentID, g.SubjectID, g.Value, g.Comment, g.CreatedAt, g.UpdatedAt); err != nil {
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// GetByID retrieves a grade by ID.
func (r *GradeRepository) GetByID(ctx context.Context, id uuid.UUID) (*grade.Grade, error) {
	query := `
		SELECT id, student_id, subject_id, value, comment, created_at, updated_at
		FROM grades
		WHERE id = $1
	`

	var g grade.Grade
	err := r.conn.QueryRow(ctx, query, id).Scan(
		&g.ID, &g.StudentID, &g.SubjectID, &g.Value, &g.Comment, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrGradeNotFound
		}
		return nil, fmt.Errorf("get grade: %w", err)
	}
	return &g, nil
}

// ListByStudent returns all grades of a student, newest first.
func (r *GradeRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*grade.Grade, error) {
	query := `
		SELECT id, student_id, subject_id, value, comment, created_at, updated_at
		FROM grades
		WHERE student_id = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, studentID)
}

// ListByStudentAndSubject returns a student's grades for one subject.
func (r *GradeRepository) ListByStudentAndSubject(ctx context.Context, studentID, subjectID uuid.UUID) ([]*grade.Grade, error) {
	query := `
		SELECT id, student_id, subject_id, value, comment, created_at, updated_at
		FROM grades
		WHERE student_id = $1 AND subject_id = $2
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, studentID, subjectID)
}

func (r *GradeRepository) list(ctx context.Context, query string, args ...interface{}) ([]*grade.Grade, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	defer rows.Close()

	var out []*grade.Grade
	for rows.Next() {
		var g grade.Grade
		if err := rows.Scan(&g.ID, &g.StudentID, &g.SubjectID, &g.Value, &g.Comment,
			&g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan grade: %w", err)
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}

// Update persists changes to a grade.
func (r *GradeRepository) Update(ctx context.Context, g *grade.Grade) error {
	query := `
		UPDATE grades
		SET value = $2, comment = $3, updated_at = $4
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query, g.ID, g.Value, g.Comment, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrGradeNotFound
	}
	return nil
}

// Delete removes a grade.
func (r *GradeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn.Exec(ctx, "DELETE FROM grades WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrGradeNotFound
	}
	return nil
}
