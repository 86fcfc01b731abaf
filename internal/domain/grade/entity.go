// Package grade contains the grade record entity. Access to grades is the
// main subject of the policy layer; the entity itself is a plain value with
// range validation.
package grade

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Grade values use the five-point scale common in Kazakhstani schools.
const (
	MinValue = 1
	MaxValue = 5
)

var (
	// ErrInvalidValue - the grade value is outside the 1-5 scale.
	ErrInvalidValue = fmt.Errorf("grade value must be between %d and %d", MinValue, MaxValue)

	// ErrStudentRequired - a grade must belong to a student.
	ErrStudentRequired = errors.New("student id is required")

	// ErrSubjectRequired - a grade must belong to a subject.
	ErrSubjectRequired = errors.New("subject id is required")
)

// Grade is a single mark given to a student for a subject.
type Grade struct {
	ID        uuid.UUID
	StudentID uuid.UUID
	SubjectID uuid.UUID
	Value     int
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewGrade creates a grade record with validation.
func NewGrade(id, studentID, subjectID uuid.UUID, value int, comment string) (*Grade, error) {
	if id == uuid.Nil {
		return nil, errors.New("grade id is required")
	}

	if studentID == uuid.Nil {
		return nil, ErrStudentRequired
	}

	if subjectID == uuid.Nil {
		return nil, ErrSubjectRequired
	}

	if value < MinValue || value > MaxValue {
		return nil, ErrInvalidValue
	}

	now := time.Now().UTC()

	return &Grade{
		ID:        id,
		StudentID: studentID,
		SubjectID: subjectID,
		Value:     value,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateValue changes the grade value with range validation.
func (g *Grade) UpdateValue(value int) error {
	if value < MinValue || value > MaxValue {
		return ErrInvalidValue
	}
	g.Value = value
	g.UpdatedAt = time.Now().UTC()
	return nil
}

// String returns a string representation for logging.
func (g *Grade) String() string {
	return fmt.Sprintf("Grade{ID: %s, Student: %s, Subject: %s, Value: %d}",
		g.ID, g.StudentID, g.SubjectID, g.Value)
}
