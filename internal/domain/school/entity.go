// Package school contains the administrative entities of the system: the
// school itself, its classes, and its subjects. These are created by
// administrative operations and read by the policy layer through the
// relationship sets on users.
package school

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidName - the name must be 1-150 chars.
	ErrInvalidName = errors.New("invalid name: must be 1-150 chars")

	// ErrSchoolRequired - classes and subjects must belong to a school.
	ErrSchoolRequired = errors.New("school id is required")
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHOOL
// ══════════════════════════════════════════════════════════════════════════════

// School is the top-level administrative aggregate.
type School struct {
	ID        uuid.UUID
	Name      string
	Address   string
	Phone     string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSchool creates a school with a validated name. Address, phone and email
// are free-form contact fields.
func NewSchool(id uuid.UUID, name, address, phone, email string) (*School, error) {
	if id == uuid.Nil {
		return nil, errors.New("school id is required")
	}

	name = strings.TrimSpace(name)
	if len(name) == 0 || len(name) > 150 {
		return nil, ErrInvalidName
	}

	now := time.Now().UTC()

	return &School{
		ID:        id,
		Name:      name,
		Address:   strings.TrimSpace(address),
		Phone:     strings.TrimSpace(phone),
		Email:     strings.TrimSpace(email),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// String returns a string representation for logging.
func (s *School) String() string {
	return fmt.Sprintf("School{ID: %s, Name: %s}", s.ID, s.Name)
}

// ══════════════════════════════════════════════════════════════════════════════
// CLASS
// ══════════════════════════════════════════════════════════════════════════════

// Class is a group of students within a school. Membership is kept on the
// user side (user.Classes); the class itself records at most one homeroom
// teacher.
type Class struct {
	ID                uuid.UUID
	SchoolID          uuid.UUID
	Name              string
	HomeroomTeacherID *uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewClass creates a class within a school.
func NewClass(id, schoolID uuid.UUID, name string) (*Class, error) {
	if id == uuid.Nil {
		return nil, errors.New("class id is required")
	}

	if schoolID == uuid.Nil {
		return nil, ErrSchoolRequired
	}

	name = strings.TrimSpace(name)
	if len(name) == 0 || len(name) > 150 {
		return nil, ErrInvalidName
	}

	now := time.Now().UTC()

	return &Class{
		ID:        id,
		SchoolID:  schoolID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AssignHomeroomTeacher sets the single homeroom teacher for the class.
func (c *Class) AssignHomeroomTeacher(teacherID uuid.UUID) {
	id := teacherID
	c.HomeroomTeacherID = &id
	c.UpdatedAt = time.Now().UTC()
}

// String returns a string representation for logging.
func (c *Class) String() string {
	return fmt.Sprintf("Class{ID: %s, Name: %s}", c.ID, c.Name)
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBJECT
// ══════════════════════════════════════════════════════════════════════════════

// Subject is a taught discipline within a school. The teachers↔subjects
// relation is kept on the user side (user.TeacherSubjects).
type Subject struct {
	ID        uuid.UUID
	SchoolID  uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSubject creates a subject within a school.
func NewSubject(id, schoolID uuid.UUID, name string) (*Subject, error) {
	if id == uuid.Nil {
		return nil, errors.New("subject id is required")
	}

	if schoolID == uuid.Nil {
		return nil, ErrSchoolRequired
	}

	name = strings.TrimSpace(name)
	if len(name) == 0 || len(name) > 150 {
		return nil, ErrInvalidName
	}

	now := time.Now().UTC()

	return &Subject{
		ID:        id,
		SchoolID:  schoolID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// String returns a string representation for logging.
func (s *Subject) String() string {
	return fmt.Sprintf("Subject{ID: %s, Name: %s}", s.ID, s.Name)
}
