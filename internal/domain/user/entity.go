// Package user contains the user domain model: the six school roles and the
// relationship sets (classes, taught subjects, linked children) the policy
// engine decides over. The role hierarchy itself lives in the policy package;
// Role here is pure data.
package user

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// ChatID represents a Telegram chat identifier used for bot authentication.
type ChatID int64

// IsValid reports whether the ChatID is positive.
func (c ChatID) IsValid() bool {
	return c > 0
}

// ══════════════════════════════════════════════════════════════════════════════
// ROLES
// ══════════════════════════════════════════════════════════════════════════════

// Role is one of the six ranked actor types. It carries no behavior beyond
// validation; ranking and permission predicates belong to the policy package.
type Role string

const (
	RoleStudent         Role = "student"
	RoleParent          Role = "parent"
	RoleSubjectTeacher  Role = "subject_teacher"
	RoleHomeroomTeacher Role = "homeroom_teacher"
	RoleDeputyPrincipal Role = "deputy_principal"
	RolePrincipal       Role = "principal"
)

// AllRoles lists every role, lowest rank first.
func AllRoles() []Role {
	return []Role{
		RoleStudent,
		RoleParent,
		RoleSubjectTeacher,
		RoleHomeroomTeacher,
		RoleDeputyPrincipal,
		RolePrincipal,
	}
}

// IsValid reports whether the role is one of the six known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleParent, RoleSubjectTeacher, RoleHomeroomTeacher,
		RoleDeputyPrincipal, RolePrincipal:
		return true
	default:
		return false
	}
}

// IsTeacher reports whether the role is one of the two teaching roles.
func (r Role) IsTeacher() bool {
	return r == RoleSubjectTeacher || r == RoleHomeroomTeacher
}

// IsAdministrator reports whether the role is one of the two top school roles.
func (r Role) IsAdministrator() bool {
	return r == RoleDeputyPrincipal || r == RolePrincipal
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// ParseRole parses a role from its string form.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidRole - the role is not one of the six known roles.
	ErrInvalidRole = errors.New("invalid role")

	// ErrInvalidChatID - the chat id must be positive.
	ErrInvalidChatID = errors.New("invalid chat id: must be positive")

	// ErrInvalidName - the display name must be 1-100 chars.
	ErrInvalidName = errors.New("invalid name: must be 1-100 chars")

	// ErrUserNotFound - user not found in storage.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists - a user with the same chat id already exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrSelfLink - a parent cannot be linked to themselves.
	ErrSelfLink = errors.New("cannot link user to self")
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: USER
// ══════════════════════════════════════════════════════════════════════════════

// User is the central entity of the system. The three relationship sets are
// append-only through the invitation-accept path and may only be mutated via
// the named methods below, which enforce uniqueness.
type User struct {
	// ID - internal unique identifier.
	ID uuid.UUID

	// ChatID - Telegram chat identifier, unique per user.
	ChatID ChatID

	// Name - display name.
	Name string

	// Role - one of the six roles. Immutable in normal flow; changed only by
	// an explicit administrative action, never by invitations.
	Role Role

	// PasswordHash - bcrypt hash for REST API login (optional, set by admin).
	PasswordHash string

	// Classes - classes the user belongs to. For students: enrolled classes;
	// for teachers: taught classes.
	Classes []uuid.UUID

	// ManagedClassID - the single class a homeroom teacher manages.
	ManagedClassID *uuid.UUID

	// TeacherSubjects - subjects taught, subject teachers only.
	TeacherSubjects []uuid.UUID

	// ParentChildren - linked student ids, parents only.
	ParentChildren []uuid.UUID

	// CreatedAt - record creation time.
	CreatedAt time.Time

	// UpdatedAt - last update time.
	UpdatedAt time.Time
}

// NewUserParams contains parameters for creating a new user.
type NewUserParams struct {
	ID     uuid.UUID
	ChatID ChatID
	Name   string
	Role   Role
}

// NewUser creates a new user with validation of all fields.
func NewUser(params NewUserParams) (*User, error) {
	if params.ID == uuid.Nil {
		return nil, errors.New("user id is required")
	}

	if !params.ChatID.IsValid() {
		return nil, ErrInvalidChatID
	}

	name := strings.TrimSpace(params.Name)
	if len(name) == 0 || len(name) > 100 {
		return nil, ErrInvalidName
	}

	if !params.Role.IsValid() {
		return nil, ErrInvalidRole
	}

	now := time.Now().UTC()

	return &User{
		ID:        params.ID,
		ChatID:    params.ChatID,
		Name:      name,
		Role:      params.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RELATIONSHIP SETS
// Named mutators are the only write path for the three membership edges.
// ══════════════════════════════════════════════════════════════════════════════

// InClass reports whether the user belongs to the given class.
func (u *User) InClass(classID uuid.UUID) bool {
	return containsID(u.Classes, classID)
}

// Teaches reports whether the user teaches the given subject.
func (u *User) Teaches(subjectID uuid.UUID) bool {
	return containsID(u.TeacherSubjects, subjectID)
}

// HasChild reports whether the given student is linked to this parent.
func (u *User) HasChild(childID uuid.UUID) bool {
	return containsID(u.ParentChildren, childID)
}

// SharesClassWith reports whether the two users have at least one class in
// common.
func (u *User) SharesClassWith(other *User) bool {
	if other == nil {
		return false
	}
	for _, c := range u.Classes {
		if containsID(other.Classes, c) {
			return true
		}
	}
	return false
}

// JoinClass adds the class to the user's class set. Adding a class the user
// already belongs to is a no-op and reports false.
func (u *User) JoinClass(classID uuid.UUID) bool {
	if containsID(u.Classes, classID) {
		return false
	}
	u.Classes = append(u.Classes, classID)
	u.UpdatedAt = time.Now().UTC()
	return true
}

// AddTaughtSubject adds the subject to the teacher's subject set, enforcing
// uniqueness.
func (u *User) AddTaughtSubject(subjectID uuid.UUID) bool {
	if containsID(u.TeacherSubjects, subjectID) {
		return false
	}
	u.TeacherSubjects = append(u.TeacherSubjects, subjectID)
	u.UpdatedAt = time.Now().UTC()
	return true
}

// LinkChild links a student to this parent, enforcing uniqueness.
func (u *User) LinkChild(childID uuid.UUID) (bool, error) {
	if childID == u.ID {
		return false, ErrSelfLink
	}
	if containsID(u.ParentChildren, childID) {
		return false, nil
	}
	u.ParentChildren = append(u.ParentChildren, childID)
	u.UpdatedAt = time.Now().UTC()
	return true, nil
}

// AssignManagedClass sets the class a homeroom teacher manages.
func (u *User) AssignManagedClass(classID uuid.UUID) {
	id := classID
	u.ManagedClassID = &id
	u.UpdatedAt = time.Now().UTC()
}

// ChangeRole changes the user's role. This is the explicit administrative
// path; invitations never change roles.
func (u *User) ChangeRole(newRole Role) error {
	if !newRole.IsValid() {
		return ErrInvalidRole
	}
	u.Role = newRole
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// String returns a string representation for logging.
func (u *User) String() string {
	return fmt.Sprintf("User{ID: %s, Name: %s, Role: %s}", u.ID, u.Name, u.Role)
}

// Clone creates a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}

	clone := *u
	clone.Classes = append([]uuid.UUID(nil), u.Classes...)
	clone.TeacherSubjects = append([]uuid.UUID(nil), u.TeacherSubjects...)
	clone.ParentChildren = append([]uuid.UUID(nil), u.ParentChildren...)
	if u.ManagedClassID != nil {
		id := *u.ManagedClassID
		clone.ManagedClassID = &id
	}
	return &clone
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
