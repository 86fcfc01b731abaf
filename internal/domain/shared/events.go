package shared

import (
	"context"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened in the domain and may trigger notifications.
const (
	// User events
	EventUserRegistered  EventType = "user.registered"
	EventUserRoleChanged EventType = "user.role_changed"

	// Invitation events
	EventInvitationCreated  EventType = "invitation.created"
	EventInvitationAccepted EventType = "invitation.accepted"
	EventInvitationRejected EventType = "invitation.rejected"
	EventInvitationExpired  EventType = "invitation.expired"

	// Grade events
	EventGradeRecorded EventType = "grade.recorded"
	EventGradeUpdated  EventType = "grade.updated"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// NewBaseEvent creates a base event stamped with the current time.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// EventType returns the type of the event.
func (e BaseEvent) EventType() EventType { return e.Type }

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// AggregateID returns the ID of the aggregate that produced this event.
func (e BaseEvent) AggregateID() string { return e.AggregateId }

// Payload returns the event data as a map for serialization.
func (e BaseEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"type":         string(e.Type),
		"timestamp":    e.Timestamp,
		"aggregate_id": e.AggregateId,
	}
}

// InvitationAcceptedEvent is published when an invitee redeems an invitation.
type InvitationAcceptedEvent struct {
	BaseEvent
	InvitationID   string `json:"invitation_id"`
	InvitationType string `json:"invitation_type"`
	InviterID      string `json:"inviter_id"`
	AcceptedByID   string `json:"accepted_by_id"`
}

// NewInvitationAcceptedEvent creates an InvitationAcceptedEvent.
func NewInvitationAcceptedEvent(invitationID, invitationType, inviterID, acceptedByID string) *InvitationAcceptedEvent {
	return &InvitationAcceptedEvent{
		BaseEvent:      NewBaseEvent(EventInvitationAccepted, invitationID),
		InvitationID:   invitationID,
		InvitationType: invitationType,
		InviterID:      inviterID,
		AcceptedByID:   acceptedByID,
	}
}

// Payload returns the event data as a map for serialization.
func (e *InvitationAcceptedEvent) Payload() map[string]interface{} {
	p := e.BaseEvent.Payload()
	p["invitation_id"] = e.InvitationID
	p["invitation_type"] = e.InvitationType
	p["inviter_id"] = e.InviterID
	p["accepted_by_id"] = e.AcceptedByID
	return p
}

// UserRoleChangedEvent is published when an administrator changes a role.
type UserRoleChangedEvent struct {
	BaseEvent
	UserID  string `json:"user_id"`
	OldRole string `json:"old_role"`
	NewRole string `json:"new_role"`
}

// NewUserRoleChangedEvent creates a UserRoleChangedEvent.
func NewUserRoleChangedEvent(userID, oldRole, newRole string) *UserRoleChangedEvent {
	return &UserRoleChangedEvent{
		BaseEvent: NewBaseEvent(EventUserRoleChanged, userID),
		UserID:    userID,
		OldRole:   oldRole,
		NewRole:   newRole,
	}
}

// Payload returns the event data as a map for serialization.
func (e *UserRoleChangedEvent) Payload() map[string]interface{} {
	p := e.BaseEvent.Payload()
	p["user_id"] = e.UserID
	p["old_role"] = e.OldRole
	p["new_role"] = e.NewRole
	return p
}

// GradeRecordedEvent is published when a teacher records or updates a grade.
type GradeRecordedEvent struct {
	BaseEvent
	GradeID   string `json:"grade_id"`
	StudentID string `json:"student_id"`
	SubjectID string `json:"subject_id"`
	Value     int    `json:"value"`
	Updated   bool   `json:"updated"`
}

// NewGradeRecordedEvent creates a GradeRecordedEvent.
func NewGradeRecordedEvent(gradeID, studentID, subjectID string, value int, updated bool) *GradeRecordedEvent {
	eventType := EventGradeRecorded
	if updated {
		eventType = EventGradeUpdated
	}
	return &GradeRecordedEvent{
		BaseEvent: NewBaseEvent(eventType, gradeID),
		GradeID:   gradeID,
		StudentID: studentID,
		SubjectID: subjectID,
		Value:     value,
		Updated:   updated,
	}
}

// Payload returns the event data as a map for serialization.
func (e *GradeRecordedEvent) Payload() map[string]interface{} {
	p := e.BaseEvent.Payload()
	p["grade_id"] = e.GradeID
	p["student_id"] = e.StudentID
	p["subject_id"] = e.SubjectID
	p["value"] = e.Value
	return p
}

// EventHandler processes a published domain event.
type EventHandler interface {
	// Handle processes the event. Errors are logged by the bus, not retried.
	Handle(ctx context.Context, event Event) error

	// Name returns the handler name for logging.
	Name() string
}

// EventBus publishes domain events to subscribed handlers.
type EventBus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler) error
}
