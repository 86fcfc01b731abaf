package command

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/grade"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/policy"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/school"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD GRADE COMMAND
// Records a new grade or updates an existing one, gated by the grade
// editing policy.
// ══════════════════════════════════════════════════════════════════════════════

// RecordGradeCommand contains the data to record a grade.
type RecordGradeCommand struct {
	// EditorID is the user recording the grade.
	EditorID uuid.UUID

	// StudentID is the graded student.
	StudentID uuid.UUID

	// SubjectID is the graded subject.
	SubjectID uuid.UUID

	// Value is the mark on the five-point scale.
	Value int

	// Comment is an optional teacher comment.
	Comment string

	// GradeID, when set, updates that existing grade instead of creating
	// a new one.
	GradeID *uuid.UUID
}

// Validate validates the command.
func (c RecordGradeCommand) Validate() error {
	if c.EditorID == uuid.Nil {
		return shared.NewDomainError("grade", "Record", shared.ErrValidation, "editor_id is required")
	}
	if c.StudentID == uuid.Nil {
		return shared.NewDomainError("grade", "Record", shared.ErrValidation, "student_id is required")
	}
	if c.SubjectID == uuid.Nil {
		return shared.NewDomainError("grade", "Record", shared.ErrValidation, "subject_id is required")
	}
	if c.Value < grade.MinValue || c.Value > grade.MaxValue {
		return shared.ErrInvalidGradeValue
	}
	return nil
}

// RecordGradeResult contains the result of recording a grade.
type RecordGradeResult struct {
	// GradeID is the ID of the recorded grade.
	GradeID uuid.UUID

	// Updated reports whether an existing grade was changed.
	Updated bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordGradeHandler handles the RecordGradeCommand.
type RecordGradeHandler struct {
	userRepo    user.Repository
	subjectRepo school.SubjectRepository
	gradeRepo   grade.Repository
	policies    *policy.Manager
	events      shared.EventBus
	logger      *zap.Logger
}

// NewRecordGradeHandler creates a new RecordGradeHandler.
func NewRecordGradeHandler(
	userRepo user.Repository,
	subjectRepo school.SubjectRepository,
	gradeRepo grade.Repository,
	policies *policy.Manager,
	events shared.EventBus,
	logger *zap.Logger,
) *RecordGradeHandler {
	return &RecordGradeHandler{
		userRepo:    userRepo,
		subjectRepo: subjectRepo,
		gradeRepo:   gradeRepo,
		policies:    policies,
		events:      events,
		logger:      logger,
	}
}

// Handle executes the record grade command.
func (h *RecordGradeHandler) Handle(ctx context.Context, cmd RecordGradeCommand) (*RecordGradeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	editor, err := h.userRepo.GetByID(ctx, cmd.EditorID)
	if err != nil {
		return nil, fmt.Errorf("record_grade: load editor: %w", err)
	}

	student, err := h.userRepo.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, fmt.Errorf("record_grade: load student: %w", err)
	}

	subject, err := h.subjectRepo.GetByID(ctx, cmd.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("record_grade: load subject: %w", err)
	}

	if !h.policies.CanEditGrades(editor, student, subject) {
		return nil, shared.ErrPermissionDenied
	}

	result := &RecordGradeResult{}

	if cmd.GradeID != nil {
		g, err := h.gradeRepo.GetByID(ctx, *cmd.GradeID)
		if err != nil {
			return nil, fmt.Errorf("record_grade: load grade: %w", err)
		}
		if g.StudentID != cmd.StudentID || g.SubjectID != cmd.SubjectID {
			return nil, shared.NewDomainError("grade", "Record", shared.ErrValidation,
				"grade does not belong to the given student and subject")
		}
		if err := g.UpdateValue(cmd.Value); err != nil {
			return nil, shared.WrapError("grade", "Record", shared.ErrValidation, "invalid value", err)
		}
		g.Comment = cmd.Comment
		if err := h.gradeRepo.Update(ctx, g); err != nil {
			return nil, fmt.Errorf("record_grade: update: %w", err)
		}
		result.GradeID = g.ID
		result.Updated = true
	} else {
		g, err := grade.NewGrade(uuid.New(), cmd.StudentID, cmd.SubjectID, cmd.Value, cmd.Comment)
		if err != nil {
			return nil, shared.WrapError("grade", "Record", shared.ErrValidation, "invalid grade", err)
		}
		if err := h.gradeRepo.Create(ctx, g); err != nil {
			return nil, fmt.Errorf("record_grade: save: %w", err)
		}
		result.GradeID = g.ID
	}

	event := shared.NewGradeRecordedEvent(
		result.GradeID.String(),
		cmd.StudentID.String(),
		cmd.SubjectID.String(),
		cmd.Value,
		result.Updated,
	)
	if err := h.events.Publish(ctx, event); err != nil {
		h.logger.Warn("failed to publish grade recorded event",
			zap.String("grade_id", result.GradeID.String()),
			zap.Error(err))
	}

	return result, nil
}
