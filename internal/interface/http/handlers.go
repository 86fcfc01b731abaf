package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mektep-hub/mektep-school-hub/internal/application/command"
	"github.com/mektep-hub/mektep-school-hub/internal/application/query"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/grade"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/invitation"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// statusFromError maps a domain error to an HTTP status and error code.
// Unknown errors map to 500 so internals never leak to clients.
func statusFromError(err error) (int, string) {
	switch {
	case shared.IsValidation(err):
		return http.StatusBadRequest, "invalid_request"
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case shared.IsForbidden(err):
		return http.StatusForbidden, "forbidden"
	case shared.IsExpired(err):
		// Expired is a bad request with its own code, not a conflict,
		// so the check runs before the invalid-state one.
		return http.StatusBadRequest, "expired"
	case shared.IsInvalidState(err):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_server_error"
	}
}

// writeError logs server-side failures and writes the mapped error
// response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFromError(err)

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", getRequestID(r.Context())),
			zap.Error(err))
		writeJSONError(w, status, code, "An unexpected error occurred")
		return
	}

	writeJSONError(w, status, code, err.Error())
}

// ══════════════════════════════════════════════════════════════════════════════
// DTOs
// ══════════════════════════════════════════════════════════════════════════════

type userDTO struct {
	ID              string    `json:"id"`
	ChatID          int64     `json:"chat_id"`
	Name            string    `json:"name"`
	Role            string    `json:"role"`
	Classes         []string  `json:"classes,omitempty"`
	ManagedClassID  *string   `json:"managed_class_id,omitempty"`
	TeacherSubjects []string  `json:"teacher_subjects,omitempty"`
	ParentChildren  []string  `json:"parent_children,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func toUserDTO(u *user.User) userDTO {
	dto := userDTO{
		ID:              u.ID.String(),
		ChatID:          int64(u.ChatID),
		Name:            u.Name,
		Role:            u.Role.String(),
		Classes:         idStrings(u.Classes),
		TeacherSubjects: idStrings(u.TeacherSubjects),
		ParentChildren:  idStrings(u.ParentChildren),
		CreatedAt:       u.CreatedAt,
	}
	if u.ManagedClassID != nil {
		s := u.ManagedClassID.String()
		dto.ManagedClassID = &s
	}
	return dto
}

type gradeDTO struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	SubjectID string    `json:"subject_id"`
	Value     int       `json:"value"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toGradeDTO(g *grade.Grade) gradeDTO {
	return gradeDTO{
		ID:        g.ID.String(),
		StudentID: g.StudentID.String(),
		SubjectID: g.SubjectID.String(),
		Value:     g.Value,
		Comment:   g.Comment,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

func idStrings(ids []uuid.UUID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// pathUUID parses a UUID path parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	return id, err == nil
}

// ══════════════════════════════════════════════════════════════════════════════
// USER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetUser returns one user's profile, policy permitting.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := authUserID(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing_token", "Authorization token is required")
		return
	}

	targetID, ok := pathUUID(r, "id")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid user id")
		return
	}

	u, err := s.deps.GetUserHandler.Handle(r.Context(), query.GetUserQuery{
		ViewerID: viewerID,
		TargetID: targetID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserDTO(u))
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

// handleChangeUserRole assigns a new role to a user.
func (s *Server) handleChangeUserRole(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authUserID(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing_token", "Authorization token is required")
		return
	}

	targetID, ok := pathUUID(r, "id")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid user id")
		return
	}

	var req changeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}

	role, err := user.ParseRole(req.Role)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Unknown role")
		return
	}

	err = s.deps.ChangeUserRoleHandler.Handle(r.Context(), command.ChangeUserRoleCommand{
		ActorID:  &actorID,
		TargetID: targetID,
		NewRole:  role,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "role_changed"})
}

// ══════════════════════════════════════════════════════════════════════════════
// GRADE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetGrade returns one grade, policy permitting.
func (s *Server) handleGetGrade(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := authUserID(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing_token", "Authorization token is required")
		return
	}

	gradeID, ok := pathUUID(r, "id")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid grade id")
		return
	}

	g, err := s.deps.GetGradeHandler.Handle(r.Context(), query.GetGradeQuery{
		ViewerID: viewerID,
		GradeID:  gradeID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toGradeDTO(g))
}

// handleGetStudentGrades lists a student's grades, optionally narrowed
// to one subject via the subject_id query parameter.
func (s *Server) handleGetStudentGrades(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := authUserID(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing_token", "Authorization token is required")
		return
	}

	studentID, ok := pathUUID(r, "id")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid user id")
		return
	}

	q := query.GetStudentGradesQuery{
		ViewerID:  viewerID,
		StudentID: studentID,
	}
	if raw := r.URL.Query().Get("subject_id"); raw != "" {
		subjectID, err := uuid.Parse(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid subject id")
			return
		}
		q.SubjectID = &subjectID
	}

	grades, err := s.deps.GetStudentGradesHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	dtos := make([]gradeDTO, len(grades))
	for i, g := range grades {
		dtos[i] = toGradeDTO(g)
	}
	writeJSON(w, http.StatusOK, dtos)
}

type recordGradeRequest struct {
	StudentID string  `json:"student_id"`
	SubjectID string  `json:"subject_id"`
	Value     int     `json:"value"`
	Comment   string  `json:"comment"`
	GradeID   *string `json:"grade_id,omitempty"`
}

// handleRecordGrade records a new grade or updates an existing one.
func (s *Server) handleRecordGrade(w http.ResponseWriter, r *http.Request) {
	editorID, ok := authUserID(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing_token", "Authorization token is required")
		return
	}

	var req recordGradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}

	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid student id")
		return
	}
	subjectID, err := uuid.Parse(req.SubjectID)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid subject id")
		return
	}

	cmd := command.RecordGradeCommand{
		EditorID:  editorID,
		StudentID: studentID,
		SubjectID: subjectID,
		Value:     req.Value,
		Comment:   req.Comment,
	}
	if req.GradeID != nil {
		gradeID, err := uuid.Parse(*req.GradeID)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid grade id")
			return
		}
		cmd.GradeID = &gradeID
	}

	result, err := s.deps.RecordGradeHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Updated {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]interface{}{
		"grade_id": result.GradeID.String(),
		"updated":  result.Updated,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// INVITATION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type createInvitationRequest struct {
	Type       string  `json:"type"`
	TargetRole string  `json:"target_role"`
	ClassID    *string `json:"class_id,omitempty"`
	SubjectID  *string `json:"subject_id,omitempty"`
	ChildID    *string `json:"child_id,omitempty"`
}

// handleCreateInvitation creates a pending invitation and returns its
// shareable deep link.
func (s *Server) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	inviterID, ok := authUserID(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing_token", "Authorization token is required")
		return
	}

	var req createInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}

	role, err := user.ParseRole(req.TargetRole)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Unknown target role")
		return
	}

	cmd := command.CreateInvitationCommand{
		InviterID:  inviterID,
		Type:       invitation.Type(req.Type),
		TargetRole: role,
		TTL:        s.deps.InvitationTTL,
	}
	if cmd.ClassID, err = optionalUUID(req.ClassID, "class id"); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if cmd.SubjectID, err = optionalUUID(req.SubjectID, "subject id"); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if cmd.ChildID, err = optionalUUID(req.ChildID, "child id"); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.CreateInvitationHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"invitation_id": result.InvitationID.String(),
		"deep_link":     result.DeepLink,
		"expires_at":    result.ExpiresAt,
	})
}

// handleAcceptInvitation redeems an invitation for the caller.
func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	userID, ok := authUserID(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing_token", "Authorization token is required")
		return
	}

	invitationID, ok := pathUUID(r, "id")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid invitation id")
		return
	}

	result, err := s.deps.AcceptInvitationHandler.Handle(r.Context(), command.AcceptInvitationCommand{
		InvitationID:    invitationID,
		AcceptingUserID: userID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"invitation_id": result.InvitationID.String(),
		"type":          result.Type.String(),
		"edge_added":    result.EdgeAdded,
	})
}

// handleRejectInvitation declines a pending invitation.
func (s *Server) handleRejectInvitation(w http.ResponseWriter, r *http.Request) {
	if _, ok := authUserID(r.Context()); !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing_token", "Authorization token is required")
		return
	}

	invitationID, ok := pathUUID(r, "id")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid invitation id")
		return
	}

	err := s.deps.RejectInvitationHandler.Handle(r.Context(), command.RejectInvitationCommand{
		InvitationID: invitationID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// optionalUUID parses an optional UUID string from a request body.
func optionalUUID(raw *string, label string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, shared.NewDomainError("http", "parse", shared.ErrValidation, "Invalid "+label)
	}
	return &id, nil
}
