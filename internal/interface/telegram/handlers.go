package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mektep-hub/mektep-school-hub/internal/application/command"
	"github.com/mektep-hub/mektep-school-hub/internal/application/query"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/invitation"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/school"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

// UserLookup resolves a Telegram chat id to a registered user.
type UserLookup interface {
	GetByChatID(ctx context.Context, chatID user.ChatID) (*user.User, error)
}

// Handlers contains all bot command handlers.
type Handlers struct {
	lookup   UserLookup
	users    user.Repository
	subjects school.SubjectRepository
	roles    *RoleHandler

	studentGrades *query.GetStudentGradesHandler
	acceptInv     *command.AcceptInvitationHandler
	rejectInv     *command.RejectInvitationHandler

	logger *zap.Logger
}

// NewHandlers creates the bot command handlers.
func NewHandlers(deps Dependencies, logger *zap.Logger) *Handlers {
	return &Handlers{
		lookup:        deps.Lookup,
		users:         deps.Users,
		subjects:      deps.Subjects,
		roles:         NewRoleHandler(deps.Policies),
		studentGrades: deps.GetStudentGradesHandler,
		acceptInv:     deps.AcceptInvitationHandler,
		rejectInv:     deps.RejectInvitationHandler,
		logger:        logger,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// HandleStart greets the user. A deep-link payload redeems an invitation.
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	param := startParam(update.Message.Text)
	if param != "" {
		h.handleInviteStart(ctx, b, update, param)
		return
	}

	u, err := h.lookup.GetByChatID(ctx, user.ChatID(update.Message.From.ID))
	if err != nil {
		if shared.IsNotFound(err) {
			h.sendMessage(ctx, b, chatID,
				"👋 Привет! Твой аккаунт ещё не зарегистрирован.\n\n"+
					"Попроси администратора школы создать аккаунт, "+
					"или перейди по пригласительной ссылке.")
			return
		}
		h.sendError(ctx, b, chatID)
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf(
		"👋 Привет, %s!\n\n%s", u.Name, h.roles.MenuFor(u.Role)))
}

// handleInviteStart offers to redeem an invitation carried in the /start
// payload. The actual accept or decline happens via the inline keyboard.
func (h *Handlers) handleInviteStart(ctx context.Context, b *bot.Bot, update *models.Update, param string) {
	chatID := update.Message.Chat.ID

	invitationID, ok := invitation.ParseDeepLinkParam(param)
	if !ok {
		h.sendMessage(ctx, b, chatID, "❌ Пригласительная ссылка повреждена.")
		return
	}

	if _, ok := h.requireUser(ctx, b, update); !ok {
		return
	}

	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "✅ Принять", CallbackData: "inv_accept:" + invitationID.String()},
				{Text: "❌ Отклонить", CallbackData: "inv_reject:" + invitationID.String()},
			},
		},
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        "📨 Тебе пришло приглашение. Принять?",
		ReplyMarkup: keyboard,
	}); err != nil {
		h.logger.Error("failed to send invitation prompt",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

// HandleInvitationCallback processes the accept and decline buttons.
func (h *Handlers) HandleInvitationCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	cq := update.CallbackQuery
	if cq == nil {
		return
	}

	// Answering first removes the button loading state.
	defer func() {
		_, _ = b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: cq.ID,
		})
	}()

	action, invitationID, ok := parseInviteCallback(cq.Data)
	if !ok {
		return
	}

	chatID := int64(0)
	if cq.Message.Message != nil {
		chatID = cq.Message.Message.Chat.ID
	}

	u, err := h.lookup.GetByChatID(ctx, user.ChatID(cq.From.ID))
	if err != nil {
		if chatID != 0 {
			h.sendMessage(ctx, b, chatID, "❌ Аккаунт не найден.")
		}
		return
	}

	switch action {
	case "accept":
		result, err := h.acceptInv.Handle(ctx, command.AcceptInvitationCommand{
			InvitationID:    invitationID,
			AcceptingUserID: u.ID,
		})
		if err != nil {
			h.sendMessage(ctx, b, chatID, inviteErrorMessage(err))
			if !shared.IsExpired(err) && !shared.IsInvalidState(err) && !shared.IsNotFound(err) {
				h.logger.Error("failed to accept invitation",
					zap.String("invitation_id", invitationID.String()),
					zap.Error(err))
			}
			return
		}
		h.sendMessage(ctx, b, chatID, acceptedMessage(result.Type))

	case "reject":
		if err := h.rejectInv.Handle(ctx, command.RejectInvitationCommand{
			InvitationID: invitationID,
		}); err != nil {
			h.sendMessage(ctx, b, chatID, inviteErrorMessage(err))
			return
		}
		h.sendMessage(ctx, b, chatID, "Приглашение отклонено.")
	}
}

// parseInviteCallback splits "inv_<action>:<uuid>" callback data.
func parseInviteCallback(data string) (action string, id uuid.UUID, ok bool) {
	rest, found := strings.CutPrefix(data, "inv_")
	if !found {
		return "", uuid.Nil, false
	}
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		return "", uuid.Nil, false
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return "", uuid.Nil, false
	}
	return parts[0], id, true
}

// inviteErrorMessage renders invitation failures for the user.
func inviteErrorMessage(err error) string {
	switch {
	case shared.IsExpired(err):
		return "⏳ Срок действия приглашения истёк."
	case shared.IsInvalidState(err):
		return "❌ Это приглашение уже использовано или отклонено."
	case shared.IsNotFound(err):
		return "❌ Приглашение не найдено."
	default:
		return "😔 Произошла ошибка. Попробуй позже."
	}
}

// HandleHelp shows the command reference.
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	text := "📚 Справка по командам:\n\n" +
		"/start - Начать работу (или принять приглашение)\n" +
		"/me - Мой профиль\n" +
		"/grades - Мои оценки\n" +
		"/children - Список детей (для родителей)\n" +
		"/help - Показать эту справку\n\n" +
		"Приглашения в классы и на предметы создаются через веб-кабинет школы."

	h.sendMessage(ctx, b, update.Message.Chat.ID, text)
}

// HandleMe shows the caller's profile.
func (h *Handlers) HandleMe(ctx context.Context, b *bot.Bot, update *models.Update) {
	u, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "👤 %s\n", u.Name)
	fmt.Fprintf(&sb, "Роль: %s\n", roleTitle(u.Role))
	fmt.Fprintf(&sb, "Классов: %d\n", len(u.Classes))
	if u.Role.IsTeacher() {
		fmt.Fprintf(&sb, "Преподаваемых предметов: %d\n", len(u.TeacherSubjects))
	}
	if u.Role == user.RoleParent {
		fmt.Fprintf(&sb, "Детей: %d\n", len(u.ParentChildren))
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, sb.String())
}

// HandleGrades lists the caller's own grades.
func (h *Handlers) HandleGrades(ctx context.Context, b *bot.Bot, update *models.Update) {
	u, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	if u.Role != user.RoleStudent {
		h.sendMessage(ctx, b, chatID,
			"📊 Команда /grades показывает собственные оценки ученика.\n"+
				"Родители могут посмотреть оценки детей через /children.")
		return
	}

	grades, err := h.studentGrades.Handle(ctx, query.GetStudentGradesQuery{
		ViewerID:  u.ID,
		StudentID: u.ID,
	})
	if err != nil {
		h.logger.Error("failed to list grades", zap.String("user_id", u.ID.String()), zap.Error(err))
		h.sendError(ctx, b, chatID)
		return
	}

	if len(grades) == 0 {
		h.sendMessage(ctx, b, chatID, "📊 Оценок пока нет.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 Твои оценки:\n\n")
	for _, g := range grades {
		name := h.subjectName(ctx, g.SubjectID)
		fmt.Fprintf(&sb, "%s — %d", name, g.Value)
		if g.Comment != "" {
			fmt.Fprintf(&sb, " (%s)", g.Comment)
		}
		sb.WriteString("\n")
	}

	h.sendMessage(ctx, b, chatID, sb.String())
}

// HandleChildren lists a parent's linked children with their latest grades.
func (h *Handlers) HandleChildren(ctx context.Context, b *bot.Bot, update *models.Update) {
	u, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	if u.Role != user.RoleParent {
		h.sendMessage(ctx, b, chatID, "👨‍👩‍👧 Команда /children доступна только родителям.")
		return
	}

	if len(u.ParentChildren) == 0 {
		h.sendMessage(ctx, b, chatID,
			"👨‍👩‍👧 Привязанных детей пока нет.\n"+
				"Попроси другого родителя прислать пригласительную ссылку.")
		return
	}

	var sb strings.Builder
	sb.WriteString("👨‍👩‍👧 Твои дети:\n\n")
	for _, childID := range u.ParentChildren {
		child, err := h.users.GetByID(ctx, childID)
		if err != nil {
			h.logger.Warn("failed to load child",
				zap.String("child_id", childID.String()),
				zap.Error(err))
			continue
		}

		fmt.Fprintf(&sb, "• %s", child.Name)

		grades, err := h.studentGrades.Handle(ctx, query.GetStudentGradesQuery{
			ViewerID:  u.ID,
			StudentID: child.ID,
		})
		if err == nil {
			fmt.Fprintf(&sb, " — оценок: %d", len(grades))
		}
		sb.WriteString("\n")
	}

	h.sendMessage(ctx, b, chatID, sb.String())
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// requireUser resolves the sender to a registered user, replying with
// onboarding guidance when the account is unknown.
func (h *Handlers) requireUser(ctx context.Context, b *bot.Bot, update *models.Update) (*user.User, bool) {
	if update.Message == nil || update.Message.From == nil {
		return nil, false
	}
	chatID := update.Message.Chat.ID

	u, err := h.lookup.GetByChatID(ctx, user.ChatID(update.Message.From.ID))
	if err != nil {
		if shared.IsNotFound(err) {
			h.sendMessage(ctx, b, chatID,
				"❌ Аккаунт не найден. Попроси администратора школы создать аккаунт.")
			return nil, false
		}
		h.logger.Error("failed to resolve user",
			zap.Int64("chat_id", update.Message.From.ID),
			zap.Error(err))
		h.sendError(ctx, b, chatID)
		return nil, false
	}

	return u, true
}

// subjectName resolves a subject name, falling back to the raw id.
func (h *Handlers) subjectName(ctx context.Context, id uuid.UUID) string {
	subject, err := h.subjects.GetByID(ctx, id)
	if err != nil {
		return id.String()
	}
	return subject.Name
}

// sendMessage sends a message and logs delivery failures.
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		h.logger.Error("failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

// sendError sends a generic error message.
func (h *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64) {
	h.sendMessage(ctx, b, chatID, "😔 Произошла ошибка. Попробуй позже.")
}

// startParam extracts the payload from a "/start <payload>" message.
func startParam(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// acceptedMessage renders the confirmation for a redeemed invitation.
func acceptedMessage(t invitation.Type) string {
	switch t {
	case invitation.TypeClassStudent:
		return "✅ Ты зачислен в класс!"
	case invitation.TypeClassTeacher:
		return "✅ Ты добавлен в класс как учитель!"
	case invitation.TypeSubjectTeacher:
		return "✅ Предмет закреплён за тобой!"
	case invitation.TypeParentChild:
		return "✅ Ребёнок привязан к твоему аккаунту!"
	default:
		return "✅ Приглашение принято!"
	}
}

// roleTitle renders a role for display.
func roleTitle(r user.Role) string {
	switch r {
	case user.RoleStudent:
		return "Ученик"
	case user.RoleParent:
		return "Родитель"
	case user.RoleSubjectTeacher:
		return "Учитель-предметник"
	case user.RoleHomeroomTeacher:
		return "Классный руководитель"
	case user.RoleDeputyPrincipal:
		return "Завуч"
	case user.RolePrincipal:
		return "Директор"
	default:
		return r.String()
	}
}
