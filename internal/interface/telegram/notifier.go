package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/invitation"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

// MessageSender sends Telegram messages. *bot.Bot satisfies it; tests use
// a fake.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// UserResolver loads users by ID.
type UserResolver interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// InvitationAcceptedNotifier tells the inviter when their invitation is
// redeemed. It subscribes to the event bus; delivery failures are logged
// by the bus and never affect the accept itself.
type InvitationAcceptedNotifier struct {
	sender MessageSender
	users  UserResolver
}

// NewInvitationAcceptedNotifier creates a new InvitationAcceptedNotifier.
func NewInvitationAcceptedNotifier(sender MessageSender, users UserResolver) *InvitationAcceptedNotifier {
	return &InvitationAcceptedNotifier{sender: sender, users: users}
}

// Name returns the handler name for logging.
func (n *InvitationAcceptedNotifier) Name() string {
	return "telegram.invitation_accepted_notifier"
}

// Handle notifies the inviter about the accepted invitation.
func (n *InvitationAcceptedNotifier) Handle(ctx context.Context, event shared.Event) error {
	accepted, ok := event.(*shared.InvitationAcceptedEvent)
	if !ok {
		return fmt.Errorf("notifier: unexpected event type %s", event.EventType())
	}

	inviterID, err := uuid.Parse(accepted.InviterID)
	if err != nil {
		return fmt.Errorf("notifier: parse inviter id: %w", err)
	}
	acceptedByID, err := uuid.Parse(accepted.AcceptedByID)
	if err != nil {
		return fmt.Errorf("notifier: parse accepted-by id: %w", err)
	}

	inviter, err := n.users.GetByID(ctx, inviterID)
	if err != nil {
		return fmt.Errorf("notifier: load inviter: %w", err)
	}
	acceptedBy, err := n.users.GetByID(ctx, acceptedByID)
	if err != nil {
		return fmt.Errorf("notifier: load accepting user: %w", err)
	}

	text := fmt.Sprintf("🎉 %s принял(а) твоё приглашение (%s).",
		acceptedBy.Name, typeTitle(invitation.Type(accepted.InvitationType)))

	if _, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: int64(inviter.ChatID),
		Text:   text,
	}); err != nil {
		return fmt.Errorf("notifier: send message: %w", err)
	}
	return nil
}

// typeTitle renders an invitation type for display.
func typeTitle(t invitation.Type) string {
	switch t {
	case invitation.TypeClassStudent:
		return "ученик в класс"
	case invitation.TypeClassTeacher:
		return "учитель в класс"
	case invitation.TypeSubjectTeacher:
		return "учитель предмета"
	case invitation.TypeParentChild:
		return "привязка ребёнка"
	default:
		return t.String()
	}
}
