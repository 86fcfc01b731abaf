// Package telegram implements the Telegram bot interface for the school
// hub. Every update is resolved to a registered user through the cached
// chat-id lookup before any command logic runs.
package telegram

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/mektep-hub/mektep-school-hub/internal/application/command"
	"github.com/mektep-hub/mektep-school-hub/internal/application/query"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/policy"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/school"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
)

// BotController wires the Telegram bot to its command handlers.
type BotController struct {
	bot      *bot.Bot
	handlers *Handlers
	logger   *zap.Logger
}

// Dependencies contains everything the bot handlers need.
type Dependencies struct {
	// Lookup resolves updates to registered users by chat id.
	Lookup UserLookup

	// Users resolves referenced users by ID when rendering replies.
	Users user.Repository

	// Subjects resolves subject names when rendering grades.
	Subjects school.SubjectRepository

	// Policies answers role access questions for menu rendering.
	Policies *policy.Manager

	// Query handlers.
	GetStudentGradesHandler *query.GetStudentGradesHandler

	// Command handlers. Invitations are created through the REST API;
	// the bot only redeems or declines them.
	AcceptInvitationHandler *command.AcceptInvitationHandler
	RejectInvitationHandler *command.RejectInvitationHandler

	Logger *zap.Logger
}

// NewBotController creates a new BotController.
func NewBotController(botInstance *bot.Bot, deps Dependencies) *BotController {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	handlers := NewHandlers(deps, logger)

	return &BotController{
		bot:      botInstance,
		handlers: handlers,
		logger:   logger,
	}
}

// RegisterHandlers registers all command handlers and the command menu.
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	// /start carries an optional deep-link payload, so it matches by
	// prefix rather than exactly.
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, c.handlers.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handlers.HandleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/me", bot.MatchTypeExact, c.handlers.HandleMe)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/grades", bot.MatchTypeExact, c.handlers.HandleGrades)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/children", bot.MatchTypeExact, c.handlers.HandleChildren)

	// Accept and decline buttons on invitation prompts.
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "inv_", bot.MatchTypePrefix, c.handlers.HandleInvitationCallback)

	return c.setCommands(ctx)
}

// setCommands publishes the command menu.
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Начать работу с ботом"},
		{Command: "me", Description: "👤 Мой профиль"},
		{Command: "grades", Description: "📊 Мои оценки"},
		{Command: "children", Description: "👨‍👩‍👧 Мои дети (для родителей)"},
		{Command: "help", Description: "❓ Справка по командам"},
	}

	if _, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: commands}); err != nil {
		c.logger.Error("failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("bot commands menu set")
	return nil
}

// Start runs the bot until the context is cancelled.
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("starting telegram bot")
	c.bot.Start(ctx)
}
