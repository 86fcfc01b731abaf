// Package main is the entry point for the school hub backend. It wires the
// policy engine, the invitation workflow, and the grade book behind two
// front-ends: the Telegram bot and the REST API.
//
// Architecture follows Clean Architecture and DDD:
//   - Domain: roles, policies, invitations, grades
//   - Application: commands and queries
//   - Infrastructure: PostgreSQL, Redis, in-process event bus
//   - Interface: Telegram bot handlers, HTTP endpoints
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tgbot "github.com/go-telegram/bot"
	"go.uber.org/zap"

	"github.com/mektep-hub/mektep-school-hub/config"
	"github.com/mektep-hub/mektep-school-hub/internal/application/command"
	"github.com/mektep-hub/mektep-school-hub/internal/application/query"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/policy"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
	"github.com/mektep-hub/mektep-school-hub/internal/infrastructure/messaging"
	"github.com/mektep-hub/mektep-school-hub/internal/infrastructure/persistence/postgres"
	"github.com/mektep-hub/mektep-school-hub/internal/infrastructure/persistence/redis"
	httpserver "github.com/mektep-hub/mektep-school-hub/internal/interface/http"
	"github.com/mektep-hub/mektep-school-hub/internal/interface/telegram"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// Configuration and logging
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting mektep school hub", zap.String("env", cfg.Env))

	// ─────────────────────────────────────────────────────────────────────────
	// PostgreSQL
	// ─────────────────────────────────────────────────────────────────────────
	conn, err := connectPostgres(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer conn.Close()

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	logger.Info("database connection established")

	migrator, err := postgres.NewMigrator(conn, logger)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}
	if err := migrator.Run(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	_ = migrator.Close()

	// ─────────────────────────────────────────────────────────────────────────
	// Redis
	// ─────────────────────────────────────────────────────────────────────────
	redisCfg := redis.DefaultConfig()
	redisCfg.Host = cfg.Redis.Host
	redisCfg.Port = cfg.Redis.Port
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB

	cache, err := redis.NewCache(redisCfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer func() { _ = cache.Close() }()
	logger.Info("redis connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// Repositories, policies, event bus
	// ─────────────────────────────────────────────────────────────────────────
	userRepo := postgres.NewUserRepository(conn)
	classRepo := postgres.NewClassRepository(conn)
	subjectRepo := postgres.NewSubjectRepository(conn)
	gradeRepo := postgres.NewGradeRepository(conn)
	invitationRepo := postgres.NewInvitationRepository(conn)

	policies := policy.NewManager(userRepo)
	bus := messaging.NewInMemoryBus(logger)

	userCache := redis.NewUserCache(cache)
	userLookup := redis.NewCachingUserLookup(userRepo, userCache)
	sessions := redis.NewSessionStore(cache)

	// Role changes and accepted invitations mutate the user; drop the
	// cached chat-id entry so the bot sees the change immediately.
	invalidator := redis.NewUserCacheInvalidator(userCache, userRepo)
	if err := bus.Subscribe(shared.EventInvitationAccepted, invalidator); err != nil {
		return fmt.Errorf("subscribe cache invalidator: %w", err)
	}
	if err := bus.Subscribe(shared.EventUserRoleChanged, invalidator); err != nil {
		return fmt.Errorf("subscribe cache invalidator: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Application handlers
	// ─────────────────────────────────────────────────────────────────────────
	createInvitation := command.NewCreateInvitationHandler(
		userRepo, classRepo, subjectRepo, invitationRepo, policies, cfg.Telegram.BotUsername)
	acceptInvitation := command.NewAcceptInvitationHandler(
		conn, userRepo, classRepo, subjectRepo, invitationRepo, bus, logger)
	rejectInvitation := command.NewRejectInvitationHandler(invitationRepo)
	recordGrade := command.NewRecordGradeHandler(
		userRepo, subjectRepo, gradeRepo, policies, bus, logger)
	changeUserRole := command.NewChangeUserRoleHandler(userRepo, policies, bus, logger)

	getUser := query.NewGetUserHandler(userRepo, policies)
	getGrade := query.NewGetGradeHandler(userRepo, gradeRepo, policies)
	getStudentGrades := query.NewGetStudentGradesHandler(userRepo, gradeRepo, policies)

	// ─────────────────────────────────────────────────────────────────────────
	// HTTP server
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout

	server := httpserver.NewServer(httpCfg, httpserver.Dependencies{
		GetUserHandler:          getUser,
		GetGradeHandler:         getGrade,
		GetStudentGradesHandler: getStudentGrades,
		CreateInvitationHandler: createInvitation,
		AcceptInvitationHandler: acceptInvitation,
		RejectInvitationHandler: rejectInvitation,
		RecordGradeHandler:      recordGrade,
		ChangeUserRoleHandler:   changeUserRole,
		Users:                   userRepo,
		Sessions:                sessions,
		InvitationTTL:           cfg.Invitation.TTL,
		Logger:                  logger,
	})

	serverErr := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// Telegram bot
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Telegram.Enabled {
		b, err := tgbot.New(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("init telegram bot: %w", err)
		}

		controller := telegram.NewBotController(b, telegram.Dependencies{
			Lookup:                  userLookup,
			Users:                   userRepo,
			Subjects:                subjectRepo,
			Policies:                policies,
			GetStudentGradesHandler: getStudentGrades,
			AcceptInvitationHandler: acceptInvitation,
			RejectInvitationHandler: rejectInvitation,
			Logger:                  logger,
		})

		if err := controller.RegisterHandlers(ctx); err != nil {
			return fmt.Errorf("register bot handlers: %w", err)
		}

		// Tell inviters when their invitations are redeemed.
		notifier := telegram.NewInvitationAcceptedNotifier(b, userRepo)
		if err := bus.Subscribe(shared.EventInvitationAccepted, notifier); err != nil {
			return fmt.Errorf("subscribe notifier: %w", err)
		}

		go controller.Start(ctx)
		logger.Info("telegram bot started", zap.String("username", cfg.Telegram.BotUsername))
	} else {
		logger.Info("telegram bot disabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Wait for shutdown
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

// newLogger builds the zap logger for the configured environment.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// connectPostgres connects using the URL when set, the field config
// otherwise.
func connectPostgres(ctx context.Context, cfg *config.Config) (*postgres.Connection, error) {
	if cfg.Postgres.URL != "" {
		return postgres.NewConnectionFromURL(ctx, cfg.Postgres.URL)
	}

	pgCfg := postgres.DefaultConfig()
	pgCfg.Host = cfg.Postgres.Host
	pgCfg.Port = cfg.Postgres.Port
	pgCfg.Database = cfg.Postgres.Database
	pgCfg.User = cfg.Postgres.User
	pgCfg.Password = cfg.Postgres.Password
	pgCfg.SSLMode = cfg.Postgres.SSLMode
	pgCfg.MaxConns = int32(cfg.Postgres.MaxConns)

	return postgres.NewConnection(ctx, pgCfg)
}
