// Package main is the operator CLI for the school hub. It covers the
// bootstrap actions that have no in-band path: running migrations,
// creating schools, classes, subjects, and the first users, and role
// assignments that bypass the policy check.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mektep-hub/mektep-school-hub/config"
	"github.com/mektep-hub/mektep-school-hub/internal/application/command"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/policy"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/school"
	"github.com/mektep-hub/mektep-school-hub/internal/domain/user"
	"github.com/mektep-hub/mektep-school-hub/internal/infrastructure/messaging"
	"github.com/mektep-hub/mektep-school-hub/internal/infrastructure/persistence/postgres"
)

const usage = `Usage: admin <command> [flags]

Commands:
  migrate         Run database migrations
  create-school   Create a school (-name, -address, -phone, -email)
  create-class    Create a class (-school, -name)
  create-subject  Create a subject (-school, -name)
  create-user     Create a user (-chat-id, -name, -role, -password)
  set-role        Change a user's role (-user, -role)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx := context.Background()
	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the dependencies every subcommand shares.
type app struct {
	conn     *postgres.Connection
	logger   *zap.Logger
	users    *postgres.UserRepository
	schools  *postgres.SchoolRepository
	classes  *postgres.ClassRepository
	subjects *postgres.SubjectRepository
}

func run(ctx context.Context, cmd string, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	conn, err := connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer conn.Close()

	a := &app{
		conn:     conn,
		logger:   logger,
		users:    postgres.NewUserRepository(conn),
		schools:  postgres.NewSchoolRepository(conn),
		classes:  postgres.NewClassRepository(conn),
		subjects: postgres.NewSubjectRepository(conn),
	}

	switch cmd {
	case "migrate":
		return a.migrate(ctx)
	case "create-school":
		return a.createSchool(ctx, args)
	case "create-class":
		return a.createClass(ctx, args)
	case "create-subject":
		return a.createSubject(ctx, args)
	case "create-user":
		return a.createUser(ctx, args)
	case "set-role":
		return a.setRole(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func connect(ctx context.Context, cfg *config.Config) (*postgres.Connection, error) {
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

	return postgres.NewConnection(ctx, pgCfg)
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBCOMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func (a *app) migrate(ctx context.Context) error {
	migrator, err := postgres.NewMigrator(a.conn, a.logger)
	if err != nil {
		return err
	}
	defer func() { _ = migrator.Close() }()

	if err := migrator.Run(ctx); err != nil {
		return err
	}
	fmt.Println("migrations applied")
	return nil
}

func (a *app) createSchool(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-school", flag.ExitOnError)
	name := fs.String("name", "", "school name (required)")
	address := fs.String("address", "", "school address")
	phone := fs.String("phone", "", "school phone")
	email := fs.String("email", "", "school email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := school.NewSchool(uuid.New(), *name, *address, *phone, *email)
	if err != nil {
		return err
	}
	if err := a.schools.Create(ctx, s); err != nil {
		return err
	}

	fmt.Printf("school created: %s\n", s.ID)
	return nil
}

func (a *app) createClass(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-class", flag.ExitOnError)
	schoolID := fs.String("school", "", "school id (required)")
	name := fs.String("name", "", "class name, e.g. 7A (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sid, err := uuid.Parse(*schoolID)
	if err != nil {
		return fmt.Errorf("invalid school id: %w", err)
	}

	c, err := school.NewClass(uuid.New(), sid, *name)
	if err != nil {
		return err
	}
	if err := a.classes.Create(ctx, c); err != nil {
		return err
	}

	fmt.Printf("class created: %s\n", c.ID)
	return nil
}

func (a *app) createSubject(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-subject", flag.ExitOnError)
	schoolID := fs.String("school", "", "school id (required)")
	name := fs.String("name", "", "subject name (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sid, err := uuid.Parse(*schoolID)
	if err != nil {
		return fmt.Errorf("invalid school id: %w", err)
	}

	s, err := school.NewSubject(uuid.New(), sid, *name)
	if err != nil {
		return err
	}
	if err := a.subjects.Create(ctx, s); err != nil {
		return err
	}

	fmt.Printf("subject created: %s\n", s.ID)
	return nil
}

func (a *app) createUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)
	chatID := fs.Int64("chat-id", 0, "telegram chat id (required)")
	name := fs.String("name", "", "display name (required)")
	roleName := fs.String("role", "student", "role: student, parent, subject_teacher, homeroom_teacher, deputy_principal, principal")
	password := fs.String("password", "", "API password (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	role, err := user.ParseRole(*roleName)
	if err != nil {
		return err
	}

	u, err := user.NewUser(user.NewUserParams{
		ID:     uuid.New(),
		ChatID: user.ChatID(*chatID),
		Name:   *name,
		Role:   role,
	})
	if err != nil {
		return err
	}

	if *password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	}

	if err := a.users.Create(ctx, u); err != nil {
		return err
	}

	fmt.Printf("user created: %s (%s)\n", u.ID, u.Role)
	return nil
}

func (a *app) setRole(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set-role", flag.ExitOnError)
	userID := fs.String("user", "", "user id (required)")
	roleName := fs.String("role", "", "new role (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	uid, err := uuid.Parse(*userID)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	role, err := user.ParseRole(*roleName)
	if err != nil {
		return err
	}

	// Operator changes skip the policy check: the CLI is the bootstrap
	// path for the first principal. The bus has no subscribers here; the
	// bot process picks up the new role once its cache entry expires.
	bus := messaging.NewInMemoryBus(a.logger)
	handler := command.NewChangeUserRoleHandler(a.users, policy.NewManager(a.users), bus, a.logger)
	if err := handler.Handle(ctx, command.ChangeUserRoleCommand{
		ActorID:  nil,
		TargetID: uid,
		NewRole:  role,
	}); err != nil {
		return err
	}

	fmt.Printf("role updated: %s -> %s\n", uid, role)
	return nil
}
