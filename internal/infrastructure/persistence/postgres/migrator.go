package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migrator applies the embedded SQL migrations through goose.
type Migrator struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMigrator creates a migrator over the given connection. Goose works
// with database/sql, so a *sql.DB is opened from the pool and closed with
// the migrator; the pool itself stays owned by the caller.
func NewMigrator(conn *Connection, logger *zap.Logger) (*Migrator, error) {
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	goose.SetBaseFS(embeddedMigrations)

	return &Migrator{
		db:     stdlib.OpenDBFromPool(conn.Pool()),
		logger: logger,
	}, nil
}

// Run applies all pending migrations.
func (m *Migrator) Run(ctx context.Context) error {
	m.logger.Info("applying database migrations")

	if err := goose.UpContext(ctx, m.db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, m.db)
	if err != nil {
		return fmt.Errorf("get migration version: %w", err)
	}

	m.logger.Info("migrations applied", zap.Int64("version", version))
	return nil
}

// Close closes the migrator's database handle.
func (m *Migrator) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
