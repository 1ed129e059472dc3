package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/akarpenko/notesync/internal/dbx"
	"github.com/akarpenko/notesync/internal/server/migrations"
	"github.com/akarpenko/notesync/internal/server/refreshtokens"
	"github.com/akarpenko/notesync/internal/server/users"
)

// PostgresRepositoryManager builds repositories over a shared *sql.DB
// (pgx stdlib driver).
type PostgresRepositoryManager struct {
	db            *sql.DB
	users         users.Repository
	refreshTokens refreshtokens.Repository
}

func NewPostgresRepositoryManager(dsn string) (*PostgresRepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	return &PostgresRepositoryManager{
		db:            db,
		users:         users.NewPostgresRepository(db),
		refreshTokens: refreshtokens.NewPostgresRepository(db),
	}, nil
}

func (m *PostgresRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *PostgresRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return m.refreshTokens
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

func (m *PostgresRepositoryManager) InTx(ctx context.Context, fn func(m RepositoryManager) error) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(&txRepositoryManager{
			users:         users.NewPostgresRepository(tx),
			refreshTokens: refreshtokens.NewPostgresRepository(tx),
		})
	})
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

// txRepositoryManager scopes repositories to one open transaction.
type txRepositoryManager struct {
	users         users.Repository
	refreshTokens refreshtokens.Repository
}

func (m *txRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *txRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return m.refreshTokens
}

func (m *txRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

// InTx inside an open transaction reuses it; Postgres has no nesting here.
func (m *txRepositoryManager) InTx(ctx context.Context, fn func(m RepositoryManager) error) error {
	return fn(m)
}

func (m *txRepositoryManager) Close() error {
	return nil
}
