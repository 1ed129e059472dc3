package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akarpenko/notesync/internal/common"
	"github.com/akarpenko/notesync/internal/dbx"
)

// PostgresRepository implements Repository over any dbx.DBTX handle.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, token *RefreshToken) error {
	query :=
		`INSERT INTO refresh_tokens (token, user_id, device_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 `

	_, err := r.db.ExecContext(ctx, query,
		token.Token, token.UserID, token.DeviceID, token.ExpiresAt, time.Now().UTC())

	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, token string) (*RefreshToken, error) {
	query :=
		`SELECT token, user_id, device_id, expires_at, created_at FROM refresh_tokens
		 WHERE token = $1
		 `

	t := &RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, token).
		Scan(&t.Token, &t.UserID, &t.DeviceID, &t.ExpiresAt, &t.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return t, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, token string) error {
	query :=
		`DELETE FROM refresh_tokens
		 WHERE token = $1
		 `

	_, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	query :=
		`DELETE FROM refresh_tokens
		 WHERE expires_at <= $1
		 `

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading affected rows: %w", err)
	}

	return int(affected), nil
}
