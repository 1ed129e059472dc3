package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/akarpenko/notesync/internal/common"
	"github.com/akarpenko/notesync/internal/dbx"
)

// pgUniqueViolation is the Postgres error code for unique constraint violations.
const pgUniqueViolation = "23505"

// PostgresRepository implements Repository over any dbx.DBTX handle, so the
// same code runs standalone or inside a transaction.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (r *PostgresRepository) Create(ctx context.Context, user *User) (*User, error) {
	query :=
		`INSERT INTO users (id, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, time.Now().UTC()).Scan(&user.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query :=
		`SELECT id, email, password_hash, created_at FROM users
		 WHERE email = $1
		 `

	user := &User{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*User, error) {
	query :=
		`SELECT id, email, password_hash, created_at FROM users
		 WHERE id = $1
		 `

	user := &User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) UpsertDevice(ctx context.Context, device *Device) (*Device, error) {
	query :=
		`INSERT INTO devices (id, user_id, device_id, device_name, last_sync_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, device_id)
		 DO UPDATE SET device_name = excluded.device_name, last_sync_at = now()
		 RETURNING id, last_sync_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		device.ID, device.UserID, device.DeviceID, device.DeviceName, device.LastSyncAt).
		Scan(&device.ID, &device.LastSyncAt)

	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return device, nil
}

func (r *PostgresRepository) GetDevice(ctx context.Context, userID, id string) (*Device, error) {
	query :=
		`SELECT id, user_id, device_id, device_name, last_sync_at FROM devices
		 WHERE id = $1 AND user_id = $2
		 `

	device := &Device{}
	err := r.db.QueryRowContext(ctx, query, id, userID).
		Scan(&device.ID, &device.UserID, &device.DeviceID, &device.DeviceName, &device.LastSyncAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return device, nil
}

func (r *PostgresRepository) TouchDevice(ctx context.Context, userID, id string, at time.Time) error {
	query :=
		`UPDATE devices SET last_sync_at = $3
		 WHERE id = $1 AND user_id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, id, userID, at)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}

func (r *PostgresRepository) ListDevices(ctx context.Context, userID string) ([]*Device, error) {
	query :=
		`SELECT id, user_id, device_id, device_name, last_sync_at FROM devices
		 WHERE user_id = $1
		 ORDER BY device_id
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var devices []*Device
	for rows.Next() {
		device := &Device{}
		if err := rows.Scan(&device.ID, &device.UserID, &device.DeviceID, &device.DeviceName, &device.LastSyncAt); err != nil {
			return nil, fmt.Errorf("error scanning device row: %w", err)
		}
		devices = append(devices, device)
	}

	return devices, rows.Err()
}
