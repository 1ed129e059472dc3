// Package tokens implements the device-scoped token service: every
// access/refresh pair is bound to one device of one user, so devices hold
// independent, individually revocable sessions.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/akarpenko/notesync/internal/common"
	"github.com/akarpenko/notesync/internal/cryptox"
	"github.com/akarpenko/notesync/internal/server/auth"
	"github.com/akarpenko/notesync/internal/server/config"
	"github.com/akarpenko/notesync/internal/server/refreshtokens"
	"github.com/akarpenko/notesync/internal/server/shared/db"
	"github.com/akarpenko/notesync/internal/server/users"
)

// AuthResult is what register and login hand back to the gateway.
type AuthResult struct {
	User         *users.User
	Device       *users.Device
	AccessToken  string
	RefreshToken string
}

type Service struct {
	repos                        db.RepositoryManager
	accessSecret                 []byte
	refreshSecret                []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

func NewService(repos db.RepositoryManager, cfg *config.Config) *Service {
	return &Service{
		repos:                        repos,
		accessSecret:                 []byte(cfg.AccessTokenSecret),
		refreshSecret:                []byte(cfg.RefreshTokenSecret),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Register creates the user, its first device, and a refresh-token row in
// one transaction; a failure at any step leaves no orphaned rows.
// Returns common.ErrConflict if the email is already taken.
func (s *Service) Register(ctx context.Context, email, password, deviceID, deviceName string) (*AuthResult, error) {
	// bcrypt is slow on purpose; keep it outside the transaction.
	passwordHash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, common.ErrInternal
	}

	var result *AuthResult

	err = s.repos.InTx(ctx, func(m db.RepositoryManager) error {
		user, err := m.Users().Create(ctx, &users.User{
			ID:           uuid.NewString(),
			Email:        email,
			PasswordHash: passwordHash,
		})
		if err != nil {
			return err
		}

		result, err = s.issueTokens(ctx, m, user, deviceID, deviceName)
		return err
	})

	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.ErrConflict
		}
		return nil, common.ErrInternal
	}

	return result, nil
}

// Login authenticates the account and issues a fresh token pair for the
// calling device, upserting its row. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password, deviceID, deviceName string) (*AuthResult, error) {
	user, err := s.repos.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, common.ErrInternal
	}

	if !cryptox.CheckPassword(user.PasswordHash, password) {
		return nil, common.ErrUnauthorized
	}

	var result *AuthResult

	err = s.repos.InTx(ctx, func(m db.RepositoryManager) error {
		result, err = s.issueTokens(ctx, m, user, deviceID, deviceName)
		return err
	})

	if err != nil {
		return nil, common.ErrInternal
	}

	return result, nil
}

// issueTokens upserts the device row and mints a bound token pair,
// persisting the refresh token. Runs on the manager m so callers can place
// it inside a transaction.
func (s *Service) issueTokens(ctx context.Context, m db.RepositoryManager, user *users.User, deviceID, deviceName string) (*AuthResult, error) {
	device, err := m.Users().UpsertDevice(ctx, &users.Device{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		DeviceID:   deviceID,
		DeviceName: deviceName,
	})
	if err != nil {
		return nil, fmt.Errorf("device upsert: %w", err)
	}

	accessToken, err := auth.GenerateToken(user.ID, device.ID, s.accessSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}

	refreshToken, err := auth.GenerateToken(user.ID, device.ID, s.refreshSecret, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	err = m.RefreshTokens().Create(ctx, &refreshtokens.RefreshToken{
		Token:     refreshToken,
		UserID:    user.ID,
		DeviceID:  device.ID,
		ExpiresAt: time.Now().Add(s.refreshTokenValidityDuration),
	})
	if err != nil {
		return nil, fmt.Errorf("refresh token store: %w", err)
	}

	return &AuthResult{
		User:         user,
		Device:       device,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh exchanges a live refresh token for a new access token. The token
// must pass signature and expiry checks AND still have a row in the store:
// a structurally valid but revoked token is rejected. The refresh token is
// not rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := auth.ParseToken(refreshToken, s.refreshSecret)
	if err != nil {
		return "", common.ErrInvalidRefreshToken
	}

	stored, err := s.repos.RefreshTokens().Get(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrInvalidRefreshToken
		}
		return "", common.ErrInternal
	}

	if !stored.ExpiresAt.After(time.Now()) {
		return "", common.ErrInvalidRefreshToken
	}
	if stored.UserID != claims.UserID || stored.DeviceID != claims.DeviceID {
		return "", common.ErrInvalidRefreshToken
	}

	// The device row must still belong to the user; a deleted device kills
	// refresh even while the token itself is alive.
	if _, err := s.repos.Users().GetDevice(ctx, claims.UserID, claims.DeviceID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrInvalidRefreshToken
		}
		return "", common.ErrInternal
	}

	accessToken, err := auth.GenerateToken(claims.UserID, claims.DeviceID, s.accessSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", common.ErrInternal
	}

	return accessToken, nil
}

// Logout revokes one refresh token by deleting its row. Idempotent:
// unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if err := s.repos.RefreshTokens().Delete(ctx, refreshToken); err != nil {
		return common.ErrInternal
	}
	return nil
}

// VerifyAccessToken checks signature and expiry of an access token and
// returns its claims. No store lookup: access tokens are stateless.
func (s *Service) VerifyAccessToken(tokenString string) (*auth.Claims, error) {
	return auth.ParseToken(tokenString, s.accessSecret)
}

// TouchDevice records a completed sync cycle for the device, verifying the
// row still belongs to the user. Returns common.ErrNotFound for a deleted
// or re-owned device.
func (s *Service) TouchDevice(ctx context.Context, userID, deviceID string) error {
	err := s.repos.Users().TouchDevice(ctx, userID, deviceID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return common.ErrInternal
	}
	return nil
}

// SweepExpired drops expired refresh-token rows. Housekeeping; correctness
// does not depend on it.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	return s.repos.RefreshTokens().DeleteExpired(ctx, time.Now())
}
