// Package common defines shared constants and sentinel errors used across
// client and server layers of NoteSync. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("invalid credentials")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation error")

	// Token lifecycle errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// Orchestrator errors.
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrAuthExpired    = errors.New("authentication expired")
	ErrNotConnected   = errors.New("not authenticated")

	// Transport errors (transient, safe to retry on a later cycle).
	ErrNetwork = errors.New("network or timeout error")
)
