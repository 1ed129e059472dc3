package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/akarpenko/notesync/internal/common"
	"github.com/akarpenko/notesync/internal/logging"
	"github.com/akarpenko/notesync/internal/server/tokens"
	"github.com/akarpenko/notesync/pkg/api"
)

const minPasswordLength = 8

// AuthHandler serves the register/login/refresh/logout/sync endpoints.
type AuthHandler struct {
	logger  logging.Logger
	service *tokens.Service
}

func NewAuthHandler(logger logging.Logger, service *tokens.Service) *AuthHandler {
	return &AuthHandler{logger: logger, service: service}
}

// validateCredentials checks request shape for register and login.
func validateCredentials(email, password, deviceID string) []string {
	var details []string

	if _, err := mail.ParseAddress(email); err != nil {
		details = append(details, "email must be a valid address")
	}
	if len(password) < minPasswordLength {
		details = append(details, "password must be at least 8 characters")
	}
	if deviceID == "" {
		details = append(details, "device_id is required")
	}

	return details
}

func authResponse(result *tokens.AuthResult) api.AuthResponse {
	return api.AuthResponse{
		User: api.User{
			ID:        result.User.ID,
			Email:     result.User.Email,
			CreatedAt: result.User.CreatedAt,
		},
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if details := validateCredentials(req.Email, req.Password, req.DeviceID); len(details) > 0 {
		sendValidationError(w, details)
		return
	}

	result, err := h.service.Register(ctx, req.Email, req.Password, req.DeviceID, req.DeviceName)
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			h.logger.Warn(ctx, "registration conflict", "email", req.Email)
			sendError(w, "email already registered", http.StatusConflict)
			return
		}
		h.logger.Error(ctx, "registration failed", "error", err.Error())
		sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info(ctx, "user registered", "user_id", result.User.ID, "device", req.DeviceID)
	sendJSON(w, authResponse(result), http.StatusCreated)
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if details := validateCredentials(req.Email, req.Password, req.DeviceID); len(details) > 0 {
		sendValidationError(w, details)
		return
	}

	result, err := h.service.Login(ctx, req.Email, req.Password, req.DeviceID, req.DeviceName)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			// Same answer for unknown email and wrong password.
			sendError(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		h.logger.Error(ctx, "login failed", "error", err.Error())
		sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info(ctx, "user logged in", "user_id", result.User.ID, "device", req.DeviceID)
	sendJSON(w, authResponse(result), http.StatusOK)
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	accessToken, err := h.service.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrInvalidRefreshToken) {
			sendError(w, "invalid refresh token", http.StatusForbidden)
			return
		}
		h.logger.Error(ctx, "refresh failed", "error", err.Error())
		sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(w, api.RefreshResponse{AccessToken: accessToken}, http.StatusOK)
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.Logout(ctx, req.RefreshToken); err != nil {
		h.logger.Error(ctx, "logout failed", "error", err.Error())
		sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(w, api.LogoutResponse{Message: "logged out"}, http.StatusOK)
}

// Sync handles POST /api/v1/sync. The heavy lifting of note payloads lives
// in the storage layer; here the cycle is accepted, the device binding is
// re-checked against the store, and last_sync_at is bumped.
func (h *AuthHandler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		sendError(w, "missing token", http.StatusUnauthorized)
		return
	}

	if err := h.service.TouchDevice(ctx, claims.UserID, claims.DeviceID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			h.logger.Warn(ctx, "sync from unregistered device", "user_id", claims.UserID)
			sendError(w, "device no longer registered", http.StatusForbidden)
			return
		}
		h.logger.Error(ctx, "sync failed", "error", err.Error())
		sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(w, api.SyncResponse{ServerTime: time.Now().UTC()}, http.StatusOK)
}

// Health handles GET /api/v1/health.
func (h *AuthHandler) Health(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func sendJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, message string, statusCode int) {
	sendJSON(w, api.ErrorResponse{Error: message}, statusCode)
}

func sendValidationError(w http.ResponseWriter, details []string) {
	sendJSON(w, api.ErrorResponse{Error: "validation error", Details: details}, http.StatusBadRequest)
}
