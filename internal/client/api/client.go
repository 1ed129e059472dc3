// Package api is the HTTP client for the sync server. It speaks the wire
// DTOs from pkg/api and folds gateway status codes into the sentinel errors
// from internal/common so callers never branch on HTTP details.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/akarpenko/notesync/internal/common"
	"github.com/akarpenko/notesync/pkg/api"
)

// Client is the HTTP client for the sync server gateway.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// serverError carries a non-2xx gateway answer through doRequest so each
// method can map it to the right sentinel.
type serverError struct {
	Status  int
	Message string
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

// Register creates an account and returns the first token pair.
func (c *Client) Register(ctx context.Context, email, password, deviceID, deviceName string) (*api.AuthResponse, error) {
	req := api.RegisterRequest{Email: email, Password: password, DeviceID: deviceID, DeviceName: deviceName}

	var resp api.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/register", req, &resp); err != nil {
		var se *serverError
		if errors.As(err, &se) {
			switch se.Status {
			case http.StatusConflict:
				return nil, common.ErrConflict
			case http.StatusBadRequest:
				return nil, fmt.Errorf("%w: %s", common.ErrValidation, se.Message)
			}
		}
		return nil, err
	}
	return &resp, nil
}

// Login authenticates an existing account from this device.
func (c *Client) Login(ctx context.Context, email, password, deviceID, deviceName string) (*api.AuthResponse, error) {
	req := api.LoginRequest{Email: email, Password: password, DeviceID: deviceID, DeviceName: deviceName}

	var resp api.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", req, &resp); err != nil {
		var se *serverError
		if errors.As(err, &se) {
			switch se.Status {
			case http.StatusUnauthorized:
				return nil, common.ErrUnauthorized
			case http.StatusBadRequest:
				return nil, fmt.Errorf("%w: %s", common.ErrValidation, se.Message)
			}
		}
		return nil, err
	}
	return &resp, nil
}

// Refresh exchanges a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	req := api.RefreshRequest{RefreshToken: refreshToken}

	var resp api.RefreshResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/refresh", req, &resp); err != nil {
		var se *serverError
		if errors.As(err, &se) && se.Status == http.StatusForbidden {
			return "", common.ErrInvalidRefreshToken
		}
		return "", err
	}
	return resp.AccessToken, nil
}

// Logout revokes the refresh token on the server.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	req := api.LogoutRequest{RefreshToken: refreshToken}
	return c.doRequest(ctx, http.MethodPost, "/api/v1/auth/logout", req, nil)
}

// Sync runs one synchronization cycle. An expired access token comes back
// as common.ErrTokenExpired so the orchestrator can attempt its single
// transparent refresh; any other auth failure is common.ErrUnauthorized.
func (c *Client) Sync(ctx context.Context, accessToken string) (*api.SyncResponse, error) {
	var resp api.SyncResponse
	if err := c.doAuthorizedRequest(ctx, http.MethodPost, "/api/v1/sync", accessToken, nil, &resp); err != nil {
		var se *serverError
		if errors.As(err, &se) {
			switch {
			case se.Status == http.StatusUnauthorized && se.Message == api.MsgTokenExpired:
				return nil, common.ErrTokenExpired
			case se.Status == http.StatusUnauthorized, se.Status == http.StatusForbidden:
				return nil, common.ErrUnauthorized
			}
		}
		return nil, err
	}
	return &resp, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	return c.doAuthorizedRequest(ctx, method, path, "", body, result)
}

func (c *Client) doAuthorizedRequest(ctx context.Context, method, path, token string, body, result any) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &serverError{Status: resp.StatusCode}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			se.Message = errResp.Error
		} else {
			se.Message = string(respBody)
		}
		return se
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
