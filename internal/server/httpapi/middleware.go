package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/akarpenko/notesync/internal/common"
	"github.com/akarpenko/notesync/internal/logging"
	"github.com/akarpenko/notesync/internal/server/auth"
	"github.com/akarpenko/notesync/internal/server/tokens"
	"github.com/akarpenko/notesync/pkg/api"
)

type ctxKey int

const claimsKey ctxKey = iota

// ClaimsFromContext returns the access-token claims stored by authMiddleware.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

// authMiddleware requires a valid Bearer access token and puts its claims
// into the request context. An expired token gets a distinct message so
// clients know a refresh is worth trying.
func authMiddleware(logger logging.Logger, service *tokens.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				sendError(w, "missing token", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				sendError(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := service.VerifyAccessToken(parts[1])
			if err != nil {
				if errors.Is(err, common.ErrTokenExpired) {
					sendError(w, api.MsgTokenExpired, http.StatusUnauthorized)
					return
				}
				logger.Warn(ctx, "invalid access token")
				sendError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, claimsKey, claims)))
		})
	}
}

// statusRecorder captures the response code for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogger logs one line per request. Bodies are never logged; auth
// requests carry passwords and refresh tokens.
func requestLogger(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start).String(),
			)
		})
	}
}
