package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"tribeboard/internal/apperr"
	"tribeboard/internal/models"
	"tribeboard/internal/security"
	"tribeboard/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey    ContextKey = "user"
	SessionContextKey ContextKey = "session"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	limiter     *security.RateLimiter
	logger      *zap.Logger
}

// NewMiddleware creates a new middleware instance. limiter may be nil.
func NewMiddleware(authService *service.AuthService, limiter *security.RateLimiter, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		limiter:     limiter,
		logger:      logger,
	}
}

// RequireAuth is middleware that requires a valid bearer session
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := security.BearerToken(r)
		if !ok {
			respondWithMessage(w, http.StatusUnauthorized, ErrUnauthorized, apperr.UserIntervention)
			return
		}

		user, err := m.authService.ValidateSession(r.Context(), token)
		if err != nil {
			respondWithError(w, m.logger, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		ctx = context.WithValue(ctx, SessionContextKey, token)
		next(w, r.WithContext(ctx))
	}
}

// RateLimit rejects clients that exceed the limiter's budget
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter != nil && !m.limiter.Allow(security.GetClientIP(r)) {
			m.logger.Warn("rate limit exceeded", zap.String("client_ip", security.GetClientIP(r)), zap.String("path", r.URL.Path))
			respondWithMessage(w, http.StatusTooManyRequests, ErrTooManyRequests, apperr.AutomaticRetry)
			return
		}
		next(w, r)
	}
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging middleware logs HTTP requests
func Logging(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)))
	})
}

// GetUserFromContext retrieves the signed-in profile from the request context
func GetUserFromContext(ctx context.Context) *models.UserProfile {
	user, ok := ctx.Value(UserContextKey).(*models.UserProfile)
	if !ok {
		return nil
	}
	return user
}

func sessionFromContext(ctx context.Context) string {
	token, _ := ctx.Value(SessionContextKey).(string)
	return token
}
