package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"tribeboard/internal/apperr"
	"tribeboard/internal/service"
)

// AuthHandler handles sign-in, sign-out and profile requests
type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

type appleSignInRequest struct {
	IdentityToken     string `json:"identity_token"`
	AuthorizationCode string `json:"authorization_code"`
	DisplayName       string `json:"display_name"`
}

type updateProfileRequest struct {
	DisplayName string  `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}

// SignInWithApple exchanges an Apple credential for a session token
func (h *AuthHandler) SignInWithApple(w http.ResponseWriter, r *http.Request) {
	var req appleSignInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithMessage(w, http.StatusBadRequest, ErrInvalidRequestBody, apperr.UserIntervention)
		return
	}

	session, profile, err := h.authService.SignInWithApple(r.Context(), service.AppleSignIn{
		IdentityToken:     req.IdentityToken,
		AuthorizationCode: req.AuthorizationCode,
		DisplayName:       req.DisplayName,
	})
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SessionView{
		Token:     session.ID,
		ExpiresAt: session.ExpiresAt,
		Profile:   newProfileView(profile),
	})
}

// Logout ends the current session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), sessionFromContext(r.Context())); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMe returns the signed-in profile
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	respondWithJSON(w, http.StatusOK, newProfileView(user))
}

// UpdateMe changes the signed-in profile
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithMessage(w, http.StatusBadRequest, ErrInvalidRequestBody, apperr.UserIntervention)
		return
	}

	user := GetUserFromContext(r.Context())
	profile, err := h.authService.UpdateProfile(r.Context(), user.ID, req.DisplayName, req.AvatarURL)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newProfileView(profile))
}
