package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// Handlers bundles everything the router serves
type Handlers struct {
	Middleware *Middleware
	Auth       *AuthHandler
	Families   *FamilyHandler
	Sync       *SyncHandler
	Health     *HealthHandler
}

// NewRouter registers the API routes and wraps them with request logging
func NewRouter(h Handlers, logger *zap.Logger) http.Handler {
	mw := h.Middleware
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Health.Healthz)

	// Auth
	mux.HandleFunc("POST /api/auth/apple", mw.RateLimit(h.Auth.SignInWithApple))
	mux.HandleFunc("POST /api/auth/logout", mw.RequireAuth(h.Auth.Logout))
	mux.HandleFunc("GET /api/me", mw.RequireAuth(h.Auth.GetMe))
	mux.HandleFunc("PUT /api/me", mw.RequireAuth(h.Auth.UpdateMe))

	// Families
	mux.HandleFunc("POST /api/families", mw.RequireAuth(h.Families.CreateFamily))
	mux.HandleFunc("GET /api/families", mw.RequireAuth(h.Families.ListFamilies))
	mux.HandleFunc("POST /api/families/join", mw.RequireAuth(mw.RateLimit(h.Families.JoinFamily)))
	mux.HandleFunc("GET /api/families/{id}", mw.RequireAuth(h.Families.GetFamily))
	mux.HandleFunc("POST /api/families/{id}/leave", mw.RequireAuth(h.Families.LeaveFamily))
	mux.HandleFunc("GET /api/families/{id}/members", mw.RequireAuth(h.Families.ListMembers))
	mux.HandleFunc("POST /api/families/{id}/invitations", mw.RequireAuth(h.Families.InviteMember))
	mux.HandleFunc("POST /api/invitations/{token}/accept", mw.RequireAuth(mw.RateLimit(h.Families.AcceptInvitation)))
	mux.HandleFunc("PUT /api/memberships/{id}/role", mw.RequireAuth(h.Families.AssignRole))
	mux.HandleFunc("DELETE /api/memberships/{id}", mw.RequireAuth(h.Families.RemoveMember))

	// Sync
	mux.HandleFunc("POST /api/sync", mw.RequireAuth(h.Sync.SyncNow))
	mux.HandleFunc("GET /api/sync/status", mw.RequireAuth(h.Sync.Status))

	return Logging(logger, mux)
}
