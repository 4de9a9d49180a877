package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"tribeboard/internal/apperr"
	"tribeboard/internal/models"
	"tribeboard/internal/service"
	"tribeboard/internal/validation"
)

// FamilyHandler handles family, membership and invitation requests
type FamilyHandler struct {
	familyService *service.FamilyService
	logger        *zap.Logger
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(familyService *service.FamilyService, logger *zap.Logger) *FamilyHandler {
	return &FamilyHandler{
		familyService: familyService,
		logger:        logger,
	}
}

type createFamilyRequest struct {
	Name string `json:"name"`
}

type joinFamilyRequest struct {
	Code string `json:"code"`
	Role string `json:"role"`
}

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type assignRoleRequest struct {
	Role string `json:"role"`
}

// optionalRole parses a role that may be left empty
func optionalRole(role string) (models.Role, error) {
	if role == "" {
		return "", nil
	}
	return validation.ValidateRole(role)
}

func (h *FamilyHandler) badRequest(w http.ResponseWriter) {
	respondWithMessage(w, http.StatusBadRequest, ErrInvalidRequestBody, apperr.UserIntervention)
}

// CreateFamily creates a family with the caller as parent admin
func (h *FamilyHandler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	var req createFamilyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badRequest(w)
		return
	}

	user := GetUserFromContext(r.Context())
	family, err := h.familyService.CreateFamily(r.Context(), req.Name, user.ID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, newFamilyView(family))
}

// ListFamilies lists the caller's families
func (h *FamilyHandler) ListFamilies(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	families, err := h.familyService.GetUserFamilies(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	views := make([]FamilyView, 0, len(families))
	for _, f := range families {
		views = append(views, newFamilyView(f))
	}
	respondWithJSON(w, http.StatusOK, views)
}

// GetFamily returns a family the caller belongs to
func (h *FamilyHandler) GetFamily(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("id")
	user := GetUserFromContext(r.Context())
	if _, err := h.familyService.VerifyFamilyAccess(r.Context(), user.ID, familyID); err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	family, err := h.familyService.GetFamily(r.Context(), familyID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newFamilyView(family))
}

// JoinFamily joins a family by its code
func (h *FamilyHandler) JoinFamily(w http.ResponseWriter, r *http.Request) {
	var req joinFamilyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badRequest(w)
		return
	}
	role, err := optionalRole(req.Role)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	user := GetUserFromContext(r.Context())
	family, membership, err := h.familyService.JoinFamilyByCode(r.Context(), user.ID, req.Code, role)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, JoinView{Family: newFamilyView(family), Membership: newMembershipView(membership)})
}

// LeaveFamily removes the caller from a family
func (h *FamilyHandler) LeaveFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if err := h.familyService.LeaveFamily(r.Context(), user.ID, r.PathValue("id")); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMembers lists the active members of a family the caller belongs to
func (h *FamilyHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("id")
	user := GetUserFromContext(r.Context())
	if _, err := h.familyService.VerifyFamilyAccess(r.Context(), user.ID, familyID); err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	members, err := h.familyService.GetFamilyMembers(r.Context(), familyID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newMemberViews(members))
}

// InviteMember emails an invitation into a family
func (h *FamilyHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badRequest(w)
		return
	}
	role, err := optionalRole(req.Role)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	user := GetUserFromContext(r.Context())
	inv, err := h.familyService.InviteMember(r.Context(), user.ID, r.PathValue("id"), req.Email, role)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, newInvitationView(inv))
}

// AcceptInvitation joins the family of an invitation
func (h *FamilyHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	family, membership, err := h.familyService.AcceptInvitation(r.Context(), user.ID, r.PathValue("token"))
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, JoinView{Family: newFamilyView(family), Membership: newMembershipView(membership)})
}

// AssignRole changes a member's role
func (h *FamilyHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badRequest(w)
		return
	}
	role, err := validation.ValidateRole(req.Role)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	user := GetUserFromContext(r.Context())
	membership, err := h.familyService.AssignRole(r.Context(), user.ID, r.PathValue("id"), role)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newMembershipView(membership))
}

// RemoveMember removes a member from their family
func (h *FamilyHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if err := h.familyService.RemoveMember(r.Context(), user.ID, r.PathValue("id")); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
