package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tempus-hq/timetracker-engine/pkg/auth"
	"github.com/tempus-hq/timetracker-engine/pkg/authz"
	"github.com/tempus-hq/timetracker-engine/pkg/models"
	"github.com/tempus-hq/timetracker-engine/pkg/services"
)

// AddMemberRequest is the request body for adding an organization member.
type AddMemberRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

// MembersHandler handles organization-membership HTTP requests.
type MembersHandler struct {
	orgService services.OrganizationService
	authorizer *authz.Authorizer
	logger     *zap.Logger
}

// NewMembersHandler creates a new members handler.
func NewMembersHandler(orgService services.OrganizationService, authorizer *authz.Authorizer, logger *zap.Logger) *MembersHandler {
	return &MembersHandler{
		orgService: orgService,
		authorizer: authorizer,
		logger:     logger,
	}
}

// RegisterRoutes registers the members handler's routes on the given mux.
func (h *MembersHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/v1/organizations/{org_slug}/members", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST /api/v1/organizations/{org_slug}/members", authMiddleware.RequireAuth(h.Add))
	mux.HandleFunc("DELETE /api/v1/organizations/{org_slug}/members/{user_id}", authMiddleware.RequireAuth(h.Remove))
}

func (h *MembersHandler) getOrg(w http.ResponseWriter, r *http.Request) *models.Organization {
	org, err := h.orgService.GetBySlug(r.Context(), r.PathValue("org_slug"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return nil
	}
	return org
}

// List handles GET /api/v1/organizations/{org_slug}/members
// Visible to staff and to any member of the organization.
func (h *MembersHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	org := h.getOrg(w, r)
	if org == nil {
		return
	}

	d, err := h.authorizer.MemberListDecision(r.Context(), p, org)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	members, err := h.orgService.ListMembers(r.Context(), org.ID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, members); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Add handles POST /api/v1/organizations/{org_slug}/members
// Staff or the contact may add; adding an existing member is a no-op.
func (h *MembersHandler) Add(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	org := h.getOrg(w, r)
	if org == nil {
		return
	}

	if d := h.authorizer.MemberManageDecision(p, org); !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == uuid.Nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "user_id is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.orgService.AddMember(r.Context(), org.ID, req.UserID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	member, err := h.orgService.GetMember(r.Context(), org.ID, req.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, member); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Remove handles DELETE /api/v1/organizations/{org_slug}/members/{user_id}
// Removal cascades: the member's contributor rows across the organization's
// projects go in the same transaction.
func (h *MembersHandler) Remove(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	org := h.getOrg(w, r)
	if org == nil {
		return
	}

	if d := h.authorizer.MemberManageDecision(p, org); !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	userID, err := uuid.Parse(r.PathValue("user_id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_user_id", "Invalid user ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.orgService.RemoveMember(r.Context(), org.ID, userID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
