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

// OrganizationRequest is the request body for creating or updating an
// organization.
type OrganizationRequest struct {
	Name      string     `json:"name"`
	ContactID *uuid.UUID `json:"contact_id,omitempty"`
}

// OrganizationsHandler handles organization HTTP requests.
type OrganizationsHandler struct {
	orgService services.OrganizationService
	authorizer *authz.Authorizer
	logger     *zap.Logger
}

// NewOrganizationsHandler creates a new organizations handler.
func NewOrganizationsHandler(orgService services.OrganizationService, authorizer *authz.Authorizer, logger *zap.Logger) *OrganizationsHandler {
	return &OrganizationsHandler{
		orgService: orgService,
		authorizer: authorizer,
		logger:     logger,
	}
}

// RegisterRoutes registers the organizations handler's routes on the given mux.
func (h *OrganizationsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/v1/organizations", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST /api/v1/organizations", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /api/v1/organizations/{org_slug}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT /api/v1/organizations/{org_slug}", authMiddleware.RequireAuth(h.Update))
	mux.HandleFunc("DELETE /api/v1/organizations/{org_slug}", authMiddleware.RequireAuth(h.Delete))
}

// getOrg loads the organization from the path slug, writing 404 when absent.
// Returns nil after writing the response.
func (h *OrganizationsHandler) getOrg(w http.ResponseWriter, r *http.Request) *models.Organization {
	org, err := h.orgService.GetBySlug(r.Context(), r.PathValue("org_slug"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return nil
	}
	return org
}

// List handles GET /api/v1/organizations
// Never denies: non-staff principals get only the organizations they are
// contact of, which may be an empty list.
func (h *OrganizationsHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	if d := h.authorizer.CanListOrganizations(p); !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	orgs, err := h.orgService.List(r.Context(), h.authorizer.ScopeOrganizations(p))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, orgs); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/v1/organizations
func (h *OrganizationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	if d := h.authorizer.CanCreateOrganization(p); !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	var req OrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	org, err := h.orgService.Create(r.Context(), req.Name, req.ContactID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, org); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/v1/organizations/{org_slug}
func (h *OrganizationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	org := h.getOrg(w, r)
	if org == nil {
		return
	}

	if d := h.authorizer.OrganizationDecision(p, r.Method, org); !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	if err := WriteJSON(w, http.StatusOK, org); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/v1/organizations/{org_slug}
func (h *OrganizationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	org := h.getOrg(w, r)
	if org == nil {
		return
	}

	if d := h.authorizer.OrganizationDecision(p, r.Method, org); !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	var req OrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	updated, err := h.orgService.Update(r.Context(), org, req.Name, req.ContactID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, updated); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/v1/organizations/{org_slug}
// Staff only; the contact's delete attempt is a 403, not a 404, since the
// contact already knows the organization exists.
func (h *OrganizationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	org := h.getOrg(w, r)
	if org == nil {
		return
	}

	if d := h.authorizer.OrganizationDecision(p, r.Method, org); !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	if err := h.orgService.Delete(r.Context(), org.ID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
