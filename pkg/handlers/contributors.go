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

// ContributorRequest is the request body for provisioning or updating a
// contributor.
type ContributorRequest struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	ProjectAdmin   bool   `json:"project_admin"`
	ActivityViewer bool   `json:"activity_viewer"`
	ActivityEditor bool   `json:"activity_editor"`
}

func (r ContributorRequest) toInput() services.ProvisionInput {
	return services.ProvisionInput{
		Email:          r.Email,
		Name:           r.Name,
		ProjectAdmin:   r.ProjectAdmin,
		ActivityViewer: r.ActivityViewer,
		ActivityEditor: r.ActivityEditor,
	}
}

// ContributorsHandler handles project-contributor HTTP requests.
// These endpoints hide project existence: any principal who is not staff
// and not a project_admin of the project gets 404s throughout.
type ContributorsHandler struct {
	orgService         services.OrganizationService
	projectService     services.ProjectService
	contributorService services.ContributorService
	authorizer         *authz.Authorizer
	logger             *zap.Logger
}

// NewContributorsHandler creates a new contributors handler.
func NewContributorsHandler(
	orgService services.OrganizationService,
	projectService services.ProjectService,
	contributorService services.ContributorService,
	authorizer *authz.Authorizer,
	logger *zap.Logger,
) *ContributorsHandler {
	return &ContributorsHandler{
		orgService:         orgService,
		projectService:     projectService,
		contributorService: contributorService,
		authorizer:         authorizer,
		logger:             logger,
	}
}

// RegisterRoutes registers the contributors handler's routes on the given mux.
func (h *ContributorsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	base := "/api/v1/organizations/{org_slug}/projects/{project_slug}/contributors"
	mux.HandleFunc("GET "+base, authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST "+base, authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET "+base+"/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT "+base+"/{id}", authMiddleware.RequireAuth(h.Update))
	mux.HandleFunc("DELETE "+base+"/{id}", authMiddleware.RequireAuth(h.Delete))
}

type projectContext struct {
	org     *models.Organization
	project *models.Project
}

func (h *ContributorsHandler) getProjectContext(w http.ResponseWriter, r *http.Request) *projectContext {
	org, err := h.orgService.GetBySlug(r.Context(), r.PathValue("org_slug"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return nil
	}
	project, err := h.projectService.GetBySlug(r.Context(), org.ID, r.PathValue("project_slug"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return nil
	}
	return &projectContext{org: org, project: project}
}

// List handles GET .../contributors
func (h *ContributorsHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	pc := h.getProjectContext(w, r)
	if pc == nil {
		return
	}

	d, err := h.authorizer.ContributorAccess(r.Context(), p, pc.project.ID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	contributors, err := h.contributorService.ListByProject(r.Context(), pc.project.ID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, contributors); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST .../contributors
// Provisions the contributor by email; a brand-new address gets an inactive
// account and a queued activation invitation.
func (h *ContributorsHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	pc := h.getProjectContext(w, r)
	if pc == nil {
		return
	}

	d, err := h.authorizer.ContributorAccess(r.Context(), p, pc.project.ID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	var req ContributorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	contributor, err := h.contributorService.Provision(r.Context(), pc.org.ID, pc.project.ID, req.toInput())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, contributor); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// getContributor loads the contributor row scoped to the project; a row
// from another project is indistinguishable from a missing one.
func (h *ContributorsHandler) getContributor(w http.ResponseWriter, r *http.Request, pc *projectContext) *models.ProjectContributor {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Resource not found"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return nil
	}

	contributor, err := h.contributorService.GetByProjectAndID(r.Context(), pc.project.ID, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return nil
	}
	return contributor
}

// Get handles GET .../contributors/{id}
// A contributor may read their own row; everything else needs admin.
func (h *ContributorsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	pc := h.getProjectContext(w, r)
	if pc == nil {
		return
	}
	contributor := h.getContributor(w, r, pc)
	if contributor == nil {
		return
	}

	d, err := h.authorizer.ContributorDecision(r.Context(), p, r.Method, contributor)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	if err := WriteJSON(w, http.StatusOK, contributor); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT .../contributors/{id}
// Role changes come from staff or admins only, never the contributor themself.
func (h *ContributorsHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	pc := h.getProjectContext(w, r)
	if pc == nil {
		return
	}
	contributor := h.getContributor(w, r, pc)
	if contributor == nil {
		return
	}

	d, err := h.authorizer.ContributorDecision(r.Context(), p, r.Method, contributor)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	var req ContributorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	updated, err := h.contributorService.Update(r.Context(), pc.org.ID, contributor, req.toInput())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, updated); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE .../contributors/{id}
func (h *ContributorsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	pc := h.getProjectContext(w, r)
	if pc == nil {
		return
	}
	contributor := h.getContributor(w, r, pc)
	if contributor == nil {
		return
	}

	d, err := h.authorizer.ContributorDecision(r.Context(), p, r.Method, contributor)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	if err := h.contributorService.Delete(r.Context(), contributor.ID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
