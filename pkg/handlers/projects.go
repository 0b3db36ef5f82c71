package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/tempus-hq/timetracker-engine/pkg/auth"
	"github.com/tempus-hq/timetracker-engine/pkg/authz"
	"github.com/tempus-hq/timetracker-engine/pkg/models"
	"github.com/tempus-hq/timetracker-engine/pkg/services"
)

// ProjectRequest is the request body for creating or updating a project.
type ProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ProjectsHandler handles project HTTP requests.
type ProjectsHandler struct {
	orgService     services.OrganizationService
	projectService services.ProjectService
	authorizer     *authz.Authorizer
	logger         *zap.Logger
}

// NewProjectsHandler creates a new projects handler.
func NewProjectsHandler(
	orgService services.OrganizationService,
	projectService services.ProjectService,
	authorizer *authz.Authorizer,
	logger *zap.Logger,
) *ProjectsHandler {
	return &ProjectsHandler{
		orgService:     orgService,
		projectService: projectService,
		authorizer:     authorizer,
		logger:         logger,
	}
}

// RegisterRoutes registers the projects handler's routes on the given mux.
func (h *ProjectsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/v1/projects", authMiddleware.RequireAuth(h.ListAll))
	mux.HandleFunc("GET /api/v1/organizations/{org_slug}/projects", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST /api/v1/organizations/{org_slug}/projects", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /api/v1/organizations/{org_slug}/projects/{project_slug}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT /api/v1/organizations/{org_slug}/projects/{project_slug}", authMiddleware.RequireAuth(h.Update))
	mux.HandleFunc("DELETE /api/v1/organizations/{org_slug}/projects/{project_slug}", authMiddleware.RequireAuth(h.Delete))
}

func (h *ProjectsHandler) getOrg(w http.ResponseWriter, r *http.Request) *models.Organization {
	org, err := h.orgService.GetBySlug(r.Context(), r.PathValue("org_slug"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return nil
	}
	return org
}

// getProject loads the project from the path, writing 404 when the
// organization or project is absent.
func (h *ProjectsHandler) getProject(w http.ResponseWriter, r *http.Request) *models.Project {
	org := h.getOrg(w, r)
	if org == nil {
		return nil
	}
	project, err := h.projectService.GetBySlug(r.Context(), org.ID, r.PathValue("project_slug"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return nil
	}
	return project
}

// ListAll handles GET /api/v1/projects
// Staff see every project; everyone else sees the projects they hold any
// role bit on. Non-contributors get an empty list, never a 403.
func (h *ProjectsHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	if d := h.authorizer.CanListProjects(p); !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	projects, err := h.projectService.List(r.Context(), h.authorizer.ScopeProjects(p))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, projects); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/v1/organizations/{org_slug}/projects
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	org := h.getOrg(w, r)
	if org == nil {
		return
	}

	if d := h.authorizer.CanListProjects(p); !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	projects, err := h.projectService.ListByOrganization(r.Context(), org.ID, h.authorizer.ScopeProjects(p))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, projects); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/v1/organizations/{org_slug}/projects
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	org := h.getOrg(w, r)
	if org == nil {
		return
	}

	if d := h.authorizer.CanCreateProject(p, org); !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	project, err := h.projectService.Create(r.Context(), org, p.ID, req.Name, req.Description)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, project); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/v1/organizations/{org_slug}/projects/{project_slug}
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	project := h.getProject(w, r)
	if project == nil {
		return
	}

	d, err := h.authorizer.ProjectDecision(r.Context(), p, r.Method, project)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	if err := WriteJSON(w, http.StatusOK, project); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/v1/organizations/{org_slug}/projects/{project_slug}
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	project := h.getProject(w, r)
	if project == nil {
		return
	}

	d, err := h.authorizer.ProjectDecision(r.Context(), p, r.Method, project)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	updated, err := h.projectService.Update(r.Context(), project, req.Name, req.Description)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, updated); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/v1/organizations/{org_slug}/projects/{project_slug}
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	project := h.getProject(w, r)
	if project == nil {
		return
	}

	d, err := h.authorizer.ProjectDecision(r.Context(), p, r.Method, project)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	if err := h.projectService.Delete(r.Context(), project.ID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
