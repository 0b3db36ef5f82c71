package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tempus-hq/timetracker-engine/pkg/auth"
	"github.com/tempus-hq/timetracker-engine/pkg/authz"
	"github.com/tempus-hq/timetracker-engine/pkg/models"
	"github.com/tempus-hq/timetracker-engine/pkg/services"
)

// ActivityRequest is the request body for creating or updating an activity
// entry. ContributorID is only honored on create.
type ActivityRequest struct {
	ContributorID uuid.UUID  `json:"contributor_id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Start         *time.Time `json:"start,omitempty"`
	End           *time.Time `json:"end,omitempty"`
	Minutes       int        `json:"minutes"`
}

func (r ActivityRequest) toInput() services.ActivityInput {
	return services.ActivityInput{
		Name:        r.Name,
		Description: r.Description,
		Start:       r.Start,
		End:         r.End,
		Minutes:     r.Minutes,
	}
}

// ActivitiesHandler handles activity-entry HTTP requests. Principals with
// no contributor row on the project get 404s; the project's existence is
// not disclosed here.
type ActivitiesHandler struct {
	orgService      services.OrganizationService
	projectService  services.ProjectService
	activityService services.ActivityService
	authorizer      *authz.Authorizer
	logger          *zap.Logger
}

// NewActivitiesHandler creates a new activities handler.
func NewActivitiesHandler(
	orgService services.OrganizationService,
	projectService services.ProjectService,
	activityService services.ActivityService,
	authorizer *authz.Authorizer,
	logger *zap.Logger,
) *ActivitiesHandler {
	return &ActivitiesHandler{
		orgService:      orgService,
		projectService:  projectService,
		activityService: activityService,
		authorizer:      authorizer,
		logger:          logger,
	}
}

// RegisterRoutes registers the activities handler's routes on the given mux.
func (h *ActivitiesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	base := "/api/v1/organizations/{org_slug}/projects/{project_slug}/activity-entries"
	mux.HandleFunc("GET "+base, authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST "+base, authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET "+base+"/{activity_slug}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT "+base+"/{activity_slug}", authMiddleware.RequireAuth(h.Update))
	mux.HandleFunc("DELETE "+base+"/{activity_slug}", authMiddleware.RequireAuth(h.Delete))
}

func (h *ActivitiesHandler) getProject(w http.ResponseWriter, r *http.Request) *models.Project {
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
	return project
}

// List handles GET .../activity-entries
// Staff, admins, and viewers see every entry; an editor without the viewer
// bit sees only their own. Outsiders get 404.
func (h *ActivitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	project := h.getProject(w, r)
	if project == nil {
		return
	}

	scope, err := h.authorizer.ScopeActivities(r.Context(), p, project.ID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	entries, err := h.activityService.ListByProject(r.Context(), project.ID, scope)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, entries); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST .../activity-entries
// Only an activity_editor logging time as themself may create. Staff and
// plain project_admins are denied.
func (h *ActivitiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	project := h.getProject(w, r)
	if project == nil {
		return
	}

	var req ActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	d, err := h.authorizer.ActivityCreateDecision(r.Context(), p, project.ID, req.ContributorID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	entry, err := h.activityService.Create(r.Context(), project.ID, req.ContributorID, req.toInput())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, entry); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *ActivitiesHandler) getEntry(w http.ResponseWriter, r *http.Request, project *models.Project) *models.ActivityEntry {
	entry, err := h.activityService.GetBySlug(r.Context(), project.ID, r.PathValue("activity_slug"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return nil
	}
	return entry
}

// Get handles GET .../activity-entries/{activity_slug}
func (h *ActivitiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	project := h.getProject(w, r)
	if project == nil {
		return
	}
	entry := h.getEntry(w, r, project)
	if entry == nil {
		return
	}

	d, err := h.authorizer.ActivityDecision(r.Context(), p, r.Method, entry)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	if err := WriteJSON(w, http.StatusOK, entry); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT .../activity-entries/{activity_slug}
func (h *ActivitiesHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	project := h.getProject(w, r)
	if project == nil {
		return
	}
	entry := h.getEntry(w, r, project)
	if entry == nil {
		return
	}

	d, err := h.authorizer.ActivityDecision(r.Context(), p, r.Method, entry)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	var req ActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	updated, err := h.activityService.Update(r.Context(), entry, req.toInput())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, updated); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE .../activity-entries/{activity_slug}
func (h *ActivitiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, err := auth.RequirePrincipal(r.Context())
	if err != nil {
		writeDecision(w, h.logger, authz.Unauthenticated)
		return
	}

	project := h.getProject(w, r)
	if project == nil {
		return
	}
	entry := h.getEntry(w, r, project)
	if entry == nil {
		return
	}

	d, err := h.authorizer.ActivityDecision(r.Context(), p, r.Method, entry)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if !d.Allowed() {
		writeDecision(w, h.logger, d)
		return
	}

	if err := h.activityService.Delete(r.Context(), entry.ID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
