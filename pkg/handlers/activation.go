package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/tempus-hq/timetracker-engine/pkg/auth"
	"github.com/tempus-hq/timetracker-engine/pkg/services"
)

// ActivationHandler serves the account-activation landing endpoint.
// It is unauthenticated: the invited user has no credentials yet, the
// token from the invitation mail is the credential.
type ActivationHandler struct {
	activationService services.ActivationService
	logger            *zap.Logger
}

// NewActivationHandler creates a new activation handler.
func NewActivationHandler(activationService services.ActivationService, logger *zap.Logger) *ActivationHandler {
	return &ActivationHandler{
		activationService: activationService,
		logger:            logger,
	}
}

// RegisterRoutes registers the activation handler's routes on the given mux.
func (h *ActivationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /account-activation/{token}", h.Activate)
}

// Activate handles GET /account-activation/{token}
// Marks the user active and drops a short-lived session the client's
// login flow can pick the activated identity up from.
func (h *ActivationHandler) Activate(w http.ResponseWriter, r *http.Request) {
	user, err := h.activationService.ActivateByToken(r.Context(), r.PathValue("token"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if auth.Store != nil {
		session, err := auth.GetSession(r)
		if err == nil {
			session.Values[auth.SessionKeyActivatedUser] = user.ID.String()
			session.Values[auth.SessionKeyActivatedEmail] = user.Email
			if err := auth.SaveSession(r, w, session); err != nil {
				h.logger.Warn("Failed to save activation session", zap.Error(err))
			}
		}
	}

	if err := WriteJSON(w, http.StatusOK, map[string]string{
		"status": "activated",
		"email":  user.Email,
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
