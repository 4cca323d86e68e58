package handler

import (
	"log/slog"
	"net/http"

	"folio/internal/config"
	publishSvc "folio/internal/domain/services/publish"
	"folio/internal/httputil"
)

// PublishHandler handles publish, revert and build status requests
type PublishHandler struct {
	publishService publishSvc.PublishService
	logger         *slog.Logger
}

// NewPublishHandler creates a new publish handler
func NewPublishHandler(publishService publishSvc.PublishService, logger *slog.Logger) *PublishHandler {
	return &PublishHandler{
		publishService: publishService,
		logger:         logger,
	}
}

// Publish queues a build of the site's current selection
// POST /api/projects/{id}/publish
// Returns 202 with the queued build, 409 while another build is active
func (h *PublishHandler) Publish(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	build, err := h.publishService.Publish(r.Context(), httputil.GetUserID(r), projectID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusAccepted, build)
}

// Revert queues a build that re-points the site at a prior publish
// POST /api/projects/{id}/revert
func (h *PublishHandler) Revert(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	var req publishSvc.RevertRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	build, err := h.publishService.Revert(r.Context(), httputil.GetUserID(r), projectID, req.TargetBuildID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusAccepted, build)
}

// ListBuilds lists the site's builds, newest first
// GET /api/projects/{id}/builds?limit=
func (h *PublishHandler) ListBuilds(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	limit, err := QueryInt(r, "limit", config.DefaultBuildListLimit)
	if err != nil {
		handleError(w, err)
		return
	}

	builds, err := h.publishService.ListBuilds(r.Context(), httputil.GetUserID(r), projectID, limit)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, builds)
}

// GetBuild returns one build with its progress counters
// GET /api/builds/{id}
func (h *PublishHandler) GetBuild(w http.ResponseWriter, r *http.Request) {
	buildID, ok := PathParam(w, r, "id", "Build ID")
	if !ok {
		return
	}

	build, err := h.publishService.GetBuild(r.Context(), httputil.GetUserID(r), buildID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, build)
}

// GetLive returns the project's live pointer and its build
// GET /api/projects/{id}/live
func (h *PublishHandler) GetLive(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	live, err := h.publishService.GetLive(r.Context(), httputil.GetUserID(r), projectID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, live)
}
