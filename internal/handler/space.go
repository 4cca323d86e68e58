package handler

import (
	"log/slog"
	"net/http"

	docsysSvc "folio/internal/domain/services/docsystem"
	"folio/internal/httputil"
)

// SpaceHandler handles space HTTP requests
type SpaceHandler struct {
	spaceService docsysSvc.SpaceService
	logger       *slog.Logger
}

// NewSpaceHandler creates a new space handler
func NewSpaceHandler(spaceService docsysSvc.SpaceService, logger *slog.Logger) *SpaceHandler {
	return &SpaceHandler{
		spaceService: spaceService,
		logger:       logger,
	}
}

// CreateSpace creates a space in a project
// POST /api/projects/{id}/spaces
func (h *SpaceHandler) CreateSpace(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	var req docsysSvc.CreateSpaceRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ProjectID = projectID
	req.UserID = httputil.GetUserID(r)

	space, err := h.spaceService.CreateSpace(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, space)
}

// ListSpaces lists the spaces of a project
// GET /api/projects/{id}/spaces
func (h *SpaceHandler) ListSpaces(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	spaces, err := h.spaceService.ListSpaces(r.Context(), httputil.GetUserID(r), projectID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, spaces)
}

// GetSpace retrieves a space
// GET /api/spaces/{id}
func (h *SpaceHandler) GetSpace(w http.ResponseWriter, r *http.Request) {
	spaceID, ok := PathParam(w, r, "id", "Space ID")
	if !ok {
		return
	}

	space, err := h.spaceService.GetSpace(r.Context(), httputil.GetUserID(r), spaceID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, space)
}

// UpdateSpace renames, re-slugs or restyles a space
// PATCH /api/spaces/{id}
func (h *SpaceHandler) UpdateSpace(w http.ResponseWriter, r *http.Request) {
	spaceID, ok := PathParam(w, r, "id", "Space ID")
	if !ok {
		return
	}

	var req docsysSvc.UpdateSpaceRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	space, err := h.spaceService.UpdateSpace(r.Context(), httputil.GetUserID(r), spaceID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, space)
}

// DeleteSpace deletes a space and all its documents
// DELETE /api/spaces/{id}
func (h *SpaceHandler) DeleteSpace(w http.ResponseWriter, r *http.Request) {
	spaceID, ok := PathParam(w, r, "id", "Space ID")
	if !ok {
		return
	}

	if err := h.spaceService.DeleteSpace(r.Context(), httputil.GetUserID(r), spaceID); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}
