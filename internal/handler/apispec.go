package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"folio/internal/config"
	publishSvc "folio/internal/domain/services/publish"
	"folio/internal/httputil"
)

// APISpecHandler handles OpenAPI imports
type APISpecHandler struct {
	importer publishSvc.APISpecService
	logger   *slog.Logger
}

// NewAPISpecHandler creates a new API spec handler
func NewAPISpecHandler(importer publishSvc.APISpecService, logger *slog.Logger) *APISpecHandler {
	return &APISpecHandler{
		importer: importer,
		logger:   logger,
	}
}

// Import replaces the space's API reference with the uploaded spec
// POST /api/spaces/{id}/api-spec
//
// Accepts either {"title": ..., "spec": "..."} or a raw YAML/JSON body with
// the title in the query string.
func (h *APISpecHandler) Import(w http.ResponseWriter, r *http.Request) {
	spaceID, ok := PathParam(w, r, "id", "Space ID")
	if !ok {
		return
	}

	var req publishSvc.ImportAPISpecRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := httputil.ParseJSON(w, r, &req); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	} else {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, config.MaxAPISpecSize+1))
		if err != nil {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, "spec is too large")
			return
		}
		req.Spec = string(body)
		req.Title = r.URL.Query().Get("title")
	}
	req.SpaceID = spaceID
	req.UserID = httputil.GetUserID(r)

	root, err := h.importer.Import(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("api spec imported", "space_id", spaceID, "document_id", root.ID)
	httputil.RespondJSON(w, http.StatusOK, root)
}
