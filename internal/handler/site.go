package handler

import (
	"log/slog"
	"net/http"

	publishSvc "folio/internal/domain/services/publish"
	"folio/internal/httputil"
)

// SiteHandler handles site configuration requests
type SiteHandler struct {
	siteService publishSvc.SiteService
	logger      *slog.Logger
}

// NewSiteHandler creates a new site handler
func NewSiteHandler(siteService publishSvc.SiteService, logger *slog.Logger) *SiteHandler {
	return &SiteHandler{
		siteService: siteService,
		logger:      logger,
	}
}

// SetupSite creates the project's site, returning the existing one on repeat calls
// POST /api/projects/{id}/site
func (h *SiteHandler) SetupSite(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	var req publishSvc.SetupSiteRequest
	if r.ContentLength != 0 {
		if err := httputil.ParseJSON(w, r, &req); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	site, err := h.siteService.SetupSite(r.Context(), httputil.GetUserID(r), projectID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, site)
}

// GetSite retrieves the project's site
// GET /api/projects/{id}/site
func (h *SiteHandler) GetSite(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	site, err := h.siteService.GetSite(r.Context(), httputil.GetUserID(r), projectID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, site)
}

// UpdateSite patches name, logo, layout or theme
// PATCH /api/projects/{id}/site
func (h *SiteHandler) UpdateSite(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	var req publishSvc.UpdateSiteRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	site, err := h.siteService.UpdateSite(r.Context(), httputil.GetUserID(r), projectID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, site)
}

// UpdateSelection replaces the ordered list of published spaces
// PUT /api/projects/{id}/site/selection
func (h *SiteHandler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	var req publishSvc.SelectionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	site, err := h.siteService.UpdateSelection(r.Context(), httputil.GetUserID(r), projectID, req.SpaceIDs)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, site)
}

// AddDomain binds a custom domain to the site
// POST /api/projects/{id}/site/domains
func (h *SiteHandler) AddDomain(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	var req publishSvc.DomainRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	site, err := h.siteService.AddDomain(r.Context(), httputil.GetUserID(r), projectID, req.Host)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, site)
}

// RemoveDomain unbinds a custom domain
// DELETE /api/projects/{id}/site/domains/{host}
func (h *SiteHandler) RemoveDomain(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}
	host, ok := PathParam(w, r, "host", "Host")
	if !ok {
		return
	}

	site, err := h.siteService.RemoveDomain(r.Context(), httputil.GetUserID(r), projectID, host)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, site)
}
