package handler

import "net/http"

// Handlers groups every HTTP handler of the API
type Handlers struct {
	Project  *ProjectHandler
	Space    *SpaceHandler
	Document *DocumentHandler
	Tree     *TreeHandler
	APISpec  *APISpecHandler
	Site     *SiteHandler
	Publish  *PublishHandler
	Edge     *EdgeHandler
}

// PublicPaths are served without authentication
var PublicPaths = []string{"/health", "/edge/resolve"}

// RegisterRoutes registers all routes on mux (Go 1.22+ patterns)
func RegisterRoutes(mux *http.ServeMux, h *Handlers) {
	// Health check
	mux.HandleFunc("GET /health", h.Document.HealthCheck)

	// Edge lookup
	mux.HandleFunc("GET /edge/resolve", h.Edge.Resolve)

	// Project routes
	mux.HandleFunc("POST /api/projects", h.Project.CreateProject)
	mux.HandleFunc("GET /api/projects/{id}", h.Project.GetProject)
	mux.HandleFunc("POST /api/projects/{id}/members", h.Project.AddMember)

	// Space routes
	mux.HandleFunc("POST /api/projects/{id}/spaces", h.Space.CreateSpace)
	mux.HandleFunc("GET /api/projects/{id}/spaces", h.Space.ListSpaces)
	mux.HandleFunc("GET /api/spaces/{id}", h.Space.GetSpace)
	mux.HandleFunc("PATCH /api/spaces/{id}", h.Space.UpdateSpace)
	mux.HandleFunc("DELETE /api/spaces/{id}", h.Space.DeleteSpace)
	mux.HandleFunc("GET /api/spaces/{id}/tree", h.Tree.GetTree)
	mux.HandleFunc("POST /api/spaces/{id}/api-spec", h.APISpec.Import)

	// Document routes
	mux.HandleFunc("POST /api/spaces/{id}/documents", h.Document.CreateDocument)
	mux.HandleFunc("GET /api/documents/{id}", h.Document.GetDocument)
	mux.HandleFunc("PATCH /api/documents/{id}", h.Document.UpdateDocument)
	mux.HandleFunc("PUT /api/documents/{id}/content", h.Document.UpdateContent)
	mux.HandleFunc("DELETE /api/documents/{id}", h.Document.DeleteDocument)

	// Site routes
	mux.HandleFunc("POST /api/projects/{id}/site", h.Site.SetupSite)
	mux.HandleFunc("GET /api/projects/{id}/site", h.Site.GetSite)
	mux.HandleFunc("PATCH /api/projects/{id}/site", h.Site.UpdateSite)
	mux.HandleFunc("PUT /api/projects/{id}/site/selection", h.Site.UpdateSelection)
	mux.HandleFunc("POST /api/projects/{id}/site/domains", h.Site.AddDomain)
	mux.HandleFunc("DELETE /api/projects/{id}/site/domains/{host}", h.Site.RemoveDomain)

	// Publish routes
	mux.HandleFunc("POST /api/projects/{id}/publish", h.Publish.Publish)
	mux.HandleFunc("POST /api/projects/{id}/revert", h.Publish.Revert)
	mux.HandleFunc("GET /api/projects/{id}/builds", h.Publish.ListBuilds)
	mux.HandleFunc("GET /api/projects/{id}/live", h.Publish.GetLive)
	mux.HandleFunc("GET /api/builds/{id}", h.Publish.GetBuild)
}
