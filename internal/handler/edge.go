package handler

import (
	"log/slog"
	"net/http"

	"folio/internal/config"
	"folio/internal/httputil"
	publishService "folio/internal/service/publish"
)

// EdgeHandler serves unauthenticated hostname lookups for the edge renderer
type EdgeHandler struct {
	resolver *publishService.Resolver
	logger   *slog.Logger
}

// NewEdgeHandler creates a new edge handler
func NewEdgeHandler(resolver *publishService.Resolver, logger *slog.Logger) *EdgeHandler {
	return &EdgeHandler{
		resolver: resolver,
		logger:   logger,
	}
}

// Resolve returns the live pointer for a hostname
// GET /edge/resolve?host=
func (h *EdgeHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	host := r.URL.Query().Get("host")
	if host == "" {
		host = r.Host
	}

	pointer, err := h.resolver.Resolve(r.Context(), host)
	if err != nil {
		handleError(w, err)
		return
	}

	w.Header().Set("Cache-Control", config.PointerCacheControl)
	httputil.RespondJSON(w, http.StatusOK, pointer)
}
