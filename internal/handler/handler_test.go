package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"folio/internal/cache"
	"folio/internal/domain"
	"folio/internal/domain/models"
	"folio/internal/middleware"
	"folio/internal/repository/memory"
	"folio/internal/service/apispec"
	"folio/internal/service/auth"
	"folio/internal/service/blobstore"
	"folio/internal/service/contentsource"
	"folio/internal/service/docsystem"
	publishService "folio/internal/service/publish"
	"folio/internal/service/render"
	"folio/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	owner    = "user-owner"
	outsider = "user-outsider"
)

// tokenIsSubject accepts any bearer token and uses it as the user ID
type tokenIsSubject struct{}

func (tokenIsSubject) VerifyToken(token string) (*models.AuthClaims, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	return &models.AuthClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: token}}, nil
}

func (tokenIsSubject) Close() error { return nil }

type apiClient struct {
	t       *testing.T
	handler http.Handler
	redis   *miniredis.Miniredis
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	projects := memory.NewProjectRepository()
	spaceRepo := memory.NewSpaceRepository()
	docRepo := memory.NewDocumentRepository()
	siteRepo := memory.NewSiteRepository()
	builds := memory.NewBuildRepository()
	tx := memory.NewTransactionManager()
	authz := auth.NewRoleAuthorizer(projects)
	validator := docsystem.NewResourceValidator(spaceRepo, docRepo, authz)

	mr := miniredis.RunT(t)
	pointerCache, err := cache.NewRedisPointerCache(cache.RedisOptions{
		URL:    "redis://" + mr.Addr(),
		Prefix: "folio:ptr:",
		TTL:    5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pointerCache.Close() })

	blobs := blobstore.NewStore(storage.NewMemoryStore(), memory.NewBlobIndexRepository(), "https://cdn.test", logger)
	mirror := publishService.NewMirror(blobs, pointerCache, logger)
	editor := contentsource.NewEditorSource(spaceRepo, docRepo, logger)
	source := contentsource.NewSelector(editor, contentsource.NewRepositorySource(spaceRepo, docRepo, blobs, logger))
	orchestrator := publishService.NewOrchestrator(builds, siteRepo, source, render.NewRenderer(), blobs, mirror,
		publishService.OrchestratorConfig{RenderConcurrency: 2, MaxPages: 100}, logger)
	siteConfig := publishService.SiteConfig{StoreID: "memory", BaseURL: "https://cdn.test", HostSuffix: "docs.test"}

	h := &Handlers{
		Project:  NewProjectHandler(docsystem.NewProjectService(projects, tx, authz, logger), logger),
		Space:    NewSpaceHandler(docsystem.NewSpaceService(spaceRepo, docRepo, tx, validator, authz, logger), logger),
		Document: NewDocumentHandler(docsystem.NewDocumentService(docRepo, tx, validator, logger), logger),
		Tree:     NewTreeHandler(docsystem.NewTreeService(docRepo, validator, logger), logger),
		APISpec:  NewAPISpecHandler(apispec.NewImporter(docRepo, tx, validator, logger), logger),
		Site: NewSiteHandler(publishService.NewSiteService(siteRepo, projects, spaceRepo, blobs, mirror, authz,
			siteConfig, logger), logger),
		Publish: NewPublishHandler(publishService.NewPublishService(siteRepo, builds, blobs,
			&publishService.SyncQueue{Orchestrator: orchestrator}, authz, logger), logger),
		Edge: NewEdgeHandler(publishService.NewResolver(blobs, pointerCache, logger), logger),
	}

	mux := http.NewServeMux()
	RegisterRoutes(mux, h)

	return &apiClient{
		t: t,
		handler: middleware.AuthMiddleware(middleware.AuthOptions{
			Verifier:    tokenIsSubject{},
			PublicPaths: PublicPaths,
			Logger:      logger,
		})(mux),
		redis: mr,
	}
}

// do sends a JSON request as user and decodes a JSON response into out
func (c *apiClient) do(user, method, path string, body interface{}, out interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+user)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

type idResponse struct {
	ID string `json:"id"`
}

// setupPublishedProject creates a project with one published page
func (c *apiClient) setupPublishedProject() (projectID, buildID string) {
	c.t.Helper()

	var project idResponse
	rec := c.do(owner, http.MethodPost, "/api/projects", map[string]string{"name": "Acme"}, &project)
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())

	var site struct {
		PrimaryHost string `json:"primary_host"`
	}
	rec = c.do(owner, http.MethodPost, "/api/projects/"+project.ID+"/site", map[string]string{}, &site)
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(c.t, "acme.docs.test", site.PrimaryHost)

	var space idResponse
	rec = c.do(owner, http.MethodPost, "/api/projects/"+project.ID+"/spaces", map[string]string{"name": "Guide"}, &space)
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())

	content := json.RawMessage(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"hello"}]}]}`)
	rec = c.do(owner, http.MethodPost, "/api/spaces/"+space.ID+"/documents",
		map[string]interface{}{"title": "Intro", "content": content}, nil)
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = c.do(owner, http.MethodPut, "/api/projects/"+project.ID+"/site/selection",
		map[string][]string{"space_ids": {space.ID}}, nil)
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())

	var build idResponse
	rec = c.do(owner, http.MethodPost, "/api/projects/"+project.ID+"/publish", nil, &build)
	require.Equal(c.t, http.StatusAccepted, rec.Code, rec.Body.String())

	return project.ID, build.ID
}

func TestPublishFlow(t *testing.T) {
	api := newAPI(t)
	projectID, buildID := api.setupPublishedProject()

	var build struct {
		Status string `json:"status"`
	}
	rec := api.do(owner, http.MethodGet, "/api/builds/"+buildID, nil, &build)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", build.Status)

	var live struct {
		Pointer struct {
			BuildID string `json:"buildId"`
		} `json:"pointer"`
	}
	rec = api.do(owner, http.MethodGet, "/api/projects/"+projectID+"/live", nil, &live)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, buildID, live.Pointer.BuildID)

	var builds []idResponse
	rec = api.do(owner, http.MethodGet, "/api/projects/"+projectID+"/builds?limit=5", nil, &builds)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, builds, 1)
	assert.Equal(t, buildID, builds[0].ID)
}

func TestEdgeResolve(t *testing.T) {
	api := newAPI(t)
	_, buildID := api.setupPublishedProject()

	// The publish primed the cache; drop it so the first lookup reads storage
	api.redis.FlushAll()

	var pointer struct {
		BuildID     string `json:"buildId"`
		ManifestURL string `json:"manifestUrl"`
	}
	rec := api.do("", http.MethodGet, "/edge/resolve?host=ACME.docs.test", nil, &pointer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "public, max-age=5", rec.Header().Get("Cache-Control"))
	assert.Equal(t, buildID, pointer.BuildID)
	assert.Contains(t, pointer.ManifestURL, buildID)
	assert.True(t, api.redis.Exists("folio:ptr:acme.docs.test"), "lookup should fill the cache")

	rec = api.do("", http.MethodGet, "/edge/resolve?host=unknown.docs.test", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, api.redis.Exists("folio:ptr:unknown.docs.test"))

	rec = api.do("", http.MethodGet, "/edge/resolve?host=not_a_host!", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorResponses(t *testing.T) {
	api := newAPI(t)
	projectID, _ := api.setupPublishedProject()

	tests := []struct {
		name     string
		user     string
		method   string
		path     string
		body     interface{}
		wantCode int
	}{
		{"unauthenticated", "", http.MethodGet, "/api/projects/" + projectID, nil, http.StatusUnauthorized},
		{"not a member", outsider, http.MethodPost, "/api/projects/" + projectID + "/publish", nil, http.StatusForbidden},
		{"unknown build", owner, http.MethodGet, "/api/builds/00000000-0000-0000-0000-000000000000", nil, http.StatusNotFound},
		{"bad limit", owner, http.MethodGet, "/api/projects/" + projectID + "/builds?limit=0", nil, http.StatusBadRequest},
		{"empty revert target", owner, http.MethodPost, "/api/projects/" + projectID + "/revert", map[string]string{}, http.StatusBadRequest},
		{"invalid domain", owner, http.MethodPost, "/api/projects/" + projectID + "/site/domains", map[string]string{"host": "bad host"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(tt.user, tt.method, tt.path, tt.body, nil)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestCreateDocumentConflictReturnsExisting(t *testing.T) {
	api := newAPI(t)

	var project, space, first idResponse
	api.do(owner, http.MethodPost, "/api/projects", map[string]string{"name": "Docs"}, &project)
	api.do(owner, http.MethodPost, "/api/projects/"+project.ID+"/spaces", map[string]string{"name": "Guide"}, &space)

	path := fmt.Sprintf("/api/spaces/%s/documents", space.ID)
	rec := api.do(owner, http.MethodPost, path, map[string]string{"title": "Intro", "slug": "intro"}, &first)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(owner, http.MethodPost, path, map[string]string{"title": "Another", "slug": "intro"}, nil)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	var existing idResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &existing))
	assert.Equal(t, first.ID, existing.ID)
}

func TestRevertThenPublish(t *testing.T) {
	api := newAPI(t)
	projectID, buildID := api.setupPublishedProject()

	// Each build finishes inline, so the site's publish slot is free again after each call
	rec := api.do(owner, http.MethodPost, "/api/projects/"+projectID+"/revert",
		map[string]string{"target_build_id": buildID}, nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = api.do(owner, http.MethodPost, "/api/projects/"+projectID+"/publish", nil, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
}
