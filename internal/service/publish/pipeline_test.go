package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"folio/internal/cache"
	"folio/internal/domain"
	docmodels "folio/internal/domain/models/docsystem"
	models "folio/internal/domain/models/publish"
	docsysSvc "folio/internal/domain/services/docsystem"
	publishSvc "folio/internal/domain/services/publish"
	"folio/internal/jobs"
	"folio/internal/repository/memory"
	"folio/internal/service/auth"
	"folio/internal/service/blobstore"
	"folio/internal/service/contentsource"
	"folio/internal/service/docsystem"
	"folio/internal/service/render"
	"folio/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const owner = "user-1"

// switchableObjects fails every immutable write while failing is set.
type switchableObjects struct {
	*storage.MemoryStore
	failing atomic.Bool
}

func (s *switchableObjects) PutImmutable(ctx context.Context, key string, body []byte, opts storage.PutOptions) error {
	if s.failing.Load() {
		return errors.New("bucket unavailable")
	}
	return s.MemoryStore.PutImmutable(ctx, key, body, opts)
}

// gatedSource wraps a content source so tests can hold a build mid-render
// or make single documents unreadable.
type gatedSource struct {
	publishSvc.ContentSource
	mu      sync.Mutex
	hold    chan struct{}
	entered chan struct{}
	once    *sync.Once
	broken  map[string]bool
}

func (g *gatedSource) LoadContent(ctx context.Context, projectID string, doc *docmodels.Document) (*models.StructuredContent, error) {
	g.mu.Lock()
	hold, entered, once, broken := g.hold, g.entered, g.once, g.broken[doc.ID]
	g.mu.Unlock()

	if hold != nil {
		once.Do(func() { close(entered) })
		<-hold
	}
	if broken {
		return nil, errors.New("disk on fire")
	}
	return g.ContentSource.LoadContent(ctx, projectID, doc)
}

func (g *gatedSource) gate() (release func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hold = make(chan struct{})
	g.entered = make(chan struct{})
	g.once = &sync.Once{}
	hold := g.hold
	return func() {
		g.mu.Lock()
		g.hold = nil
		g.mu.Unlock()
		close(hold)
	}
}

// manualQueue records build ids without running them.
type manualQueue struct {
	mu  sync.Mutex
	ids []string
}

func (q *manualQueue) Enqueue(buildID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, buildID)
	return nil
}

type harness struct {
	t            *testing.T
	ctx          context.Context
	objects      *switchableObjects
	source       *gatedSource
	blobs        *blobstore.Store
	builds       *memory.BuildRepository
	siteRepo     *memory.SiteRepository
	docRepo      *memory.DocumentRepository
	orchestrator *Orchestrator
	publisher    publishSvc.PublishService
	manual       publishSvc.PublishService
	queue        *manualQueue
	sites        publishSvc.SiteService
	spaces       docsysSvc.SpaceService
	documents    docsysSvc.DocumentService
	projectID    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	logger := discardLogger()

	projects := memory.NewProjectRepository()
	spaceRepo := memory.NewSpaceRepository()
	docRepo := memory.NewDocumentRepository()
	siteRepo := memory.NewSiteRepository()
	builds := memory.NewBuildRepository()
	tx := memory.NewTransactionManager()
	authz := auth.NewRoleAuthorizer(projects)

	project := &docmodels.Project{Slug: "acme", Name: "Acme", OwnerID: owner}
	require.NoError(t, projects.Create(ctx, project))
	require.NoError(t, projects.AddMember(ctx, &docmodels.ProjectMember{ProjectID: project.ID, UserID: owner, Role: docmodels.RoleOwner}))

	objects := &switchableObjects{MemoryStore: storage.NewMemoryStore()}
	blobs := blobstore.NewStore(objects, memory.NewBlobIndexRepository(), "https://cdn.test", logger)
	mirror := NewMirror(blobs, cache.Noop{}, logger)
	mirror.backoff = time.Millisecond
	source := &gatedSource{ContentSource: contentsource.NewEditorSource(spaceRepo, docRepo, logger), broken: map[string]bool{}}

	orchestrator := NewOrchestrator(builds, siteRepo, source, render.NewRenderer(), blobs, mirror,
		OrchestratorConfig{RenderConcurrency: 4, MaxPages: 100}, logger)
	queue := &manualQueue{}
	validator := docsystem.NewResourceValidator(spaceRepo, docRepo, authz)

	h := &harness{
		t:            t,
		ctx:          ctx,
		objects:      objects,
		source:       source,
		blobs:        blobs,
		builds:       builds,
		siteRepo:     siteRepo,
		docRepo:      docRepo,
		orchestrator: orchestrator,
		publisher:    NewPublishService(siteRepo, builds, blobs, &SyncQueue{Orchestrator: orchestrator}, authz, logger),
		manual:       NewPublishService(siteRepo, builds, blobs, queue, authz, logger),
		queue:        queue,
		sites: NewSiteService(siteRepo, projects, spaceRepo, blobs, mirror, authz,
			SiteConfig{StoreID: "memory", BaseURL: "https://cdn.test", HostSuffix: "docs.test"}, logger),
		spaces:    docsystem.NewSpaceService(spaceRepo, docRepo, tx, validator, authz, logger),
		documents: docsystem.NewDocumentService(docRepo, tx, validator, logger),
		projectID: project.ID,
	}

	_, err := h.sites.SetupSite(ctx, owner, project.ID, &publishSvc.SetupSiteRequest{})
	require.NoError(t, err)
	return h
}

func tiptapDoc(text string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":%q}]}]}`, text))
}

// guide creates a selected space with three pages under its seed group.
func (h *harness) guide() (*docmodels.Space, []*docmodels.Document) {
	h.t.Helper()
	space, err := h.spaces.CreateSpace(h.ctx, &docsysSvc.CreateSpaceRequest{ProjectID: h.projectID, UserID: owner, Name: "Guide"})
	require.NoError(h.t, err)

	roots, err := h.docRepo.ListChildren(h.ctx, space.ID, nil)
	require.NoError(h.t, err)
	require.Len(h.t, roots, 1)
	group := roots[0]

	var pages []*docmodels.Document
	for _, title := range []string{"Intro", "Install", "Usage"} {
		page, err := h.documents.CreateDocument(h.ctx, &docsysSvc.CreateDocumentRequest{
			SpaceID: space.ID, UserID: owner, ParentID: &group.ID, Title: title,
		})
		require.NoError(h.t, err)
		h.setContent(page.ID, title+" body")
		pages = append(pages, page)
	}

	_, err = h.sites.UpdateSelection(h.ctx, owner, h.projectID, []string{space.ID})
	require.NoError(h.t, err)
	return space, pages
}

func (h *harness) setContent(docID, text string) {
	h.t.Helper()
	require.NoError(h.t, h.documents.UpdateContent(h.ctx, owner, docID, tiptapDoc(text)))
}

// publish runs a build to completion and returns its final state.
func (h *harness) publish() *models.Build {
	h.t.Helper()
	build, err := h.publisher.Publish(h.ctx, owner, h.projectID)
	require.NoError(h.t, err)
	return h.build(build.ID)
}

func (h *harness) revert(target string) *models.Build {
	h.t.Helper()
	build, err := h.publisher.Revert(h.ctx, owner, h.projectID, target)
	require.NoError(h.t, err)
	return h.build(build.ID)
}

func (h *harness) build(id string) *models.Build {
	h.t.Helper()
	build, err := h.builds.GetByID(h.ctx, id)
	require.NoError(h.t, err)
	return build
}

func (h *harness) manifest(buildID string) *models.Manifest {
	h.t.Helper()
	data, err := h.blobs.ReadVersioned(h.ctx, h.projectID, buildID, models.ManifestFile)
	require.NoError(h.t, err)
	var m models.Manifest
	require.NoError(h.t, json.Unmarshal(data, &m))
	return &m
}

func (h *harness) tree(buildID string) *models.Tree {
	h.t.Helper()
	data, err := h.blobs.ReadVersioned(h.ctx, h.projectID, buildID, models.TreeFile)
	require.NoError(h.t, err)
	var tree models.Tree
	require.NoError(h.t, json.Unmarshal(data, &tree))
	return &tree
}

func (h *harness) bundle(m *models.Manifest, route string) *models.PageBundle {
	h.t.Helper()
	entry, ok := m.Pages[route]
	require.True(h.t, ok, "route %s missing", route)
	data, err := h.objects.Get(h.ctx, entry.Blob)
	require.NoError(h.t, err)
	var b models.PageBundle
	require.NoError(h.t, json.Unmarshal(data, &b))
	return &b
}

func (h *harness) livePointer() string {
	h.t.Helper()
	p, err := h.blobs.ReadPointer(h.ctx, blobstore.ProjectPointerKey(h.projectID))
	require.NoError(h.t, err)
	return p.BuildID
}

func (h *harness) site() *models.Site {
	h.t.Helper()
	site, err := h.siteRepo.GetByProject(h.ctx, h.projectID)
	require.NoError(h.t, err)
	return site
}

func TestPublishThenRenameReusesBlobs(t *testing.T) {
	h := newHarness(t)
	_, pages := h.guide()

	a := h.publish()
	require.Equal(t, models.BuildStatusSuccess, a.Status)
	assert.Equal(t, 3, a.ItemsTotal)
	assert.Equal(t, 3, a.ItemsDone)
	assert.Equal(t, 3, a.PagesWritten)
	assert.Positive(t, a.BytesWritten)

	ma := h.manifest(a.ID)
	assert.Equal(t, models.Counts{Pages: 3, NewBlobs: 3, ReusedBlobs: 0}, ma.Counts)
	assert.Equal(t, "guide", ma.Routing.DefaultSpace)
	require.Contains(t, ma.Pages, "/guide/getting-started/install")
	assert.Equal(t, []string{"/guide/getting-started/usage"}, ma.Pages["/guide/getting-started/install"].Neighbors)
	assert.Contains(t, h.bundle(ma, "/guide/getting-started/intro").Rendered.HTML, "<p>Intro body</p>")

	// A title-only edit changes the route, never the content blob
	_, err := h.documents.UpdateDocument(h.ctx, owner, pages[1].ID, &docsysSvc.UpdateDocumentRequest{Title: ptr("Installation")})
	require.NoError(t, err)

	b := h.publish()
	require.Equal(t, models.BuildStatusSuccess, b.Status)
	assert.Equal(t, 0, b.PagesWritten)
	assert.Equal(t, int64(0), b.BytesWritten)

	mb := h.manifest(b.ID)
	assert.Equal(t, models.Counts{Pages: 3, NewBlobs: 0, ReusedBlobs: 3}, mb.Counts)
	assert.NotContains(t, mb.Pages, "/guide/getting-started/install")
	renamed := mb.Pages["/guide/getting-started/installation"]
	assert.Equal(t, "Installation", renamed.Title)
	assert.Equal(t, ma.Pages["/guide/getting-started/install"].Hash, renamed.Hash)

	assert.Equal(t, b.ID, h.livePointer())
	site := h.site()
	require.NotNil(t, site.LastBuildID)
	assert.Equal(t, b.ID, *site.LastBuildID)
	assert.NotNil(t, site.LastPublishedAt)
}

func TestFailedBuildLeavesPreviousLive(t *testing.T) {
	h := newHarness(t)
	_, pages := h.guide()

	a := h.publish()
	require.Equal(t, models.BuildStatusSuccess, a.Status)

	h.setContent(pages[0].ID, "rewritten")
	h.objects.failing.Store(true)
	b := h.publish()

	assert.Equal(t, models.BuildStatusFailed, b.Status)
	require.NotNil(t, b.Error)
	assert.Contains(t, *b.Error, "bucket unavailable")
	assert.NotNil(t, b.FinishedAt)

	assert.Equal(t, a.ID, h.livePointer())
	host, err := h.blobs.ReadPointer(h.ctx, blobstore.HostPointerKey(h.site().PrimaryHost))
	require.NoError(t, err)
	assert.Equal(t, a.ID, host.BuildID)
	assert.Equal(t, a.ID, *h.site().LastBuildID)

	_, err = h.blobs.ReadVersioned(h.ctx, h.projectID, b.ID, models.ManifestFile)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	live, err := h.publisher.GetLive(h.ctx, owner, h.projectID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, live.Build.ID)

	// The slot is free again once the store recovers
	h.objects.failing.Store(false)
	c := h.publish()
	assert.Equal(t, models.BuildStatusSuccess, c.Status)
	assert.Equal(t, 1, h.manifest(c.ID).Counts.NewBlobs)
}

func TestRevertAliasesTargetArtifacts(t *testing.T) {
	h := newHarness(t)
	_, pages := h.guide()

	a := h.publish()
	ma := h.manifest(a.ID)

	h.setContent(pages[2].ID, "usage v2")
	c := h.publish()
	require.Equal(t, c.ID, h.livePointer())

	d := h.revert(a.ID)
	require.Equal(t, models.BuildStatusSuccess, d.Status)
	assert.Equal(t, models.OperationRevert, d.Operation)
	require.NotNil(t, d.TargetBuildID)
	assert.Equal(t, a.ID, *d.TargetBuildID)
	assert.Equal(t, 3, d.ItemsTotal)
	assert.Equal(t, 0, d.PagesWritten)

	assert.Equal(t, d.ID, h.livePointer())
	assert.Equal(t, d.ID, *h.site().LastBuildID)

	md := h.manifest(d.ID)
	assert.Equal(t, d.ID, md.BuildID)
	assert.Equal(t, a.ID, md.AliasedFromBuildID)
	assert.Equal(t, ma.Pages, md.Pages)
	assert.Equal(t, ma.Counts, md.Counts)
	assert.Equal(t, ma.Nav, md.Nav)
	assert.Contains(t, h.bundle(md, "/guide/getting-started/usage").Rendered.HTML, "Usage body")

	td := h.tree(d.ID)
	assert.Equal(t, d.ID, td.BuildID)
	assert.Equal(t, a.ID, td.AliasedFromBuildID)
	assert.Equal(t, h.tree(a.ID).Spaces, td.Spaces)
}

func TestRevertTargetValidation(t *testing.T) {
	h := newHarness(t)
	h.guide()
	a := h.publish()
	d := h.revert(a.ID)

	_, err := h.publisher.Revert(h.ctx, owner, h.projectID, d.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.publisher.Revert(h.ctx, owner, h.projectID, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.publisher.Revert(h.ctx, owner, h.projectID, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	h.objects.failing.Store(true)
	h.setContent(h.manifest(a.ID).Pages["/guide/getting-started/intro"].ID, "new")
	failed := h.publish()
	require.Equal(t, models.BuildStatusFailed, failed.Status)

	_, err = h.publisher.Revert(h.ctx, owner, h.projectID, failed.ID)
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestOneActiveBuildPerSite(t *testing.T) {
	h := newHarness(t)
	h.guide()

	first, err := h.manual.Publish(h.ctx, owner, h.projectID)
	require.NoError(t, err)
	assert.Equal(t, models.BuildStatusQueued, first.Status)

	_, err = h.manual.Publish(h.ctx, owner, h.projectID)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.ID, conflict.ResourceID)

	// Delivering the same id twice runs it once
	require.NoError(t, h.orchestrator.Run(h.ctx, first.ID))
	require.NoError(t, h.orchestrator.Run(h.ctx, first.ID))
	assert.Equal(t, models.BuildStatusSuccess, h.build(first.ID).Status)

	second, err := h.manual.Publish(h.ctx, owner, h.projectID)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID}, h.queue.ids)
}

func TestPointerNeverSeesPartialBuild(t *testing.T) {
	h := newHarness(t)
	_, pages := h.guide()
	a := h.publish()

	h.setContent(pages[0].ID, "changed")
	b, err := h.manual.Publish(h.ctx, owner, h.projectID)
	require.NoError(t, err)

	release := h.source.gate()
	entered := h.source.entered
	done := make(chan error, 1)
	go func() { done <- h.orchestrator.Run(h.ctx, b.ID) }()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("build never started rendering")
	}

	assert.Equal(t, models.BuildStatusRunning, h.build(b.ID).Status)
	assert.Equal(t, a.ID, h.livePointer())
	_, err = h.blobs.ReadVersioned(h.ctx, h.projectID, b.ID, models.ManifestFile)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	release()
	require.NoError(t, <-done)
	assert.Equal(t, b.ID, h.livePointer())
}

// holdBuild queues a build with changed content and runs it until it blocks
// mid-render. The returned channel yields Run's result after release.
func (h *harness) holdBuild(o *Orchestrator, docID string) (build *models.Build, release func(), done <-chan error) {
	h.t.Helper()
	h.setContent(docID, "changed")
	build, err := h.manual.Publish(h.ctx, owner, h.projectID)
	require.NoError(h.t, err)

	release = h.source.gate()
	entered := h.source.entered
	result := make(chan error, 1)
	go func() { result <- o.Run(h.ctx, build.ID) }()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		h.t.Fatal("build never started rendering")
	}
	return build, release, result
}

func (h *harness) assertLive(buildID string) {
	h.t.Helper()
	assert.Equal(h.t, buildID, h.livePointer())
	host, err := h.blobs.ReadPointer(h.ctx, blobstore.HostPointerKey(h.site().PrimaryHost))
	require.NoError(h.t, err)
	assert.Equal(h.t, buildID, host.BuildID)
	require.NotNil(h.t, h.site().LastBuildID)
	assert.Equal(h.t, buildID, *h.site().LastBuildID)
}

func TestReapedBuildNeverGoesLive(t *testing.T) {
	h := newHarness(t)
	_, pages := h.guide()
	a := h.publish()

	b, release, done := h.holdBuild(h.orchestrator, pages[0].ID)

	time.Sleep(time.Millisecond)
	failed, _ := jobs.NewReaper(h.builds, h.queue, time.Nanosecond, discardLogger()).Sweep(h.ctx)
	require.Equal(t, 1, failed)

	release()
	err := <-done
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not going live")

	got := h.build(b.ID)
	assert.Equal(t, models.BuildStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, jobs.TimeoutMessage, *got.Error)
	h.assertLive(a.ID)
}

func TestBuildDeadlineAbortsBeforeGoingLive(t *testing.T) {
	h := newHarness(t)
	_, pages := h.guide()
	a := h.publish()

	h.orchestrator.cfg.Timeout = 20 * time.Millisecond
	b, release, done := h.holdBuild(h.orchestrator, pages[0].ID)
	time.Sleep(50 * time.Millisecond)
	release()
	require.Error(t, <-done)

	got := h.build(b.ID)
	assert.Equal(t, models.BuildStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Contains(t, *got.Error, "deadline")
	h.assertLive(a.ID)

	// A reaper pass afterwards has nothing left to fail
	failed, _ := jobs.NewReaper(h.builds, h.queue, time.Nanosecond, discardLogger()).Sweep(h.ctx)
	assert.Zero(t, failed)
}

// reapedOnSuccess fails every build just before recording its success, as
// a reaper pass landing between the pointer flip and the status update would.
type reapedOnSuccess struct {
	*memory.BuildRepository
}

func (r reapedOnSuccess) MarkSucceeded(ctx context.Context, id string, finishedAt time.Time) (bool, error) {
	if _, err := r.MarkFailed(ctx, id, jobs.TimeoutMessage, finishedAt); err != nil {
		return false, err
	}
	return r.BuildRepository.MarkSucceeded(ctx, id, finishedAt)
}

func TestLostSuccessRestoresPointer(t *testing.T) {
	tests := []struct {
		name         string
		publishFirst bool
	}{
		{"previous build restored", true},
		{"first build withdrawn", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.guide()
			var previous *models.Build
			if tt.publishFirst {
				previous = h.publish()
				require.Equal(t, models.BuildStatusSuccess, previous.Status)
			}

			mirror := NewMirror(h.blobs, cache.Noop{}, discardLogger())
			mirror.backoff = time.Millisecond
			o := NewOrchestrator(reapedOnSuccess{h.builds}, h.siteRepo, h.source, render.NewRenderer(), h.blobs, mirror,
				OrchestratorConfig{RenderConcurrency: 4, MaxPages: 100}, discardLogger())

			b, err := h.manual.Publish(h.ctx, owner, h.projectID)
			require.NoError(t, err)
			err = o.Run(h.ctx, b.ID)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "mark succeeded")

			got := h.build(b.ID)
			assert.Equal(t, models.BuildStatusFailed, got.Status)
			require.NotNil(t, got.Error)
			assert.Equal(t, jobs.TimeoutMessage, *got.Error)

			if tt.publishFirst {
				h.assertLive(previous.ID)
				return
			}
			_, err = h.blobs.ReadPointer(h.ctx, blobstore.ProjectPointerKey(h.projectID))
			assert.ErrorIs(t, err, domain.ErrNotFound)
			_, err = h.blobs.ReadPointer(h.ctx, blobstore.HostPointerKey(h.site().PrimaryHost))
			assert.ErrorIs(t, err, domain.ErrNotFound)
			assert.Nil(t, h.site().LastBuildID)
		})
	}
}

func TestRepublishingUnchangedContentIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.guide()

	a := h.manifest(h.publish().ID)
	b := h.manifest(h.publish().ID)

	assert.Equal(t, models.Counts{Pages: 3, NewBlobs: 0, ReusedBlobs: 3}, b.Counts)
	for route, entry := range a.Pages {
		assert.Equal(t, entry.Hash, b.Pages[route].Hash, route)
		assert.Equal(t, entry.Blob, b.Pages[route].Blob, route)
	}
}

func TestUnreadablePagePublishesEmpty(t *testing.T) {
	h := newHarness(t)
	_, pages := h.guide()
	h.source.broken[pages[0].ID] = true

	build := h.publish()
	require.Equal(t, models.BuildStatusSuccess, build.Status)

	bundle := h.bundle(h.manifest(build.ID), "/guide/getting-started/intro")
	assert.Empty(t, bundle.Rendered.HTML)
	assert.Equal(t, []models.TOCEntry{}, bundle.Rendered.TOC)
}

func TestBuildsOverThePageLimitFail(t *testing.T) {
	h := newHarness(t)
	h.guide()
	h.orchestrator.cfg.MaxPages = 2

	build := h.publish()
	assert.Equal(t, models.BuildStatusFailed, build.Status)
	require.NotNil(t, build.Error)
	assert.Contains(t, *build.Error, "exceeds the limit")

	_, err := h.blobs.ReadPointer(h.ctx, blobstore.ProjectPointerKey(h.projectID))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type panickingRenderer struct{}

func (panickingRenderer) Render(*models.StructuredContent) models.Rendered {
	panic("renderer exploded")
}

func TestRenderPanicFailsBuild(t *testing.T) {
	h := newHarness(t)
	h.guide()
	h.orchestrator.renderer = panickingRenderer{}

	build := h.publish()
	assert.Equal(t, models.BuildStatusFailed, build.Status)
	require.NotNil(t, build.Error)
	assert.Contains(t, *build.Error, "renderer exploded")
}

func TestPublishMirrorsToCustomDomains(t *testing.T) {
	h := newHarness(t)
	h.guide()

	_, err := h.sites.AddDomain(h.ctx, owner, h.projectID, "Docs.Acme.com")
	require.NoError(t, err)
	a := h.publish()

	for _, host := range h.site().Hosts() {
		p, err := h.blobs.ReadPointer(h.ctx, blobstore.HostPointerKey(host))
		require.NoError(t, err, host)
		assert.Equal(t, a.ID, p.BuildID)
	}

	// Domains added while live are mirrored immediately
	_, err = h.sites.AddDomain(h.ctx, owner, h.projectID, "help.acme.com")
	require.NoError(t, err)
	p, err := h.blobs.ReadPointer(h.ctx, blobstore.HostPointerKey("help.acme.com"))
	require.NoError(t, err)
	assert.Equal(t, a.ID, p.BuildID)

	_, err = h.sites.RemoveDomain(h.ctx, owner, h.projectID, "docs.acme.com")
	require.NoError(t, err)
	_, err = h.blobs.ReadPointer(h.ctx, blobstore.HostPointerKey("docs.acme.com"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListBuildsAndGetLive(t *testing.T) {
	h := newHarness(t)

	_, err := h.publisher.GetLive(h.ctx, owner, h.projectID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	h.guide()
	a := h.publish()
	b := h.publish()

	builds, err := h.publisher.ListBuilds(h.ctx, owner, h.projectID, 0)
	require.NoError(t, err)
	require.Len(t, builds, 2)
	assert.Equal(t, b.ID, builds[0].ID)
	assert.Equal(t, a.ID, builds[1].ID)

	live, err := h.publisher.GetLive(h.ctx, owner, h.projectID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, live.Build.ID)
	assert.Equal(t, "https://cdn.test/"+h.projectID+"/builds/"+b.ID+"/manifest.json", live.Pointer.ManifestURL)

	got, err := h.publisher.GetBuild(h.ctx, owner, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = h.publisher.GetBuild(h.ctx, "stranger", a.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = h.publisher.Publish(h.ctx, "stranger", h.projectID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func ptr(s string) *string { return &s }
