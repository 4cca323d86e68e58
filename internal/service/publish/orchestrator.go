package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"folio/internal/domain"
	"folio/internal/domain/models/publish"
	publishRepo "folio/internal/domain/repositories/publish"
	publishSvc "folio/internal/domain/services/publish"
	"folio/internal/service/blobstore"

	"golang.org/x/sync/errgroup"
)

const bundleExt = "json"

// OrchestratorConfig bounds the work of one build. Timeout must stay below
// the reaper cutoff so a build gives up before it can be reaped.
type OrchestratorConfig struct {
	RenderConcurrency int
	MaxPages          int
	Timeout           time.Duration
}

// Orchestrator owns a build from running to success or failed. It is driven
// by the job pool, one Run per build id.
type Orchestrator struct {
	builds   publishRepo.BuildRepository
	sites    publishRepo.SiteRepository
	source   publishSvc.ContentSource
	renderer publishSvc.Renderer
	blobs    *blobstore.Store
	mirror   *Mirror
	cfg      OrchestratorConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrchestrator creates a build orchestrator
func NewOrchestrator(
	builds publishRepo.BuildRepository,
	sites publishRepo.SiteRepository,
	source publishSvc.ContentSource,
	renderer publishSvc.Renderer,
	blobs *blobstore.Store,
	mirror *Mirror,
	cfg OrchestratorConfig,
	logger *slog.Logger,
) *Orchestrator {
	if cfg.RenderConcurrency < 1 {
		cfg.RenderConcurrency = 1
	}
	return &Orchestrator{
		builds:   builds,
		sites:    sites,
		source:   source,
		renderer: renderer,
		blobs:    blobs,
		mirror:   mirror,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// artifacts are the versioned files of one build, already encoded.
type artifacts struct {
	manifest []byte
	tree     []byte
	theme    []byte // nil when the site has no theme
}

// Run executes a queued build. A build that is not queued has been claimed
// by another worker (or already finished) and is left alone. Any error or
// panic after the claim fails the build and leaves every pointer untouched.
func (o *Orchestrator) Run(ctx context.Context, buildID string) (err error) {
	build, err := o.builds.GetByID(ctx, buildID)
	if err != nil {
		return fmt.Errorf("load build: %w", err)
	}
	log := o.logger.With("build_id", build.ID, "site_id", build.SiteID, "operation", build.Operation)

	claimed, err := o.builds.MarkRunning(ctx, build.ID, o.now().UTC())
	if err != nil {
		return fmt.Errorf("claim build: %w", err)
	}
	if !claimed {
		log.Info("build not queued, skipping", "status", build.Status)
		return nil
	}
	log.Info("build started")

	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("build panicked: %v", r)
			log.Error("build panicked", "panic", r, "stack", string(debug.Stack()))
		}
		if err != nil {
			o.fail(ctx, log, build.ID, err)
		}
	}()

	if build.Operation == publish.OperationRevert {
		return o.runRevert(ctx, log, build)
	}
	return o.runPublish(ctx, log, build)
}

func (o *Orchestrator) fail(ctx context.Context, log *slog.Logger, buildID string, cause error) {
	log.Error("build failed", "error", cause)
	ok, err := o.builds.MarkFailed(context.WithoutCancel(ctx), buildID, cause.Error(), o.now().UTC())
	if err != nil {
		log.Error("failed to record build failure", "error", err)
		return
	}
	if !ok {
		log.Warn("build already finished, failure not recorded")
	}
}

// ensureRunning aborts a build whose deadline passed or that was finished
// elsewhere, typically failed by the reaper.
func (o *Orchestrator) ensureRunning(ctx context.Context, buildID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("build deadline: %w", err)
	}
	current, err := o.builds.GetByID(ctx, buildID)
	if err != nil {
		return fmt.Errorf("reload build: %w", err)
	}
	if current.Status != publish.BuildStatusRunning {
		return fmt.Errorf("build is %s, not going live", current.Status)
	}
	return nil
}

func (o *Orchestrator) runPublish(ctx context.Context, log *slog.Logger, build *publish.Build) error {
	site, err := o.sites.GetByID(ctx, build.SiteID)
	if err != nil {
		return fmt.Errorf("load site: %w", err)
	}
	tenant := site.ProjectID

	spaces, err := o.source.ListSpaces(ctx, tenant, build.SelectedSpaceIDs)
	if err != nil {
		return fmt.Errorf("list spaces: %w", err)
	}

	flat := Flatten(spaces)
	for _, route := range flat.Duplicates {
		log.Warn("duplicate route skipped", "route", route)
	}
	if o.cfg.MaxPages > 0 && len(flat.Pages) > o.cfg.MaxPages {
		return fmt.Errorf("%w: %d pages exceeds the limit of %d per build", domain.ErrValidation, len(flat.Pages), o.cfg.MaxPages)
	}
	if err := o.builds.SetTotal(ctx, build.ID, len(flat.Pages)); err != nil {
		return fmt.Errorf("set total: %w", err)
	}
	log.Info("tree flattened", "spaces", len(flat.Spaces), "pages", len(flat.Pages))

	refs, err := o.storePages(ctx, log, build.ID, tenant, flat.Pages)
	if err != nil {
		return err
	}

	publishedAt := o.now().UTC()
	manifest, tree := BuildArtifacts(ArtifactInput{
		BuildID:     build.ID,
		PublishedAt: publishedAt,
		Site:        site,
		Flat:        flat,
		Blobs:       refs,
	})

	a := artifacts{}
	if a.manifest, err = json.Marshal(manifest); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if a.tree, err = json.Marshal(tree); err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	if site.HasTheme() {
		a.theme = site.Theme
	}

	log.Info("artifacts built",
		"pages", manifest.Counts.Pages,
		"new_blobs", manifest.Counts.NewBlobs,
		"reused_blobs", manifest.Counts.ReusedBlobs,
	)
	return o.goLive(ctx, log, build, site, a, publishedAt)
}

// storePages renders every page and stores its bundle. Pages are independent
// so they run concurrently; the first storage error cancels the rest.
func (o *Orchestrator) storePages(ctx context.Context, log *slog.Logger, buildID, tenant string, pages []FlatPage) ([]*publish.BlobRef, error) {
	refs := make([]*publish.BlobRef, len(pages))
	var done, written, bytes atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.RenderConcurrency)

	for i := range pages {
		page := &pages[i]
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("page %s panicked: %v", page.Route, r)
				}
			}()

			ref, err := o.storePage(gctx, log, tenant, page)
			if err != nil {
				return fmt.Errorf("page %s: %w", page.Route, err)
			}
			refs[i] = ref

			p := publish.Progress{ItemsDone: int(done.Add(1))}
			if ref.IsNew {
				p.PagesWritten = int(written.Add(1))
				p.BytesWritten = bytes.Add(ref.Size)
			} else {
				p.PagesWritten = int(written.Load())
				p.BytesWritten = bytes.Load()
			}
			if err := o.builds.UpdateProgress(gctx, buildID, p); err != nil {
				log.Warn("progress update failed", "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return refs, nil
}

func (o *Orchestrator) storePage(ctx context.Context, log *slog.Logger, tenant string, page *FlatPage) (*publish.BlobRef, error) {
	content, err := o.source.LoadContent(ctx, tenant, page.Document)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// A page that cannot be loaded is published empty
		log.Warn("content load failed, publishing empty page", "route", page.Route, "document_id", page.Document.ID, "error", err)
		content = nil
	}

	data, err := json.Marshal(newBundle(page, content, o.renderer.Render(content)))
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return o.blobs.Put(ctx, tenant, data, bundleExt)
}

func newBundle(page *FlatPage, content *publish.StructuredContent, r publish.Rendered) *publish.PageBundle {
	toc := r.TOC
	if toc == nil {
		toc = []publish.TOCEntry{}
	}
	b := &publish.PageBundle{
		ID:       page.Document.ID,
		Rendered: publish.RenderedBody{HTML: r.HTML, TOC: toc},
		Plain:    r.Plain,
		Source:   publish.BundleSource{Kind: page.Kind},
	}
	if content != nil {
		b.Source.Format = content.Format
	}
	return b
}

// goLive writes the versioned artifacts, then flips the project pointer, then
// mirrors it to every host. Readers never see a pointer to a build whose
// artifacts are incomplete.
func (o *Orchestrator) goLive(ctx context.Context, log *slog.Logger, build *publish.Build, site *publish.Site, a artifacts, publishedAt time.Time) error {
	tenant := site.ProjectID

	manifestKey, err := o.blobs.WriteVersioned(ctx, tenant, build.ID, publish.ManifestFile, a.manifest)
	if err != nil {
		return err
	}
	treeKey, err := o.blobs.WriteVersioned(ctx, tenant, build.ID, publish.TreeFile, a.tree)
	if err != nil {
		return err
	}

	pointer := &publish.Pointer{
		BuildID:     build.ID,
		ManifestURL: o.blobs.URL(manifestKey),
		TreeURL:     o.blobs.URL(treeKey),
	}
	if a.theme != nil {
		themeKey, err := o.blobs.WriteVersioned(ctx, tenant, build.ID, publish.ThemeFile, a.theme)
		if err != nil {
			return err
		}
		pointer.ThemeURL = o.blobs.URL(themeKey)
	}

	projectKey := blobstore.ProjectPointerKey(tenant)
	previous, err := o.blobs.ReadPointer(ctx, projectKey)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("read live pointer: %w", err)
	}

	if err := o.ensureRunning(ctx, build.ID); err != nil {
		return err
	}
	if err := o.blobs.WritePointer(ctx, projectKey, pointer); err != nil {
		return err
	}
	log.Info("pointer flipped")

	report := o.mirror.Mirror(ctx, site.Hosts(), pointer)
	log.Info("pointer mirrored", "written", len(report.Written), "failed", len(report.Failed))

	ok, err := o.builds.MarkSucceeded(context.WithoutCancel(ctx), build.ID, o.now().UTC())
	if err == nil && !ok {
		err = errors.New("build finished elsewhere after the pointer flip")
	}
	if err != nil {
		o.restorePointer(ctx, log, site, build.ID, previous)
		return fmt.Errorf("mark succeeded: %w", err)
	}
	if err := o.sites.SetLastBuild(context.WithoutCancel(ctx), site.ID, build.ID, publishedAt); err != nil {
		// The build is live; only the dashboard summary is stale
		log.Error("failed to record last build", "error", err)
		return nil
	}
	log.Info("build succeeded")
	return nil
}

// restorePointer puts back the pointer that was live before buildID flipped
// it, so a build not recorded as succeeded is never served. The pointer is
// left alone if another build has flipped it since.
func (o *Orchestrator) restorePointer(ctx context.Context, log *slog.Logger, site *publish.Site, buildID string, previous *publish.Pointer) {
	ctx = context.WithoutCancel(ctx)
	projectKey := blobstore.ProjectPointerKey(site.ProjectID)

	current, err := o.blobs.ReadPointer(ctx, projectKey)
	if err != nil {
		log.Error("split state: pointer live for unrecorded build", "error", err)
		return
	}
	if current.BuildID != buildID {
		return
	}

	if previous == nil {
		if err := o.blobs.DeletePointer(ctx, projectKey); err != nil {
			log.Error("split state: pointer live for unrecorded build", "error", err)
			return
		}
		for _, raw := range site.Hosts() {
			host, err := NormalizeHost(raw)
			if err != nil {
				continue
			}
			if err := o.mirror.Unbind(ctx, host); err != nil {
				log.Error("split state: host pointer not removed", "host", host, "error", err)
			}
		}
		log.Warn("pointer removed, no earlier build to restore")
		return
	}

	if err := o.blobs.WritePointer(ctx, projectKey, previous); err != nil {
		log.Error("split state: pointer live for unrecorded build", "error", err)
		return
	}
	report := o.mirror.Mirror(ctx, site.Hosts(), previous)
	if len(report.Failed) > 0 {
		log.Error("split state: host pointers not restored", "failed", report.Failed)
	}
	log.Warn("pointer restored", "restored_build_id", previous.BuildID)
}
