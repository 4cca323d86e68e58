package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"folio/internal/domain"
	"folio/internal/domain/models/publish"
)

// runRevert republishes the artifacts of build.TargetBuildID under build.ID.
// Content is not re-rendered: the target's manifest and tree are copied with
// only their identity fields rewritten.
func (o *Orchestrator) runRevert(ctx context.Context, log *slog.Logger, build *publish.Build) error {
	if build.TargetBuildID == nil {
		return fmt.Errorf("%w: revert build has no target", domain.ErrValidation)
	}
	targetID := *build.TargetBuildID
	log = log.With("target_build_id", targetID)

	site, err := o.sites.GetByID(ctx, build.SiteID)
	if err != nil {
		return fmt.Errorf("load site: %w", err)
	}
	tenant := site.ProjectID

	manifest, err := o.blobs.ReadVersioned(ctx, tenant, targetID, publish.ManifestFile)
	if err != nil {
		return err
	}
	tree, err := o.blobs.ReadVersioned(ctx, tenant, targetID, publish.TreeFile)
	if err != nil {
		return err
	}
	theme, err := o.blobs.ReadVersioned(ctx, tenant, targetID, publish.ThemeFile)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	publishedAt := o.now().UTC()
	a := artifacts{theme: theme}
	if a.manifest, err = aliasArtifact(manifest, build.ID, targetID, publishedAt); err != nil {
		return fmt.Errorf("rewrite manifest: %w", err)
	}
	if a.tree, err = aliasArtifact(tree, build.ID, targetID, publishedAt); err != nil {
		return fmt.Errorf("rewrite tree: %w", err)
	}

	summary, err := summarizeManifest(manifest)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	if err := o.builds.SetTotal(ctx, build.ID, summary.Counts.Pages); err != nil {
		return fmt.Errorf("set total: %w", err)
	}
	err = o.builds.UpdateProgress(ctx, build.ID, publish.Progress{
		ItemsDone:    summary.Counts.Pages,
		BytesWritten: int64(len(a.manifest) + len(a.tree) + len(a.theme)),
	})
	if err != nil {
		log.Warn("progress update failed", "error", err)
	}

	// Keep the target's blobs looking used; failures here never block the revert
	if n, err := o.blobs.Touch(ctx, tenant, summary.hashes()); err != nil {
		log.Warn("blob touch failed", "error", err)
	} else {
		log.Debug("blobs touched", "count", n)
	}

	return o.goLive(ctx, log, build, site, a, publishedAt)
}

// aliasArtifact rewrites buildId, publishedAt and aliasedFromBuildId of an
// encoded artifact and leaves every other field byte-for-byte intact.
func aliasArtifact(data []byte, buildID, targetID string, publishedAt time.Time) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("artifact is not a JSON object")
	}

	for key, value := range map[string]any{
		"buildId":            buildID,
		"publishedAt":        publishedAt,
		"aliasedFromBuildId": targetID,
	} {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		fields[key] = raw
	}
	return json.Marshal(fields)
}

type manifestSummary struct {
	Counts publish.Counts `json:"counts"`
	Pages  map[string]struct {
		Hash string `json:"hash"`
	} `json:"pages"`
}

func summarizeManifest(data []byte) (*manifestSummary, error) {
	var s manifestSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// hashes returns the distinct blob hashes referenced by the manifest.
func (s *manifestSummary) hashes() []string {
	seen := make(map[string]bool, len(s.Pages))
	out := make([]string, 0, len(s.Pages))
	for _, p := range s.Pages {
		if p.Hash != "" && !seen[p.Hash] {
			seen[p.Hash] = true
			out = append(out, p.Hash)
		}
	}
	return out
}
