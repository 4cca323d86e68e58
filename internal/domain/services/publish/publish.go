package publish

import (
	"context"

	"folio/internal/domain/models/publish"
)

// PublishService is the request path of the publish pipeline. It validates
// and enqueues; rendering happens in the background.
type PublishService interface {
	// Publish snapshots the site's selection into a new queued build
	Publish(ctx context.Context, userID, projectID string) (*publish.Build, error)

	// Revert queues a build that re-points the site at a prior successful publish
	Revert(ctx context.Context, userID, projectID, targetBuildID string) (*publish.Build, error)

	GetBuild(ctx context.Context, userID, buildID string) (*publish.Build, error)

	ListBuilds(ctx context.Context, userID, projectID string, limit int) ([]publish.Build, error)

	// GetLive returns the project pointer together with its build
	GetLive(ctx context.Context, userID, projectID string) (*LiveState, error)
}

// LiveState is what the dashboard shows as currently published.
type LiveState struct {
	Pointer *publish.Pointer `json:"pointer"`
	Build   *publish.Build   `json:"build"`
}

// RevertRequest represents a revert request
type RevertRequest struct {
	TargetBuildID string `json:"target_build_id"`
}
