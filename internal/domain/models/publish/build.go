package publish

import "time"

// BuildStatus is the lifecycle state of a build.
type BuildStatus string

const (
	BuildStatusQueued  BuildStatus = "queued"
	BuildStatusRunning BuildStatus = "running"
	BuildStatusSuccess BuildStatus = "success"
	BuildStatusFailed  BuildStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s BuildStatus) Terminal() bool {
	return s == BuildStatusSuccess || s == BuildStatusFailed
}

// Active reports whether the build still holds the site's publish slot.
func (s BuildStatus) Active() bool {
	return s == BuildStatusQueued || s == BuildStatusRunning
}

// BuildOperation distinguishes a fresh render from an alias of a prior build.
type BuildOperation string

const (
	OperationPublish BuildOperation = "publish"
	OperationRevert  BuildOperation = "revert"
)

type Build struct {
	ID               string         `json:"id" db:"id"`
	SiteID           string         `json:"site_id" db:"site_id"`
	Operation        BuildOperation `json:"operation" db:"operation"`
	Status           BuildStatus    `json:"status" db:"status"`
	ActorID          string         `json:"actor_id" db:"actor_id"`
	SelectedSpaceIDs []string       `json:"selected_space_ids" db:"selected_space_ids"`
	ItemsTotal       int            `json:"items_total" db:"items_total"`
	ItemsDone        int            `json:"items_done" db:"items_done"`
	PagesWritten     int            `json:"pages_written" db:"pages_written"`
	BytesWritten     int64          `json:"bytes_written" db:"bytes_written"`
	TargetBuildID    *string        `json:"target_build_id,omitempty" db:"target_build_id"`
	Error            *string        `json:"error,omitempty" db:"error"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	StartedAt        *time.Time     `json:"started_at,omitempty" db:"started_at"`
	FinishedAt       *time.Time     `json:"finished_at,omitempty" db:"finished_at"`
}

// Progress is a snapshot of a running build's counters. Repositories only
// ever move stored counters forward.
type Progress struct {
	ItemsDone    int
	PagesWritten int
	BytesWritten int64
}
