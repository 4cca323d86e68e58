package docsystem

import "time"

// SpaceStyle controls how a space is presented in published navigation.
type SpaceStyle string

const (
	SpaceStyleSidebar SpaceStyle = "sidebar"
	SpaceStyleTabs    SpaceStyle = "tabs"
)

// Space is a named collection of documents, the unit of publish selection.
type Space struct {
	ID        string     `json:"id" db:"id"`
	ProjectID string     `json:"project_id" db:"project_id"`
	Slug      string     `json:"slug" db:"slug"`
	Name      string     `json:"name" db:"name"`
	IconName  *string    `json:"icon_name,omitempty" db:"icon_name"`
	Style     SpaceStyle `json:"style" db:"style"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}
