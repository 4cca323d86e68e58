package publish

import (
	"encoding/json"
	"time"
)

// Site binds a project to a storage backend, hostnames and a publish selection.
type Site struct {
	ID               string          `json:"id" db:"id"`
	ProjectID        string          `json:"project_id" db:"project_id"`
	StoreID          string          `json:"store_id" db:"store_id"`
	BaseURL          string          `json:"base_url" db:"base_url"`
	PrimaryHost      string          `json:"primary_host" db:"primary_host"`
	CustomDomains    []string        `json:"custom_domains" db:"custom_domains"`
	SelectedSpaceIDs []string        `json:"selected_space_ids" db:"selected_space_ids"`
	Layout           string          `json:"layout" db:"layout"`
	Name             *string         `json:"name,omitempty" db:"name"`
	LogoURL          *string         `json:"logo_url,omitempty" db:"logo_url"`
	Theme            json.RawMessage `json:"theme,omitempty" db:"theme"`
	LastBuildID      *string         `json:"last_build_id,omitempty" db:"last_build_id"`
	LastPublishedAt  *time.Time      `json:"last_published_at,omitempty" db:"last_published_at"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// Hosts returns the primary host followed by every custom domain.
func (s *Site) Hosts() []string {
	hosts := make([]string, 0, len(s.CustomDomains)+1)
	hosts = append(hosts, s.PrimaryHost)
	return append(hosts, s.CustomDomains...)
}

// HasTheme reports whether the site carries a theme artifact.
func (s *Site) HasTheme() bool {
	return len(s.Theme) > 0 && string(s.Theme) != "null"
}

// DefaultLayout is used when a site is created without one.
const DefaultLayout = "sidebar"
