package publish

import (
	"time"

	"folio/internal/domain/models/docsystem"
)

// Artifact format versions.
const (
	ManifestVersion = 3
	TreeVersion     = 2
	ContentVersion  = 1
)

// Artifact file names written under a build id.
const (
	ManifestFile = "manifest.json"
	TreeFile     = "tree.json"
	ThemeFile    = "theme.json"
	PointerFile  = "latest.json"
)

// Manifest is the route-indexed description of one build.
type Manifest struct {
	Version            int                  `json:"version"`
	ContentVersion     int                  `json:"contentVersion"`
	BuildID            string               `json:"buildId"`
	PublishedAt        time.Time            `json:"publishedAt"`
	AliasedFromBuildID string               `json:"aliasedFromBuildId,omitempty"`
	Site               ManifestSite         `json:"site"`
	Routing            Routing              `json:"routing"`
	Nav                Nav                  `json:"nav"`
	Counts             Counts               `json:"counts"`
	Pages              map[string]PageEntry `json:"pages"`
}

type ManifestSite struct {
	Layout  string  `json:"layout"`
	BaseURL string  `json:"baseUrl"`
	Name    *string `json:"name,omitempty"`
	LogoURL *string `json:"logoUrl,omitempty"`
}

type Routing struct {
	BasePath     string `json:"basePath"`
	DefaultSpace string `json:"defaultSpace"`
}

type Nav struct {
	Spaces []NavSpace `json:"spaces"`
}

// NavSpace is one published space. Entry is the first route of the space.
type NavSpace struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Style string `json:"style"`
	Order int    `json:"order"`
	Entry string `json:"entry,omitempty"`
}

// Counts always satisfies NewBlobs+ReusedBlobs == Pages.
type Counts struct {
	Pages       int `json:"pages"`
	NewBlobs    int `json:"newBlobs"`
	ReusedBlobs int `json:"reusedBlobs"`
}

// PageEntry points one route at its content blob.
type PageEntry struct {
	ID           string                  `json:"id"`
	Title        string                  `json:"title"`
	Slug         string                  `json:"slug"`
	Trail        []string                `json:"trail"`
	Space        string                  `json:"space"`
	Kind         string                  `json:"kind"`
	Blob         string                  `json:"blob"`
	Hash         string                  `json:"hash"`
	Size         int64                   `json:"size"`
	Neighbors    []string                `json:"neighbors"`
	LastModified time.Time               `json:"lastModified"`
	Icon         *string                 `json:"icon,omitempty"`
	API          *docsystem.APIOperation `json:"api,omitempty"`
}

// Tree is the per-build navigation hierarchy used for sidebar rendering.
type Tree struct {
	Version            int         `json:"version"`
	BuildID            string      `json:"buildId"`
	PublishedAt        time.Time   `json:"publishedAt"`
	AliasedFromBuildID string      `json:"aliasedFromBuildId,omitempty"`
	Nav                Nav         `json:"nav"`
	Spaces             []TreeSpace `json:"spaces"`
}

type TreeSpace struct {
	Space TreeSpaceInfo `json:"space"`
	Items []*TreeItem   `json:"items"`
}

type TreeSpaceInfo struct {
	Slug     string  `json:"slug"`
	Name     string  `json:"name"`
	IconName *string `json:"iconName,omitempty"`
}

// Tree item kinds.
const (
	KindGroup = "group"
	KindPage  = "page"
	KindAPI   = "api"
)

type TreeItem struct {
	Kind     string      `json:"kind"`
	Title    string      `json:"title"`
	Slug     string      `json:"slug"`
	Route    string      `json:"route,omitempty"`
	Icon     *string     `json:"icon,omitempty"`
	Children []*TreeItem `json:"children,omitempty"`
}

// Pointer names the live build of a project or hostname.
type Pointer struct {
	BuildID     string `json:"buildId"`
	ManifestURL string `json:"manifestUrl"`
	TreeURL     string `json:"treeUrl"`
	ThemeURL    string `json:"themeUrl,omitempty"`
}
