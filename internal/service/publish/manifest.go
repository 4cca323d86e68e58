package publish

import (
	"time"

	"folio/internal/domain/models/publish"
)

// neighborCount is how many following routes are attached as prefetch hints.
const neighborCount = 2

// ArtifactInput is everything needed to assemble a build's manifest and tree.
// Blobs is indexed like Flat.Pages.
type ArtifactInput struct {
	BuildID     string
	PublishedAt time.Time
	Site        *publish.Site
	Flat        *FlatResult
	Blobs       []*publish.BlobRef
}

// BuildArtifacts assembles the route-indexed manifest and the navigation tree.
func BuildArtifacts(in ArtifactInput) (*publish.Manifest, *publish.Tree) {
	nav := buildNav(in.Flat)

	manifest := &publish.Manifest{
		Version:        publish.ManifestVersion,
		ContentVersion: publish.ContentVersion,
		BuildID:        in.BuildID,
		PublishedAt:    in.PublishedAt,
		Site: publish.ManifestSite{
			Layout:  layoutOf(in.Site),
			BaseURL: in.Site.BaseURL,
			Name:    in.Site.Name,
			LogoURL: in.Site.LogoURL,
		},
		Routing: publish.Routing{
			BasePath:     "/",
			DefaultSpace: defaultSpace(nav),
		},
		Nav:   nav,
		Pages: make(map[string]publish.PageEntry, len(in.Flat.Pages)),
	}

	for i, page := range in.Flat.Pages {
		ref := in.Blobs[i]
		doc := page.Document
		manifest.Pages[page.Route] = publish.PageEntry{
			ID:           doc.ID,
			Title:        doc.Title,
			Slug:         doc.Slug,
			Trail:        page.Trail,
			Space:        page.Space,
			Kind:         page.Kind,
			Blob:         ref.Key,
			Hash:         ref.Hash,
			Size:         ref.Size,
			Neighbors:    neighbors(in.Flat.RoutesBySpace[page.Space], page.Route),
			LastModified: doc.UpdatedAt,
			Icon:         doc.Icon,
			API:          doc.API,
		}
		manifest.Counts.Pages++
		if ref.IsNew {
			manifest.Counts.NewBlobs++
		} else {
			manifest.Counts.ReusedBlobs++
		}
	}

	tree := &publish.Tree{
		Version:     publish.TreeVersion,
		BuildID:     in.BuildID,
		PublishedAt: in.PublishedAt,
		Nav:         nav,
		Spaces:      make([]publish.TreeSpace, 0, len(in.Flat.Spaces)),
	}
	for _, fs := range in.Flat.Spaces {
		tree.Spaces = append(tree.Spaces, publish.TreeSpace{
			Space: publish.TreeSpaceInfo{
				Slug:     fs.Space.Slug,
				Name:     fs.Space.Name,
				IconName: fs.Space.IconName,
			},
			Items: fs.Items,
		})
	}

	return manifest, tree
}

func buildNav(flat *FlatResult) publish.Nav {
	spaces := make([]publish.NavSpace, 0, len(flat.Spaces))
	for i, fs := range flat.Spaces {
		ns := publish.NavSpace{
			Slug:  fs.Space.Slug,
			Name:  fs.Space.Name,
			Style: string(fs.Space.Style),
			Order: i,
		}
		if len(fs.Routes) > 0 {
			ns.Entry = fs.Routes[0]
		}
		spaces = append(spaces, ns)
	}
	return publish.Nav{Spaces: spaces}
}

// defaultSpace prefers the first space that has pages.
func defaultSpace(nav publish.Nav) string {
	for _, s := range nav.Spaces {
		if s.Entry != "" {
			return s.Slug
		}
	}
	if len(nav.Spaces) > 0 {
		return nav.Spaces[0].Slug
	}
	return ""
}

// neighbors returns up to neighborCount routes following route.
func neighbors(routes []string, route string) []string {
	out := []string{}
	for i, r := range routes {
		if r != route {
			continue
		}
		end := min(i+1+neighborCount, len(routes))
		return append(out, routes[i+1:end]...)
	}
	return out
}

func layoutOf(site *publish.Site) string {
	if site.Layout == "" {
		return publish.DefaultLayout
	}
	return site.Layout
}
