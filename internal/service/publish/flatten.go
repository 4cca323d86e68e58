package publish

import (
	"sort"
	"strings"

	"folio/internal/domain/models/docsystem"
	"folio/internal/domain/models/publish"
)

// apiRoutePrefix prefixes the routes of API operation leaves.
const apiRoutePrefix = "/api-reference"

// FlatPage is one publishable document with its resolved route.
type FlatPage struct {
	Route    string
	Space    string // space slug
	Kind     string // page or api
	Trail    []string
	Document *docsystem.Document
}

// FlatSpace is a selected space in publish order.
type FlatSpace struct {
	Space  *docsystem.Space
	Routes []string
	Items  []*publish.TreeItem
}

// FlatResult is the traversal of every selected space. Pages are in space
// order and, within a space, in depth-first rank order.
type FlatResult struct {
	Pages         []FlatPage
	Spaces        []FlatSpace
	RoutesBySpace map[string][]string
	// Duplicates lists routes that were produced more than once; only the
	// first occurrence is kept.
	Duplicates []string
}

// Flatten walks each space's document tree in the given order and computes
// one route per page-like document.
func Flatten(spaces []docsystem.SpaceTree) *FlatResult {
	result := &FlatResult{
		Pages:         []FlatPage{},
		Spaces:        make([]FlatSpace, 0, len(spaces)),
		RoutesBySpace: make(map[string][]string, len(spaces)),
	}
	seen := make(map[string]bool)

	for i := range spaces {
		st := &spaces[i]
		if st.Space == nil {
			continue
		}
		f := &flattener{
			space:    st.Space,
			children: childrenByParent(st.Documents),
			visited:  make(map[string]bool),
			seen:     seen,
			result:   result,
			routes:   []string{},
		}
		items := f.walk(nil, nil)
		if items == nil {
			items = []*publish.TreeItem{}
		}

		result.RoutesBySpace[st.Space.Slug] = f.routes
		result.Spaces = append(result.Spaces, FlatSpace{
			Space:  st.Space,
			Routes: f.routes,
			Items:  items,
		})
	}
	return result
}

type flattener struct {
	space    *docsystem.Space
	children map[string][]*docsystem.Document // "" = roots
	visited  map[string]bool
	seen     map[string]bool
	result   *FlatResult
	routes   []string
}

func (f *flattener) walk(parentID *string, trail []string) []*publish.TreeItem {
	key := ""
	if parentID != nil {
		key = *parentID
	}

	var items []*publish.TreeItem
	for _, doc := range f.children[key] {
		if f.visited[doc.ID] {
			continue
		}
		f.visited[doc.ID] = true

		docTrail := make([]string, len(trail), len(trail)+1)
		copy(docTrail, trail)
		docTrail = append(docTrail, doc.Slug)

		item := &publish.TreeItem{
			Kind:  itemKind(doc.Type),
			Title: doc.Title,
			Slug:  doc.Slug,
			Icon:  doc.Icon,
		}

		if doc.Type.PageLike() {
			route := f.route(doc.Type, docTrail)
			item.Route = route
			if f.seen[route] {
				f.result.Duplicates = append(f.result.Duplicates, route)
			} else {
				f.seen[route] = true
				f.routes = append(f.routes, route)
				f.result.Pages = append(f.result.Pages, FlatPage{
					Route:    route,
					Space:    f.space.Slug,
					Kind:     item.Kind,
					Trail:    docTrail,
					Document: doc,
				})
			}
		}

		id := doc.ID
		item.Children = f.walk(&id, docTrail)
		items = append(items, item)
	}
	return items
}

func (f *flattener) route(t docsystem.DocumentType, trail []string) string {
	path := "/" + f.space.Slug + "/" + strings.Join(trail, "/")
	if t == docsystem.DocumentTypeAPI {
		return apiRoutePrefix + path
	}
	return path
}

func itemKind(t docsystem.DocumentType) string {
	switch t {
	case docsystem.DocumentTypePage:
		return publish.KindPage
	case docsystem.DocumentTypeAPI:
		return publish.KindAPI
	default:
		return publish.KindGroup
	}
}

// childrenByParent groups documents by parent id, each group sorted by rank
// with slug as tie-break.
func childrenByParent(docs []docsystem.Document) map[string][]*docsystem.Document {
	children := make(map[string][]*docsystem.Document)
	for i := range docs {
		d := &docs[i]
		key := ""
		if d.ParentID != nil {
			key = *d.ParentID
		}
		children[key] = append(children[key], d)
	}
	for _, list := range children {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Rank != list[j].Rank {
				return list[i].Rank < list[j].Rank
			}
			return list[i].Slug < list[j].Slug
		})
	}
	return children
}
