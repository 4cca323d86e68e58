package docsystem

import "time"

// SpaceTree is a space together with all of its documents, used by the
// dashboard sidebar and by the publish pipeline.
type SpaceTree struct {
	Space     *Space      `json:"space"`
	Documents []Document  `json:"-"`
	Nodes     []*TreeNode `json:"nodes"`
}

// TreeNode is a document in the nested dashboard tree (metadata only, no content)
type TreeNode struct {
	ID        string       `json:"id"`
	Type      DocumentType `json:"type"`
	Slug      string       `json:"slug"`
	Title     string       `json:"title"`
	Rank      string       `json:"rank"`
	Icon      *string      `json:"icon,omitempty"`
	ParentID  *string      `json:"parent_id"`
	UpdatedAt time.Time    `json:"updated_at"`
	Children  []*TreeNode  `json:"children"`
}
