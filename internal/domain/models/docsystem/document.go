package docsystem

import (
	"encoding/json"
	"time"
)

// DocumentType is the kind of node a document represents in its space tree.
type DocumentType string

const (
	DocumentTypePage    DocumentType = "page"
	DocumentTypeGroup   DocumentType = "group"
	DocumentTypeAPI     DocumentType = "api"
	DocumentTypeAPISpec DocumentType = "api_spec"
	DocumentTypeAPITag  DocumentType = "api_tag"
)

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypePage, DocumentTypeGroup, DocumentTypeAPI, DocumentTypeAPISpec, DocumentTypeAPITag:
		return true
	}
	return false
}

// PageLike reports whether documents of this type produce a published route.
func (t DocumentType) PageLike() bool {
	return t == DocumentTypePage || t == DocumentTypeAPI
}

// SpecManaged reports whether documents of this type are owned by an imported API spec.
func (t DocumentType) SpecManaged() bool {
	return t == DocumentTypeAPI || t == DocumentTypeAPITag
}

// APIOperation describes the endpoint behind an api document.
type APIOperation struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	OperationID string `json:"operationId,omitempty"`
	Summary     string `json:"summary,omitempty"`
}

type Document struct {
	ID        string          `json:"id" db:"id"`
	SpaceID   string          `json:"space_id" db:"space_id"`
	ParentID  *string         `json:"parent_id" db:"parent_id"` // NULL = root level
	Type      DocumentType    `json:"type" db:"type"`
	Slug      string          `json:"slug" db:"slug"`
	Title     string          `json:"title" db:"title"`
	Rank      string          `json:"rank" db:"rank"`
	Icon      *string         `json:"icon,omitempty" db:"icon"`
	SourceKey *string         `json:"source_key,omitempty" db:"source_key"`
	API       *APIOperation   `json:"api,omitempty" db:"api"`
	Content   json.RawMessage `json:"content,omitempty" db:"content"` // persisted editor state
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// IsRoot reports whether the document has no parent.
func (d *Document) IsRoot() bool {
	return d.ParentID == nil
}
