// Package contentsource supplies the publish pipeline with document trees and
// page sources, either from the editor's persisted state or from files
// synced from a repository.
package contentsource

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"folio/internal/domain/models/docsystem"
	"folio/internal/domain/models/publish"
	docsysRepo "folio/internal/domain/repositories/docsystem"
	publishSvc "folio/internal/domain/services/publish"
	"folio/internal/service/blobstore"
)

// spaceLister loads the selected spaces and their documents. Both sources
// share it since document metadata always lives in the database.
type spaceLister struct {
	spaces docsysRepo.SpaceRepository
	docs   docsysRepo.DocumentRepository
	logger *slog.Logger
}

func (l *spaceLister) ListSpaces(ctx context.Context, projectID string, spaceIDs []string) ([]docsystem.SpaceTree, error) {
	spaces, err := l.spaces.ListByIDs(ctx, spaceIDs)
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}

	trees := make([]docsystem.SpaceTree, 0, len(spaces))
	for i := range spaces {
		space := &spaces[i]
		if space.ProjectID != projectID {
			l.logger.Warn("skipping space of another project", "space_id", space.ID, "project_id", projectID)
			continue
		}
		docs, err := l.docs.ListBySpace(ctx, space.ID)
		if err != nil {
			return nil, fmt.Errorf("list documents of space %s: %w", space.ID, err)
		}
		trees = append(trees, docsystem.SpaceTree{Space: space, Documents: docs})
	}
	return trees, nil
}

// EditorSource reads page content from the editor's persisted TipTap JSON.
type EditorSource struct {
	spaceLister
}

// NewEditorSource creates an editor-backed content source
func NewEditorSource(spaces docsysRepo.SpaceRepository, docs docsysRepo.DocumentRepository, logger *slog.Logger) *EditorSource {
	return &EditorSource{spaceLister{spaces: spaces, docs: docs, logger: logger}}
}

var _ publishSvc.ContentSource = (*EditorSource)(nil)

func (s *EditorSource) LoadContent(ctx context.Context, projectID string, doc *docsystem.Document) (*publish.StructuredContent, error) {
	body, err := s.docs.GetContent(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("load content of %s: %w", doc.ID, err)
	}
	return &publish.StructuredContent{Format: publish.FormatTipTap, Body: body}, nil
}

// RepositorySource reads page content from files synced into the object store
// under the project's sources prefix.
type RepositorySource struct {
	spaceLister
	blobs *blobstore.Store
}

// NewRepositorySource creates a repository-backed content source
func NewRepositorySource(spaces docsysRepo.SpaceRepository, docs docsysRepo.DocumentRepository, blobs *blobstore.Store, logger *slog.Logger) *RepositorySource {
	return &RepositorySource{
		spaceLister: spaceLister{spaces: spaces, docs: docs, logger: logger},
		blobs:       blobs,
	}
}

var _ publishSvc.ContentSource = (*RepositorySource)(nil)

func (s *RepositorySource) LoadContent(ctx context.Context, projectID string, doc *docsystem.Document) (*publish.StructuredContent, error) {
	if doc.SourceKey == nil || *doc.SourceKey == "" {
		return nil, fmt.Errorf("document %s has no source key", doc.ID)
	}
	body, err := s.blobs.ReadSource(ctx, projectID, *doc.SourceKey)
	if err != nil {
		return nil, err
	}
	return &publish.StructuredContent{Format: formatOf(*doc.SourceKey), Body: body}, nil
}

// formatOf infers the source format from the file extension.
func formatOf(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".json":
		return publish.FormatTipTap
	default:
		return publish.FormatMarkdown
	}
}

// Selector routes each document to the repository source when it carries a
// source key and to the editor source otherwise.
type Selector struct {
	editor     *EditorSource
	repository *RepositorySource
}

// NewSelector combines the editor and repository sources
func NewSelector(editor *EditorSource, repository *RepositorySource) *Selector {
	return &Selector{editor: editor, repository: repository}
}

var _ publishSvc.ContentSource = (*Selector)(nil)

func (s *Selector) ListSpaces(ctx context.Context, projectID string, spaceIDs []string) ([]docsystem.SpaceTree, error) {
	return s.editor.ListSpaces(ctx, projectID, spaceIDs)
}

func (s *Selector) LoadContent(ctx context.Context, projectID string, doc *docsystem.Document) (*publish.StructuredContent, error) {
	if doc.SourceKey != nil && *doc.SourceKey != "" {
		return s.repository.LoadContent(ctx, projectID, doc)
	}
	return s.editor.LoadContent(ctx, projectID, doc)
}
