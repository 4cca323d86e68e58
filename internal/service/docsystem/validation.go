package docsystem

import (
	"context"
	"fmt"

	"folio/internal/domain/models/docsystem"
	docsysRepo "folio/internal/domain/repositories/docsystem"
	"folio/internal/domain/services"
	"folio/internal/service/auth"
)

// ResourceValidator resolves the project that owns a space or document and
// checks the caller's role on it before any operation touches the resource.
type ResourceValidator struct {
	spaceRepo  docsysRepo.SpaceRepository
	docRepo    docsysRepo.DocumentRepository
	authorizer services.ProjectAuthorizer
}

// NewResourceValidator creates a new resource validator
func NewResourceValidator(
	spaceRepo docsysRepo.SpaceRepository,
	docRepo docsysRepo.DocumentRepository,
	authorizer services.ProjectAuthorizer,
) *ResourceValidator {
	return &ResourceValidator{
		spaceRepo:  spaceRepo,
		docRepo:    docRepo,
		authorizer: authorizer,
	}
}

// ReadSpace loads a space the user is a member of
func (v *ResourceValidator) ReadSpace(ctx context.Context, userID, spaceID string) (*docsystem.Space, error) {
	space, err := v.spaceRepo.GetByID(ctx, spaceID)
	if err != nil {
		return nil, fmt.Errorf("invalid space: %w", err)
	}
	if _, err := v.authorizer.Authorize(ctx, userID, space.ProjectID); err != nil {
		return nil, err
	}
	return space, nil
}

// EditSpace loads a space the user may modify
func (v *ResourceValidator) EditSpace(ctx context.Context, userID, spaceID string) (*docsystem.Space, error) {
	space, err := v.spaceRepo.GetByID(ctx, spaceID)
	if err != nil {
		return nil, fmt.Errorf("invalid space: %w", err)
	}
	if _, err := auth.RequireEditor(ctx, v.authorizer, userID, space.ProjectID); err != nil {
		return nil, err
	}
	return space, nil
}

// ReadDocument loads a document the user can see
func (v *ResourceValidator) ReadDocument(ctx context.Context, userID, documentID string) (*docsystem.Document, error) {
	doc, err := v.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if _, err := v.ReadSpace(ctx, userID, doc.SpaceID); err != nil {
		return nil, err
	}
	return doc, nil
}

// EditDocument loads a document the user may modify
func (v *ResourceValidator) EditDocument(ctx context.Context, userID, documentID string) (*docsystem.Document, error) {
	doc, err := v.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if _, err := v.EditSpace(ctx, userID, doc.SpaceID); err != nil {
		return nil, err
	}
	return doc, nil
}
