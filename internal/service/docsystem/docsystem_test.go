package docsystem

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"folio/internal/domain"
	models "folio/internal/domain/models/docsystem"
	docsysSvc "folio/internal/domain/services/docsystem"
	"folio/internal/httputil"
	"folio/internal/repository/memory"
	"folio/internal/service/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	owner  = "user-owner"
	viewer = "user-viewer"
)

type fixture struct {
	projects  docsysSvc.ProjectService
	spaces    docsysSvc.SpaceService
	documents docsysSvc.DocumentService
	trees     docsysSvc.TreeService
	docRepo   *memory.DocumentRepository
	projectID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	projectRepo := memory.NewProjectRepository()
	spaceRepo := memory.NewSpaceRepository()
	docRepo := memory.NewDocumentRepository()
	tx := memory.NewTransactionManager()
	authz := auth.NewRoleAuthorizer(projectRepo)
	validator := NewResourceValidator(spaceRepo, docRepo, authz)

	f := &fixture{
		projects:  NewProjectService(projectRepo, tx, authz, logger),
		spaces:    NewSpaceService(spaceRepo, docRepo, tx, validator, authz, logger),
		documents: NewDocumentService(docRepo, tx, validator, logger),
		trees:     NewTreeService(docRepo, validator, logger),
		docRepo:   docRepo,
	}

	ctx := context.Background()
	project, err := f.projects.CreateProject(ctx, &docsysSvc.CreateProjectRequest{UserID: owner, Name: "Acme Docs"})
	require.NoError(t, err)
	f.projectID = project.ID

	_, err = f.projects.AddMember(ctx, owner, project.ID, &docsysSvc.AddMemberRequest{UserID: viewer, Role: "viewer"})
	require.NoError(t, err)
	return f
}

func (f *fixture) space(t *testing.T, name string) *models.Space {
	t.Helper()
	space, err := f.spaces.CreateSpace(context.Background(), &docsysSvc.CreateSpaceRequest{
		ProjectID: f.projectID,
		UserID:    owner,
		Name:      name,
	})
	require.NoError(t, err)
	return space
}

func (f *fixture) page(t *testing.T, spaceID string, parentID *string, title string) *models.Document {
	t.Helper()
	doc, err := f.documents.CreateDocument(context.Background(), &docsysSvc.CreateDocumentRequest{
		SpaceID:  spaceID,
		UserID:   owner,
		ParentID: parentID,
		Title:    title,
	})
	require.NoError(t, err)
	return doc
}

func ptr(s string) *string { return &s }

func TestCreateProjectDerivesUniqueSlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	second, err := f.projects.CreateProject(ctx, &docsysSvc.CreateProjectRequest{UserID: owner, Name: "Acme  Docs"})
	require.NoError(t, err)
	assert.Equal(t, "acme-docs-2", second.Slug)

	_, err = f.projects.CreateProject(ctx, &docsysSvc.CreateProjectRequest{UserID: owner, Name: "Other", Slug: ptr("acme-docs")})
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestAddMemberRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	_, err := f.projects.AddMember(context.Background(), viewer, f.projectID, &docsysSvc.AddMemberRequest{UserID: "x", Role: "editor"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.projects.AddMember(context.Background(), owner, f.projectID, &docsysSvc.AddMemberRequest{UserID: "x", Role: "root"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateSpaceSeedsGroup(t *testing.T) {
	f := newFixture(t)
	space := f.space(t, "User Guide")

	assert.Equal(t, "user-guide", space.Slug)
	assert.Equal(t, models.SpaceStyleSidebar, space.Style)

	tree, err := f.trees.GetSpaceTree(context.Background(), viewer, space.ID)
	require.NoError(t, err)
	require.Len(t, tree.Nodes, 1)
	assert.Equal(t, models.DocumentTypeGroup, tree.Nodes[0].Type)
	assert.Equal(t, "getting-started", tree.Nodes[0].Slug)

	again := f.space(t, "User Guide")
	assert.Equal(t, "user-guide-2", again.Slug)
}

func TestSpaceAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.spaces.CreateSpace(ctx, &docsysSvc.CreateSpaceRequest{ProjectID: f.projectID, UserID: viewer, Name: "x"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.spaces.ListSpaces(ctx, "stranger", f.projectID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	spaces, err := f.spaces.ListSpaces(ctx, viewer, f.projectID)
	require.NoError(t, err)
	assert.Empty(t, spaces)
}

func TestUpdateSpaceValidates(t *testing.T) {
	f := newFixture(t)
	space := f.space(t, "Guide")
	ctx := context.Background()

	_, err := f.spaces.UpdateSpace(ctx, owner, space.ID, &docsysSvc.UpdateSpaceRequest{Slug: ptr("Not A Slug")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.spaces.UpdateSpace(ctx, owner, space.ID, &docsysSvc.UpdateSpaceRequest{Style: ptr("carousel")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	updated, err := f.spaces.UpdateSpace(ctx, owner, space.ID, &docsysSvc.UpdateSpaceRequest{Name: ptr("Handbook"), Style: ptr("tabs")})
	require.NoError(t, err)
	assert.Equal(t, "Handbook", updated.Name)
	assert.Equal(t, models.SpaceStyleTabs, updated.Style)
	assert.Equal(t, "guide", updated.Slug)
}

func TestDeleteSpaceRemovesDocuments(t *testing.T) {
	f := newFixture(t)
	space := f.space(t, "Guide")
	f.page(t, space.ID, nil, "Intro")

	require.NoError(t, f.spaces.DeleteSpace(context.Background(), owner, space.ID))

	_, err := f.spaces.GetSpace(context.Background(), owner, space.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	docs, err := f.docRepo.ListBySpace(context.Background(), space.ID)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestCreateDocumentSlugAndRank(t *testing.T) {
	f := newFixture(t)
	space := f.space(t, "Guide")

	a := f.page(t, space.ID, nil, "Install")
	b := f.page(t, space.ID, nil, "Install")
	c := f.page(t, space.ID, nil, "Configure")

	assert.Equal(t, "install", a.Slug)
	assert.Equal(t, "install-2", b.Slug)
	assert.Less(t, a.Rank, b.Rank)
	assert.Less(t, b.Rank, c.Rank)

	// Same slug is fine under another parent
	child := f.page(t, space.ID, &a.ID, "Install")
	assert.Equal(t, "install", child.Slug)
}

func TestCreateDocumentRules(t *testing.T) {
	f := newFixture(t)
	space := f.space(t, "Guide")
	page := f.page(t, space.ID, nil, "Intro")
	ctx := context.Background()

	tests := []struct {
		name string
		req  docsysSvc.CreateDocumentRequest
		want error
	}{
		{"group under page", docsysSvc.CreateDocumentRequest{Type: "group", Title: "G", ParentID: &page.ID}, domain.ErrValidation},
		{"spec managed", docsysSvc.CreateDocumentRequest{Type: "api", Title: "GET /x"}, domain.ErrValidation},
		{"unknown type", docsysSvc.CreateDocumentRequest{Type: "folder", Title: "F"}, domain.ErrValidation},
		{"missing title", docsysSvc.CreateDocumentRequest{Type: "page"}, domain.ErrValidation},
		{"bad slug", docsysSvc.CreateDocumentRequest{Title: "T", Slug: ptr("a b")}, domain.ErrValidation},
		{"bad content", docsysSvc.CreateDocumentRequest{Title: "T", Content: json.RawMessage("{")}, domain.ErrValidation},
		{"missing parent", docsysSvc.CreateDocumentRequest{Title: "T", ParentID: ptr("nope")}, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.SpaceID = space.ID
			req.UserID = owner
			_, err := f.documents.CreateDocument(ctx, &req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := f.documents.CreateDocument(ctx, &docsysSvc.CreateDocumentRequest{SpaceID: space.ID, UserID: viewer, Title: "T"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRenameRederivesSlug(t *testing.T) {
	f := newFixture(t)
	space := f.space(t, "Guide")
	doc := f.page(t, space.ID, nil, "Intro")
	ctx := context.Background()

	updated, err := f.documents.UpdateDocument(ctx, owner, doc.ID, &docsysSvc.UpdateDocumentRequest{Title: ptr("Quick Start")})
	require.NoError(t, err)
	assert.Equal(t, "quick-start", updated.Slug)
	assert.Equal(t, doc.Rank, updated.Rank)

	updated, err = f.documents.UpdateDocument(ctx, owner, doc.ID, &docsysSvc.UpdateDocumentRequest{Title: ptr("Overview"), Slug: ptr("start")})
	require.NoError(t, err)
	assert.Equal(t, "start", updated.Slug)
	assert.Equal(t, "Overview", updated.Title)
}

func TestMoveAndPosition(t *testing.T) {
	f := newFixture(t)
	space := f.space(t, "Guide")
	a := f.page(t, space.ID, nil, "A")
	b := f.page(t, space.ID, nil, "B")
	c := f.page(t, space.ID, nil, "C")
	ctx := context.Background()

	// Put C between A and B
	_, err := f.documents.UpdateDocument(ctx, owner, c.ID, &docsysSvc.UpdateDocumentRequest{
		Position: &docsysSvc.Position{AfterID: a.ID},
	})
	require.NoError(t, err)

	children, err := f.docRepo.ListChildren(ctx, space.ID, nil)
	require.NoError(t, err)
	var slugs []string
	for _, d := range children {
		slugs = append(slugs, d.Slug)
	}
	assert.Equal(t, []string{"getting-started", "a", "c", "b"}, slugs)

	// Move B under A, then refuse moving A under B
	moved, err := f.documents.UpdateDocument(ctx, owner, b.ID, &docsysSvc.UpdateDocumentRequest{
		ParentID: httputil.OptionalString{Present: true, Value: &a.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, a.ID, *moved.ParentID)

	_, err = f.documents.UpdateDocument(ctx, owner, a.ID, &docsysSvc.UpdateDocumentRequest{
		ParentID: httputil.OptionalString{Present: true, Value: &b.ID},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Back to root
	moved, err = f.documents.UpdateDocument(ctx, owner, b.ID, &docsysSvc.UpdateDocumentRequest{
		ParentID: httputil.OptionalString{Present: true},
	})
	require.NoError(t, err)
	assert.Nil(t, moved.ParentID)

	_, err = f.documents.UpdateDocument(ctx, owner, b.ID, &docsysSvc.UpdateDocumentRequest{
		Position: &docsysSvc.Position{AfterID: "not-a-sibling"},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestContentAndDelete(t *testing.T) {
	f := newFixture(t)
	space := f.space(t, "Guide")
	root := f.page(t, space.ID, nil, "Root")
	child := f.page(t, space.ID, &root.ID, "Child")
	f.page(t, space.ID, &child.ID, "Grandchild")
	keep := f.page(t, space.ID, nil, "Keep")
	ctx := context.Background()

	body := json.RawMessage(`{"type":"doc","content":[]}`)
	require.NoError(t, f.documents.UpdateContent(ctx, owner, child.ID, body))
	got, err := f.documents.GetDocument(ctx, viewer, child.ID)
	require.NoError(t, err)
	assert.JSONEq(t, string(body), string(got.Content))

	assert.ErrorIs(t, f.documents.UpdateContent(ctx, viewer, child.ID, body), domain.ErrForbidden)

	require.NoError(t, f.documents.DeleteDocument(ctx, owner, root.ID))
	docs, err := f.docRepo.ListBySpace(ctx, space.ID)
	require.NoError(t, err)
	var ids []string
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, keep.ID)
}

func TestGroupsHaveNoContent(t *testing.T) {
	f := newFixture(t)
	space := f.space(t, "Guide")
	tree, err := f.trees.GetSpaceTree(context.Background(), owner, space.ID)
	require.NoError(t, err)

	err = f.documents.UpdateContent(context.Background(), owner, tree.Nodes[0].ID, json.RawMessage(`{}`))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSpecManagedDocumentsAreLocked(t *testing.T) {
	f := newFixture(t)
	space := f.space(t, "API")
	ctx := context.Background()

	op := &models.Document{SpaceID: space.ID, Type: models.DocumentTypeAPI, Slug: "get-pets", Title: "GET /pets", Rank: "V"}
	require.NoError(t, f.docRepo.Create(ctx, op))

	_, err := f.documents.UpdateDocument(ctx, owner, op.ID, &docsysSvc.UpdateDocumentRequest{Title: ptr("x")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, f.documents.DeleteDocument(ctx, owner, op.ID), domain.ErrValidation)

	icon := "bolt"
	updated, err := f.documents.UpdateDocument(ctx, owner, op.ID, &docsysSvc.UpdateDocumentRequest{
		Icon: httputil.OptionalString{Present: true, Value: &icon},
	})
	require.NoError(t, err)
	assert.Equal(t, "bolt", *updated.Icon)
}

func TestBuildTreeNestsInRankOrder(t *testing.T) {
	root := "r"
	docs := []models.Document{
		{ID: "r", Slug: "root", Rank: "A"},
		{ID: "x", Slug: "x", Rank: "B", ParentID: &root},
		{ID: "y", Slug: "y", Rank: "C", ParentID: &root},
		{ID: "o", Slug: "orphan", Rank: "D", ParentID: ptr("gone")},
		{ID: "s", Slug: "second", Rank: "E"},
	}

	nodes := BuildTree(docs)
	require.Len(t, nodes, 2)
	assert.Equal(t, "root", nodes[0].Slug)
	require.Len(t, nodes[0].Children, 2)
	assert.Equal(t, "x", nodes[0].Children[0].Slug)
	assert.Equal(t, "y", nodes[0].Children[1].Slug)
	assert.NotNil(t, nodes[1].Children)
}
