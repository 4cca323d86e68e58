package apispec

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"folio/internal/domain"
	models "folio/internal/domain/models/docsystem"
	publishSvc "folio/internal/domain/services/publish"
	"folio/internal/repository/memory"
	"folio/internal/service/auth"
	"folio/internal/service/docsystem"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const petstore = `
openapi: 3.0.3
info:
  title: Petstore
tags:
  - name: store
  - name: pets
  - name: unused
paths:
  /pets:
    parameters:
      - name: trace
        in: header
    get:
      operationId: listPets
      summary: List pets
      tags: [pets]
      parameters:
        - name: limit
          in: query
    post:
      summary: Create a pet
      description: |
        Adds a pet.

        Names must be unique.
      tags: [pets]
  /store/inventory:
    get:
      tags: [store]
  /health:
    get:
      operationId: health
`

func TestParseKeepsDocumentOrder(t *testing.T) {
	spec, err := Parse([]byte(petstore))
	require.NoError(t, err)

	assert.Equal(t, "Petstore", spec.Title)
	require.Len(t, spec.Tags, 3)
	assert.Equal(t, "store", spec.Tags[0].Name)
	assert.Equal(t, "pets", spec.Tags[1].Name)
	assert.Equal(t, "default", spec.Tags[2].Name)

	pets := spec.Tags[1].Operations
	require.Len(t, pets, 2)
	assert.Equal(t, "GET", pets[0].Method)
	assert.Equal(t, "List pets", pets[0].title())
	assert.Equal(t, []Parameter{{Name: "limit", In: "query"}}, pets[0].Parameters)
	assert.Equal(t, "POST", pets[1].Method)

	assert.Equal(t, "GET /store/inventory", spec.Tags[0].Operations[0].title())
	assert.Equal(t, 4, spec.operationCount())
}

func TestParseAcceptsJSON(t *testing.T) {
	spec, err := Parse([]byte(`{"openapi":"3.1.0","info":{"title":"J"},"paths":{"/a":{"delete":{"operationId":"del"}}}}`))
	require.NoError(t, err)
	require.Len(t, spec.Tags, 1)
	assert.Equal(t, "DELETE", spec.Tags[0].Operations[0].Method)
}

func TestParseRejects(t *testing.T) {
	for name, input := range map[string]string{
		"swagger 2":   "swagger: '2.0'\npaths: {}\n",
		"not yaml":    "openapi: [3\n",
		"paths array": "openapi: 3.0.0\npaths: [1, 2]\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

type fixture struct {
	importer publishSvc.APISpecService
	docs     *memory.DocumentRepository
	spaceID  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	projects := memory.NewProjectRepository()
	spaces := memory.NewSpaceRepository()
	docs := memory.NewDocumentRepository()

	project := &models.Project{Slug: "acme", Name: "Acme", OwnerID: "u1"}
	require.NoError(t, projects.Create(ctx, project))
	require.NoError(t, projects.AddMember(ctx, &models.ProjectMember{ProjectID: project.ID, UserID: "u1", Role: models.RoleEditor}))
	space := &models.Space{ProjectID: project.ID, Slug: "api", Name: "API"}
	require.NoError(t, spaces.Create(ctx, space))

	validator := docsystem.NewResourceValidator(spaces, docs, auth.NewRoleAuthorizer(projects))
	return &fixture{
		importer: NewImporter(docs, memory.NewTransactionManager(), validator, logger),
		docs:     docs,
		spaceID:  space.ID,
	}
}

func TestImportBuildsSpecManagedSubtree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, err := f.importer.Import(ctx, &publishSvc.ImportAPISpecRequest{SpaceID: f.spaceID, UserID: "u1", Spec: petstore})
	require.NoError(t, err)
	assert.Equal(t, models.DocumentTypeAPISpec, root.Type)
	assert.Equal(t, "petstore", root.Slug)

	tags, err := f.docs.ListChildren(ctx, f.spaceID, &root.ID)
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, []string{"store", "pets", "default"}, []string{tags[0].Slug, tags[1].Slug, tags[2].Slug})
	for _, tag := range tags {
		assert.Equal(t, models.DocumentTypeAPITag, tag.Type)
	}

	ops, err := f.docs.ListChildren(ctx, f.spaceID, &tags[1].ID)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "listpets", ops[0].Slug)
	assert.Equal(t, "post-pets", ops[1].Slug)
	assert.Equal(t, "Create a pet", ops[1].Title)
	require.NotNil(t, ops[0].API)
	assert.Equal(t, models.APIOperation{Method: "GET", Path: "/pets", OperationID: "listPets", Summary: "List pets"}, *ops[0].API)

	content, err := f.docs.GetContent(ctx, ops[1].ID)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Names must be unique.")
}

func TestReimportReplacesSubtree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.importer.Import(ctx, &publishSvc.ImportAPISpecRequest{SpaceID: f.spaceID, UserID: "u1", Spec: petstore})
	require.NoError(t, err)

	smaller := "openapi: 3.0.0\ninfo: {title: Petstore}\npaths:\n  /ping:\n    get: {operationId: ping}\n"
	second, err := f.importer.Import(ctx, &publishSvc.ImportAPISpecRequest{SpaceID: f.spaceID, UserID: "u1", Spec: smaller})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	all, err := f.docs.ListBySpace(ctx, f.spaceID)
	require.NoError(t, err)
	assert.Len(t, all, 3) // root, default tag, ping
}

func TestImportTitleOverrideAndErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, err := f.importer.Import(ctx, &publishSvc.ImportAPISpecRequest{SpaceID: f.spaceID, UserID: "u1", Title: "Public API", Spec: petstore})
	require.NoError(t, err)
	assert.Equal(t, "public-api", root.Slug)

	_, err = f.importer.Import(ctx, &publishSvc.ImportAPISpecRequest{SpaceID: f.spaceID, UserID: "u1", Spec: "swagger: '2.0'"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.importer.Import(ctx, &publishSvc.ImportAPISpecRequest{SpaceID: f.spaceID, UserID: "stranger", Spec: petstore})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestImportRefusesToReplaceNonSpecRoot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.docs.Create(ctx, &models.Document{SpaceID: f.spaceID, Type: models.DocumentTypePage, Slug: "petstore", Title: "Petstore", Rank: "V"}))

	_, err := f.importer.Import(ctx, &publishSvc.ImportAPISpecRequest{SpaceID: f.spaceID, UserID: "u1", Spec: petstore})
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}
