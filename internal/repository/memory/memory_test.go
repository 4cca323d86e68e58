package memory

import (
	"context"
	"testing"
	"time"

	"folio/internal/domain"
	"folio/internal/domain/models/docsystem"
	"folio/internal/domain/models/publish"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestBuildRepositorySingleFlight(t *testing.T) {
	ctx := context.Background()
	repo := NewBuildRepository()

	first := &publish.Build{SiteID: "s1", Operation: publish.OperationPublish}
	require.NoError(t, repo.Create(ctx, first))
	assert.Equal(t, publish.BuildStatusQueued, first.Status)

	err := repo.Create(ctx, &publish.Build{SiteID: "s1", Operation: publish.OperationPublish})
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.ID, conflict.ResourceID)

	// Another site is unaffected
	require.NoError(t, repo.Create(ctx, &publish.Build{SiteID: "s2"}))

	ok, err := repo.MarkRunning(ctx, first.ID, time.Now())
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = repo.MarkSucceeded(ctx, first.ID, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, repo.Create(ctx, &publish.Build{SiteID: "s1"}))
}

func TestBuildRepositoryTransitions(t *testing.T) {
	ctx := context.Background()
	repo := NewBuildRepository()
	b := &publish.Build{SiteID: "s1"}
	require.NoError(t, repo.Create(ctx, b))

	// success requires running
	ok, err := repo.MarkSucceeded(ctx, b.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, publish.BuildStatusQueued, got.Status)

	ok, err = repo.MarkRunning(ctx, b.ID, time.Now())
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = repo.MarkRunning(ctx, b.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	tests := []struct {
		name string
		mark func() (bool, error)
		want bool
	}{
		{"fail running", func() (bool, error) { return repo.MarkFailed(ctx, b.ID, "boom", time.Now()) }, true},
		{"succeed after failure", func() (bool, error) { return repo.MarkSucceeded(ctx, b.ID, time.Now()) }, false},
		{"fail twice", func() (bool, error) { return repo.MarkFailed(ctx, b.ID, "again", time.Now()) }, false},
	}
	for _, tt := range tests {
		ok, err := tt.mark()
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, ok, tt.name)
	}

	_, err = repo.MarkFailed(ctx, "missing", "boom", time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err = repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, publish.BuildStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, "boom", *got.Error)

	_, err = repo.GetActive(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBuildRepositoryProgressIsMonotonic(t *testing.T) {
	ctx := context.Background()
	repo := NewBuildRepository()
	b := &publish.Build{SiteID: "s1"}
	require.NoError(t, repo.Create(ctx, b))

	require.NoError(t, repo.UpdateProgress(ctx, b.ID, publish.Progress{ItemsDone: 5, PagesWritten: 5, BytesWritten: 500}))
	require.NoError(t, repo.UpdateProgress(ctx, b.ID, publish.Progress{ItemsDone: 3, PagesWritten: 6, BytesWritten: 100}))

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.ItemsDone)
	assert.Equal(t, 6, got.PagesWritten)
	assert.Equal(t, int64(500), got.BytesWritten)
}

func TestBuildRepositoryListBySiteNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewBuildRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		b := &publish.Build{SiteID: "s1", Status: publish.BuildStatusSuccess, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repo.Create(ctx, b))
	}

	builds, err := repo.ListBySite(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, builds, 2)
	assert.True(t, builds[0].CreatedAt.After(builds[1].CreatedAt))
}

func TestDocumentRepositorySiblingSlug(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository()

	group := &docsystem.Document{SpaceID: "sp", Type: docsystem.DocumentTypeGroup, Slug: "guides", Rank: "V"}
	require.NoError(t, repo.Create(ctx, group))
	require.NoError(t, repo.Create(ctx, &docsystem.Document{SpaceID: "sp", ParentID: strPtr(group.ID), Slug: "intro", Rank: "V"}))

	// Same slug under a different parent is fine
	require.NoError(t, repo.Create(ctx, &docsystem.Document{SpaceID: "sp", Slug: "intro", Rank: "W"}))

	err := repo.Create(ctx, &docsystem.Document{SpaceID: "sp", ParentID: strPtr(group.ID), Slug: "intro", Rank: "X"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestDocumentRepositoryOrderingAndContent(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository()

	b := &docsystem.Document{SpaceID: "sp", Slug: "b", Rank: "V", Content: []byte(`{"type":"doc"}`)}
	a := &docsystem.Document{SpaceID: "sp", Slug: "a", Rank: "V"}
	c := &docsystem.Document{SpaceID: "sp", Slug: "c", Rank: "F"}
	for _, d := range []*docsystem.Document{b, a, c} {
		require.NoError(t, repo.Create(ctx, d))
	}

	docs, err := repo.ListBySpace(ctx, "sp")
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{docs[0].Slug, docs[1].Slug, docs[2].Slug})
	for _, d := range docs {
		assert.Nil(t, d.Content)
	}

	content, err := repo.GetContent(ctx, b.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"doc"}`, string(content))

	// Update keeps content
	b.Title = "Bee"
	b.Content = nil
	require.NoError(t, repo.Update(ctx, b))
	content, err = repo.GetContent(ctx, b.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, content)

	require.NoError(t, repo.DeleteMany(ctx, []string{a.ID, c.ID}))
	docs, err = repo.ListChildren(ctx, "sp", nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Bee", docs[0].Title)
}

func TestSiteRepositoryOnePerProject(t *testing.T) {
	ctx := context.Background()
	repo := NewSiteRepository()

	site := &publish.Site{ProjectID: "p1", PrimaryHost: "acme.docs.example.com"}
	require.NoError(t, repo.Create(ctx, site))
	err := repo.Create(ctx, &publish.Site{ProjectID: "p1"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	now := time.Now().UTC()
	require.NoError(t, repo.SetLastBuild(ctx, site.ID, "b1", now))

	// Update does not clobber the live build
	site.CustomDomains = []string{"docs.acme.com"}
	require.NoError(t, repo.Update(ctx, site))

	got, err := repo.GetByProject(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got.LastBuildID)
	assert.Equal(t, "b1", *got.LastBuildID)
	assert.Equal(t, []string{"docs.acme.com"}, got.CustomDomains)
}

func TestSpaceRepositorySlugConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewSpaceRepository()

	require.NoError(t, repo.Create(ctx, &docsystem.Space{ProjectID: "p1", Slug: "docs", Name: "Docs"}))
	require.NoError(t, repo.Create(ctx, &docsystem.Space{ProjectID: "p2", Slug: "docs", Name: "Docs"}))
	err := repo.Create(ctx, &docsystem.Space{ProjectID: "p1", Slug: "docs", Name: "Other"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := repo.GetBySlug(ctx, "p1", "docs")
	require.NoError(t, err)
	spaces, err := repo.ListByIDs(ctx, []string{"missing", got.ID})
	require.NoError(t, err)
	require.Len(t, spaces, 1)
}

func TestProjectMembership(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository()

	p := &docsystem.Project{Slug: "acme", Name: "Acme", OwnerID: "u1"}
	require.NoError(t, repo.Create(ctx, p))
	require.NoError(t, repo.AddMember(ctx, &docsystem.ProjectMember{ProjectID: p.ID, UserID: "u1", Role: docsystem.RoleOwner}))

	role, err := repo.GetMemberRole(ctx, p.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, docsystem.RoleOwner, role)

	_, err = repo.GetMemberRole(ctx, p.ID, "u2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
