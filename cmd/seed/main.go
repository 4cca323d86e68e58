package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"

	"folio/internal/cache"
	"folio/internal/config"
	docsysSvc "folio/internal/domain/services/docsystem"
	publishSvc "folio/internal/domain/services/publish"
	"folio/internal/repository/postgres"
	postgresDocsys "folio/internal/repository/postgres/docsystem"
	postgresPublish "folio/internal/repository/postgres/publish"
	"folio/internal/service/apispec"
	serviceAuth "folio/internal/service/auth"
	"folio/internal/service/blobstore"
	"folio/internal/service/contentsource"
	serviceDocsys "folio/internal/service/docsystem"
	servicePublish "folio/internal/service/publish"
	"folio/internal/service/render"
	"folio/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only run migrations, don't seed content")
	owner := flag.String("owner", "", "User ID that owns the seeded project (defaults to AUTH_DEV_USER)")
	publish := flag.Bool("publish", false, "Publish the seeded site (needs an object store)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("🚫 BLOCKED: Cannot run --drop-tables in production environment")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	log.Printf("📋 Migrating (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	if err := postgres.Migrate(ctx, pool, tables, cfg.TablePrefix, logger); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}
	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	userID := *owner
	if userID == "" {
		userID = cfg.AuthDevUser
	}
	if userID == "" {
		log.Fatal("--owner or AUTH_DEV_USER is required")
	}

	repoConfig := &postgres.RepositoryConfig{Pool: pool, Tables: tables, Logger: logger}
	projectRepo := postgresDocsys.NewProjectRepository(repoConfig)
	spaceRepo := postgresDocsys.NewSpaceRepository(repoConfig)
	docRepo := postgresDocsys.NewDocumentRepository(repoConfig)
	siteRepo := postgresPublish.NewSiteRepository(repoConfig)
	buildRepo := postgresPublish.NewBuildRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	authorizer := serviceAuth.NewRoleAuthorizer(projectRepo)
	validator := serviceDocsys.NewResourceValidator(spaceRepo, docRepo, authorizer)

	projectService := serviceDocsys.NewProjectService(projectRepo, txManager, authorizer, logger)
	spaceService := serviceDocsys.NewSpaceService(spaceRepo, docRepo, txManager, validator, authorizer, logger)
	docService := serviceDocsys.NewDocumentService(docRepo, txManager, validator, logger)
	importer := apispec.NewImporter(docRepo, txManager, validator, logger)

	project, err := projectService.CreateProject(ctx, &docsysSvc.CreateProjectRequest{UserID: userID, Name: "Acme Docs"})
	if err != nil {
		log.Fatalf("Failed to create project: %v", err)
	}
	log.Printf("✅ Created project %s (slug: %s)", project.ID, project.Slug)

	guides, err := spaceService.CreateSpace(ctx, &docsysSvc.CreateSpaceRequest{
		ProjectID: project.ID, UserID: userID, Name: "Guides", Style: "sidebar",
	})
	if err != nil {
		log.Fatalf("Failed to create space: %v", err)
	}
	reference, err := spaceService.CreateSpace(ctx, &docsysSvc.CreateSpaceRequest{
		ProjectID: project.ID, UserID: userID, Name: "API Reference", Style: "tabs",
	})
	if err != nil {
		log.Fatalf("Failed to create space: %v", err)
	}

	pages := seedPages()
	for i, group := range pages {
		parent, err := docService.CreateDocument(ctx, &docsysSvc.CreateDocumentRequest{
			SpaceID: guides.ID, UserID: userID, Type: "group", Title: group.title,
		})
		if err != nil {
			log.Fatalf("Failed to create group '%s': %v", group.title, err)
		}
		for _, p := range group.pages {
			doc, err := docService.CreateDocument(ctx, &docsysSvc.CreateDocumentRequest{
				SpaceID:  guides.ID,
				UserID:   userID,
				ParentID: &parent.ID,
				Type:     "page",
				Title:    p.title,
				Content:  p.content,
			})
			if err != nil {
				log.Printf("❌ Failed to create page '%s': %v", p.title, err)
				continue
			}
			log.Printf("✅ Created page %s/%s (ID: %s)", parent.Slug, doc.Slug, doc.ID)
		}
		log.Printf("✅ Seeded group %d/%d: %s", i+1, len(pages), group.title)
	}

	spec, err := importer.Import(ctx, &publishSvc.ImportAPISpecRequest{
		SpaceID: reference.ID, UserID: userID, Title: "Petstore API", Spec: petstoreSpec,
	})
	if err != nil {
		log.Fatalf("Failed to import API spec: %v", err)
	}
	log.Printf("✅ Imported API spec (ID: %s)", spec.ID)

	if !*publish {
		log.Println("🎉 Seeding complete!")
		return
	}

	objects, err := openObjectStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open object store: %v", err)
	}
	blobs := blobstore.NewStore(objects, postgresPublish.NewBlobIndexRepository(repoConfig), cfg.SiteBaseURL, logger)
	mirror := servicePublish.NewMirror(blobs, cache.Noop{}, logger)
	source := contentsource.NewSelector(
		contentsource.NewEditorSource(spaceRepo, docRepo, logger),
		contentsource.NewRepositorySource(spaceRepo, docRepo, blobs, logger),
	)
	orchestrator := servicePublish.NewOrchestrator(buildRepo, siteRepo, source, render.NewRenderer(), blobs, mirror,
		servicePublish.OrchestratorConfig{RenderConcurrency: cfg.RenderConcurrency, MaxPages: config.MaxPagesPerBuild, Timeout: cfg.BuildDeadline()}, logger)

	siteService := servicePublish.NewSiteService(siteRepo, projectRepo, spaceRepo, blobs, mirror, authorizer,
		servicePublish.SiteConfig{StoreID: cfg.ObjectStore, BaseURL: cfg.SiteBaseURL, HostSuffix: cfg.SiteHostSuffix}, logger)
	publishService := servicePublish.NewPublishService(siteRepo, buildRepo, blobs,
		&servicePublish.SyncQueue{Orchestrator: orchestrator}, authorizer, logger)

	site, err := siteService.SetupSite(ctx, userID, project.ID, &publishSvc.SetupSiteRequest{})
	if err != nil {
		log.Fatalf("Failed to set up site: %v", err)
	}
	if _, err := siteService.UpdateSelection(ctx, userID, project.ID, []string{guides.ID, reference.ID}); err != nil {
		log.Fatalf("Failed to select spaces: %v", err)
	}

	build, err := publishService.Publish(ctx, userID, project.ID)
	if err != nil {
		log.Fatalf("Failed to publish: %v", err)
	}
	build, err = publishService.GetBuild(ctx, userID, build.ID)
	if err != nil {
		log.Fatalf("Failed to load build: %v", err)
	}
	log.Printf("🚀 Build %s finished with status %s (%d/%d items, %d new pages)", build.ID, build.Status, build.ItemsDone, build.ItemsTotal, build.PagesWritten)
	log.Printf("🎉 Seeding complete! Site live at %s", site.PrimaryHost)
}

func openObjectStore(cfg *config.Config) (storage.ObjectStore, error) {
	if cfg.ObjectStore == "memory" {
		log.Println("⚠️  OBJECT_STORE=memory: published blobs are discarded when seeding exits")
		return storage.NewMemoryStore(), nil
	}
	if cfg.S3Bucket == "" {
		return nil, errors.New("S3_BUCKET is required to publish")
	}
	client := storage.NewS3Client(storage.S3Config{
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	})
	return storage.NewS3Store(client, cfg.S3Bucket), nil
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.ContentBlobs,
		tables.Builds,
		tables.Sites,
		tables.Documents,
		tables.Spaces,
		tables.ProjectMembers,
		tables.Projects,
		tables.Migrations,
	}

	for _, table := range tableNames {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return err
		}
		log.Printf("  ✓ Dropped %s", table)
	}
	return nil
}

type seedPage struct {
	title   string
	content json.RawMessage
}

type seedGroup struct {
	title string
	pages []seedPage
}

func seedPages() []seedGroup {
	return []seedGroup{
		{
			title: "Overview",
			pages: []seedPage{
				{"Introduction", tiptapDoc(
					heading(1, "Welcome to Acme"),
					paragraph("Acme ships documentation sites straight from your editor."),
					heading(2, "What you get"),
					bulletList("Versioned builds", "Instant rollback", "Custom domains"),
				)},
				{"Quickstart", tiptapDoc(
					heading(2, "Install the CLI"),
					codeBlock("bash", "npm install -g acme-cli"),
					heading(2, "Log in"),
					codeBlock("bash", "acme login"),
					paragraph("Then run acme publish from your project directory."),
				)},
			},
		},
		{
			title: "Guides",
			pages: []seedPage{
				{"Custom Domains", tiptapDoc(
					heading(2, "Add a domain"),
					paragraph("Point a CNAME record at your primary host, then add the domain in site settings."),
					heading(2, "Remove a domain"),
					paragraph("Removing a domain stops serving the site on it immediately."),
				)},
				{"Rolling Back", tiptapDoc(
					paragraph("Every publish is kept. Pick any successful build and revert to it."),
				)},
			},
		},
	}
}

func tiptapDoc(nodes ...map[string]any) json.RawMessage {
	body, err := json.Marshal(map[string]any{"type": "doc", "content": nodes})
	if err != nil {
		log.Fatalf("Failed to encode seed content: %v", err)
	}
	return body
}

func text(s string) map[string]any {
	return map[string]any{"type": "text", "text": s}
}

func heading(level int, s string) map[string]any {
	return map[string]any{"type": "heading", "attrs": map[string]any{"level": level}, "content": []any{text(s)}}
}

func paragraph(s string) map[string]any {
	return map[string]any{"type": "paragraph", "content": []any{text(s)}}
}

func codeBlock(language, s string) map[string]any {
	return map[string]any{"type": "codeBlock", "attrs": map[string]any{"language": language}, "content": []any{text(s)}}
}

func bulletList(items ...string) map[string]any {
	list := make([]any, 0, len(items))
	for _, item := range items {
		list = append(list, map[string]any{"type": "listItem", "content": []any{paragraph(item)}})
	}
	return map[string]any{"type": "bulletList", "content": list}
}

const petstoreSpec = `openapi: 3.0.3
info:
  title: Petstore
  version: 1.0.0
tags:
  - name: pets
    description: Everything about your pets
paths:
  /pets:
    get:
      tags: [pets]
      operationId: listPets
      summary: List all pets
    post:
      tags: [pets]
      operationId: createPet
      summary: Create a pet
  /pets/{petId}:
    get:
      tags: [pets]
      operationId: showPetById
      summary: Info for a specific pet
  /health:
    get:
      operationId: health
      summary: Health check
`
