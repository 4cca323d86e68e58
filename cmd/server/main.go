package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"folio/internal/auth"
	"folio/internal/cache"
	"folio/internal/config"
	"folio/internal/domain/repositories"
	docsysRepo "folio/internal/domain/repositories/docsystem"
	publishRepo "folio/internal/domain/repositories/publish"
	"folio/internal/handler"
	"folio/internal/jobs"
	"folio/internal/middleware"
	"folio/internal/repository/memory"
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

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

// repos is the repository set selected by STORAGE_DRIVER
type repos struct {
	projects  docsysRepo.ProjectRepository
	spaces    docsysRepo.SpaceRepository
	documents docsysRepo.DocumentRepository
	sites     publishRepo.SiteRepository
	builds    publishRepo.BuildRepository
	blobIndex publishRepo.BlobIndexRepository
	txManager repositories.TransactionManager
	close     func()
}

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, closeLog, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"storage_driver", cfg.StorageDriver,
		"object_store", cfg.ObjectStore,
		"table_prefix", cfg.TablePrefix,
	)

	ctx := context.Background()

	r, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open repositories: %v", err)
	}
	defer r.close()

	objects, err := openObjectStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open object store: %v", err)
	}

	var pointerCache cache.PointerCache = cache.Noop{}
	if cfg.RedisURL != "" {
		opts := cache.DefaultRedisOptions()
		opts.URL = cfg.RedisURL
		opts.TTL = cfg.PointerCacheTTL
		redisCache, err := cache.NewRedisPointerCache(opts)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		pointerCache = redisCache
		logger.Info("pointer cache enabled", "ttl", cfg.PointerCacheTTL)
	}
	defer pointerCache.Close()

	// Auth
	var verifier auth.JWTVerifier
	if cfg.JWKSURL != "" {
		verifier, err = auth.NewJWTVerifier(cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer verifier.Close()
	}
	devUser := ""
	if cfg.Environment == "dev" {
		devUser = cfg.AuthDevUser
	}
	if verifier == nil && devUser == "" {
		log.Fatal("JWKS_URL is required unless AUTH_DEV_USER is set in dev")
	}
	if devUser != "" {
		logger.Warn("DEV MODE: unauthenticated requests act as dev user", "user_id", devUser)
	}

	authorizer := serviceAuth.NewRoleAuthorizer(r.projects)
	validator := serviceDocsys.NewResourceValidator(r.spaces, r.documents, authorizer)

	// Publish pipeline
	blobs := blobstore.NewStore(objects, r.blobIndex, cfg.SiteBaseURL, logger)
	mirror := servicePublish.NewMirror(blobs, pointerCache, logger)
	source := contentsource.NewSelector(
		contentsource.NewEditorSource(r.spaces, r.documents, logger),
		contentsource.NewRepositorySource(r.spaces, r.documents, blobs, logger),
	)
	orchestrator := servicePublish.NewOrchestrator(r.builds, r.sites, source, render.NewRenderer(), blobs, mirror,
		servicePublish.OrchestratorConfig{
			RenderConcurrency: cfg.RenderConcurrency,
			MaxPages:          config.MaxPagesPerBuild,
			Timeout:           cfg.BuildDeadline(),
		}, logger)

	pool := jobs.NewPool(cfg.PublishWorkers, cfg.PublishWorkers*16, logger)
	dispatcher := servicePublish.NewDispatcher(pool, orchestrator, logger)
	reaper := jobs.NewReaper(r.builds, dispatcher, cfg.BuildTimeout, logger)
	if err := reaper.Start(); err != nil {
		log.Fatalf("Failed to start reaper: %v", err)
	}

	// Services
	projectService := serviceDocsys.NewProjectService(r.projects, r.txManager, authorizer, logger)
	spaceService := serviceDocsys.NewSpaceService(r.spaces, r.documents, r.txManager, validator, authorizer, logger)
	docService := serviceDocsys.NewDocumentService(r.documents, r.txManager, validator, logger)
	treeService := serviceDocsys.NewTreeService(r.documents, validator, logger)
	importer := apispec.NewImporter(r.documents, r.txManager, validator, logger)
	siteService := servicePublish.NewSiteService(r.sites, r.projects, r.spaces, blobs, mirror, authorizer,
		servicePublish.SiteConfig{
			StoreID:    cfg.ObjectStore,
			BaseURL:    cfg.SiteBaseURL,
			HostSuffix: cfg.SiteHostSuffix,
		}, logger)
	publishService := servicePublish.NewPublishService(r.sites, r.builds, blobs, dispatcher, authorizer, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, &handler.Handlers{
		Project:  handler.NewProjectHandler(projectService, logger),
		Space:    handler.NewSpaceHandler(spaceService, logger),
		Document: handler.NewDocumentHandler(docService, logger),
		Tree:     handler.NewTreeHandler(treeService, logger),
		APISpec:  handler.NewAPISpecHandler(importer, logger),
		Site:     handler.NewSiteHandler(siteService, logger),
		Publish:  handler.NewPublishHandler(publishService, logger),
		Edge:     handler.NewEdgeHandler(servicePublish.NewResolver(blobs, pointerCache, logger), logger),
	})

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	var h http.Handler = mux
	h = middleware.AuthMiddleware(middleware.AuthOptions{
		Verifier:    verifier,
		DevUserID:   devUser,
		PublicPaths: handler.PublicPaths,
		Logger:      logger,
	})(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	reaper.Stop()
	// Builds still queued in memory stay queued in the database; the next
	// process's reaper picks them up.
	if err := pool.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker pool shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}

func openRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repos, error) {
	switch cfg.StorageDriver {
	case "memory":
		logger.Warn("using in-memory repositories; data is lost on restart")
		return &repos{
			projects:  memory.NewProjectRepository(),
			spaces:    memory.NewSpaceRepository(),
			documents: memory.NewDocumentRepository(),
			sites:     memory.NewSiteRepository(),
			builds:    memory.NewBuildRepository(),
			blobIndex: memory.NewBlobIndexRepository(),
			txManager: memory.NewTransactionManager(),
			close:     func() {},
		}, nil

	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres driver")
		}
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}

		tables := postgres.NewTableNames(cfg.TablePrefix)
		if err := postgres.Migrate(ctx, pool, tables, cfg.TablePrefix, logger); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("database connected", "max_conns", pool.Config().MaxConns)

		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: tables,
			Logger: logger,
		}
		return &repos{
			projects:  postgresDocsys.NewProjectRepository(repoConfig),
			spaces:    postgresDocsys.NewSpaceRepository(repoConfig),
			documents: postgresDocsys.NewDocumentRepository(repoConfig),
			sites:     postgresPublish.NewSiteRepository(repoConfig),
			builds:    postgresPublish.NewBuildRepository(repoConfig),
			blobIndex: postgresPublish.NewBlobIndexRepository(repoConfig),
			txManager: postgres.NewTransactionManager(pool, logger),
			close:     pool.Close,
		}, nil

	default:
		return nil, errors.New("STORAGE_DRIVER must be postgres or memory")
	}
}

func openObjectStore(cfg *config.Config) (storage.ObjectStore, error) {
	switch cfg.ObjectStore {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, errors.New("S3_BUCKET is required for the s3 object store")
		}
		client := storage.NewS3Client(storage.S3Config{
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		return storage.NewS3Store(client, cfg.S3Bucket), nil
	default:
		return nil, errors.New("OBJECT_STORE must be s3 or memory")
	}
}
