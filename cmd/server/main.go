package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mito-gallery-service/internal/adapters/primary/http/handlers"
	"mito-gallery-service/internal/adapters/primary/http/middleware"
	"mito-gallery-service/internal/adapters/secondary/csvsource"
	"mito-gallery-service/internal/adapters/secondary/filestore"
	"mito-gallery-service/internal/adapters/secondary/postgres"
	"mito-gallery-service/internal/adapters/secondary/precomputed"
	"mito-gallery-service/internal/adapters/secondary/renderer"
	"mito-gallery-service/internal/config"
	"mito-gallery-service/internal/core/domain"
	output "mito-gallery-service/internal/core/ports/output"
	"mito-gallery-service/internal/core/services"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	// ============================================================================
	// Metadata Catalog
	// ============================================================================

	source, closeSource, err := newMetadataSource(cfg)
	if err != nil {
		log.Fatalf("metadata source: %v", err)
	}
	catalog, err := services.LoadCatalog(context.Background(), source)
	closeSource()
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}
	log.WithFields(log.Fields{
		"source":  source.Name(),
		"mitos":   catalog.Len(),
		"neurons": len(catalog.Groups()),
	}).Info("catalog loaded")

	// ============================================================================
	// Secondary Adapters
	// ============================================================================

	store, err := filestore.NewFileStore(filestore.Config{
		RootDir:   cfg.Screenshots.Dir,
		URLPrefix: cfg.Screenshots.URLPrefix,
	})
	if err != nil {
		log.Fatalf("screenshot store: %v", err)
	}

	if err := renderer.EnsurePlaceholder(cfg.Screenshots.PlaceholderPath, cfg.Screenshots.PlaceholderPixel); err != nil {
		log.Warnf("placeholder image unavailable: %v", err)
	}

	meshes, err := precomputed.NewClient(precomputed.Config{
		Source:            cfg.Mesh.MitoSource,
		Timeout:           cfg.Mesh.Timeout,
		RequestsPerSecond: cfg.Mesh.RequestsPerSecond,
	})
	if err != nil {
		log.Fatalf("mesh source: %v", err)
	}

	meshRenderer, err := renderer.New(meshes, renderer.Config{
		ImageSize:     cfg.Render.ImageSize,
		Supersample:   cfg.Render.Supersample,
		VertexScale:   cfg.Mesh.VoxelSize,
		MeshCacheSize: cfg.Mesh.CacheSize,
	})
	if err != nil {
		log.Fatalf("renderer: %v", err)
	}

	// ============================================================================
	// Core Services
	// ============================================================================

	cache := services.NewArtifactCache(store, meshRenderer, services.ArtifactCacheConfig{
		Angles:               domain.ViewAngles(cfg.Render.StepDeg),
		RenderTimeout:        cfg.Render.Timeout,
		MaxConcurrentRenders: int64(cfg.Render.Workers),
	})
	viewer := services.NewViewerLinker(services.ViewerConfig{
		BaseURL:      cfg.Viewer.NeuroglancerURL,
		MitoSource:   cfg.Mesh.MitoSource,
		NeuronSource: cfg.Mesh.NeuronSource,
		VoxelSize:    cfg.Mesh.VoxelSize,
	})
	catalogSvc := services.NewCatalogService(catalog, cache, viewer, services.CatalogServiceConfig{
		DefaultPageSize: cfg.Catalog.PageSize,
		Workers:         cfg.Render.Workers,
	})

	// Primary Adapter (HTTP Handlers)
	h := handlers.New(catalogSvc, cfg.Screenshots.PlaceholderURL)

	// Setup router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())
	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	}

	h.RegisterRoutes(router.Group("/"))
	router.Static(cfg.Screenshots.URLPrefix, cfg.Screenshots.Dir)
	router.StaticFile(cfg.Screenshots.PlaceholderURL, cfg.Screenshots.PlaceholderPath)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mitos": catalog.Len()})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced shutdown: %v", err)
	}

	log.Info("server stopped")
}

// newMetadataSource returns the configured source and a func releasing
// whatever it holds. The catalog is read once, so the pool is closed right
// after loading.
func newMetadataSource(cfg *config.Config) (output.MetadataSource, func(), error) {
	if cfg.Catalog.Source != config.CatalogSourcePostgres {
		return csvsource.NewCSVSource(cfg.Catalog.CSVPath), func() {}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create db pool: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping db: %w", err)
	}
	log.Info("database connection established")

	return postgres.NewMetadataRepository(pool, cfg.Database.Table), pool.Close, nil
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
