package main

import (
	"fmt"
	"log"

	"clipforge/internal/config"
	"clipforge/internal/handlers"
	"clipforge/internal/jobstore"
	"clipforge/internal/pipeline"
	"clipforge/internal/platform"
	"clipforge/internal/storage"
	"clipforge/internal/transcode"
	"clipforge/internal/version"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	cfg := config.Load()

	registry, err := platform.LoadRegistry(cfg.ProfilesPath)
	if err != nil {
		log.Fatalf("failed to load target profiles: %v", err)
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	contentRepo := storage.NewContentRepository(db)
	variantRepo := storage.NewVariantRepository(db)

	transcoder := transcode.NewFFmpeg(cfg.FFmpegBin, cfg.DataDir)
	if !transcoder.Available() {
		log.Printf("WARNING: %s not found, all transcode targets will fail", cfg.FFmpegBin)
	}

	jobs := jobstore.NewStore(cfg.Retention)
	worker := pipeline.NewTargetWorker(transcoder, variantRepo)
	records := pipeline.NewRecordSync(contentRepo)
	orchestrator := pipeline.NewOrchestrator(jobs, worker, records, registry)
	statusSvc := pipeline.NewStatusService(jobs, contentRepo)

	videoHandler := handlers.NewVideoHandler(contentRepo, variantRepo, orchestrator, statusSvc, registry, cfg.DataDir)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.POST("/api/videos/upload", videoHandler.Upload)
	e.GET("/api/videos/status/:id", videoHandler.Status)
	e.GET("/api/videos/variants/:id", videoHandler.Variants)
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "ok",
			"version": version.Version,
		})
	})

	log.Printf("Starting clipforge v%s on port %s", version.Version, cfg.Port)
	if err := e.Start(fmt.Sprintf(":%s", cfg.Port)); err != nil {
		log.Fatal(err)
	}
}
