package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"iceberg-service/internal/config"
	"iceberg-service/internal/handlers"
	"iceberg-service/internal/metrics"
	"iceberg-service/internal/models"
	"iceberg-service/internal/raster"
	"iceberg-service/internal/repository"
	"iceberg-service/internal/services"
	"iceberg-service/internal/storage"
)

func main() {
	cfg := InitConfig()
	db := ConnectDatabase(cfg)
	MigrateDatabase(db)
	EnsureDirectories(cfg)
	archiver := InitArchiver(cfg)

	icebergRepo := repository.NewIcebergRepository(db)
	notifier := services.NewNotifier(cfg.NotifyURL, cfg.NotifyTimeout)
	icebergService := services.NewIcebergService(
		icebergRepo,
		raster.NewGDAL(),
		notifier,
		archiver,
		metrics.NewCollector(),
		cfg.UploadDir,
		cfg.MaskDir,
	)

	if err := icebergService.EnsureSeedData(); err != nil {
		log.Fatalf("Seed data initialization failed: %v", err)
	}

	app := fiber.New()
	app.Use(cors.New())

	// Register Prometheus metrics endpoint
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Catalog and upload routes
	h := handlers.NewIcebergHandler(icebergService)
	app.Get("/", h.Home)
	app.Get("/icebergs", h.ListIcebergs)
	app.Get("/refresh-icebergs", h.RefreshIcebergs)
	app.Post("/upload-image", h.UploadImage)
	app.Post("/upload-mask", h.UploadMask)
	app.Post("/upload-archive", h.UploadArchive)
	app.Post("/update-areas", h.UpdateAreas)
	app.Post("/seed-demo", h.SeedDemo)

	// Display imagery is served straight off disk
	app.Static("/uploads", cfg.UploadDir)
	app.Static("/masks", cfg.MaskDir)

	routes := app.GetRoutes()
	log.Println("Registered routes:")
	for _, r := range routes {
		log.Printf("  %s %s\n", r.Method, r.Path)
	}

	// Start the Fiber server
	port := cfg.AppPort
	if port == "" {
		port = "5000"
		log.Printf("Defaulting to port %s", port)
	}
	log.Printf("Server listening on port %s", port)
	log.Fatal(app.Listen(":" + port))
}

func InitConfig() *config.Config {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	return cfg
}

func ConnectDatabase(cfg *config.Config) *gorm.DB {
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	return db
}

func MigrateDatabase(db *gorm.DB) {
	err := db.AutoMigrate(&models.Iceberg{})
	if err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}
}

func EnsureDirectories(cfg *config.Config) {
	for _, dir := range []string{cfg.UploadDir, cfg.MaskDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Could not create directory %s: %v", dir, err)
		}
	}
}

func InitArchiver(cfg *config.Config) *storage.Archiver {
	archiver, err := storage.NewArchiver(cfg)
	if err != nil {
		log.Fatalf("MinIO archiver initialization failed: %v", err)
	}
	if archiver != nil {
		log.Printf("GeoTIFF archival enabled (bucket %s)", cfg.MinioBucket)
	}
	return archiver
}
