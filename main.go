package main

import (
	"context"
	"log"

	api "canvas-mirror-backend/cmd/api"
	canvasdomain "canvas-mirror-backend/internal/canvas/domain"
	canvasRepo "canvas-mirror-backend/internal/canvas/repository"
	canvasUsecase "canvas-mirror-backend/internal/canvas/usecase"
	"canvas-mirror-backend/internal/canvas/worker"
	creddomain "canvas-mirror-backend/internal/credential/domain"
	credRepo "canvas-mirror-backend/internal/credential/repository"
	"canvas-mirror-backend/internal/credential/resolver"
	"canvas-mirror-backend/pkg/canvasapi"
	"canvas-mirror-backend/pkg/config"
	"canvas-mirror-backend/pkg/database"
	"canvas-mirror-backend/pkg/embedder"
	"canvas-mirror-backend/pkg/extractor"
	"canvas-mirror-backend/pkg/queue"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&canvasdomain.Course{}, &canvasdomain.IngestedDocument{}, &creddomain.Credential{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis (queue, job ledger, active-job guard)
	redisClient, err := queue.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	// Initialize repositories (dependency injection)
	courseRepository := canvasRepo.NewCourseRepository(db)
	documentRepository := canvasRepo.NewDocumentRepository(db)
	credentialRepository := credRepo.NewCredentialRepository(db)
	jobLedger := canvasRepo.NewJobLedgerRepository(redisClient.Client(), cfg.LedgerTTL)
	jobGuard := canvasRepo.NewActiveJobGuard(redisClient.Client(), cfg.GuardTTL)

	// Credential resolver (decrypts tokens, never exposes them)
	credentialResolver := resolver.New(credentialRepository, cfg.EncryptionKey)

	// External clients
	canvasClient := canvasapi.NewClient(cfg.HTTPTimeout)
	extractorClient := extractor.NewClient(cfg.ExtractorURL, cfg.HTTPTimeout)
	embedderClient := embedder.NewClient(cfg.EmbedderURL, cfg.HTTPTimeout)

	// Sync engine
	dispatcher := canvasUsecase.NewDispatcher(extractorClient, embedderClient)
	courseWalker := canvasUsecase.NewWalker(canvasClient, documentRepository, dispatcher, cfg.IncludeTopLevelFiles, cfg.IncludePages)

	producer := queue.NewProducer(redisClient, cfg)
	consumer := queue.NewConsumer(redisClient, cfg)

	syncUsecase := canvasUsecase.NewSyncUsecase(jobLedger, jobGuard, courseRepository, documentRepository, credentialResolver, producer, canvasClient)

	// Start the single worker loop
	syncWorker := worker.New(jobLedger, jobGuard, courseRepository, credentialResolver, courseWalker, canvasClient)
	go func() {
		if err := syncWorker.Run(context.Background(), consumer); err != nil {
			log.Printf("[Main] Worker loop stopped: %v", err)
		}
	}()

	// Initialize HTTP handler and start server
	handler := api.NewHandler(syncUsecase, cfg)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
