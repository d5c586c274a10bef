package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"railops-assistant/internal/ai"
	"railops-assistant/internal/config"
	"railops-assistant/internal/database"
	"railops-assistant/internal/drive"
	"railops-assistant/internal/index"
	"railops-assistant/internal/logger"
	"railops-assistant/internal/memory"
	"railops-assistant/internal/telemetry"
	"railops-assistant/middleware"
	"railops-assistant/routes"
	"railops-assistant/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("railops-assistant", cfg.OTLPEndpoint)
		if err != nil {
			log.Fatal("Failed to initialize tracing:", err)
		}
		defer shutdown()
	}

	ctx := context.Background()

	// Redis backs the rate limiter and the sync task queue
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	asynqClient := asynq.NewClient(config.AsynqRedisOpt(cfg))
	defer asynqClient.Close()

	// Open the append-only record log
	store, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to open record log:", err)
	}
	defer store.Close()

	// Remote service clients
	aiClient, err := ai.NewClient(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer aiClient.Close()

	driveClient, err := drive.NewClient(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize Drive client:", err)
	}

	// Knowledge base: serve degraded until a sync produces a snapshot
	knowledge := services.NewKnowledgeService(cfg, driveClient, aiClient)
	if err := knowledge.LoadIndex(); err != nil {
		if errors.Is(err, index.ErrIndexMissing) {
			logger.Warn("No index snapshot found, /ask is unavailable until a sync runs", "dir", cfg.IndexDir)
		} else {
			logger.Error("Failed to load index snapshot, /ask is unavailable", "error", err)
		}
	}

	mem := memory.NewStore(cfg.MemoryWindow, cfg.MemoryChats)
	answers := services.NewAnswerService(aiClient)
	diagrams := services.NewDiagramService(cfg, driveClient)
	extraction := services.NewExtractionService(aiClient, mem, store)
	exporter := services.NewExportService(store)

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware("railops-assistant"))
	}
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Requested-With"}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":        "healthy",
			"timestamp":     time.Now(),
			"index_ready":   knowledge.Ready(),
			"index_entries": knowledge.Entries(),
		})
	})

	// Setup routes
	routes.SetupAskRoutes(router, cfg, knowledge, answers, diagrams)
	routes.SetupMonitorRoutes(router, extraction)
	routes.SetupAdminRoutes(router, asynqClient, knowledge, store, exporter)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
