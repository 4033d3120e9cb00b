// backend/cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/selahbot/backend/internal/api/handlers"
	"github.com/selahbot/backend/internal/catalog"
	"github.com/selahbot/backend/internal/config"
	"github.com/selahbot/backend/internal/database"
	"github.com/selahbot/backend/internal/engine"
	"github.com/selahbot/backend/internal/health"
	"github.com/selahbot/backend/internal/middleware"
	"github.com/selahbot/backend/internal/migration"
	"github.com/selahbot/backend/internal/nlp"
	"github.com/selahbot/backend/internal/repository"
	"github.com/selahbot/backend/internal/session"
	"github.com/selahbot/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	logger := utils.GetLogger()
	logger.Info("Starting recommendation server...")

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	dbConfig := &database.Config{
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    os.Getenv("LOG_LEVEL"),
	}
	dbManager, err := database.NewManager(dbConfig, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database manager")
	}
	defer dbManager.Close()

	runner := migration.NewRunner(dbManager, logger)
	if err := runner.RunMigrations(""); err != nil {
		logger.WithError(err).Fatal("Migrations failed")
	}

	repoManager := repository.NewRepositoryManager(dbManager.DB)
	cache := database.NewCache(dbManager.Redis, 15*time.Minute, logger)

	// In-memory catalog, rebuilt from the store at boot.
	index := catalog.NewIndex(logger)
	sessions := session.NewStore(cfg.Engine.SessionTTL, cfg.Engine.HistoryCap, logger)

	var nlpService *nlp.Service
	if err := cfg.ValidateNLP(); err != nil {
		logger.WithError(err).Warn("NLP disabled, rule parsing only")
	} else {
		nlpClient := nlp.NewClient(cfg.NLP.URL, cfg.NLP.Model, cfg.NLP.Timeout, logger)
		nlpService = nlp.NewService(nlpClient, cfg.NLP.ConfidenceThreshold, cfg.NLP.Timeout, logger)
	}

	eng := engine.New(cfg.Engine, index, sessions, engine.Options{
		NLP:      nlpService,
		Cache:    cache,
		QueryLog: repository.NewQueryLog(repoManager.MessageLog, logger),
		Sink:     repository.NewFeedbackSink(repoManager.FeedbackLog, repoManager.SongUsage, logger),
		Persist:  repository.NewFamiliarityPersister(repoManager.Song, logger),
	}, logger)

	if err := eng.RefreshCatalog(repoManager.Song); err != nil {
		logger.WithError(err).Fatal("Failed to load song catalog")
	}
	logger.WithField("songs", index.Len()).Info("Song catalog loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions.StartSweeper(ctx, cfg.Engine.SweepInterval)

	checker := health.NewHealthChecker(dbManager, cache, index, repoManager.SystemHealth, logger, cfg.NLP.URL)
	go checker.PeriodicHealthCheck(ctx, time.Minute)

	router := setupRouter(eng, index, checker, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
	logger.Info("Server stopped")
}

func setupRouter(eng *engine.Engine, index *catalog.Index, checker *health.HealthChecker, logger *logrus.Logger) *gin.Engine {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())

	limiter := middleware.NewRateLimiter(60)
	router.Use(limiter.RateLimit())

	recommend := handlers.NewRecommendHandler(eng, index, logger)
	healthHandler := handlers.NewHealthHandler(checker, logger)

	router.GET("/health", healthHandler.HandleHealth)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/recommend", recommend.HandleRecommend)
		v1.POST("/feedback", recommend.HandleFeedback)
		v1.GET("/themes", recommend.HandleThemes)
	}

	return router
}
