// backend/cmd/seed/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/selahbot/backend/internal/config"
	"github.com/selahbot/backend/internal/database"
	"github.com/selahbot/backend/internal/migration"
	"github.com/selahbot/backend/internal/models"
	"github.com/selahbot/backend/internal/repository"
	"github.com/selahbot/backend/internal/seeder"
	"github.com/selahbot/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

var (
	seedFile    = flag.String("file", "seed/songs.json", "Path to the song seed file")
	dryRun      = flag.Bool("dry-run", false, "Don't write to the database, just print what would be upserted")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	songLimit   = flag.Int("limit", 0, "Limit number of songs to process (0 = all)")
	verifyLinks = flag.Bool("verify-links", false, "Fetch each resource link and record its status")
	concurrent  = flag.Int("concurrent", 2, "Number of concurrent link checks per host")
	delay       = flag.Duration("delay", time.Second, "Delay between link checks")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	logger := utils.GetLogger()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	logger.Info("Starting song catalog seeder...")

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	songs, err := seeder.LoadFile(*seedFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load seed file")
	}
	logger.WithField("songs", len(songs)).Info("Seed file loaded")

	var repoManager *repository.RepositoryManager
	if !*dryRun {
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

		repoManager = repository.NewRepositoryManager(dbManager.DB)
	}

	var songRepo models.SongRepository
	if repoManager != nil {
		songRepo = repoManager.Song
	}

	cs := seeder.NewCatalogSeeder(songRepo, seeder.Options{
		DryRun:      *dryRun,
		Limit:       *songLimit,
		VerifyLinks: *verifyLinks,
		Delay:       *delay,
		Concurrent:  *concurrent,
	}, logger)

	if err := cs.Seed(context.Background(), songs); err != nil {
		logger.WithError(err).Fatal("Catalog seeding failed")
	}

	logger.Info("Catalog seeding completed successfully!")
}
