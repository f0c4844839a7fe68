package main

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"goconform/adapters/postgres"
	"goconform/app"
	"goconform/internal/api"
	"goconform/internal/config"
	"goconform/internal/logx"
	"goconform/internal/migration"
	"goconform/internal/testkit"
	"goconform/ports"
)

// initDatabase connects to PostgreSQL and runs migrations
func initDatabase(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, err
	}
	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logx.NewDefault()
	kit := testkit.NewTestKit()

	// Persist runs in postgres when configured, in process memory otherwise
	var repo ports.RunRepository
	if cfg.Database.URL != "" {
		db, err := initDatabase(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		repo = postgres.NewRunRepository(db)
		log.Println("✅ Connected to PostgreSQL run store")
	} else {
		repo = kit.RunRepository()
		log.Println("No DATABASE_URL configured, keeping runs in memory")
	}

	rngPort := kit.RNGAdapter()
	calibrations := app.NewCalibrationService(repo, rngPort, logger)
	sweeps := app.NewSweepService(rngPort, cfg.Sweep.Parallelism, logger)

	// Configured defaults fill whatever a calibration request omits
	defaults := app.DefaultCalibrationRequest()
	defaults.Alpha = cfg.Calibration.Alpha
	defaults.Seed = cfg.Calibration.Seed
	defaults.Classifier = cfg.Calibration.Classifier
	defaults.Neighbors = cfg.Calibration.KNNNeighbors
	defaults.Dataset.Samples = cfg.Dataset.Samples
	defaults.Dataset.Features = cfg.Dataset.Features
	defaults.Dataset.Classes = cfg.Dataset.Classes
	defaults.Dataset.Spread = cfg.Dataset.Spread

	server := api.NewServer(calibrations, sweeps, defaults, logger)

	log.Printf("🚀 Starting goconform server on port %s", cfg.Server.Port)
	log.Fatal(server.Start(":" + cfg.Server.Port))
}
