package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"goconform/internal/config"
	"goconform/internal/migration"
)

func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required for migrations")
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	runner := migration.NewRunner()

	switch command {
	case "up":
		log.Printf("Running migrations (schema version %s)...", runner.Version())
		if err := runner.Run(ctx, db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("✅ Migrations complete")
	case "status":
		var exists bool
		err := db.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'calibration_runs')`)
		if err != nil {
			log.Fatalf("Status check failed: %v", err)
		}
		if !exists {
			fmt.Println("calibration_runs: missing (run `migrate up`)")
			return
		}
		var count int
		if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM calibration_runs`); err != nil {
			log.Fatalf("Status check failed: %v", err)
		}
		fmt.Printf("calibration_runs: present, %d runs stored\n", count)
	default:
		log.Fatalf("Unknown command %q (expected up or status)", command)
	}
}
