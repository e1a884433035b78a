package main

// Run database migrations:
//   go run ./cmd/migrate

import (
	"context"
	"log"
	"os"

	"prism-backend/internal/shared/config"
	"prism-backend/internal/shared/storage/db"
	"prism-backend/internal/shared/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		os.Exit(1)
	}
	if err := telemetry.Setup(cfg.Env, cfg.LogLevel); err != nil {
		log.Printf("failed to set up logger: %v", err)
		os.Exit(1)
	}
	ctx := context.Background()

	os.Exit(run(ctx, cfg))
}

func run(ctx context.Context, cfg config.Config) int {
	defer telemetry.Sync()

	files, err := db.Migrations()
	if err != nil {
		telemetry.Error("migrate.embedded.failed", map[string]any{"err": err.Error()})
		return 1
	}
	telemetry.Info("migrate.start", map[string]any{"files": files})

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect.failed", map[string]any{"err": err.Error()})
		return 1
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"err": err.Error()})
		return 1
	}
	return 0
}
