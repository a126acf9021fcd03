package main

// Run database migrations:
//   go run ./cmd/migrate -action up|down|status

import (
	"context"
	"flag"
	"log"
	"os"

	"docmanager-backend/internal/bootstrap"
	"docmanager-backend/internal/shared/config"
	"docmanager-backend/internal/shared/storage/db"
)

func main() {
	action := flag.String("action", "up", "migration action: up, down or status")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultCLIOptions())
	sqlDB, err := bootstrap.ConnectDB(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	switch *action {
	case "up":
		err = db.RunMigrations(ctx, sqlDB)
	case "down":
		err = db.RollbackMigration(ctx, sqlDB)
	case "status":
		var version int64
		version, err = db.MigrationVersion(sqlDB)
		if err == nil {
			log.Printf("current migration version: %d", version)
		}
	default:
		log.Printf("unknown action %q", *action)
		sqlDB.Close()
		os.Exit(2)
	}
	if err != nil {
		log.Printf("migration %s failed: %v", *action, err)
		sqlDB.Close()
		os.Exit(1)
	}
}
