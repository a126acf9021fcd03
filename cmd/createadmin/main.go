package main

// Create or promote the admin account:
//   ADMIN_PASSWORD=... go run ./cmd/createadmin -email admin@example.com -fullname Admin

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"docmanager-backend/internal/bootstrap"
	"docmanager-backend/internal/shared/config"
	"docmanager-backend/internal/shared/storage/db"
	"docmanager-backend/internal/users"
)

func main() {
	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "admin email")
	fullName := flag.String("fullname", envOr("ADMIN_FULLNAME", "Administrator"), "admin full name")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password (prefer ADMIN_PASSWORD)")
	flag.Parse()

	if strings.TrimSpace(*email) == "" || *password == "" {
		log.Printf("email and password are required")
		os.Exit(2)
	}

	cfg := config.Load()
	ctx := context.Background()

	sqlDB, err := bootstrap.ConnectDB(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultCLIOptions()))
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		log.Printf("failed to run migrations: %v", err)
		sqlDB.Close()
		os.Exit(1)
	}

	svc := users.NewService(&users.PGRepo{DB: sqlDB}, nil, cfg.BcryptCost)
	u, created, err := svc.EnsureAdmin(ctx, *email, *fullName, *password)
	if err != nil {
		log.Printf("failed to ensure admin: %v", err)
		sqlDB.Close()
		os.Exit(1)
	}
	if created {
		log.Printf("created admin %s (%s)", u.Email, u.ID)
	} else {
		log.Printf("an admin account already exists; nothing to do")
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
