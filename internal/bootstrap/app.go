package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"docmanager-backend/internal/documents"
	"docmanager-backend/internal/projectnotes"
	"docmanager-backend/internal/shared/auth"
	"docmanager-backend/internal/shared/config"
	"docmanager-backend/internal/shared/server"
	"docmanager-backend/internal/shared/storage/db"
	"docmanager-backend/internal/shared/storage/remote"
	"docmanager-backend/internal/shared/storage/remote/gdrive"
	"docmanager-backend/internal/shared/storage/remote/local"
	s3gateway "docmanager-backend/internal/shared/storage/remote/s3"
	"docmanager-backend/internal/shared/telemetry"
	"docmanager-backend/internal/users"
)

const (
	connectAttempts = 4
	connectBackoff  = 500 * time.Millisecond
	redisPingWait   = 3 * time.Second
)

// App holds shared dependencies and the router built from them.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Redis    *redis.Client
	Remote   remote.Gateway
	Sessions *auth.Issuer

	UsersRepo     users.Repo
	DocumentsRepo documents.Repo
	NotesRepo     projectnotes.Repo

	UsersService     *users.Service
	DocumentsService *documents.Service
	NotesService     *projectnotes.Service
}

// Build wires repositories, the remote gateway, services and the router.
// Dev-like environments fall back to in-memory repositories and revocation
// when Postgres or Redis are not configured.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.StorageBackend) == "" {
		cfg.StorageBackend = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	gw, err := buildGateway(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	rdb, revoker, err := buildRevoker(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	secret := cfg.SecretKey
	if secret == "" && cfg.IsDevLike() {
		secret = "dev-secret"
	}
	sessions, err := auth.NewIssuer(secret, cfg.Algorithm, cfg.AccessTokenTTL, auth.WithRevoker(revoker))
	if err != nil {
		closeDB(sqlDB)
		return nil, fmt.Errorf("session issuer: %w", err)
	}

	app := &App{
		Config:   cfg,
		DB:       sqlDB,
		Redis:    rdb,
		Remote:   gw,
		Sessions: sessions,
	}
	buildServices(app)

	var ping func(context.Context) error
	if sqlDB != nil {
		ping = sqlDB.PingContext
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Sessions:        sessions,
		UserHandler:     users.NewHandler(app.UsersService),
		DocumentHandler: documents.NewHandler(app.DocumentsService),
		NoteHandler:     projectnotes.NewHandler(app.NotesService),
		Ping:            ping,
	})
	return app, nil
}

// Close releases the database pool and Redis client.
func (a *App) Close() error {
	var errs []error
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	return errors.Join(errs...)
}

func buildServices(app *App) {
	if app.DB != nil {
		app.UsersRepo = &users.PGRepo{DB: app.DB}
		app.DocumentsRepo = &documents.PGRepo{DB: app.DB}
		app.NotesRepo = &projectnotes.PGRepo{DB: app.DB}
	} else {
		userRepo := users.NewMemoryRepo()
		app.UsersRepo = userRepo
		app.DocumentsRepo = documents.NewMemoryRepo(userRepo)
		app.NotesRepo = projectnotes.NewMemoryRepo()
	}

	app.UsersService = users.NewService(app.UsersRepo, app.Sessions, app.Config.BcryptCost)
	app.DocumentsService = documents.NewService(app.DocumentsRepo, app.UsersRepo, app.Remote, app.Config.PublicFileLinks)
	app.NotesService = projectnotes.NewService(app.NotesRepo, app.UsersRepo, app.Remote)
}

// ConnectDB opens Postgres, retrying transient failures with exponential backoff.
func ConnectDB(ctx context.Context, databaseURL string, opts db.Options) (*sql.DB, error) {
	backoff := retry.WithMaxRetries(connectAttempts-1, retry.NewExponential(connectBackoff))
	var conn *sql.DB
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		c, err := db.Connect(ctx, databaseURL, opts)
		if err != nil {
			telemetry.Warn("db.connect_retry", map[string]any{"error": err})
			return retry.RetryableError(err)
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}

	sqlDB, err := ConnectDB(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		closeDB(sqlDB)
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildGateway(ctx context.Context, cfg config.Config) (remote.Gateway, error) {
	var (
		gw  remote.Gateway
		err error
	)
	switch cfg.StorageBackend {
	case "drive":
		if strings.TrimSpace(cfg.DriveCredentialsFile) == "" {
			return nil, errors.New("STORAGE_BACKEND=drive requires DRIVE_CREDENTIALS")
		}
		gw, err = gdrive.New(ctx, cfg.DriveCredentialsFile, cfg.DriveShareEmail)
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("STORAGE_BACKEND=s3 requires S3_BUCKET")
		}
		gw, err = s3gateway.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		gw = local.New(cfg.LocalStoreDir)
	}
	if err != nil {
		return nil, fmt.Errorf("remote gateway %s: %w", cfg.StorageBackend, err)
	}
	telemetry.Info("bootstrap.remote_gateway", map[string]any{"backend": cfg.StorageBackend})
	return remote.Instrument(gw), nil
}

func buildRevoker(ctx context.Context, cfg config.Config) (*redis.Client, auth.Revoker, error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil, auth.NewMemoryRevoker(), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingWait)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_revocation", map[string]any{"error": err})
			return nil, auth.NewMemoryRevoker(), nil
		}
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, auth.NewRedisRevoker(rdb), nil
}

func closeDB(sqlDB *sql.DB) {
	if sqlDB != nil {
		_ = sqlDB.Close()
	}
}
