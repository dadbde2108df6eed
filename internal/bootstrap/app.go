package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	googleauth "docchat-backend/internal/auth"
	"docchat-backend/internal/chat"
	"docchat-backend/internal/documents"
	"docchat-backend/internal/inference"
	"docchat-backend/internal/processing"
	"docchat-backend/internal/shared/auth"
	"docchat-backend/internal/shared/config"
	"docchat-backend/internal/shared/server"
	"docchat-backend/internal/shared/server/middleware"
	"docchat-backend/internal/shared/storage/db"
	"docchat-backend/internal/shared/storage/object"
	localstore "docchat-backend/internal/shared/storage/object/local"
	miniostore "docchat-backend/internal/shared/storage/object/minio"
	s3store "docchat-backend/internal/shared/storage/object/s3"
)

const sessionSweepInterval = time.Minute

// App holds shared dependencies and the wired router.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sqlx.DB
	Store            object.ObjectStore
	DocumentsRepo    documents.Repo
	Gateway          *documents.Gateway
	Coordinator      *documents.Coordinator
	Notifier         *processing.Async
	Dispatcher       *inference.Dispatcher
	Sessions         *chat.Manager
	Verifier         *auth.Verifier
	DocumentsHandler *documents.Handler
	ChatHandler      *chat.Handler
	GoogleAuth       *googleauth.GoogleService

	stopSweeper context.CancelFunc
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = config.DefaultAllowedTypes()
	}
	ctx := context.Background()

	database, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sender, err := buildSender(ctx, cfg)
	if err != nil {
		return nil, err
	}

	inferenceClient, err := inference.NewHTTPClient(cfg.InferenceURL(), nil)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		DB:       database,
		Store:    store,
		Verifier: auth.NewVerifier(cfg.JWTSecret),
	}
	if database != nil {
		app.DocumentsRepo = &documents.SQLRepo{DB: database}
	} else {
		app.DocumentsRepo = documents.NewMemoryRepo()
	}

	var notifier documents.Notifier
	if sender != nil {
		app.Notifier = processing.NewAsync(sender, cfg.NotifyTimeout)
		notifier = app.Notifier
	}

	app.Gateway = documents.NewGateway(store, app.DocumentsRepo)
	app.Coordinator = documents.NewCoordinator(
		documents.NewPolicy(cfg.AllowedTypes, cfg.MaxUploadBytes),
		app.Gateway,
		notifier,
		cfg.CleanupTimeout,
	)
	app.Dispatcher = inference.NewDispatcher(inferenceClient, cfg.InferenceTimeout)
	app.Sessions = chat.NewManager(app.Dispatcher, cfg.ChatSessionMaxAge)
	app.DocumentsHandler = documents.NewHandler(app.Coordinator)
	app.ChatHandler = chat.NewHandler(app.Sessions)
	app.GoogleAuth = googleauth.NewGoogleService(googleauth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		UIRedirect:   cfg.AuthUIRedirectURL,
	}, app.Verifier)

	app.Router = server.NewRouter(server.RouterDeps{
		CORSAllowOrigin: cfg.CORSAllowOrigin,
		Verifier:        app.Verifier,
		AllowGuests:     isDevLike(cfg.Env),
		RateLimits: map[string]middleware.RateLimitRule{
			middleware.GroupUpload: middleware.PerMinute(cfg.RateLimitUploadsPerMin),
			middleware.GroupChat:   middleware.PerMinute(cfg.RateLimitChatPerMin),
		},
		Health:   app.health,
		Public:   []server.RouteRegistrar{app.GoogleAuth},
		Handlers: []server.RouteRegistrar{app.DocumentsHandler, app.ChatHandler},
	})

	return app, nil
}

// Start launches background maintenance. Close stops it.
func (a *App) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	a.stopSweeper = cancel
	go a.Sessions.Run(ctx, sessionSweepInterval)
}

// Close drains in-flight notifications and chat queries, then releases the database.
func (a *App) Close(ctx context.Context) error {
	if a.stopSweeper != nil {
		a.stopSweeper()
	}
	var errs []error
	if a.Notifier != nil {
		if err := a.Notifier.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain notifications: %w", err))
		}
	}
	if err := a.Sessions.Wait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain chat: %w", err))
	}
	if a.DB != nil && !db.IsLambdaRuntime() {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) health(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	return a.DB.PingContext(ctx)
}

func buildDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		database *sqlx.DB
		err      error
	)
	if db.IsLambdaRuntime() {
		database, err = db.GetSingleton(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultLambdaOptions()))
	} else {
		database, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	// SQLite files are local to the process, so schema setup happens here.
	// Postgres schemas are managed by cmd/migrate.
	if database.DriverName() == db.DriverSQLite {
		if err := db.RunMigrations(ctx, database); err != nil {
			database.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return database, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, miniostore.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// buildSender picks the processing transport. A nil sender disables notifications.
func buildSender(ctx context.Context, cfg config.Config) (processing.Sender, error) {
	switch cfg.ProcessingTransport {
	case "none":
		log.Printf("bootstrap: processing notifications disabled")
		return nil, nil
	case "sqs":
		return processing.NewSQSSender(ctx, cfg.AWSRegion, cfg.ProcessingQueueURL)
	default:
		return processing.NewWebhookSender(cfg.ProcessingURL(), cfg.NotifyTimeout)
	}
}

// NewRelaySender builds the downstream sender used by the queue relay.
func NewRelaySender(cfg config.Config) (processing.Sender, error) {
	return processing.NewWebhookSender(cfg.ProcessingURL(), cfg.NotifyTimeout)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
