package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace/docs/swagger"
	"marketplace/internal/api"
	"marketplace/internal/config"
	"marketplace/internal/db"
	"marketplace/internal/events"
	"marketplace/internal/handlers"
	"marketplace/internal/models"
	"marketplace/internal/notify"
	"marketplace/internal/services"
	"marketplace/internal/tasks"
	"marketplace/internal/utils"
	"marketplace/internal/utils/logger"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"gorm.io/gorm"
)

// @title Marketplace API
// @version 1.0
// @description API documentation for the B2B marketplace
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var console = logger.New("marketplace")

func main() {
	root := &cli.Command{
		Name:   "marketplace",
		Usage:  "B2B marketplace API server",
		Before: loadEnv,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the API server, task workers and scheduler",
				Action: func(ctx context.Context, _ *cli.Command) error { return serve(ctx) },
			},
			{
				Name:   "migrate",
				Usage:  "Run database migrations and exit",
				Action: func(ctx context.Context, _ *cli.Command) error { return migrate() },
			},
			{
				Name:   "seed",
				Usage:  "Seed permissions, roles and the first administrator",
				Action: func(ctx context.Context, _ *cli.Command) error { return seed() },
			},
		},
		Action: func(ctx context.Context, _ *cli.Command) error { return serve(ctx) },
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadEnv reads .env when present and configures the logger.
func loadEnv(ctx context.Context, _ *cli.Command) (context.Context, error) {
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		console.Info("No .env file found, skipping environment variable loading")
	} else {
		console.Info("Loading environment variables from .env file")
		if err := godotenv.Load(); err != nil {
			return ctx, fmt.Errorf("failed to load environment variables: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return ctx, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Configure(cfg.Log.Format, cfg.Log.Level, nil)
	return ctx, nil
}

func connect() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gdb, nil
}

func migrate() error {
	_, gdb, err := connect()
	if err != nil {
		return err
	}
	return db.Close(gdb)
}

func seed() error {
	cfg, gdb, err := connect()
	if err != nil {
		return err
	}
	defer db.Close(gdb)
	return seedDatabase(cfg, gdb)
}

func seedDatabase(cfg *config.Config, gdb *gorm.DB) error {
	if err := models.SeedPermissions(gdb); err != nil {
		return console.Error("Failed to seed permissions", err)
	}
	console.Success("Successfully seeded permissions")

	if err := models.CreateAdminFromConfig(gdb, cfg.Admin); err != nil {
		return console.Error("Failed to create administrator", err)
	}
	return nil
}

// storage picks the object store and returns the in-process one when no
// provider is configured.
func storage(ctx context.Context, cfg *config.Config) (services.Storage, *services.MemoryStorage, error) {
	if cfg.Storage.Provider == "none" {
		console.Warn("STORAGE_PROVIDER=none, media is kept in memory")
		mem := services.NewMemoryStorage(cfg.Server.PublicURL)
		return mem, mem, nil
	}
	s3, err := services.NewS3Service(ctx, cfg.Storage.S3)
	if err != nil {
		return nil, nil, err
	}
	return s3, nil, nil
}

func serve(ctx context.Context) error {
	cfg, gdb, err := connect()
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			console.Error("Failed to close database connection", err)
		}
	}()

	if err := seedDatabase(cfg, gdb); err != nil {
		console.Warn("Seeding skipped: %v", err)
	}

	store, local, err := storage(ctx, cfg)
	if err != nil {
		return console.Error("Failed to initialize storage", err)
	}
	// Register the URL generator
	models.RegisterMediaURLGenerator(store)
	media := services.NewMediaService(store)

	rdb, err := notify.Connect(ctx, cfg.Redis)
	if err != nil {
		return console.Error("Failed to connect to redis", err)
	}
	defer rdb.Close()

	transport := notify.NewRedisTransport(rdb)
	dispatcher := events.NewDispatcher(transport)

	taskClient := tasks.NewTaskClient(cfg.Redis, rdb)
	defer taskClient.Close()

	google := func(ctx context.Context, token string) (*utils.GoogleUser, []byte, error) {
		return utils.GetUserDataFromGoogle(ctx, cfg.Google.UserInfoURL, token)
	}
	auth := services.NewAuthService(gdb, media, taskClient, google, cfg.JWT.Secret, cfg.JWT.TTL).
		WithAvatars(utils.NewStorageHandler(handlers.MaxUploadSize))
	events.On(events.UserCreated, auth.HandleUserCreated)

	// Initialize task server
	taskServer := tasks.NewServer(cfg.Redis, cfg.Worker,
		tasks.NewTaskHandler(gdb, tasks.NewMailer(cfg.Mail)),
		logger.New("workers"),
	)
	if err := taskServer.Start(ctx); err != nil {
		return console.Error("Task server error", err)
	}

	// Initialize task scheduler
	taskScheduler := tasks.NewScheduler(cfg.Redis, cfg.Worker, logger.New("scheduler"))
	go func() {
		if err := taskScheduler.Start(); err != nil {
			console.Error("Task scheduler error", err)
		}
	}()

	apiServer, err := api.NewServer(cfg, api.Deps{
		DB:         gdb,
		Media:      media,
		Dispatcher: dispatcher,
		Auth:       auth,
		Subscriber: transport,
		Redis:      rdb,
		LocalMedia: local,
	})
	if err != nil {
		return console.Error("Failed to build API server", err)
	}

	// Swagger documentation
	swagger.SwaggerInfo.Title = "Marketplace API Documentation"
	swagger.SwaggerInfo.Description = "API documentation for the B2B marketplace"
	swagger.SwaggerInfo.Version = "1.0"
	swagger.SwaggerInfo.BasePath = "/api/v1"

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()

	// Wait for interrupt signal to gracefully shutdown the servers
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			console.Error("API server error", err)
		}
	}

	// Create a deadline for graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var shutdownErr error
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		shutdownErr = errors.Join(shutdownErr, console.Error("Failed to shutdown API server", err))
	}
	taskScheduler.Stop()
	taskServer.Shutdown()
	dispatcher.Wait()
	events.Drain()

	console.Info("Servers shutdown gracefully")
	return shutdownErr
}
