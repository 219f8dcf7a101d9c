package main

import (
	"context"
	"log"
	"net"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"spendlens/internal/config"
	"spendlens/internal/container"
	"spendlens/internal/errors"
	"spendlens/ui"
)

// initDatabase connects to PostgreSQL when persistence is configured
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	if appConfig.Database.URL == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load application configuration
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create dependency injection container
	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown(context.Background())

	// Initialize database when configured; the service runs file-only
	// without one.
	if appConfig.Database.Enabled {
		db, err := initDatabase(appConfig)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		if err := appContainer.InitWithDatabase(ctx, db); err != nil {
			log.Fatalf("Failed to initialize container with database: %v", err)
		}
	} else {
		log.Println("DATABASE_URL not set, running in file-only mode")
	}

	if err := appContainer.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	// Scheduled pipeline runs
	group.Go(func() error {
		return appContainer.Scheduler.Start(groupCtx)
	})

	// Upload directory watcher, when file ingestion is enabled
	if appContainer.Watcher != nil {
		group.Go(func() error {
			return appContainer.Watcher.Start(groupCtx)
		})
	}

	// Operational endpoints on the ops port
	if appConfig.Ops.Enabled {
		opsApp := ui.NewApp(appContainer)
		group.Go(func() error {
			return opsApp.Start(net.JoinHostPort("", appConfig.Ops.Port))
		})
	}

	// Dashboard API
	server := ui.NewServer(appContainer)
	group.Go(func() error {
		return server.Start(net.JoinHostPort("", appConfig.Server.Port))
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatalf("Service exited: %v", err)
	}
}
