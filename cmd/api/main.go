package main

import (
	"context"
	"log"
	"net"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"spendlens/internal/config"
	"spendlens/internal/container"
	"spendlens/ui"
)

// API-only entrypoint: serves the dashboard endpoints without the
// scheduler or upload watcher, for deployments where the pipeline runs
// as a separate daemon.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown(context.Background())

	if appConfig.Database.Enabled {
		db, err := sqlx.Connect("postgres", appConfig.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := appContainer.InitWithDatabase(ctx, db); err != nil {
			log.Fatalf("Failed to initialize container with database: %v", err)
		}
	}

	if err := appContainer.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	server := ui.NewServer(appContainer)
	if err := server.Start(net.JoinHostPort("", appConfig.Server.Port)); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
