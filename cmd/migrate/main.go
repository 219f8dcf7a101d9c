package main

import (
	"context"
	"log"
	"os"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"spendlens/adapters/postgres"
)

// Schema migration runner. Applies embedded migrations or prints which
// versions have run. The URL argument wins over DATABASE_URL.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate <up|status> [database_url]")
	}
	command := os.Args[1]

	_ = godotenv.Load()
	databaseURL := os.Getenv("DATABASE_URL")
	if len(os.Args) >= 3 {
		databaseURL = os.Args[2]
	}
	if databaseURL == "" {
		log.Fatal("No database URL: pass one as an argument or set DATABASE_URL")
	}

	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	migrator := postgres.NewMigrator(db)

	switch command {
	case "up":
		if err := migrator.Up(ctx); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations applied")
	case "status":
		status, err := migrator.Status(ctx)
		if err != nil {
			log.Fatalf("Failed to read migration status: %v", err)
		}
		names := make([]string, 0, len(status))
		for name := range status {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			state := "pending"
			if status[name] {
				state = "applied"
			}
			log.Printf("%s: %s", name, state)
		}
	default:
		log.Fatalf("Unknown command %q (use up or status)", command)
	}
}
