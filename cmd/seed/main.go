package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/avelis/bookstore/internal/config"
	"github.com/avelis/bookstore/internal/db"
	"github.com/avelis/bookstore/internal/store"
)

// Seed the snapshot database with the sample catalog and default accounts
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL must be set to seed the database")
	}

	database, err := db.NewDB(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Apply schema if not already applied
	migration, err := os.ReadFile("migrations/001_init.sql")
	if err != nil {
		log.Fatalf("Failed to read migration: %v", err)
	}
	if _, err := database.Pool.Exec(ctx, string(migration)); err != nil && !strings.Contains(err.Error(), "already exists") {
		log.Fatalf("Failed to apply migration: %v", err)
	}

	// Don't clobber an existing snapshot
	books, _, _, err := database.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to check existing snapshot: %v", err)
	}
	if len(books) > 0 {
		fmt.Printf("Database already has %d books. No need to seed.\n", len(books))
		os.Exit(0)
	}

	if err := database.Save(ctx, store.SeedBooks(), store.SeedUsers(), nil); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	fmt.Println("Successfully seeded the database with the sample catalog and default users!")
}
