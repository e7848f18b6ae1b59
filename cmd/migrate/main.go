package main

import (
	"fmt"
	"os"

	"github.com/pratik-mahalle/iamgen/internal/config"
	"github.com/pratik-mahalle/iamgen/internal/repository/postgres"
	"github.com/pratik-mahalle/iamgen/migrations"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Database.Driver == "memory" {
		fmt.Println("Memory store has no schema, nothing to migrate")
		return
	}

	// Connect to database
	db, err := postgres.New(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Printf("Connected to %s store successfully\n", cfg.Database.Driver)

	applied, err := postgres.RunMigrations(db, migrations.GetFS())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}

	if applied == 0 {
		fmt.Println("Store schema is up to date")
		return
	}
	fmt.Printf("Applied %d migrations\n", applied)
}
