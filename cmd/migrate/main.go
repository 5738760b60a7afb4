package main

import (
	"context"
	"log"
	"os"
	"time"

	"datapilot/adapters/db"
	"datapilot/internal/migration"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate <database_url>")
	}
	databaseURL := os.Args[1]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := db.Open(ctx, databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	runner := migration.NewRunner()
	log.Printf("Running migrations (version %s) with driver %s", runner.Version(), conn.DriverName())
	if err := runner.Run(ctx, conn); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("✅ Migrations complete")
}
