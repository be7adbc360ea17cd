package main

import (
	"log"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"shipment-forecast-service/internal/adapters/repositories"
	"shipment-forecast-service/internal/platform/db"
)

// dbtool initializes the schema and optionally seeds the graph tables
// from a JSON snapshot. Meant for local setups and CI databases.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	sqlDB, err := db.Open(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer sqlDB.Close()

	log.Println("Initializing database schema...")
	if err := repositories.InitSchema(sqlDB); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	seedPath := os.Getenv("GRAPH_SEED_PATH")
	if strings.TrimSpace(seedPath) == "" {
		log.Println("GRAPH_SEED_PATH not set, skipping graph seed.")
		return
	}

	log.Printf("Seeding graph from %s...", seedPath)
	if err := repositories.SeedGraphFromJSON(sqlDB, seedPath); err != nil {
		log.Fatalf("graph seeding failed: %v", err)
	}
	log.Println("Seeding complete.")
}
