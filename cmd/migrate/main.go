package main

import (
	"log"
	"os"

	"ai-assistant-be/internal/entity"
	"ai-assistant-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	// 3. Pre-Migration: Extensions (Things GORM AutoMigrate doesn't do)
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Fatalf("Error: Failed to run setup SQL %q: %v", sql, err)
		}
	}

	// 4. AutoMigrate all entities
	err = db.AutoMigrate(
		&entity.ChatMessage{},
		&entity.RecentEvent{},
		&entity.TravelDocument{},
		&entity.UserFact{},
		&entity.AssistantSession{},
	)
	if err != nil {
		log.Fatal("Error: Migration failed:", err)
	}

	log.Println("Migration completed successfully")
}
