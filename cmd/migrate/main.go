package main

import (
	"log"
	"os"

	"docuchat-be/internal/model"
	"docuchat-be/pkg/database"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
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

	color.Cyan("Starting Authoritative GORM Migration...")

	// 3. Pre-Migration: Extensions (Things GORM AutoMigrate doesn't do)
	color.Yellow("Step 1: Setting up Extensions...")

	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}

	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate All Models
	color.Yellow("Step 2: Running AutoMigrate...")

	models := []interface{}{
		&model.User{},
		&model.Conversation{},
		&model.ChatMessage{},
		&model.ConversationEmbedding{},
		&model.NotificationType{},
		&model.Notification{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Seed notification type registry (idempotent on code)
	color.Yellow("Step 3: Seeding notification types...")
	seedNotificationTypes(db)

	color.Green("✅ Success: Database migration completed successfully via GORM.")
}

func seedNotificationTypes(db *gorm.DB) {
	types := []model.NotificationType{
		{
			Code:        "USER_REGISTERED",
			DisplayName: "Welcome",
			Template:    "Welcome to DocuChat, {full_name}!",
			IsActive:    true,
		},
		{
			Code:        "CONVERSATION_CREATED",
			DisplayName: "Document Ready",
			Template:    "Your document \"{document_name}\" is ready to chat with",
			IsActive:    true,
		},
		{
			Code:        "SESSION_CLEANUP_FAILED",
			DisplayName: "Session Cleanup Issue",
			Template:    "Some of your document data could not be cleaned up automatically",
			IsActive:    true,
		},
	}

	for _, t := range types {
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&t).Error
		if err != nil {
			log.Printf("Warn: Failed to seed notification type %s: %v", t.Code, err)
		}
	}
}
