package database

import (
	"fmt"
	"log"
	"os"

	"github.com/Zazh/dpa-lms-sub000/config"
	"github.com/Zazh/dpa-lms-sub000/models"
	courseModels "github.com/Zazh/dpa-lms-sub000/models/course"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DbInstance struct holds the database connection instance
type DbInstance struct {
	Db *gorm.DB
}

// Database is the global database instance
var Database DbInstance

// ConnectDb establishes a connection to PostgreSQL
func ConnectDb() {
	cfg := config.AppConfig

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		os.Exit(2)
	}

	// Set up connection pooling
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(0)

	RunMigrations(db)

	// Save database instance globally
	Database = DbInstance{Db: db}
}

// RunMigrations performs database migrations
func RunMigrations(db *gorm.DB) {
	log.Println("Running Migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMembership{},
		&models.NotificationPreference{},
		&courseModels.Course{},
		&courseModels.Module{},
		&courseModels.Lesson{},
		&courseModels.VideoLesson{},
		&courseModels.TextLesson{},
		&courseModels.LessonProgress{},
		&courseModels.CourseEnrollment{},
		&courseModels.Quiz{},
		&courseModels.QuizQuestion{},
		&courseModels.QuizAnswer{},
		&courseModels.QuizAttempt{},
		&courseModels.QuizResponse{},
		&courseModels.Assignment{},
		&courseModels.AssignmentSubmission{},
		&courseModels.Graduate{},
		&courseModels.Certificate{},
		&courseModels.GraduateDossier{},
	)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migrations completed successfully.")
}
