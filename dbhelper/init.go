package dbhelper

import (
	"fmt"
	"log"
	"os"
	"time"

	"lookstudioapi/config"
	"lookstudioapi/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func SetupDB() *gorm.DB {
	db, err := gorm.Open(postgres.Open(
		fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			config.GetEnv("DB_USERNAME", ""),
			config.GetEnv("DB_PASSWORD", ""),
			config.GetEnv("DB_HOST", "localhost"),
			config.GetEnv("DB_PORT", "5432"),
			config.GetEnv("DB_NAME", ""),
		),
	), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get database handle: %v", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Minute * 5)

	Migrate(db, &models.GenerationRecord{})
	Migrate(db, &models.ExportRecord{})

	return db
}

func SetupTestDB() *gorm.DB {
	os.Setenv("DB_USERNAME", "lookstudio")
	os.Setenv("DB_PASSWORD", "lookstudio")
	os.Setenv("DB_HOST", "localhost")
	os.Setenv("DB_NAME", "lookstudio_test")
	os.Setenv("DB_PORT", "5432")
	return SetupDB()
}
