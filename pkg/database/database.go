package database

import (
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"library-system/pkg/models"
)

// InitLibraryDB opens the shared library database holding both books and
// loans. They live in one database on purpose: loan creation must decrement
// availability and insert the loan in a single transaction.
func InitLibraryDB(dsn string) *gorm.DB {
	return initDB(dsn, &models.Book{}, &models.Loan{})
}

func InitMembershipDB(dsn string) *gorm.DB {
	return initDB(dsn, &models.Member{})
}

func InitAuthDB(dsn string) *gorm.DB {
	return initDB(dsn, &models.Account{})
}

func initDB(dsn string, models ...interface{}) *gorm.DB {
	var db *gorm.DB
	var err error

	maxRetries := 10
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			break
		}
		log.Printf("Database connection attempt %d/%d failed: %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(5 * time.Second)
		}
	}
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Database ping failed: %v", err)
	}

	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	log.Println("Database connection established successfully")
	return db
}
