package database

import (
	"learningly/config"
	"learningly/internal/domain/billing"
	"learningly/internal/domain/usage"
	"learningly/internal/domain/users"
	"learningly/internal/infra/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Models lists every table owned by the service, in migration order.
var Models = []interface{}{
	&users.User{},
	&usage.Record{},
	&usage.Reservation{},
	&billing.Purchase{},
}

func InitDB() {
	dsn := config.DB_URL
	if dsn == "" {
		logger.Log.Fatal("DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to database")
	}

	DB = db

	if err := DB.AutoMigrate(Models...); err != nil {
		logger.Log.WithError(err).Fatal("auto-migrate failed")
	}

	logger.Log.Info("database connected and migrated")
}
