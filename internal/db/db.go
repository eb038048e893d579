package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketplace/internal/config"
	"marketplace/internal/models"
	console "marketplace/internal/utils/logger"
)

var log = console.New("DB")

// Connect opens the configured database and runs migrations.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var (
		gdb *gorm.DB
		err error
	)
	switch cfg.Database.Driver {
	case "sqlite":
		gdb, err = OpenSQLite(cfg.Database.SQLitePath, cfg.Database.LogLevel)
		if err != nil {
			return nil, log.Error("Failed to open sqlite database", err)
		}
		log.Success("Opened sqlite database %s", cfg.Database.SQLitePath)
	default:
		gdb, err = connectPostgres(cfg.Database)
		if err != nil {
			return nil, err
		}
	}

	if err := Migrate(gdb); err != nil {
		return nil, log.Error("Failed to run migrations", err)
	}
	log.Success("Migrations completed")

	return gdb, nil
}

func connectPostgres(cfg config.DatabaseConfig) (*gorm.DB, error) {
	log.Info("Connecting to database %s on %s:%d...", cfg.Name, cfg.Host, cfg.Port)
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		gdb, err := Open(postgres.Open(cfg.DSN()), cfg.LogLevel)
		if err == nil {
			log.Success("Connected to database")

			sqlDB, err := gdb.DB()
			if err != nil {
				return nil, log.Error("Failed to get underlying *sql.DB instance", err)
			}

			sqlDB.SetMaxOpenConns(100)
			sqlDB.SetMaxIdleConns(10)
			sqlDB.SetConnMaxLifetime(time.Hour)
			sqlDB.SetConnMaxIdleTime(time.Minute * 30)

			return gdb, nil
		}
		lastErr = err
		log.Warn("Failed to connect to database (attempt %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(time.Second * 5)
		}
	}
	return nil, log.Error("Failed to connect to database after %d attempts", lastErr, maxRetries)
}

// Open wraps gorm.Open with the settings shared by every driver.
func Open(dialector gorm.Dialector, logLevel string) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(parseLogLevel(logLevel)),
		DisableForeignKeyConstraintWhenMigrating: true,
		PrepareStmt:                              true,
		AllowGlobalUpdate:                        false,
		TranslateError:                           true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// Migrate creates or updates every table inside one transaction.
func Migrate(gdb *gorm.DB) error {
	log.Info("Running migrations...")
	return gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	})
}

func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
