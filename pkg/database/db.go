package database

import (
	"fmt"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	DB   *gorm.DB
	once sync.Once
)

// Connect opens the shared postgres handle. Later calls return the first
// handle regardless of dsn.
func Connect(dsn string, verbose bool) (*gorm.DB, error) {
	var err error
	once.Do(func() {
		level := logger.Warn
		if verbose {
			level = logger.Info
		}

		var db *gorm.DB
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(level),
		})
		if err != nil {
			err = fmt.Errorf("failed to connect database: %w", err)
			return
		}
		DB = db
	})
	if DB == nil && err == nil {
		err = fmt.Errorf("database connection was not established")
	}
	return DB, err
}
