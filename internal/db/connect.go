// Package db opens the database, applies schema migrations and seeds reference data.
package db

import (
	"fmt"
	"log"
	"time"

	"github.com/diewo77/go-submittals/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	connectAttempts = 10
	connectBackoff  = 2 * time.Second
)

// Connect opens the configured database. Postgres connections are retried
// to give the server time to start.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	if !cfg.IsPostgres() {
		log.Printf("[DB] Using sqlite at %s", cfg.SQLitePath)
		return OpenSQLite(cfg.SQLitePath, gcfg)
	}

	dsn := NormalizeDSN(cfg.DSN())
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is empty, check DB_* or DATABASE_URL")
	}
	var (
		db  *gorm.DB
		err error
	)
	for i := 1; i <= connectAttempts; i++ {
		db, err = gorm.Open(postgres.Open(dsn), gcfg)
		if err == nil {
			break
		}
		log.Printf("[DB] connection attempt %d/%d failed: %v", i, connectAttempts, err)
		time.Sleep(connectBackoff)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	if err := db.Exec("SELECT 1").Error; err != nil {
		return nil, fmt.Errorf("db ping failed: %w", err)
	}
	log.Printf("[DB] Using DSN: %s", MaskDSN(dsn))
	return db, nil
}

// OpenSQLite opens a sqlite database. A nil config uses gorm defaults.
func OpenSQLite(path string, gcfg *gorm.Config) (*gorm.DB, error) {
	if gcfg == nil {
		gcfg = &gorm.Config{}
	}
	db, err := gorm.Open(sqlite.Open(path), gcfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return db, nil
}

// IsPostgres reports whether db talks to PostgreSQL.
func IsPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}
