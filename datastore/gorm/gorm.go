// Package gorm opens the application database.
package gorm

import (
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cloudleakage/cloudleakage-api/configs"
	"github.com/cloudleakage/cloudleakage-api/migrations"
)

const (
	dbTypePostgresql = "psql"
	dbTypeMysql      = "mysql"
	dbTypeSqlite     = "sqlite"
)

const connectTimeout = 30 * time.Second

// New opens the configured database, retrying with backoff while the server
// comes up, and runs pending migrations.
func New(cfg *configs.Config) (*gorm.DB, error) {
	dialector, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	options := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	b := &backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	deadline := time.Now().Add(connectTimeout)

	var db *gorm.DB
	for {
		db, err = gorm.Open(dialector, options)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		d := b.Duration()
		log.WithFields(log.Fields{"error": err, "retryIn": d}).Warn("Database not ready")
		time.Sleep(d)
	}

	if err := migrations.Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func dialector(cfg *configs.Config) (gorm.Dialector, error) {
	switch cfg.DatabaseType {
	case dbTypePostgresql:
		return postgres.Open(cfg.DatabaseDSN), nil
	case dbTypeMysql:
		return mysql.Open(cfg.DatabaseDSN), nil
	case dbTypeSqlite:
		return sqlite.Open(cfg.DatabaseDSN), nil
	default:
		return nil, fmt.Errorf("database type '%s' not supported", cfg.DatabaseType)
	}
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn(err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn(err)
	}
}
