// Package db opens the relational store and manages its schema.
package db

import (
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/GoProxyGuard/GoProxyGuard/internal/config"
	"github.com/GoProxyGuard/GoProxyGuard/internal/db/dsn"
	"github.com/GoProxyGuard/GoProxyGuard/internal/db/models"
)

const (
	connectRetries = 5
	retryDelay     = 5 * time.Second
)

// AllModels lists every persisted entity, in migration order.
func AllModels() []any {
	return []any{
		&models.Metadata{},
		&models.Service{},
		&models.Plugin{},
		&models.Setting{},
		&models.Select{},
		&models.GlobalValue{},
		&models.ServiceSetting{},
		&models.CustomConfig{},
		&models.PluginPage{},
		&models.Job{},
		&models.JobCache{},
	}
}

// Open connects to the configured database engine. The initial connection is
// retried a few times so the store survives a database container coming up
// slower than the application.
func Open(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	if cfg.DevMode {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	for attempt := 0; ; attempt++ {
		g, openErr := gorm.Open(dialector, gormCfg)
		if openErr == nil {
			sqlDB, dbErr := g.DB()
			if dbErr == nil {
				if pingErr := sqlDB.Ping(); pingErr == nil {
					return g, nil
				} else {
					openErr = pingErr
				}
			} else {
				openErr = dbErr
			}
		}

		if attempt >= connectRetries {
			return nil, errors.Wrap(openErr, "can't connect to database")
		}

		log.Warn().Err(openErr).Msg("can't connect to database, retrying in 5 seconds ...")
		time.Sleep(retryDelay)
	}
}

// dialectorFor selects the gorm driver matching the configured engine.
func dialectorFor(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DB.Engine {
	case config.EngineMySQL:
		return gormmysql.Open(dsn.MySQL(cfg)), nil
	case config.EnginePostgres:
		return gormpostgres.Open(dsn.Postgres(cfg)), nil
	case config.EngineSQLite, "":
		path := dsn.SQLite(cfg)
		if err := ensureSQLiteFile(path); err != nil {
			return nil, err
		}

		return sqlite.Open(path), nil
	default:
		return nil, config.ErrUnknownDBEngine
	}
}

// ensureSQLiteFile creates the database file and its directory when missing,
// matching the bootstrap behavior expected by first-run deployments.
func ensureSQLiteFile(path string) error {
	if path == ":memory:" {
		return nil
	}

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil { //nolint: mnd
		return errors.Wrap(err, "failed to create sqlite directory")
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o640) //nolint: mnd
	if err != nil {
		return errors.Wrap(err, "failed to create sqlite database file")
	}

	return errors.Wrap(f.Close(), "failed to close sqlite database file")
}

// Migrate brings the schema up to date. It reports true when at least one
// table had to be created, which tells the caller a fresh store needs its
// catalog seeded.
func Migrate(g *gorm.DB) (bool, error) {
	if g == nil {
		return false, ErrDBNil
	}

	hasAll := true

	for _, model := range AllModels() {
		if !g.Migrator().HasTable(model) {
			hasAll = false
			break
		}
	}

	if hasAll {
		return false, nil
	}

	if err := g.AutoMigrate(AllModels()...); err != nil {
		return false, errors.Wrap(err, "failed to migrate database")
	}

	return true, nil
}
