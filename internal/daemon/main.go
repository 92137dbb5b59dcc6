// Package daemon wires the configuration store together: it opens the
// database, brings the schema up to date and seeds a fresh store with the
// builtin catalog.
package daemon

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoProxyGuard/GoProxyGuard/internal/catalog"
	"github.com/GoProxyGuard/GoProxyGuard/internal/config"
	"github.com/GoProxyGuard/GoProxyGuard/internal/db"
	"github.com/GoProxyGuard/GoProxyGuard/internal/db/controller/metadata"
	"github.com/GoProxyGuard/GoProxyGuard/internal/db/controller/plugin"
)

// Daemon represents the running configuration store.
type Daemon struct {
	db *gorm.DB
}

// DB exposes the store's database handle to the command layer.
func (d *Daemon) DB() *gorm.DB {
	return d.db
}

// Close releases the database connection.
func (d *Daemon) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err //nolint:wrapcheck
	}

	return sqlDB.Close() //nolint:wrapcheck
}

// New opens the configured database, migrates the schema and, on a fresh
// store, seeds the builtin plugin catalog and the metadata record.
func New(cfg *config.Config) (*Daemon, error) {
	g, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}

	created, err := db.Migrate(g)
	if err != nil {
		return nil, err
	}

	if created {
		if err := plugin.Seed(g, catalog.Builtin()); err != nil {
			return nil, err
		}

		log.Info().Msg("database tables created, builtin catalog seeded")
	}

	if !metadata.IsInitialized(g) {
		if err := metadata.Init(g, cfg.Version, cfg.Integration); err != nil {
			return nil, err
		}

		log.Info().Str("version", cfg.Version).Str("integration", cfg.Integration).Msg("store metadata initialized")
	}

	return &Daemon{db: g}, nil
}
