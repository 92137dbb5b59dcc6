// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"

	"github.com/GoProxyGuard/GoProxyGuard/internal/config"
)

// defaultSQLitePath is used when no sqlite database file is configured.
const defaultSQLitePath = "./data/db.sqlite3"

// MySQL builds the Data Source Name for the mysql gorm driver.
func MySQL(dbCfg *config.Config) string {
	out := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		dbCfg.DB.User,
		dbCfg.DB.Password,
		dbCfg.DB.Host,
		dbCfg.DB.Port,
		dbCfg.DB.Name,
		dbCfg.DB.Extras,
	)

	return out
}

// Postgres builds the Data Source Name for the postgres gorm driver.
func Postgres(dbCfg *config.Config) string {
	out := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s %s",
		dbCfg.DB.Host,
		dbCfg.DB.Port,
		dbCfg.DB.User,
		dbCfg.DB.Password,
		dbCfg.DB.Name,
		dbCfg.DB.Extras,
	)

	return out
}

// SQLite returns the database file path for the sqlite gorm driver.
func SQLite(dbCfg *config.Config) string {
	if dbCfg.DB.Path == "" {
		return defaultSQLitePath
	}

	return dbCfg.DB.Path
}
