package config

import (
	"errors"
)

var (
	// ErrUnknownDBEngine error if config db.engine is not a supported engine.
	ErrUnknownDBEngine = errors.New("toml config db.engine must be one of sqlite, mysql or postgres")

	// ErrEmptyDBHost error if a server based engine is configured without a host.
	ErrEmptyDBHost = errors.New("toml config db.host can not be empty for mysql/postgres engines")

	// ErrEmptyDBName error if a server based engine is configured without a database name.
	ErrEmptyDBName = errors.New("toml config db.name can not be empty for mysql/postgres engines")
)
