package config

import (
	"github.com/GoProxyGuard/GoProxyGuard/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode bool // enable dev mode for development
	DB      DB
	Log     logger.Log
	Title   string
	Version string // product version written to the store metadata
	// Integration names the deployment flavor (standalone, docker, ...)
	// recorded in the store metadata.
	Integration string
}
