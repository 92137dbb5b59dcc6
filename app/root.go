// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/GoProxyGuard/GoProxyGuard/internal/config"
	"github.com/GoProxyGuard/GoProxyGuard/internal/logger"
)

var (
	configPath string // Path to the configuration directory

	cfg config.Config
	err error

	rootCmd = &cobra.Command{
		Use:   "go-proxyguard",
		Short: "GoProxyGuard is the configuration store of the GoProxyGuard reverse proxy",
		Long: `GoProxyGuard is the configuration store of the GoProxyGuard reverse proxy.
It reconciles desired-state configuration submitted by independent writers
(UI, autoconf agent, scheduler, plugin manifests) into one consistent,
queryable view.`,
		Args: cobra.OnlyValidArgs,
	}
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration directory")
}

// setup loads the main configuration and initializes the logger. It is used
// as PreRun of every command touching the store.
func setup(_ *cobra.Command, _ []string) {
	if cfg, err = config.ReadConfig(configPath); err != nil {
		panic(err)
	}

	if err = logger.Init(cfg.Log); err != nil {
		panic(err)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
