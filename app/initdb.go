package app

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/GoProxyGuard/GoProxyGuard/internal/daemon"
	"github.com/GoProxyGuard/GoProxyGuard/internal/db/controller/metadata"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:    "init",
	Short:  "Initialize the configuration store",
	PreRun: setup,
	RunE: func(_ *cobra.Command, _ []string) error {
		d, err := daemon.New(&cfg)
		if err != nil {
			return err
		}
		defer d.Close() //nolint:errcheck

		log.Info().
			Bool("initialized", metadata.IsInitialized(d.DB())).
			Bool("first_config_saved", metadata.IsFirstConfigSaved(d.DB())).
			Bool("autoconf_loaded", metadata.IsAutoconfLoaded(d.DB())).
			Msg("store ready")

		return nil
	},
}
