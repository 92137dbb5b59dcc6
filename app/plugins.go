package app

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/GoProxyGuard/GoProxyGuard/internal/daemon"
	"github.com/GoProxyGuard/GoProxyGuard/internal/db/controller/plugin"
)

var pluginAssetsDir string

func init() { //nolint: gochecknoinits
	syncPluginsCmd.Flags().StringVar(&pluginAssetsDir, "assets", "", "Directory holding <plugin-id>/ui page assets")

	rootCmd.AddCommand(syncPluginsCmd)
}

var syncPluginsCmd = &cobra.Command{
	Use:    "sync-plugins <manifests-file>",
	Short:  "Reconcile the external plugin catalog against the store",
	Long: `Reconcile the external plugin catalog against the store. The manifests file
is a JSON array of plugin descriptors and is treated as the complete desired
set of external plugins.`,
	Args:   cobra.ExactArgs(1),
	PreRun: setup,
	RunE: func(_ *cobra.Command, args []string) error {
		manifests, err := readManifests(args[0])
		if err != nil {
			return err
		}

		d, err := daemon.New(&cfg)
		if err != nil {
			return err
		}
		defer d.Close() //nolint:errcheck

		if err := plugin.UpdateExternal(d.DB(), manifests); err != nil {
			return err
		}

		log.Info().Int("plugins", len(manifests)).Msg("external plugins reconciled")

		return nil
	},
}

func readManifests(path string) ([]plugin.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read manifests file")
	}

	var manifests []plugin.Manifest
	if err := json.Unmarshal(data, &manifests); err != nil {
		return nil, errors.Wrap(err, "failed to decode manifests file")
	}

	if pluginAssetsDir == "" {
		return manifests, nil
	}

	for i := range manifests {
		page, err := plugin.LoadPageAssets(filepath.Join(pluginAssetsDir, manifests[i].ID, "ui"))
		if err != nil {
			return nil, err
		}

		manifests[i].Page = page
	}

	return manifests, nil
}
