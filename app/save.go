package app

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/GoProxyGuard/GoProxyGuard/internal/daemon"
	"github.com/GoProxyGuard/GoProxyGuard/internal/db/controller/conf"
)

var saveMethod string

func init() { //nolint: gochecknoinits
	saveCmd.Flags().StringVar(&saveMethod, "method", "manual", "Writer identity attributed to this submission")

	rootCmd.AddCommand(saveCmd)
}

var saveCmd = &cobra.Command{
	Use:    "save <vars-file>",
	Short:  "Save a desired configuration into the store",
	Long:   `Save a desired configuration into the store. The vars file is a JSON object mapping setting keys to values.`,
	Args:   cobra.ExactArgs(1),
	PreRun: setup,
	RunE: func(_ *cobra.Command, args []string) error {
		vars, err := readVars(args[0])
		if err != nil {
			return err
		}

		d, err := daemon.New(&cfg)
		if err != nil {
			return err
		}
		defer d.Close() //nolint:errcheck

		if err := conf.Save(d.DB(), vars, saveMethod); err != nil {
			return err
		}

		log.Info().Int("keys", len(vars)).Str("method", saveMethod).Msg("configuration saved")

		return nil
	},
}

func readVars(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read vars file")
	}

	var vars map[string]string
	if err := json.Unmarshal(data, &vars); err != nil {
		return nil, errors.Wrap(err, "failed to decode vars file")
	}

	return vars, nil
}
