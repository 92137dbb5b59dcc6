package app

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/GoProxyGuard/GoProxyGuard/internal/daemon"
	"github.com/GoProxyGuard/GoProxyGuard/internal/db/controller/customconf"
)

var customMethod string

func init() { //nolint: gochecknoinits
	saveCustomCmd.Flags().StringVar(&customMethod, "method", "manual", "Writer identity attributed to this submission")

	rootCmd.AddCommand(saveCustomCmd)
}

// customEntry is the file representation of one snippet submission.
type customEntry struct {
	Service string `json:"service"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Data    string `json:"data"`
}

var saveCustomCmd = &cobra.Command{
	Use:    "save-custom <configs-file>",
	Short:  "Save custom configuration snippets into the store",
	Long:   `Save custom configuration snippets into the store. The configs file is a JSON array of {service, type, name, data} objects.`,
	Args:   cobra.ExactArgs(1),
	PreRun: setup,
	RunE: func(_ *cobra.Command, args []string) error {
		entries, err := readCustomEntries(args[0])
		if err != nil {
			return err
		}

		d, err := daemon.New(&cfg)
		if err != nil {
			return err
		}
		defer d.Close() //nolint:errcheck

		warning, err := customconf.Save(d.DB(), entries, customMethod)
		if err != nil {
			return err
		}

		if warning != "" {
			log.Warn().Msg(warning)
		}

		log.Info().Int("configs", len(entries)).Str("method", customMethod).Msg("custom configs saved")

		return nil
	},
}

func readCustomEntries(path string) ([]customconf.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read configs file")
	}

	var raw []customEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to decode configs file")
	}

	entries := make([]customconf.Entry, 0, len(raw))
	for _, e := range raw {
		entries = append(entries, customconf.Entry{
			ServiceID: e.Service,
			Type:      e.Type,
			Name:      e.Name,
			Data:      []byte(e.Data),
		})
	}

	return entries, nil
}
