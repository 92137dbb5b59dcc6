package app

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/GoProxyGuard/GoProxyGuard/internal/checksum"
	"github.com/GoProxyGuard/GoProxyGuard/internal/daemon"
	"github.com/GoProxyGuard/GoProxyGuard/internal/db/controller/job"
)

var (
	jobSuccess   bool
	jobCacheFile string
	jobService   string
)

func init() { //nolint: gochecknoinits
	recordJobCmd.Flags().BoolVar(&jobSuccess, "success", true, "Outcome of the run")
	recordJobCmd.Flags().StringVar(&jobCacheFile, "cache-file", "", "Artifact file produced by the run to cache in the store")
	recordJobCmd.Flags().StringVar(&jobService, "service", "", "Service the cached artifact is scoped to")

	rootCmd.AddCommand(recordJobCmd)
}

var recordJobCmd = &cobra.Command{
	Use:    "record-job <plugin-id> <job-name>",
	Short:  "Record the outcome of a scheduled job run",
	Args:   cobra.ExactArgs(2), //nolint: mnd
	PreRun: setup,
	RunE: func(_ *cobra.Command, args []string) error {
		d, err := daemon.New(&cfg)
		if err != nil {
			return err
		}
		defer d.Close() //nolint:errcheck

		pluginID, jobName := args[0], args[1]

		if err := job.UpdateRun(d.DB(), pluginID, jobName, jobSuccess); err != nil {
			return err
		}

		if jobCacheFile != "" {
			data, err := os.ReadFile(jobCacheFile)
			if err != nil {
				return errors.Wrap(err, "failed to read cache file")
			}

			var serviceID *string
			if jobService != "" {
				serviceID = &jobService
			}

			fileName := filepath.Base(jobCacheFile)
			if err := job.UpsertCache(d.DB(), jobName, serviceID, fileName, data, checksum.Sum(data)); err != nil {
				return err
			}
		}

		log.Info().Str("plugin", pluginID).Str("job", jobName).Bool("success", jobSuccess).Msg("job run recorded")

		return nil
	},
}
