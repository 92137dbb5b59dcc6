package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/GoProxyGuard/GoProxyGuard/internal/daemon"
	"github.com/GoProxyGuard/GoProxyGuard/internal/db/controller/conf"
)

var (
	dumpMethods  bool
	dumpServices bool
)

func init() { //nolint: gochecknoinits
	dumpCmd.Flags().BoolVar(&dumpMethods, "methods", false, "Include the owning method of every value")
	dumpCmd.Flags().BoolVar(&dumpServices, "services", false, "Dump one flat settings mapping per service")

	rootCmd.AddCommand(dumpCmd)
}

var dumpCmd = &cobra.Command{
	Use:    "dump",
	Short:  "Print the effective configuration as JSON",
	PreRun: setup,
	RunE: func(_ *cobra.Command, _ []string) error {
		d, err := daemon.New(&cfg)
		if err != nil {
			return err
		}
		defer d.Close() //nolint:errcheck

		view, err := projection(d.DB())
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return err //nolint:wrapcheck
		}

		fmt.Println(string(out))

		return nil
	},
}

// projection picks the requested view shape. Value-only and value+method
// views are distinct types, chosen here rather than toggled at runtime.
func projection(db *gorm.DB) (any, error) {
	switch {
	case dumpServices && dumpMethods:
		return conf.ServicesSettingsWithMethods(db)
	case dumpServices:
		return conf.ServicesSettings(db)
	case dumpMethods:
		return conf.GetWithMethods(db)
	default:
		return conf.Get(db)
	}
}
