package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loglens/loglens/internal/filter"
)

var exportFiltersCmd = &cobra.Command{
	Use:   "export-filters [dir]",
	Short: "Write the built-in scrub rule files to disk",
	Long: `Export the embedded default scrub rule files so they can be
inspected and customized. Without an argument the files land in
~/.loglens/filters, which is on the rule search path.

Examples:
  loglens export-filters
  loglens export-filters /etc/loglens/filters`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExportFilters,
}

func init() {
	rootCmd.AddCommand(exportFiltersCmd)
}

func runExportFilters(cmd *cobra.Command, args []string) error {
	var dir string
	if len(args) > 0 {
		dir = args[0]
	} else {
		var err error
		dir, err = filter.DefaultExportDir()
		if err != nil {
			return fmt.Errorf("cannot resolve home directory: %w", err)
		}
	}

	if err := filter.ExportDefaults(dir); err != nil {
		return err
	}

	fmt.Printf("Exported scrub rule files to %s\n", dir)
	return nil
}
