package cmd

import (
	"github.com/spf13/cobra"

	"github.com/loglens/loglens/internal/output"
)

var printCmd = &cobra.Command{
	Use:   "print [flags] [file]",
	Short: "Print normalized log lines",
	Long: `Detect the log format and print every record in the normalized
"YYYY-MM-DDTHH:MM:SS host daemon: message" form. Reads stdin when no file
is given.

Examples:
  loglens print /var/log/messages
  loglens print --from "2024-01-05 10:00" --to "2024-01-05 11:00" access.log`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPrint,
}

func init() {
	printCmd.Flags().Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(printCmd)
}

func runPrint(cmd *cobra.Command, args []string) error {
	noColor, _ := cmd.Flags().GetBool("no-color")

	lg, err := loadLog(cmd, args)
	if err != nil {
		return err
	}

	mode := output.ColorAuto
	if noColor {
		mode = output.ColorNever
	}

	return output.New(cmd.OutOrStdout(), mode).WriteRecords(lg.Records)
}
