package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loglens/loglens/internal/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph [flags] [file]",
	Short: "Draw an ASCII histogram of event volume over time",
	Long: `Bucket records into fixed-width time intervals and draw an ASCII
chart of event volume. Without --from/--to the window starts at the first
record and spans the unit's default width (60 seconds, 60 minutes, 24
hours, 31 days, 12 months, or 10 years).

Examples:
  loglens graph --unit minute /var/log/messages
  loglens graph --unit hour --wide access.log
  loglens graph --unit day --from "2024-01-01" --to "2024-02-01" access.log`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().String("unit", "hour", "bucket width (second, minute, hour, day, month, year)")
	graphCmd.Flags().Bool("wide", false, "double each column's on-screen width")
	graphCmd.Flags().String("tick", "#", "column character")

	_ = viper.BindPFlag("wide", graphCmd.Flags().Lookup("wide"))
	_ = viper.BindPFlag("tick", graphCmd.Flags().Lookup("tick"))

	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, args []string) error {
	unit, _ := cmd.Flags().GetString("unit")

	granularity, err := graph.ParseGranularity(unit)
	if err != nil {
		return err
	}

	from, to, err := timeBounds(cmd)
	if err != nil {
		return err
	}

	lg, err := loadLog(cmd, args)
	if err != nil {
		return err
	}

	h := graph.Build(lg, granularity, from, to)

	cfg := currentConfig()
	if cfg.Tick != "" {
		h.Tick = []rune(cfg.Tick)[0]
	}
	h.Wide = cfg.Wide

	h.Render(cmd.OutOrStdout())
	return nil
}
