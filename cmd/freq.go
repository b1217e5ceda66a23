package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loglens/loglens/internal/aggregate"
)

var freqCmd = &cobra.Command{
	Use:   "freq [flags] [file]",
	Short: "Show ranked frequency tables of log content",
	Long: `Group records by scrubbed message content, daemon, host, or
individual message words, and print a table ranked by occurrence count.

For message grouping, rare entries (count at or below --low-count) show a
representative original message instead of the scrubbed key.

Examples:
  loglens freq /var/log/messages
  loglens freq --by daemon /var/log/messages
  loglens freq --by word --no-filter access.log
  loglens freq --all-samples -l 5 /var/log/secure`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFreq,
}

func init() {
	freqCmd.Flags().String("by", "message", "grouping mode (message, daemon, host, word)")
	freqCmd.Flags().Bool("all-samples", false, "show a random original message for every entry")
	freqCmd.Flags().Bool("no-samples", false, "always show the scrubbed key, never samples")
	freqCmd.Flags().IntP("low-count", "l", 3, "threshold below which entries show a sample message")

	_ = viper.BindPFlag("low_count", freqCmd.Flags().Lookup("low-count"))

	rootCmd.AddCommand(freqCmd)
}

// Scrub rule files per grouping mode.
var ruleFiles = map[aggregate.Mode]string{
	aggregate.ModeMessage: "hash.stopwords",
	aggregate.ModeDaemon:  "daemon.stopwords",
	aggregate.ModeHost:    "host.stopwords",
	aggregate.ModeWord:    "words.stopwords",
}

func runFreq(cmd *cobra.Command, args []string) error {
	by, _ := cmd.Flags().GetString("by")
	allSamples, _ := cmd.Flags().GetBool("all-samples")
	noSamples, _ := cmd.Flags().GetBool("no-samples")

	var mode aggregate.Mode
	switch by {
	case "message":
		mode = aggregate.ModeMessage
	case "daemon":
		mode = aggregate.ModeDaemon
	case "host":
		mode = aggregate.ModeHost
	case "word":
		mode = aggregate.ModeWord
	default:
		return fmt.Errorf("invalid --by value: %s (must be 'message', 'daemon', 'host', or 'word')", by)
	}

	lg, err := loadLog(cmd, args)
	if err != nil {
		return err
	}

	table := aggregate.Build(lg, mode, scrubberFor(ruleFiles[mode]))
	table.Threshold = currentConfig().LowCount

	// Samples only make sense where the key is not already the full text,
	// so the non-message modes default to the raw key.
	switch {
	case allSamples:
		table.Display = aggregate.SampleAll
	case noSamples || mode != aggregate.ModeMessage:
		table.Display = aggregate.RawKey
	default:
		table.Display = aggregate.SampleSmall
	}

	return table.Render(cmd.OutOrStdout(), newRand())
}
