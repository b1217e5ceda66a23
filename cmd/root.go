package cmd

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loglens/loglens/internal/config"
	"github.com/loglens/loglens/internal/filter"
	"github.com/loglens/loglens/internal/parser"
	"github.com/loglens/loglens/internal/record"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "loglens",
	Short: "Log analysis tool for systems administrators",
	Long: `Loglens ingests syslog, journald, Apache, AWS load balancer, and
database logs without being told the format, normalizes every line, and
produces frequency reports and time-series histograms.

Examples:
  loglens freq /var/log/messages
  loglens freq --by host /var/log/secure
  loglens graph --unit hour /var/log/messages
  loglens print --from "2024-01-05" --to "2024-01-06" access.log
  cat access.log | loglens freq`,
}

// Execute is called by main.main(). It runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.loglens.yaml)")
	rootCmd.PersistentFlags().String("from", "", `only include records at or after this time ("YYYY-MM-DD HH:MM:SS", "YYYY-MM-DD HH:MM", or "YYYY-MM-DD")`)
	rootCmd.PersistentFlags().String("to", "", "only include records at or before this time (same formats as --from)")
	rootCmd.PersistentFlags().String("filter-dir", "", "directory to resolve scrub rule files from before the default search path")
	rootCmd.PersistentFlags().Bool("no-filter", false, "disable scrub rule files entirely")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	_ = viper.BindPFlag("filter_dir", rootCmd.PersistentFlags().Lookup("filter-dir"))
	_ = viper.BindPFlag("no_filter", rootCmd.PersistentFlags().Lookup("no-filter"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error finding home directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".loglens")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("LOGLENS")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("verbose", false)
	viper.SetDefault("tick", "#")
	viper.SetDefault("wide", false)
	viper.SetDefault("low_count", 3)
	viper.SetDefault("filter_dir", "")
	viper.SetDefault("no_filter", false)

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			log.Info().Str("file", viper.ConfigFileUsed()).Msg("using config file")
		}
	}

	setupLogging()
}

func setupLogging() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()

	if viper.GetBool("verbose") {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}

// currentConfig snapshots the viper state into a typed config.
func currentConfig() config.Config {
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Warn().Err(err).Msg("invalid configuration, using defaults")
		return config.Config{Tick: "#", LowCount: 3}
	}
	return cfg
}

// newRand returns the detection/sampling randomness for one invocation,
// seeded from the clock.
func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// timeBounds parses the --from/--to flags. A malformed bound is a caller
// mistake and therefore fatal.
func timeBounds(cmd *cobra.Command) (from, to time.Time, err error) {
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")

	if fromStr != "" {
		if from, err = config.ParseStamp(fromStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing --from: %w", err)
		}
	}
	if toStr != "" {
		if to, err = config.ParseStamp(toStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing --to: %w", err)
		}
	}
	return from, to, nil
}

// loadLog ingests the file argument (or stdin when absent), applies the
// time-range filter, and reports detection results in verbose mode.
func loadLog(cmd *cobra.Command, args []string) (*record.Log, error) {
	from, to, err := timeBounds(cmd)
	if err != nil {
		return nil, err
	}

	var lg *record.Log
	if len(args) > 0 {
		lg, err = parser.LoadFile(args[0], newRand())
	} else {
		lg, err = parser.Load(os.Stdin, newRand())
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("format", lg.Format).Int("records", len(lg.Records)).Msg("loaded log")

	lg.FilterByTime(from, to)
	if !from.IsZero() || !to.IsZero() {
		log.Info().Int("records", len(lg.Records)).Msg("after time filtering")
	}

	return lg, nil
}

// scrubberFor resolves the scrub rule file used by an aggregation mode,
// honoring --no-filter and --filter-dir.
func scrubberFor(name string) *filter.Scrubber {
	cfg := currentConfig()
	if cfg.NoFilter {
		return filter.New()
	}
	return filter.Load(name, cfg.FilterDir)
}
