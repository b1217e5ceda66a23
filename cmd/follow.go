package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/loglens/loglens/internal/output"
	"github.com/loglens/loglens/internal/record"
	"github.com/loglens/loglens/internal/tail"
)

var followCmd = &cobra.Command{
	Use:   "follow [flags] <file>",
	Short: "Follow a log file, printing normalized records",
	Long: `Watch a log file in real time, similar to 'tail -f'. The format is
detected from the existing content and each appended line is printed in the
normalized record form.

Examples:
  loglens follow /var/log/messages
  loglens follow --lines 50 --follow-rotate /var/log/messages`,
	Args: cobra.ExactArgs(1),
	RunE: runFollow,
}

func init() {
	followCmd.Flags().IntP("lines", "n", 10, "number of initial lines to show")
	followCmd.Flags().Bool("follow-rotate", false, "follow through log rotations (continue when file is renamed/removed)")
	followCmd.Flags().Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(followCmd)
}

func runFollow(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	lines, _ := cmd.Flags().GetInt("lines")
	followRotate, _ := cmd.Flags().GetBool("follow-rotate")
	noColor, _ := cmd.Flags().GetBool("no-color")

	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("file does not exist: %s", filePath)
	}

	colorMode := output.ColorAuto
	if noColor {
		colorMode = output.ColorNever
	}
	writer := output.New(os.Stdout, colorMode)

	tailer := tail.New(tail.Options{
		FilePath:     filePath,
		Lines:        lines,
		FollowRotate: followRotate,
		Rand:         newRand(),
		OutputFunc: func(r record.Record) error {
			return writer.WriteRecords([]record.Record{r})
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- tailer.Run(ctx)
	}()

	log.Info().Str("file", filePath).Msg("following")

	select {
	case <-sigChan:
		cancel()
		<-errChan
		return nil
	case err := <-errChan:
		if err != nil && err.Error() != "file rotated" {
			return err
		}
		return nil
	}
}
