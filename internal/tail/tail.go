// Package tail follows a growing log file and emits normalized records.
//
// The format is detected once from the lines already present when tailing
// starts; appended lines are then parsed with the detected grammar, with
// the usual per-line degradation to sentinel records.
package tail

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/loglens/loglens/internal/parser"
	"github.com/loglens/loglens/internal/record"
)

// Options configures the tailer behavior.
type Options struct {
	FilePath     string                    // Path to the log file
	Lines        int                       // Number of initial lines to show
	FollowRotate bool                      // Whether to follow through log rotations
	Rand         *rand.Rand                // Randomness for format detection
	OutputFunc   func(record.Record) error // Called for each record
}

// Tailer follows a log file, normalizing each line.
type Tailer struct {
	opts     Options
	parser   parser.Parser
	redetect bool
	file     *os.File
	offset   int64
	watcher  *fsnotify.Watcher
}

// New creates a new Tailer with the given options.
func New(opts Options) *Tailer {
	return &Tailer{opts: opts}
}

// Format returns the name of the detected format. Valid after Run has read
// the initial window.
func (t *Tailer) Format() string {
	if t.parser == nil {
		return ""
	}
	return t.parser.Name()
}

// Run starts the tailing process. It blocks until the context is cancelled
// or an error occurs.
func (t *Tailer) Run(ctx context.Context) error {
	f, err := os.Open(t.opts.FilePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	t.file = f
	defer t.close()

	if err := t.readInitialLines(); err != nil {
		return fmt.Errorf("failed to read initial lines: %w", err)
	}

	if err := t.setupWatcher(); err != nil {
		return fmt.Errorf("failed to setup watcher: %w", err)
	}
	defer t.watcher.Close()

	return t.watch(ctx)
}

func (t *Tailer) close() {
	if t.file != nil {
		t.file.Close()
		t.file = nil
	}
}

// readInitialLines reads the existing file content, detects the log format
// from it, and emits the last N records.
func (t *Tailer) readInitialLines() error {
	scanner := bufio.NewScanner(t.file)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if len(lines) == 0 {
		// Nothing to score yet. Hold the raw fallback and detect from
		// the first real line that arrives.
		t.parser = parser.Fallback()
		t.redetect = true
	} else {
		t.parser = t.detect(lines)
	}

	show := lines
	if t.opts.Lines >= 0 && len(show) > t.opts.Lines {
		show = show[len(show)-t.opts.Lines:]
	}
	for _, line := range show {
		if err := t.emit(line); err != nil {
			return err
		}
	}

	var err error
	t.offset, err = t.file.Seek(0, io.SeekEnd)
	return err
}

// detect picks the grammar for this file from a non-empty sample.
func (t *Tailer) detect(lines []string) parser.Parser {
	rng := t.opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return parser.Detect(lines, rng)
}

// emit parses one line and hands the record to the output function. Blank
// lines are skipped while following; they carry nothing worth printing.
// If the file was empty when tailing started, the first real line settles
// the format.
func (t *Tailer) emit(line string) error {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	if t.redetect {
		t.parser = t.detect([]string{line})
		t.redetect = false
	}

	rec, err := t.parser.Parse(line)
	if err != nil {
		rec = record.Abnormal(line)
	}
	return t.opts.OutputFunc(rec)
}

// setupWatcher initializes the fsnotify watcher.
func (t *Tailer) setupWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	t.watcher = watcher

	return watcher.Add(t.opts.FilePath)
}

// watch monitors the file for changes and emits new records.
func (t *Tailer) watch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-t.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}
			if err := t.handleEvent(ctx, event); err != nil {
				return err
			}

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// handleEvent processes a file system event.
func (t *Tailer) handleEvent(ctx context.Context, event fsnotify.Event) error {
	switch {
	case event.Op&fsnotify.Write == fsnotify.Write:
		return t.readNewContent()

	case event.Op&fsnotify.Remove == fsnotify.Remove || event.Op&fsnotify.Rename == fsnotify.Rename:
		// Log rotation
		return t.handleRotation(ctx)
	}

	return nil
}

// readNewContent reads and emits content appended since the last offset.
func (t *Tailer) readNewContent() error {
	if _, err := t.file.Seek(t.offset, io.SeekStart); err != nil {
		return err
	}

	scanner := bufio.NewScanner(t.file)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for scanner.Scan() {
		if err := t.emit(scanner.Text()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	var err error
	t.offset, err = t.file.Seek(0, io.SeekCurrent)
	return err
}

// handleRotation handles log file rotation.
func (t *Tailer) handleRotation(ctx context.Context) error {
	if !t.opts.FollowRotate {
		fmt.Fprintf(os.Stderr, "\nFile rotated. Exiting. Use --follow-rotate to follow through rotations.\n")
		return fmt.Errorf("file rotated")
	}

	t.close()

	// Wait for the new file to appear (with timeout)
	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timeout:
			return fmt.Errorf("timeout waiting for rotated file to reappear")
		case <-ticker.C:
			f, err := os.Open(t.opts.FilePath)
			if err != nil {
				continue
			}
			t.file = f
			t.offset = 0

			if err := t.watcher.Add(t.opts.FilePath); err != nil {
				return fmt.Errorf("failed to watch rotated file: %w", err)
			}

			fmt.Fprintf(os.Stderr, "\n==> File rotated, following new file <==\n")
			return nil
		}
	}
}
