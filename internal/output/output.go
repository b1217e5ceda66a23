// Package output renders normalized records for the print mode.
package output

import (
	"fmt"
	"io"

	"github.com/loglens/loglens/internal/record"
)

// Writer handles writing normalized record lines.
type Writer struct {
	w     io.Writer
	color bool
}

// New creates a new output Writer. Color is resolved once from the mode and
// the destination.
func New(w io.Writer, mode ColorMode) *Writer {
	return &Writer{w: w, color: shouldColorize(mode, w)}
}

// WriteRecords prints one line per record in the normalized format.
// Degraded sentinel records are dimmed when color is active so unparsed
// lines stand out from real data.
func (wr *Writer) WriteRecords(records []record.Record) error {
	for _, r := range records {
		line := r.String()
		if wr.color && r.IsAbnormal() {
			line = colorGray + line + colorReset
		}
		if _, err := fmt.Fprintln(wr.w, line); err != nil {
			return err
		}
	}
	return nil
}
