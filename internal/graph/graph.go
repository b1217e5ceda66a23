// Package graph renders ASCII time-series histograms of event volume.
//
// Records are bucketed into fixed-width intervals at a chosen granularity,
// counts are normalized to a fixed vertical resolution, and the chart is
// drawn with a time axis and a summary footer. The month and year bucket
// widths deliberately use a 365-day year and integer division; the drift
// from calendar months is part of the established output format.
package graph

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/loglens/loglens/internal/record"
)

// Granularity is the bucket width of a histogram.
type Granularity int

const (
	Seconds Granularity = iota
	Minutes
	Hours
	Days
	Months
	Years
)

// ParseGranularity maps a unit name to its granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(s) {
	case "second", "seconds":
		return Seconds, nil
	case "minute", "minutes":
		return Minutes, nil
	case "hour", "hours":
		return Hours, nil
	case "day", "days":
		return Days, nil
	case "month", "months":
		return Months, nil
	case "year", "years":
		return Years, nil
	}
	return 0, fmt.Errorf("invalid graph unit: %s (must be second, minute, hour, day, month, or year)", s)
}

// Default bucket counts when no explicit range is given.
var defaultSpans = map[Granularity]int64{
	Seconds: 60,
	Minutes: 60,
	Hours:   24,
	Days:    31,
	Months:  12,
	Years:   10,
}

const height = 6

// Histogram holds bucketed counts plus the layout state needed to render
// them.
type Histogram struct {
	data   map[string]int
	start  time.Time
	middle time.Time
	end    time.Time
	max    int
	min    int
	span   int64
	unit   string

	// Tick is the column character; Wide doubles every column's on-screen
	// width without changing the bucket math.
	Tick rune
	Wide bool
}

// Build buckets the log at the given granularity. The start point is from
// when set, otherwise the first record's timestamp (the log is ordered
// earliest-first). With both bounds set the span is their distance in the
// chosen unit, minimum one bucket; otherwise the default window applies.
// Every bucket in the span is pre-created at zero so gaps render as empty
// columns; records outside the span are silently excluded.
func Build(log *record.Log, g Granularity, from, to time.Time) *Histogram {
	h := &Histogram{
		data: make(map[string]int),
		Tick: '#',
	}

	if len(log.Records) == 0 {
		return h
	}

	start := from
	if start.IsZero() {
		start = log.Records[0].Time()
	}
	customRange := !from.IsZero() || !to.IsZero()

	switch g {
	case Seconds:
		h.fill(log, start, to, customRange, "second", time.Second, keySecond)
	case Minutes:
		h.fill(log, start, to, customRange, "minute", time.Minute, keyMinute)
	case Hours:
		h.fill(log, start, to, customRange, "hour", time.Hour, keyHour)
	case Days:
		h.fill(log, start, to, customRange, "day", 24*time.Hour, keyDay)
	case Months:
		h.fillMonths(log, start, to, customRange)
	case Years:
		h.fillYears(log, start, to, customRange)
	}

	h.computeStats()
	return h
}

// Bucket key constructors, one per granularity. Keys truncate the timestamp
// to the unit; the year is unpadded.
func keySecond(y, mo, d, hh, mi, ss int) string {
	return fmt.Sprintf("%d%02d%02d%02d%02d%02d", y, mo, d, hh, mi, ss)
}

func keyMinute(y, mo, d, hh, mi, _ int) string {
	return fmt.Sprintf("%d%02d%02d%02d%02d", y, mo, d, hh, mi)
}

func keyHour(y, mo, d, hh, _, _ int) string {
	return fmt.Sprintf("%d%02d%02d%02d", y, mo, d, hh)
}

func keyDay(y, mo, d, _, _, _ int) string {
	return fmt.Sprintf("%d%02d%02d", y, mo, d)
}

func timeKey(t time.Time, key func(y, mo, d, hh, mi, ss int) string) string {
	return key(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

func recordKey(r record.Record, key func(y, mo, d, hh, mi, ss int) string) string {
	return key(r.Year, r.Month, r.Day, r.Hour, r.Minute, r.Second)
}

// fill covers the fixed-width granularities (second through day), whose
// buckets advance by an exact duration step.
func (h *Histogram) fill(log *record.Log, start, to time.Time, customRange bool, unit string, step time.Duration, key func(y, mo, d, hh, mi, ss int) string) {
	h.unit = unit
	h.start = start

	if customRange && !to.IsZero() {
		h.span = int64(to.Sub(start) / step)
		if h.span < 1 {
			h.span = 1
		}
	} else {
		h.span = defaultSpans[granularityForUnit(unit)]
	}

	for i := int64(0); i < h.span; i++ {
		h.data[timeKey(start.Add(time.Duration(i)*step), key)] = 0
	}

	h.middle = start.Add(time.Duration(h.span/2) * step)
	h.end = start.Add(time.Duration(h.span-1) * step)

	for _, r := range log.Records {
		if _, ok := h.data[recordKey(r, key)]; ok {
			h.data[recordKey(r, key)]++
		}
	}
}

func granularityForUnit(unit string) Granularity {
	switch unit {
	case "second":
		return Seconds
	case "minute":
		return Minutes
	case "hour":
		return Hours
	default:
		return Days
	}
}

// fillMonths approximates month buckets with a 365-day year: the i-th
// bucket key is taken at day offset (i*365)/12 + 1 from the start.
func (h *Histogram) fillMonths(log *record.Log, start, to time.Time, customRange bool) {
	h.unit = "month"
	h.start = start

	if customRange && !to.IsZero() {
		h.span = int64(to.Sub(start)/(24*time.Hour)) / 30
		if h.span < 1 {
			h.span = 1
		}
	} else {
		h.span = defaultSpans[Months]
	}

	for i := int64(0); i < h.span; i++ {
		offset := (i*365)/12 + 1
		d := start.Add(time.Duration(offset) * 24 * time.Hour)
		h.data[fmt.Sprintf("%d%02d", d.Year(), int(d.Month()))] = 0
	}

	h.middle = start.Add(time.Duration(h.span*365/24) * 24 * time.Hour)
	h.end = start.Add(time.Duration(h.span*365/12) * 24 * time.Hour)

	for _, r := range log.Records {
		key := fmt.Sprintf("%d%02d", r.Year, r.Month)
		if _, ok := h.data[key]; ok {
			h.data[key]++
		}
	}
}

func (h *Histogram) fillYears(log *record.Log, start, to time.Time, customRange bool) {
	h.unit = "year"
	h.start = start

	if customRange && !to.IsZero() {
		h.span = int64(to.Sub(start)/(24*time.Hour)) / 365
		if h.span < 1 {
			h.span = 1
		}
	} else {
		h.span = defaultSpans[Years]
	}

	for i := int64(0); i < h.span; i++ {
		d := start.Add(time.Duration(i*365) * 24 * time.Hour)
		h.data[fmt.Sprintf("%d", d.Year())] = 0
	}

	h.middle = start.Add(time.Duration(h.span*365/2) * 24 * time.Hour)
	h.end = start.Add(time.Duration(h.span*365) * 24 * time.Hour)

	for _, r := range log.Records {
		key := fmt.Sprintf("%d", r.Year)
		if _, ok := h.data[key]; ok {
			h.data[key]++
		}
	}
}

func (h *Histogram) computeStats() {
	first := true
	for _, v := range h.data {
		if first {
			h.max, h.min = v, v
			first = false
			continue
		}
		if v > h.max {
			h.max = v
		}
		if v < h.min {
			h.min = v
		}
	}
}

// Count returns the total number of records bucketed.
func (h *Histogram) Count() int {
	total := 0
	for _, v := range h.data {
		total += v
	}
	return total
}

// Buckets returns the bucket keys in display order with their counts.
func (h *Histogram) Buckets() ([]string, map[string]int) {
	keys := make([]string, 0, len(h.data))
	for k := range h.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, h.data
}

// Render draws the chart: five data rows top to bottom, a solid baseline,
// three time-axis labels (value mod 2000 at the first column, the middle
// column, and three columns from the end), and a summary footer.
func (h *Histogram) Render(w io.Writer) {
	width := len(h.data)
	if width == 0 {
		fmt.Fprintln(w, "No data to graph")
		return
	}

	charFill := string(h.Tick)
	charBlank := " "
	if h.Wide {
		charFill = string(h.Tick) + " "
		charBlank = "  "
	}

	keys, _ := h.Buckets()

	normalized := make(map[string]int, len(keys))
	for _, key := range keys {
		v := h.data[key]
		if v == 0 {
			normalized[key] = 0
			continue
		}
		var n float64
		if h.max > h.min {
			n = float64(v-h.min) / float64(h.max-h.min) * height
		} else {
			n = float64(v) / float64(h.max) * height
		}
		normalized[key] = int(math.Ceil(n))
	}

	fmt.Fprintln(w)
	for row := height - 1; row >= 1; row-- {
		for _, key := range keys {
			if normalized[key] >= row {
				fmt.Fprint(w, charFill)
			} else {
				fmt.Fprint(w, charBlank)
			}
		}
		fmt.Fprintln(w)
	}

	for range keys {
		fmt.Fprint(w, charFill)
	}
	fmt.Fprintln(w)

	displayWidth := width
	if h.Wide {
		displayWidth = width * 2
	}
	posBegin := 1
	posMiddle := displayWidth / 2
	posEnd := displayWidth - 3
	if posEnd < 0 {
		posEnd = 0
	}

	for i := 1; i < displayWidth; i++ {
		switch i {
		case posBegin:
			fmt.Fprintf(w, "%02d", h.axisValue(h.start)%2000)
		case posMiddle:
			fmt.Fprintf(w, "%02d", h.axisValue(h.middle)%2000)
		case posEnd:
			fmt.Fprintf(w, "%02d", h.axisValue(h.end)%2000)
		default:
			fmt.Fprint(w, " ")
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Start Time:\t%s\t\tMinimum Value: %d\n", h.start.Format("2006-01-02 15:04:05"), h.min)
	fmt.Fprintf(w, "End Time:\t%s\t\tMaximum Value: %d\n", h.end.Format("2006-01-02 15:04:05"), h.max)
	scale := float64(h.max-h.min) / height
	fmt.Fprintf(w, "Duration:\t%d %ss\t\t\tScale: %.2f\n", h.span, h.unit, scale)
	fmt.Fprintln(w)
}

// axisValue picks the unit-appropriate field of a label timestamp.
func (h *Histogram) axisValue(t time.Time) int {
	switch h.unit {
	case "second":
		return t.Second()
	case "minute":
		return t.Minute()
	case "hour":
		return t.Hour()
	case "day":
		return t.Day()
	case "month":
		return int(t.Month())
	case "year":
		return t.Year()
	}
	return 0
}
