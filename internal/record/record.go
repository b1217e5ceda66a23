// Package record defines the normalized representation of a log event and
// the ordered collection type the analysis pipeline operates on.
package record

import (
	"fmt"
	"strings"
	"time"
)

// Marker is the reserved sentinel value used for fields that carry no real
// data and for fully-redacted scrubber output. No parser ever produces it
// as a legitimate host or daemon value.
const Marker = "#"

// Sentinel date used when a line cannot be parsed or a record carries an
// invalid calendar date.
const (
	SentinelYear  = 1900
	SentinelMonth = 1
	SentinelDay   = 1
)

// Record is one normalized log event.
type Record struct {
	Year    int
	Month   int
	Day     int
	Hour    int
	Minute  int
	Second  int
	Host    string
	Daemon  string
	Message string
}

// Sentinel returns a record with every field set to its no-data value.
func Sentinel() Record {
	return Record{
		Year:    SentinelYear,
		Month:   SentinelMonth,
		Day:     SentinelDay,
		Host:    Marker,
		Daemon:  Marker,
		Message: Marker,
	}
}

// Abnormal returns a sentinel record carrying the original raw line as its
// message. It is the degraded result for lines no grammar could parse.
func Abnormal(raw string) Record {
	r := Sentinel()
	r.Message = raw
	return r
}

// IsAbnormal reports whether the record is a degraded sentinel record.
func (r Record) IsAbnormal() bool {
	return r.Host == Marker && r.Daemon == Marker
}

// Time reconstructs the record's timestamp in the local timezone. A calendar
// date that does not exist (e.g. Feb 30) falls back to the sentinel date; an
// out-of-range time of day falls back to midnight.
func (r Record) Time() time.Time {
	year, month, day := r.Year, r.Month, r.Day
	if !validDate(year, month, day) {
		year, month, day = SentinelYear, SentinelMonth, SentinelDay
	}

	hour, minute, second := r.Hour, r.Minute, r.Second
	if !validClock(hour, minute, second) {
		hour, minute, second = 0, 0, 0
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local)
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

func validClock(hour, minute, second int) bool {
	return hour >= 0 && hour < 24 && minute >= 0 && minute < 60 && second >= 0 && second < 60
}

// String renders the record in the normalized print format:
//
//	YYYY-MM-DDTHH:MM:SS host daemon: message
//
// Parsers disagree on whether the daemon field keeps its trailing colon, so
// the separator is only inserted when the daemon does not already end in one.
func (r Record) String() string {
	sep := ":"
	if strings.HasSuffix(r.Daemon, ":") {
		sep = ""
	}

	msg := r.Message
	if m, ok := strings.CutPrefix(msg, ": "); ok {
		msg = m
	} else if m, ok := strings.CutPrefix(msg, " "); ok {
		msg = m
	}

	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d %s %s%s %s",
		r.Year, r.Month, r.Day, r.Hour, r.Minute, r.Second,
		r.Host, r.Daemon, sep, msg)
}

// Log is an ordered sequence of records plus the name of the format that
// produced them. Input order is preserved.
type Log struct {
	Records []Record
	Format  string
}

// FilterByTime removes records whose reconstructed timestamp falls outside
// the inclusive [from, to] bounds, preserving the relative order of
// survivors. A zero bound is unbounded on that side.
func (l *Log) FilterByTime(from, to time.Time) {
	if from.IsZero() && to.IsZero() {
		return
	}

	kept := l.Records[:0]
	for _, r := range l.Records {
		t := r.Time()
		if !from.IsZero() && t.Before(from) {
			continue
		}
		if !to.IsZero() && t.After(to) {
			continue
		}
		kept = append(kept, r)
	}
	l.Records = kept
}
