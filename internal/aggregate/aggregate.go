// Package aggregate builds ranked frequency tables over scrubbed keys
// derived from normalized records.
package aggregate

import (
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strings"

	"github.com/loglens/loglens/internal/filter"
	"github.com/loglens/loglens/internal/record"
)

// Mode selects how the grouping key of a record is computed.
type Mode int

const (
	// ModeMessage groups by the scrubbed "daemon message" pair.
	ModeMessage Mode = iota
	// ModeDaemon groups by the scrubbed daemon field.
	ModeDaemon
	// ModeHost groups by the scrubbed host field.
	ModeHost
	// ModeWord counts every whitespace-delimited message token
	// independently of position.
	ModeWord
)

// Display selects what is printed for each table entry.
type Display int

const (
	// RawKey always prints the aggregation key.
	RawKey Display = iota
	// SampleSmall prints the first original message for entries at or
	// below the threshold, the key otherwise.
	SampleSmall
	// SampleAll prints a randomly chosen original message for every entry.
	SampleAll
)

// DefaultThreshold is the count at or below which SampleSmall shows a
// representative message.
const DefaultThreshold = 3

type bucket struct {
	count   int
	records []record.Record
}

// Table is a frequency table keyed by scrubbed grouping keys. It is built
// once from a log and never mutates its input.
type Table struct {
	data      map[string]*bucket
	Threshold int
	Display   Display
}

// Build constructs the table for the given mode. Keys that scrub down to
// the reserved marker carry no signal and are discarded.
func Build(log *record.Log, mode Mode, scrub *filter.Scrubber) *Table {
	t := &Table{
		data:      make(map[string]*bucket),
		Threshold: DefaultThreshold,
		Display:   SampleSmall,
	}

	switch mode {
	case ModeDaemon:
		for _, r := range log.Records {
			t.add(scrub.Scrub(r.Daemon), r)
		}
	case ModeHost:
		for _, r := range log.Records {
			t.add(scrub.Scrub(r.Host), r)
		}
	case ModeWord:
		t.addWords(log, scrub)
	default:
		for _, r := range log.Records {
			t.add(scrub.Scrub(r.Daemon+" "+r.Message), r)
		}
	}

	delete(t.data, record.Marker)
	return t
}

func (t *Table) add(key string, r record.Record) {
	b := t.data[key]
	if b == nil {
		b = &bucket{}
		t.data[key] = b
	}
	b.count++
	b.records = append(b.records, r)
}

// addWords counts message tokens. Each distinct token is scrubbed once;
// tokens that bleach away are dropped, and counts for tokens that scrub to
// the same value are merged.
func (t *Table) addWords(log *record.Log, scrub *filter.Scrubber) {
	raw := make(map[string]int)
	for _, r := range log.Records {
		for _, word := range strings.Fields(r.Message) {
			raw[word]++
		}
	}

	merged := make(map[string]int)
	for word, n := range raw {
		scrubbed := scrub.Scrub(word)
		if scrubbed == record.Marker {
			continue
		}
		merged[scrubbed] += n
	}

	for word, n := range merged {
		rep := record.Sentinel()
		rep.Message = word
		for i := 0; i < n; i++ {
			t.add(word, rep)
		}
	}
}

// Entry is one ranked row of the table.
type Entry struct {
	Key     string
	Count   int
	Records []record.Record
}

// Ranked returns the table rows sorted by descending count, ties broken by
// ascending key.
func (t *Table) Ranked() []Entry {
	entries := make([]Entry, 0, len(t.data))
	for key, b := range t.data {
		entries = append(entries, Entry{Key: key, Count: b.count, Records: b.records})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Key < entries[j].Key
	})

	return entries
}

// Len returns the number of distinct keys in the table.
func (t *Table) Len() int {
	return len(t.data)
}

// Render writes the ranked table as "<count>:\t<key-or-sample>" lines. The
// rng drives the random representative choice in SampleAll mode.
func (t *Table) Render(w io.Writer, rng *rand.Rand) error {
	for _, e := range t.Ranked() {
		if e.Key == record.Marker {
			continue
		}

		text := e.Key
		switch t.Display {
		case SampleAll:
			if len(e.Records) > 0 {
				text = e.Records[rng.Intn(len(e.Records))].Message
			}
		case SampleSmall:
			if e.Count <= t.Threshold && len(e.Records) > 0 {
				text = e.Records[0].Message
			}
		}

		if _, err := fmt.Fprintf(w, "%d:\t%s\n", e.Count, text); err != nil {
			return err
		}
	}
	return nil
}
