// Package parser turns raw log text into normalized records.
//
// It carries a fixed registry of format grammars (AWS load balancers, MySQL,
// PostgreSQL, rsyslog, journalctl, Apache, classic syslog, authentication
// logs) ordered most-specific first, detects which one fits a batch of lines
// by random sampling, and parses every line with the winner. Lines the
// winner cannot parse degrade to sentinel records instead of failing the
// batch.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/loglens/loglens/internal/evtx"
	"github.com/loglens/loglens/internal/record"
)

// Parser is the capability contract every format grammar implements.
// Recognizes is a cheap structural test used during detection; Parse does
// the full field extraction.
type Parser interface {
	Recognizes(line string) bool
	Parse(line string) (record.Record, error)
	Name() string
}

// registry lists every grammar in detection order. Formats with structurally
// similar prefixes are ordered most-specific first; the raw fallback is
// always last.
var registry = []Parser{
	elbParser{},
	albParser{},
	mysqlParser{},
	postgresParser{},
	rsyslogParser{},
	journalParser{},
	apacheCombinedParser{},
	apacheCommonParser{},
	syslogParser{},
	secureParser{},
	rawParser{},
}

// detectSampleSize caps how many lines are drawn during format detection.
const detectSampleSize = 10

// Detect selects the grammar that best fits the batch. It draws up to ten
// lines at random (with replacement) and scores each grammar by how many
// sampled lines it recognizes. The highest-scoring grammar wins if its score
// reaches a quarter of the sample size; ties go to the earlier registry
// entry. When nothing scores high enough the raw fallback is returned.
func Detect(lines []string, rng *rand.Rand) Parser {
	sample := detectSampleSize
	if len(lines) < sample {
		sample = len(lines)
	}

	scores := make([]int, len(registry))
	for i := 0; i < sample; i++ {
		line := lines[rng.Intn(len(lines))]
		for j, p := range registry {
			if p.Recognizes(line) {
				scores[j]++
			}
		}
	}

	best := 0
	for _, s := range scores {
		if s > best {
			best = s
		}
	}

	threshold := sample / 4
	for i, s := range scores {
		if s >= threshold && s == best {
			return registry[i]
		}
	}

	return registry[len(registry)-1]
}

// Fallback returns the raw last-resort grammar, used when there are no
// lines to score yet.
func Fallback() Parser {
	return registry[len(registry)-1]
}

// Load reads every line from r, detects the format once, and parses each
// line with the winning grammar. Every input line yields exactly one record;
// lines the grammar fails on become sentinel records. An empty input is an
// error.
func Load(r io.Reader, rng *rand.Rand) (*record.Log, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("no data found")
	}

	p := Detect(lines, rng)

	log := &record.Log{
		Records: make([]record.Record, 0, len(lines)),
		Format:  p.Name(),
	}
	for _, line := range lines {
		rec, err := p.Parse(line)
		if err != nil {
			rec = record.Abnormal(line)
		}
		log.Records = append(log.Records, rec)
	}

	return log, nil
}

// LoadFile loads a log from disk. Gzip-compressed files are decompressed
// transparently, and dumps produced by an external Windows event log decoder
// are routed to the EVTX reader instead of text detection.
func LoadFile(path string, rng *rand.Rand) (*record.Log, error) {
	if evtx.IsDumpFile(path) {
		records, err := evtx.ParseDumpFile(path)
		if err != nil {
			return nil, err
		}
		return &record.Log{Records: records, Format: "EVTX"}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	return Load(r, rng)
}
