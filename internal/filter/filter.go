// Package filter provides the scrubber used by the aggregation reports.
//
// A scrubber holds an ordered list of stopword patterns loaded from a rule
// file. Every pattern match in a string is replaced with the reserved
// marker; strings that reduce to exactly the marker are treated as carrying
// no signal and dropped by the aggregator.
package filter

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/loglens/loglens/internal/record"
)

// EnvDir names the environment variable that can point at a directory of
// rule files.
const EnvDir = "LOGLENS_FILTERDIR"

// Scrubber redacts stopword matches from aggregation keys.
type Scrubber struct {
	stopwords []*regexp.Regexp
}

// New returns a scrubber with no patterns. Scrub is the identity for it.
func New() *Scrubber {
	return &Scrubber{}
}

// Load resolves the named rule file against the search path and loads it.
// Candidate locations, in priority order: the explicit dir argument, the
// LOGLENS_FILTERDIR environment variable, ~/.loglens/filters, ./filters,
// and the fixed system paths. When no file is found the embedded default
// rules for that name are used; a missing default yields an empty scrubber.
func Load(name, dir string) *Scrubber {
	for _, path := range searchPaths(name, dir) {
		if _, err := os.Stat(path); err != nil {
			continue
		}

		f, err := os.Open(path)
		if err != nil {
			log.Warn().Str("path", path).Err(err).Msg("cannot read rule file")
			return New()
		}
		defer f.Close()

		return parse(f, path)
	}

	return loadDefault(name)
}

func searchPaths(name, dir string) []string {
	var paths []string

	if dir != "" {
		paths = append(paths, filepath.Join(dir, name))
	}

	if envDir := os.Getenv(EnvDir); envDir != "" {
		paths = append(paths, filepath.Join(envDir, name))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".loglens", "filters", name))
	}

	paths = append(paths,
		filepath.Join("filters", name),
		filepath.Join("/var/lib/loglens/filters", name),
		filepath.Join("/usr/local/loglens/var/lib/filters", name),
		filepath.Join("/opt/loglens/var/lib/filters", name),
	)

	return paths
}

// parse reads one regular expression per line, skipping blanks and
// malformed patterns. A malformed pattern is a warning, not a failure.
func parse(r io.Reader, origin string) *Scrubber {
	s := New()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		re, err := regexp.Compile(line)
		if err != nil {
			log.Warn().Str("file", origin).Str("pattern", line).Err(err).Msg("skipping invalid pattern")
			continue
		}
		s.stopwords = append(s.stopwords, re)
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Str("file", origin).Err(err).Msg("rule file read failed")
	}
	return s
}

// Scrub replaces every stopword match in the input with the reserved
// marker.
func (s *Scrubber) Scrub(input string) string {
	result := input
	for _, re := range s.stopwords {
		result = re.ReplaceAllString(result, record.Marker)
	}
	return result
}

// Bleach reports whether the input scrubs down to exactly the reserved
// marker, i.e. carries no signal at all.
func (s *Scrubber) Bleach(input string) bool {
	return s.Scrub(input) == record.Marker
}

// Len returns the number of loaded patterns.
func (s *Scrubber) Len() int {
	return len(s.stopwords)
}
