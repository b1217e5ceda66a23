// Package evtx ingests Windows event log records emitted by an external
// EVTX decoder as one JSON object per line, and maps them onto normalized
// records. The binary container format itself is never touched here.
package evtx

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/valyala/fastjson"

	"github.com/loglens/loglens/internal/record"
)

// IsDumpFile reports whether the path looks like a decoder dump this
// package can read.
func IsDumpFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".evtx.json") || strings.HasSuffix(lower, ".evtx.jsonl")
}

// ParseDumpFile reads a decoder dump from disk.
func ParseDumpFile(path string) ([]record.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open EVTX dump: %w", err)
	}
	defer f.Close()

	return ParseDump(f)
}

// ParseDump reads one JSON record per line from r. Individual records that
// cannot be converted are skipped with a warning; an input with no usable
// records at all is an error.
func ParseDump(r io.Reader) ([]record.Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 4*1024*1024)

	var p fastjson.Parser
	var records []record.Record
	total := 0

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		v, err := p.ParseBytes(line)
		if err != nil {
			log.Warn().Int("record", total).Err(err).Msg("skipping unreadable EVTX record")
			continue
		}

		rec, err := convert(v)
		if err != nil {
			log.Warn().Int("record", total).Err(err).Msg("skipping EVTX record")
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no valid EVTX records found in %d read", total)
	}

	return records, nil
}

// Level numbers used by the Windows event log.
var levelNames = map[int]string{
	1: "Critical",
	2: "Error",
	3: "Warning",
	4: "Information",
	5: "Verbose",
}

func convert(v *fastjson.Value) (record.Record, error) {
	// Some decoders wrap everything in an "Event" object, some don't.
	event := v
	if e := v.Get("Event"); e != nil {
		event = e
	}

	system := event.Get("System")
	if system == nil {
		return record.Record{}, fmt.Errorf("no System field")
	}

	stamp := stringAt(system, "TimeCreated", "#attributes", "SystemTime")
	if stamp == "" {
		stamp = stringAt(system, "TimeCreated", "SystemTime")
	}
	if stamp == "" {
		stamp = stringAt(system, "TimeCreated")
	}
	if stamp == "" {
		return record.Record{}, fmt.Errorf("no timestamp in System/TimeCreated")
	}

	t, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, stamp+"Z")
	}
	if err != nil {
		return record.Record{}, fmt.Errorf("failed to parse timestamp %q: %w", stamp, err)
	}
	t = t.Local()

	provider := stringAt(system, "Provider", "#attributes", "Name")
	if provider == "" {
		provider = stringAt(system, "Provider", "Name")
	}
	if provider == "" {
		provider = stringAt(system, "Provider")
	}
	if provider == "" {
		provider = "Unknown"
	}

	computer := stringAt(system, "Computer")
	if computer == "" {
		computer = "Unknown"
	}

	eventID := system.GetInt64("EventID")

	message := eventDataMessage(event)
	if message == "" {
		message = fmt.Sprintf("EventID %d", eventID)
	} else {
		message = fmt.Sprintf("EventID %d %s", eventID, message)
	}

	level := levelNames[int(system.GetInt64("Level"))]
	if level == "" {
		level = "Unknown"
	}

	return record.Record{
		Year:    t.Year(),
		Month:   int(t.Month()),
		Day:     t.Day(),
		Hour:    t.Hour(),
		Minute:  t.Minute(),
		Second:  t.Second(),
		Host:    computer,
		Daemon:  provider,
		Message: fmt.Sprintf("[%s] %s", level, message),
	}, nil
}

// eventDataMessage flattens the EventData payload into "key=value" pairs,
// sorted for stable output, falling back to UserData.
func eventDataMessage(event *fastjson.Value) string {
	if data := event.Get("EventData"); data != nil {
		if obj, err := data.Object(); err == nil {
			var parts []string
			obj.Visit(func(key []byte, v *fastjson.Value) {
				if string(key) == "#attributes" {
					return
				}
				parts = append(parts, fmt.Sprintf("%s=%s", key, v))
			})
			sort.Strings(parts)
			if len(parts) > 0 {
				return strings.Join(parts, " ")
			}
		} else if s := data.GetStringBytes(); s != nil {
			return string(s)
		}
	}

	if user := event.Get("UserData"); user != nil {
		return user.String()
	}

	return ""
}

// stringAt walks a nested object path and returns the string leaf, or "".
func stringAt(v *fastjson.Value, path ...string) string {
	node := v.Get(path...)
	if node == nil {
		return ""
	}
	if s := node.GetStringBytes(); s != nil {
		return string(s)
	}
	return ""
}
