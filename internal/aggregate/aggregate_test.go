package aggregate

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loglens/loglens/internal/filter"
	"github.com/loglens/loglens/internal/record"
)

func scrubberWith(t *testing.T, patterns ...string) *filter.Scrubber {
	t.Helper()
	dir := t.TempDir()
	content := strings.Join(patterns, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, "test.stopwords"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return filter.Load("test.stopwords", dir)
}

func rec(host, daemon, message string) record.Record {
	return record.Record{
		Year: 2025, Month: 1, Day: 2, Hour: 3, Minute: 4, Second: 5,
		Host: host, Daemon: daemon, Message: message,
	}
}

func logOf(records ...record.Record) *record.Log {
	return &record.Log{Records: records, Format: "Syslog"}
}

func TestBuildMessageModeGroupsIdenticalRecords(t *testing.T) {
	r := rec("host1", "sshd:", "failed password")
	table := Build(logOf(r, r, r), ModeMessage, filter.New())

	if table.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", table.Len())
	}
	entries := table.Ranked()
	if entries[0].Count != 3 {
		t.Errorf("count = %d, want 3", entries[0].Count)
	}
	if entries[0].Key != "sshd: failed password" {
		t.Errorf("key = %q, want daemon and message joined", entries[0].Key)
	}
}

func TestBuildModeKeys(t *testing.T) {
	records := []record.Record{
		rec("web1", "nginx", "request a"),
		rec("web1", "cron", "job ran"),
		rec("web2", "nginx", "request b"),
	}

	tests := []struct {
		name string
		mode Mode
		want map[string]int
	}{
		{"daemon mode", ModeDaemon, map[string]int{"nginx": 2, "cron": 1}},
		{"host mode", ModeHost, map[string]int{"web1": 2, "web2": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Build(logOf(records...), tt.mode, filter.New())
			if table.Len() != len(tt.want) {
				t.Fatalf("Len() = %d, want %d", table.Len(), len(tt.want))
			}
			for _, e := range table.Ranked() {
				if tt.want[e.Key] != e.Count {
					t.Errorf("key %q: count = %d, want %d", e.Key, e.Count, tt.want[e.Key])
				}
			}
		})
	}
}

func TestBuildScrubsKeys(t *testing.T) {
	scrub := scrubberWith(t, `\[[0-9]+\]`)
	records := []record.Record{
		rec("h", "sshd[101]:", "m"),
		rec("h", "sshd[202]:", "m"),
	}

	table := Build(logOf(records...), ModeDaemon, scrub)

	entries := table.Ranked()
	if len(entries) != 1 || entries[0].Key != "sshd"+record.Marker+":" || entries[0].Count != 2 {
		t.Errorf("Ranked() = %+v, want one sshd#: entry with count 2", entries)
	}
}

func TestBuildDiscardsBleachedKeys(t *testing.T) {
	scrub := scrubberWith(t, `[0-9]+`)
	records := []record.Record{
		rec("12345", "d", "m"),
		rec("web1", "d", "m"),
	}

	table := Build(logOf(records...), ModeHost, scrub)

	if table.Len() != 1 {
		t.Fatalf("Len() = %d, want bleached host dropped", table.Len())
	}
	if got := table.Ranked()[0].Key; got != "web"+record.Marker {
		t.Errorf("key = %q, want scrubbed host", got)
	}
}

// Every record whose host survives scrubbing lands in exactly one bucket, so
// bucket counts must sum back to the record count.
func TestHostCountsSumToRecordCount(t *testing.T) {
	records := []record.Record{
		rec("a", "d", "m"), rec("b", "d", "m"), rec("a", "d", "m"),
		rec("c", "d", "m"), rec("b", "d", "m"), rec("a", "d", "m"),
	}

	table := Build(logOf(records...), ModeHost, filter.New())

	sum := 0
	for _, e := range table.Ranked() {
		sum += e.Count
	}
	if sum != len(records) {
		t.Errorf("counts sum to %d, want %d", sum, len(records))
	}
}

func TestWordModeMergesScrubbedTokens(t *testing.T) {
	scrub := scrubberWith(t, `[0-9]+`)
	records := []record.Record{
		rec("h", "d", "error on id42"),
		rec("h", "d", "error on id43"),
	}

	table := Build(logOf(records...), ModeWord, scrub)

	want := map[string]int{"error": 2, "on": 2, "id" + record.Marker: 2}
	if table.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", table.Len(), len(want))
	}
	for _, e := range table.Ranked() {
		if want[e.Key] != e.Count {
			t.Errorf("word %q: count = %d, want %d", e.Key, e.Count, want[e.Key])
		}
	}
}

func TestWordModeDropsBleachedTokens(t *testing.T) {
	scrub := scrubberWith(t, `^[0-9]+$`)
	table := Build(logOf(rec("h", "d", "retry 42 retry 7")), ModeWord, scrub)

	if table.Len() != 1 {
		t.Fatalf("Len() = %d, want only the surviving token", table.Len())
	}
	e := table.Ranked()[0]
	if e.Key != "retry" || e.Count != 2 {
		t.Errorf("Ranked()[0] = %+v, want retry x2", e)
	}
}

func TestRankedOrder(t *testing.T) {
	records := []record.Record{
		rec("h", "beta", "m"),
		rec("h", "alpha", "m"),
		rec("h", "gamma", "m"),
		rec("h", "gamma", "m"),
	}

	table := Build(logOf(records...), ModeDaemon, filter.New())

	var keys []string
	for _, e := range table.Ranked() {
		keys = append(keys, e.Key)
	}
	want := []string{"gamma", "alpha", "beta"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("Ranked() keys = %v, want %v", keys, want)
		}
	}
}

func TestRenderSampleSmall(t *testing.T) {
	records := []record.Record{
		rec("h", "cron", "rare event detail"),
		rec("h", "sshd", "common"), rec("h", "sshd", "common"),
		rec("h", "sshd", "common"), rec("h", "sshd", "common"),
	}

	table := Build(logOf(records...), ModeDaemon, filter.New())
	table.Display = SampleSmall

	var buf bytes.Buffer
	if err := table.Render(&buf, rand.New(rand.NewSource(1))); err != nil {
		t.Fatal(err)
	}

	want := "4:\tsshd\n1:\trare event detail\n"
	if buf.String() != want {
		t.Errorf("Render() =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestRenderRawKey(t *testing.T) {
	table := Build(logOf(rec("h", "cron", "detail")), ModeDaemon, filter.New())
	table.Display = RawKey

	var buf bytes.Buffer
	if err := table.Render(&buf, rand.New(rand.NewSource(1))); err != nil {
		t.Fatal(err)
	}

	if buf.String() != "1:\tcron\n" {
		t.Errorf("Render() = %q, want key even for small counts", buf.String())
	}
}

func TestRenderSampleAll(t *testing.T) {
	records := []record.Record{
		rec("h", "sshd", "same message"),
		rec("h", "sshd", "same message"),
		rec("h", "sshd", "same message"),
		rec("h", "sshd", "same message"),
	}

	table := Build(logOf(records...), ModeDaemon, filter.New())
	table.Display = SampleAll

	var buf bytes.Buffer
	if err := table.Render(&buf, rand.New(rand.NewSource(1))); err != nil {
		t.Fatal(err)
	}

	if buf.String() != "4:\tsame message\n" {
		t.Errorf("Render() = %q, want a sampled message for every entry", buf.String())
	}
}
